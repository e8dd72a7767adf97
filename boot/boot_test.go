//
// Copyright 2024-2026 The Riftfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package boot

import (
	"sync"
	"testing"

	"github.com/riftfs/riftfs/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseMonitor_ForwardChain(t *testing.T) {
	m := NewPhaseMonitor()

	assert.Equal(t, domain.EarlyInit, m.Current())
	assert.True(t, m.IsHazardousPhase())

	m.Advance(domain.BootstrapUnsafe)
	assert.Equal(t, domain.BootstrapUnsafe, m.Current())
	assert.True(t, m.IsHazardousPhase())

	m.Advance(domain.RuntimeReady)
	assert.Equal(t, domain.RuntimeReady, m.Current())
	assert.False(t, m.IsHazardousPhase())

	m.Advance(domain.Ready)
	assert.Equal(t, domain.Ready, m.Current())
	assert.False(t, m.IsHazardousPhase())
}

func TestPhaseMonitor_ConstructorMaySkipBootstrapUnsafe(t *testing.T) {
	m := NewPhaseMonitor()

	// EarlyInit -> RuntimeReady is a legal first transition.
	assert.NotPanics(t, func() { m.Advance(domain.RuntimeReady) })
	assert.False(t, m.IsHazardousPhase())
}

func TestPhaseMonitor_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(m domain.PhaseMonitorIface)
		to      domain.InitPhase
	}{
		{
			name:    "backward from runtime-ready",
			prepare: func(m domain.PhaseMonitorIface) { m.Advance(domain.RuntimeReady) },
			to:      domain.BootstrapUnsafe,
		},
		{
			name:    "same phase",
			prepare: func(m domain.PhaseMonitorIface) { m.Advance(domain.BootstrapUnsafe) },
			to:      domain.BootstrapUnsafe,
		},
		{
			name:    "early-init to ready skip",
			prepare: func(m domain.PhaseMonitorIface) {},
			to:      domain.Ready,
		},
		{
			name: "backward from ready",
			prepare: func(m domain.PhaseMonitorIface) {
				m.Advance(domain.BootstrapUnsafe)
				m.Advance(domain.RuntimeReady)
				m.Advance(domain.Ready)
			},
			to: domain.RuntimeReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPhaseMonitor()
			tt.prepare(m)
			assert.Panics(t, func() { m.Advance(tt.to) })
		})
	}
}

func TestPhaseMonitor_ReentrantMarker(t *testing.T) {
	m := NewPhaseMonitor()
	m.Advance(domain.RuntimeReady)
	require.False(t, m.IsHazardousPhase())

	release := m.EnterReentrant()
	assert.True(t, m.IsHazardousPhase())

	// Nesting: outer marker still held after the inner one is popped.
	inner := m.EnterReentrant()
	inner()
	assert.True(t, m.IsHazardousPhase())

	release()
	assert.False(t, m.IsHazardousPhase())

	// Double-release must not underflow the marker.
	release()
	assert.False(t, m.IsHazardousPhase())
}

func TestPhaseMonitor_ConcurrentReaders(t *testing.T) {
	m := NewPhaseMonitor()
	m.Advance(domain.BootstrapUnsafe)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers hammer the monitor while the phase advances underneath them;
	// they must only ever observe the hazard flag flipping once from true
	// to false (no torn or backward values).
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sawSafe := false
			for {
				select {
				case <-stop:
					return
				default:
				}
				if !m.IsHazardousPhase() {
					sawSafe = true
				} else if sawSafe {
					t.Error("phase regressed from non-hazardous to hazardous")
					return
				}
			}
		}()
	}

	m.Advance(domain.RuntimeReady)
	m.Advance(domain.Ready)
	close(stop)
	wg.Wait()
}
