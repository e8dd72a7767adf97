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

// Package boot implements the bootstrap state machine that every
// intercepted syscall consults before any other logic executes.
//
// Between process load and the point where the virtual filesystem has
// finished constructing its own state there is a window in which routing an
// intercepted call into the VFS can deadlock (the VFS initialization itself
// issues filesystem calls that are subject to interception) or crash on
// unconstructed state. The state machine's sole job is to make that window
// observable at the cost of a single atomic read per call.
//
// This package deliberately depends on nothing but the standard library and
// the domain types: it must be usable from code paths where no other
// service is guaranteed to be initialized. For the same reason an
// out-of-order phase transition aborts via panic rather than going through
// a logger.
package boot

import (
	"fmt"
	"sync/atomic"

	"github.com/riftfs/riftfs/domain"
)

type phaseMonitor struct {
	phase atomic.Uint32

	// reentrant counts the nesting depth of VFS-internal filesystem I/O.
	// While non-zero, the phase is reported hazardous regardless of the
	// published phase value, so nested intercepted calls cannot recurse
	// into the VFS while it is operating on itself.
	reentrant atomic.Int32
}

// NewPhaseMonitor returns a monitor in the EarlyInit phase.
func NewPhaseMonitor() domain.PhaseMonitorIface {
	return &phaseMonitor{}
}

func (m *phaseMonitor) Current() domain.InitPhase {
	return domain.InitPhase(m.phase.Load())
}

// IsHazardousPhase reports whether intercepted calls must bypass the VFS.
// EarlyInit and BootstrapUnsafe are hazardous; so is any phase while the
// re-entrant marker is held.
func (m *phaseMonitor) IsHazardousPhase() bool {
	if m.reentrant.Load() > 0 {
		return true
	}
	return domain.InitPhase(m.phase.Load()) < domain.RuntimeReady
}

// Advance publishes a forward phase transition. The legal chain is
// EarlyInit -> BootstrapUnsafe -> RuntimeReady -> Ready, where the first
// transition may land on either BootstrapUnsafe or RuntimeReady (a
// constructor that finishes wiring before the first intercepted call
// arrives publishes RuntimeReady directly). Any backward transition, and
// the EarlyInit -> Ready skip, is an integrity violation: the process state
// can no longer be trusted, so we abort instead of continuing on a
// potentially unsafe code path.
func (m *phaseMonitor) Advance(to domain.InitPhase) {
	for {
		cur := domain.InitPhase(m.phase.Load())

		if to <= cur {
			panic(fmt.Sprintf(
				"boot: illegal phase transition %v -> %v (phase only moves forward)",
				cur, to))
		}
		if cur == domain.EarlyInit && to == domain.Ready {
			panic(fmt.Sprintf(
				"boot: illegal phase transition %v -> %v (bootstrap skipped)",
				cur, to))
		}

		if m.phase.CompareAndSwap(uint32(cur), uint32(to)) {
			return
		}
		// Lost a race against a concurrent Advance; re-validate against the
		// new value. The loop stays lock-free: there is nothing to wait on.
	}
}

// EnterReentrant pushes the re-entrant hazard marker and returns the
// matching pop. Callers must invoke the release function on every exit
// path, including failure.
func (m *phaseMonitor) EnterReentrant() func() {
	m.reentrant.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			m.reentrant.Add(-1)
		}
	}
}
