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

package domain

// InitPhase enumerates the bootstrap phases of the interception layer.
//
// Every intercepted syscall consults the current phase before any other
// logic runs. While the phase is hazardous, calls bypass the virtual
// filesystem entirely and are either executed by the raw-syscall backend or
// handed back to the kernel: servicing them through the VFS during that
// window would recurse into half-built state (the VFS initialization itself
// performs filesystem I/O that is subject to interception).
type InitPhase uint32

const (
	// EarlyInit is the zero-value phase: the process image is loaded but no
	// initialization has run yet.
	EarlyInit InitPhase = iota

	// BootstrapUnsafe is entered by the load-time constructor. Services are
	// being wired; the VFS contract must not be invoked.
	BootstrapUnsafe

	// RuntimeReady is entered once the interception machinery itself is
	// operational. The VFS contract may be consulted, though it may still
	// answer "not claimed" for everything until it reaches Ready.
	RuntimeReady

	// Ready is entered by the VFS service once its internal state (manifest,
	// descriptor table, content store) is fully constructed.
	Ready
)

func (p InitPhase) String() string {
	switch p {
	case EarlyInit:
		return "early-init"
	case BootstrapUnsafe:
		return "bootstrap-unsafe"
	case RuntimeReady:
		return "runtime-ready"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// PhaseMonitorIface gates every intercepted call on the bootstrap phase.
//
// Implementations must be safe for concurrent use from first load, must
// never hold locks across Advance() (phase transitions are lock-free), and
// must treat an out-of-order Advance() as a fatal integrity violation.
type PhaseMonitorIface interface {
	// IsHazardousPhase reports whether intercepted calls must bypass the
	// VFS contract. A single atomic read; safe from any goroutine at any
	// point of the process lifetime.
	IsHazardousPhase() bool

	// Current returns the phase last published via Advance().
	Current() InitPhase

	// Advance moves the phase forward. The phase only ever moves forward;
	// a backward or skipping transition panics.
	Advance(to InitPhase)

	// EnterReentrant marks the calling context as performing VFS-internal
	// filesystem I/O (e.g. the VFS reading its own backing store during
	// initialization). While the marker is held the phase is reported as
	// hazardous, so nested intercepted calls cannot recurse into the VFS.
	// The returned release function must be invoked on every exit path.
	EnterReentrant() (release func())
}
