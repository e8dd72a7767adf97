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

package intercept

// InterceptedCall describes one hookable call name: its fixed-arity shape
// after normalization plus the dispatch attributes the tracer needs. The
// table below is static configuration, never mutated at runtime; the
// per-OS/arch syscall numbers are bound at tracer initialization (the
// kernel's numbering differs per architecture, so no single constant is
// carried here).
type InterceptedCall struct {
	Name string

	// Arity of the call after trampoline normalization.
	Arity int

	// HasModeArg marks the calls whose final argument is an optional
	// creation mode, present only when the flags carry O_CREAT or
	// O_TMPFILE. The trampoline substitutes zero when absent.
	HasModeArg bool

	// FdReturning marks the calls whose success value is a descriptor.
	// When the virtual filesystem claims such a call, the descriptor it
	// produced lives in this daemon and must be injected into the tracee
	// before responding.
	FdReturning bool

	// Legacy marks the call names that newer architectures never carried
	// (linux/arm64 has no open, rename, mkdir, unlink or stat). Failure to
	// bind a legacy name on such an architecture is expected, not fatal;
	// the libc there issues the *at variant, which is always bound.
	Legacy bool
}

// interceptedCalls is the complete set of monitored call names. Each row is
// an invariant mapping validated against the running kernel when the tracer
// starts.
var interceptedCalls = []InterceptedCall{
	{Name: "open", Arity: 3, HasModeArg: true, FdReturning: true, Legacy: true},
	{Name: "openat", Arity: 4, HasModeArg: true, FdReturning: true},
	{Name: "openat2", Arity: 4, FdReturning: true},
	{Name: "creat", Arity: 2, FdReturning: true, Legacy: true},
	{Name: "rename", Arity: 2, Legacy: true},
	{Name: "renameat", Arity: 4},
	{Name: "fcntl", Arity: 3},
	{Name: "mkdir", Arity: 2, Legacy: true},
	{Name: "unlink", Arity: 1, Legacy: true},
	{Name: "stat", Arity: 2, Legacy: true},
	{Name: "fchmod", Arity: 2},
}

// callByName returns the table row for the given call name, or nil when the
// name is not monitored.
func callByName(name string) *InterceptedCall {
	for i := range interceptedCalls {
		if interceptedCalls[i].Name == name {
			return &interceptedCalls[i]
		}
	}
	return nil
}
