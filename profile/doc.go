// Package profile provides optional runtime profiling for the botscript
// command.
//
// Profiling is backed by [github.com/pkg/profile] and compiled in only when
// the "pprof" build tag is set:
//
//	go build -tags pprof .
//
// Without the tag every [Profiler] is a no-op and [Modes] is empty, so the
// CLI hides its --pprof-* flags.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     block (synchronization) profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap memory profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace
//
// # Usage
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles", Quiet: true}
//	defer p.Start().Stop()
//
// Profiles are written below Path using the mode's conventional file name
// (cpu.pprof, mem.pprof, ...) and can be inspected with:
//
//	go tool pprof -http=: /tmp/profiles/cpu.pprof
//
// A long-running script is usually best profiled in cpu or clock mode with a
// large --max-steps budget, so that evaluation dominates compilation.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
