// Package cli contains the command line interface for botscript.
//
// # Usage
//
//	botscript run greet.bs Main
//	botscript run --profile bot.yaml counter OnCommand alice '!count'
//	botscript check scripts/*.bs
//	botscript tokens --format yaml greet.bs
//	botscript repl greet.bs
//
// Script names without a path are looked up in the working directory, then
// in the --path directories, then in the directories listed by
// $BOTSCRIPT_PATH. The ".bs" extension may be omitted.
//
// # Configuration
//
// Flag defaults are read from config.yaml in the user configuration
// directory (see [pkg.ConfigFile]). Nested keys are joined with "-":
//
//	log:
//	  level: debug
//	  format: json
//	path:
//	  - ~/bots/scripts
//
// "botscript init" writes the file from the current flag values.
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: output format (text, json)
//   - --log-time-layout: timestamp format (RFC3339, Kitchen, ...)
//   - --log-caller: include caller information
//   - --log-pretty: colorize output
//
// At debug level the engine reports compile, prepare, and execute timings;
// at trace level it also reports token counts and generic instantiations.
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: profiling mode (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: profile output directory (default: the "pprof"
//     directory below the user cache directory)
package cli
