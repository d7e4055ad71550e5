package profile

// Profiler describes a profiling session.
type Profiler struct {
	// Mode selects what is profiled. See [Modes] for the accepted names.
	Mode string
	// Path is the output directory. The current directory is used when empty.
	Path string
	// Quiet suppresses the profiler's own start and stop messages.
	Quiet bool
}

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Start begins profiling and returns a [Stopper] that must be called to end
// the session.
//
// A no-op Stopper is returned when the binary was built without the pprof
// tag, when Mode is empty, or when Mode is not one of [Modes]. Stop is always
// safely callable.
func (p Profiler) Start() Stopper {
	if p.Mode == "" || !Enabled {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
