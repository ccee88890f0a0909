package scheduler

// FuncJob adapts a plain function to the Job interface, used for small
// maintenance tasks like cache purges.
type FuncJob struct {
	name string
	fn   func() error
}

// NewFuncJob wraps fn as a named job.
func NewFuncJob(name string, fn func() error) *FuncJob {
	return &FuncJob{name: name, fn: fn}
}

// Name identifies the job in scheduler logs.
func (j *FuncJob) Name() string { return j.name }

// Run executes the wrapped function.
func (j *FuncJob) Run() error { return j.fn() }
