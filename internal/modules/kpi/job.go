package kpi

// ScreenJob adapts the weekly screen to the scheduler.
type ScreenJob struct {
	service *Service
}

// NewScreenJob wraps the service for cron execution.
func NewScreenJob(service *Service) *ScreenJob {
	return &ScreenJob{service: service}
}

// Name identifies the job in scheduler logs.
func (j *ScreenJob) Name() string { return "kpi-screen" }

// Run executes one full screen batch.
func (j *ScreenJob) Run() error { return j.service.RunScreen() }
