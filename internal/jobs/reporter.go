package jobs

// Reporter is the metrics surface background jobs depend on. *Metrics
// satisfies it; jobs treat a nil Reporter as metrics disabled.
type Reporter interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

var _ Reporter = (*Metrics)(nil)
