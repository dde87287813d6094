package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "announcement_emails_sent_total",
			Help: "Play day emails accepted by the gateway",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "announcement_email_failures_total",
			Help: "Play day emails that failed for one recipient",
		},
	)

	JobsEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_jobs_enqueued_total",
			Help: "Total email jobs queued",
		},
	)

	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_jobs_finished_total",
			Help: "Total email jobs that reached a terminal status",
		},
		[]string{"status"},
	)

	JobsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_jobs_reaped_total",
			Help: "Jobs failed after being stuck in processing",
		},
	)

	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "email_job_duration_seconds",
			Help:    "Time from claim to terminal status",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(JobsEnqueued)
	prometheus.MustRegister(JobsFinished)
	prometheus.MustRegister(JobsReaped)
	prometheus.MustRegister(JobDuration)
}
