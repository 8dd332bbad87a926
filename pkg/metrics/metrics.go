package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "funnelstore"

	metricLabelAction = "action"
	metricLabelStatus = "status"
)

var (
	// ServiceRequestCounter count the number of requests for each action
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each action",
		metricLabelAction, metricLabelStatus,
	)
	// ServiceRequestDuration observe the duration of requests for each action
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to decode a request, execute the action and encode its response",
		metricLabelAction, metricLabelStatus,
	)
	// UnauthorizedRequestCounter count the requests rejected for a missing or wrong credential
	UnauthorizedRequestCounter = newCounterVec(
		"unauthorized_request_count",
		"Number of requests rejected by the admin credential check",
		metricLabelAction,
	)
	// BackupsCreatedCounter count the backups taken before a save
	BackupsCreatedCounter = newCounterVec(
		"backups_created_count",
		"Number of backups written before overwriting the current document",
	)
	// BackupsPrunedCounter count the backups deleted by the retention window
	BackupsPrunedCounter = newCounterVec(
		"backups_pruned_count",
		"Number of backups deleted to stay within the retention window",
	)
	// CurrentReadFallbackCounter count the reads answered with the empty default after a storage error
	CurrentReadFallbackCounter = newCounterVec(
		"current_read_fallback_count",
		"Number of current document reads that failed and served the empty default",
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
