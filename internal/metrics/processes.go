// Package metrics provides Prometheus metrics for project processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "projectnode",
		Subsystem: "processes",
		Name:      "running",
		Help:      "Number of currently tracked project processes",
	})

	processStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "projectnode",
		Subsystem: "processes",
		Name:      "starts_total",
		Help:      "Total successful process starts",
	})

	processStops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "projectnode",
		Subsystem: "processes",
		Name:      "stop_requests_total",
		Help:      "Total accepted stop requests",
	})

	processExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projectnode",
		Subsystem: "processes",
		Name:      "exits_total",
		Help:      "Total process exits by outcome",
	}, []string{"outcome"})

	projectsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "projectnode",
		Subsystem: "projects",
		Name:      "created_total",
		Help:      "Total projects materialized from templates",
	})

	logLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projectnode",
		Subsystem: "logs",
		Name:      "lines_total",
		Help:      "Total captured log lines by project and stream",
	}, []string{"project", "stream"})
)

// SetRunning sets the running process gauge.
func SetRunning(n int) {
	processesRunning.Set(float64(n))
}

// IncStarts records a successful process start.
func IncStarts() {
	processStarts.Inc()
}

// IncStopRequests records an accepted stop request.
func IncStopRequests() {
	processStops.Inc()
}

// IncExits records a process exit. Outcome is "clean" for exit code 0,
// "error" otherwise.
func IncExits(exitCode int) {
	outcome := "clean"
	if exitCode != 0 {
		outcome = "error"
	}
	processExits.WithLabelValues(outcome).Inc()
}

// IncProjectsCreated records a project materialization.
func IncProjectsCreated() {
	projectsCreated.Inc()
}

// IncLogLines records a captured log line.
func IncLogLines(project, stream string) {
	logLines.WithLabelValues(project, stream).Inc()
}

// DeleteLogLines removes log line counters for a project.
func DeleteLogLines(project string) {
	logLines.DeletePartialMatch(prometheus.Labels{"project": project})
}
