// Package telemetry registers the bot's Prometheus metrics.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	CommandsHandled     *prometheus.CounterVec
	SubmissionsAccepted prometheus.Counter
	SubmissionsRejected prometheus.Counter
	SeedRollsSucceeded  prometheus.Counter
	SeedRollsFailed     prometheus.Counter
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_commands_handled_total",
			Help: "Commands processed, labeled by resolved verb",
		}, []string{"verb"})
		SubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bot_submissions_accepted_total",
			Help: "Leaderboard submissions accepted",
		})
		SubmissionsRejected = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bot_submissions_rejected_total",
			Help: "Leaderboard submissions rejected (format or duplicate)",
		})
		SeedRollsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bot_seed_rolls_succeeded_total",
			Help: "Scheduled or requested seed generations that succeeded",
		})
		SeedRollsFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bot_seed_rolls_failed_total",
			Help: "Seed generations that failed",
		})
	})
}
