// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExpenseMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treevut_expense_mutations_total",
		Help: "Ledger mutations by operation.",
	}, []string{"op"})

	BadgesUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treevut_badges_unlocked_total",
		Help: "Badges unlocked across all users.",
	})

	StreakMilestones = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treevut_streak_milestones_total",
		Help: "Streak milestones reached across all users.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treevut_notifications_sent_total",
		Help: "Notifications dispatched, by outcome.",
	}, []string{"outcome"})

	ExtractionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treevut_extraction_requests_total",
		Help: "AI extraction requests, by kind and outcome.",
	}, []string{"kind", "outcome"})

	SyncPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treevut_sync_pushes_total",
		Help: "Debounced remote sync pushes, by outcome.",
	}, []string{"outcome"})
)
