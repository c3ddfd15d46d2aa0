package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Copy tiers used as metric labels.
const (
	TierGuest = "guest"
	TierFree  = "free"
	TierPro   = "pro"
)

var (
	// CopyDecisions counts copy attempts by caller tier and outcome.
	CopyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptlime_copy_decisions_total",
		Help: "Copy requests by tier and outcome (granted, denied)",
	}, []string{"tier", "outcome"})

	// EngagementEvents counts counter mutations by kind (view, copy, like, unlike).
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptlime_engagement_events_total",
		Help: "Engagement counter mutations by kind",
	}, []string{"kind"})

	// ReportTransitions counts moderation report state changes.
	ReportTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptlime_report_transitions_total",
		Help: "Moderation report transitions (submitted, resolved, dismissed)",
	}, []string{"transition"})

	// NotificationsCreated counts inbox rows created per scope.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptlime_notifications_created_total",
		Help: "Notifications created by fan-out scope",
	}, []string{"scope"})

	// WebSocketBackpressureDrops counts realtime messages dropped due to backpressure.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptlime_websocket_backpressure_drops_total",
		Help: "Realtime messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// RecordCopy records a copy decision.
func RecordCopy(tier string, granted bool) {
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	CopyDecisions.WithLabelValues(tier, outcome).Inc()
}
