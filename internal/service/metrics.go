package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "chatguard_event_duration_sec",
	Help: "Duration of moderation event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_decisions",
	Help: "Moderation decisions by kind",
}, []string{"decision"})

var verificationOutcomeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_verification_outcomes",
	Help: "Join challenges by outcome",
}, []string{"outcome"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_platform_actions",
	Help: "Platform actions by kind and result",
}, []string{"action", "result"})

var spamScore = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "chatguard_spam_score",
	Help:    "Score of messages that fired at least one signal",
	Buckets: []float64{10, 20, 30, 40, 50, 60, 80, 100, 150},
})

var classifierCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_classifier_calls",
	Help: "External classifier calls by verdict",
}, []string{"verdict"})

var pendingVerifications = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chatguard_pending_verifications",
	Help: "Members currently holding an open challenge",
})
