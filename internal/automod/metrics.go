package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_violations_total",
	Help: "Number of AutoMod violations detected",
}, []string{"feature", "action"})

var punishmentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_punishments_total",
	Help: "Number of AutoMod punishments by outcome",
}, []string{"punishment", "result"})

var featureErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_feature_errors_total",
	Help: "Number of feature evaluations that failed",
}, []string{"feature"})

var exemptCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_exempt_total",
	Help: "Number of evaluations skipped by a whitelist exemption",
}, []string{"feature"})
