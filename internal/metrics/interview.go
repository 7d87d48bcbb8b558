package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interviewTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hireloop",
			Subsystem: "interview",
			Name:      "transitions_total",
			Help:      "面试状态迁移次数。",
		},
		[]string{"to"},
	)

	interviewScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hireloop",
			Subsystem: "interview",
			Name:      "score",
			Help:      "面试结束时的总分（0-10）。",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"policy"},
	)

	providerDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hireloop",
			Subsystem: "ai",
			Name:      "degraded_total",
			Help:      "AI 调用失败或返回无法解析内容、流程降级继续的次数。",
		},
		[]string{"op"},
	)
)

// ObserveTransition 记录一次状态迁移。
func ObserveTransition(to string) {
	interviewTransitions.WithLabelValues(to).Inc()
}

// ObserveScore 记录面试总分。
func ObserveScore(policy string, score float64) {
	interviewScores.WithLabelValues(policy).Observe(score)
}

// ObserveProviderDegraded 记录一次 AI 降级。
func ObserveProviderDegraded(op string) {
	providerDegraded.WithLabelValues(op).Inc()
}
