package moderation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 失败阶段
const (
	StageLoad     = "load"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"
	StageQueue    = "queue"
)

// Metrics 审核任务指标
type Metrics struct {
	Evaluations  *prometheus.CounterVec
	TaskFailures *prometheus.CounterVec
	DeadLetters  *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Swept        *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册审核指标，reg 为 nil 时使用默认注册器
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "evaluations_total",
				Help:      "Moderation evaluations by content kind and action",
			},
			[]string{"kind", "action"},
		),
		TaskFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "task_failures_total",
				Help:      "Failed moderation tasks by content kind and stage",
			},
			[]string{"kind", "stage"},
		),
		DeadLetters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "dead_letter_total",
				Help:      "Moderation tasks moved to the dead-letter list",
			},
			[]string{"kind"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "task_duration_seconds",
				Help:      "Moderation task processing time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		Swept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "swept_total",
				Help:      "Never-scored content re-enqueued by the sweeper",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) evaluated(kind Kind, action string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(string(kind), action).Inc()
}

func (m *Metrics) failed(kind Kind, stage string) {
	if m == nil {
		return
	}
	m.TaskFailures.WithLabelValues(string(kind), stage).Inc()
}

func (m *Metrics) deadLettered(kind Kind) {
	if m == nil {
		return
	}
	m.DeadLetters.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observe(kind Kind, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) swept(kind Kind, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Swept.WithLabelValues(string(kind)).Add(float64(n))
}
