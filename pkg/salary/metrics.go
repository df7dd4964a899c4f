package salary

import (
	"github.com/BinLe1988/payday-server/pkg/vault"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 工资金额解密指标
type Metrics struct {
	DecryptFailures *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标，reg 为 nil 时使用默认注册器
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		DecryptFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "salary",
				Name:      "decrypt_failures_total",
				Help:      "Salary amounts that could not be decrypted, by scheme",
			},
			[]string{"scheme"},
		),
	}
}

func (m *Metrics) decryptFailed(scheme vault.Scheme) {
	if m == nil {
		return
	}
	m.DecryptFailures.WithLabelValues(scheme.String()).Inc()
}
