package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cte_import_rows_total",
		Help: "Linhas processadas pela importacao de CT-es, por resultado",
	}, []string{"resultado"})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cte_import_duration_seconds",
		Help:    "Tempo total de uma importacao de arquivo",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"modo"})

	analisesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cte_analises_total",
		Help: "Total de analises financeiras geradas",
	})

	analiseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cte_analise_duration_seconds",
		Help:    "Tempo para gerar a analise completa",
		Buckets: prometheus.DefBuckets,
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cte_http_requests_total",
		Help: "Requisicoes HTTP atendidas pela API, por rota e status",
	}, []string{"rota", "status"})
)

func AddImportRows(resultado string, n int) {
	if n <= 0 {
		return
	}
	importRowsTotal.WithLabelValues(resultado).Add(float64(n))
}

func ObserveImportDuration(modo string, seconds float64) {
	importDuration.WithLabelValues(modo).Observe(seconds)
}

func ObserveAnalise(seconds float64) {
	analisesTotal.Inc()
	analiseDuration.Observe(seconds)
}

func ObserveHTTPRequest(rota, status string) {
	httpRequestsTotal.WithLabelValues(rota, status).Inc()
}
