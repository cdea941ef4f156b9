package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filedepot/filedepot/pkg/handler"
	"github.com/filedepot/filedepot/pkg/prometheuscollector"
)

// SetupMetrics exposes the handler counters in the Prometheus format on a
// side HTTP endpoint. The raw-socket core never serves metrics itself.
func SetupMetrics(h *handler.Handler) {
	prometheus.MustRegister(prometheuscollector.New(h.Metrics))

	mux := http.NewServeMux()
	mux.Handle(Flags.MetricsPath, promhttp.Handler())

	go func() {
		logger.Info().
			Str("addr", Flags.MetricsAddr).
			Str("path", Flags.MetricsPath).
			Msg("metrics endpoint enabled")
		if err := http.ListenAndServe(Flags.MetricsAddr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}
