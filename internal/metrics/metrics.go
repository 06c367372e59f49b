package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label used for tagging runs.
const JobName = "ward_tagger"

type Metrics struct {
	MembersProcessed *prometheus.CounterVec
	Taggings         *prometheus.CounterVec
	Errors           prometheus.Counter
	GeocodeCache     *prometheus.CounterVec
	RequestSeconds   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		MembersProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ward_tagger_members_total",
			Help: "Total number of members resolved, by resolution strategy.",
		}, []string{"strategy"}),
		Taggings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ward_tagger_taggings_total",
			Help: "Total number of taggings changed in the remote service, by operation.",
		}, []string{"op"}),
		Errors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ward_tagger_errors_total",
			Help: "Total number of non-fatal errors encountered during a run.",
		}),
		GeocodeCache: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ward_tagger_geocode_cache_total",
			Help: "Total number of geocode cache lookups, by result.",
		}, []string{"result"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ward_tagger_geocode_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}

// Push sends every metric gathered from gatherer to the Pushgateway at url.
func Push(ctx context.Context, url string, gatherer prometheus.Gatherer) error {
	if err := push.New(url, JobName).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	return nil
}
