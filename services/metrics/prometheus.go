// Package metrics exposes link translation and HTTP request counters to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/quizbank/core/question"
)

const namespace = "quizbank"

type Collector struct {
	registry *prometheus.Registry

	passes        prometheus.Counter
	changed       prometheus.Counter
	links         *prometheus.CounterVec
	clones        *prometheus.CounterVec
	cacheHits     prometheus.Counter
	passDuration  prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

var _ question.Observer = (*Collector)(nil) // interface compliance check

// NewCollector registers every metric on a fresh registry, along with the go runtime
// and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_translation_passes_total",
			Help:      "Link translation passes run over questions.",
		}),
		changed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_translation_changed_total",
			Help:      "Link translation passes that rewrote the question payload.",
		}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_translation_links_total",
			Help:      "File links found during translation passes, by outcome.",
		}, []string{"outcome"}),
		clones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_translation_clones_total",
			Help:      "Attachment clones attempted during translation passes, by result.",
		}, []string{"result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_translation_cache_hits_total",
			Help:      "File references resolved from the per-pass cache.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "link_translation_pass_duration_seconds",
			Help:      "Duration of link translation passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route.",
		}, []string{"method", "route", "status"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.passes, c.changed, c.links, c.clones, c.cacheHits, c.passDuration,
		c.httpRequests, c.httpDurations,
	)
	return c
}

func (c *Collector) ObservePass(stats question.PassStats) {
	c.passes.Inc()
	if stats.Changed {
		c.changed.Inc()
	}
	c.links.WithLabelValues("rewritten").Add(float64(stats.Rewritten))
	c.links.WithLabelValues("unresolved").Add(float64(stats.Unresolved))
	c.clones.WithLabelValues("ok").Add(float64(stats.Cloned))
	c.clones.WithLabelValues("failed").Add(float64(stats.CloneFailures))
	c.cacheHits.Add(float64(stats.CacheHits))
	c.passDuration.Observe(stats.Duration.Seconds())
}

// ObserveRequest records one served request. route is the registered path pattern,
// never the raw url, to keep the label set bounded.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
