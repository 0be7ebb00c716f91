package prometheus_metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPort = "9746"

// PrometheusMetrics records crontab store activity. A nil
// *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	StoreLoadsCounter      *prometheus.CounterVec
	StoreSavesCounter      *prometheus.CounterVec
	StoreFailuresCounter   *prometheus.CounterVec
	JobsGauge              *prometheus.GaugeVec
	StoreSaveTimeHistogram *prometheus.HistogramVec
	gatherer               prometheus.Gatherer
	listenAddr             string
	srv                    *http.Server
}

func New(promListenAddr string) *PrometheusMetrics {
	return NewWithRegistry(promListenAddr, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewWithRegistry(promListenAddr string, registerer prometheus.Registerer, gatherer prometheus.Gatherer) *PrometheusMetrics {
	pm := PrometheusMetrics{}

	pm.listenAddr = promListenAddr
	pm.gatherer = gatherer

	pm.StoreLoadsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronman_store_loads",
			Help: "count of crontab loads",
		},
		[]string{"target"},
	)
	registerer.MustRegister(pm.StoreLoadsCounter)

	pm.StoreSavesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronman_store_saves",
			Help: "count of successful crontab saves",
		},
		[]string{"target"},
	)
	registerer.MustRegister(pm.StoreSavesCounter)

	pm.StoreFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronman_store_failures",
			Help: "count of failed crontab store operations",
		},
		[]string{"target", "operation"},
	)
	registerer.MustRegister(pm.StoreFailuresCounter)

	pm.JobsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cronman_jobs",
			Help: "count of jobs in the crontab as last loaded or saved",
		},
		[]string{"target", "state"},
	)
	registerer.MustRegister(pm.JobsGauge)

	pm.StoreSaveTimeHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cronman_store_save_time_seconds",
			Help:    "time taken to write a crontab",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"target"},
	)
	registerer.MustRegister(pm.StoreSaveTimeHistogram)

	return &pm
}

func (p *PrometheusMetrics) ObserveLoad(target string, enabled, disabled int) {
	if p == nil {
		return
	}
	p.StoreLoadsCounter.With(prometheus.Labels{"target": target}).Inc()
	p.setJobs(target, enabled, disabled)
}

func (p *PrometheusMetrics) ObserveSave(target string, enabled, disabled int, took time.Duration) {
	if p == nil {
		return
	}
	p.StoreSavesCounter.With(prometheus.Labels{"target": target}).Inc()
	p.StoreSaveTimeHistogram.With(prometheus.Labels{"target": target}).Observe(took.Seconds())
	p.setJobs(target, enabled, disabled)
}

func (p *PrometheusMetrics) ObserveFailure(target, operation string) {
	if p == nil {
		return
	}
	p.StoreFailuresCounter.With(prometheus.Labels{"target": target, "operation": operation}).Inc()
}

func (p *PrometheusMetrics) setJobs(target string, enabled, disabled int) {
	p.JobsGauge.With(prometheus.Labels{"target": target, "state": "enabled"}).Set(float64(enabled))
	p.JobsGauge.With(prometheus.Labels{"target": target, "state": "disabled"}).Set(float64(disabled))
}

func (p *PrometheusMetrics) Reset() {
	p.StoreLoadsCounter.Reset()
	p.StoreSavesCounter.Reset()
	p.StoreFailuresCounter.Reset()
	p.JobsGauge.Reset()
	p.StoreSaveTimeHistogram.Reset()
}

// getAddr fills in the default port when addr has none.
func getAddr(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("empty listen address")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = DefaultPort
	}

	joined := net.JoinHostPort(host, port)
	if _, _, err := net.SplitHostPort(joined); err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}

	return joined, nil
}

func (p *PrometheusMetrics) InitHTTPServer() error {
	addr, err := getAddr(p.listenAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>cronman</title></head>
             <body>
             <h1>cronman</h1>
             <p><a href='/metrics'>Metrics</a></p>
             </body>
             </html>`))
	})

	p.srv = &http.Server{Addr: addr, Handler: mux}
	return p.srv.ListenAndServe()
}

func (p *PrometheusMetrics) ShutdownHTTPServer(c context.Context) error {
	if p.srv == nil {
		return nil
	}
	return p.srv.Shutdown(c)
}
