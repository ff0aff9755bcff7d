package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A metric with a constant '1' value labeled by version and goversion.",
		},
		[]string{"version", "goversion"},
	)
	tickOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tick_operations",
			Help: "Incremented for each audit tick, labeled by success or failure.",
		},
		[]string{"success"},
	)
	tickDur = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "tick_duration_seconds",
			Help: "Summary of how long a single audit tick takes to complete.",
		},
	)
	updatesProcessed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "updates_processed_total",
			Help: "Total number of updates the auditor has verified and applied.",
		},
	)
	ticksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ticks_skipped_total",
			Help: "Total number of ticks abandoned because a previous tick still held the auditor's lock.",
		},
	)
	headsSigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "heads_signed_total",
			Help: "Total number of tree heads signed, transmitted, and persisted by the auditor.",
		},
	)
	transportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transport_errors_total",
			Help: "Total number of tick failures caused by a transport error.",
		},
	)
	persistenceErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "persistence_errors_total",
			Help: "Total number of tick failures caused by a persistence error.",
		},
	)
)

func metrics(addr string) {
	buildInfo.WithLabelValues(Version, GoVersion).Set(1)
	prometheus.MustRegister(buildInfo)
	prometheus.MustRegister(tickOps)
	prometheus.MustRegister(tickDur)
	prometheus.MustRegister(updatesProcessed)
	prometheus.MustRegister(ticksSkipped)
	prometheus.MustRegister(headsSigned)
	prometheus.MustRegister(transportErrors)
	prometheus.MustRegister(persistenceErrors)

	r := mux.NewRouter()
	r.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(rw, "Hi, I'm a ktaudit metrics and health server!")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(rw, "ok")
	})
	r.HandleFunc("/debug/version", func(rw http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(rw, "Version: %s, GoVersion: %s", Version, GoVersion)
	})

	srv := &http.Server{Addr: addr, Handler: r}
	log.Printf("Starting metrics server at: %v", addr)
	log.Fatal(srv.ListenAndServe())
}
