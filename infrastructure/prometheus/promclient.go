package promclient

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var OpenOrderBookGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "kraken_open_order_book",
		Help: "number of locally mirrored order books",
	},
)

var BookUpdatesApplied = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "kraken_book_updates_applied_total",
		Help: "incremental book updates applied to the local mirror",
	},
)

var ChecksumChecks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "kraken_book_checksum_checks_total",
		Help: "book checksum comparisons performed",
	},
)

var ChecksumMismatches = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "kraken_book_checksum_mismatches_total",
		Help: "book checksum comparisons that detected a desynchronized mirror",
	},
)

var SnapshotEntriesDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "kraken_book_snapshot_entries_dropped_total",
		Help: "unparsable snapshot entries dropped during book initialization",
	},
)

func StartPromClientServer(addr string) {
	reg := prometheus.NewRegistry()
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	reg.MustRegister(OpenOrderBookGauge)
	reg.MustRegister(BookUpdatesApplied)
	reg.MustRegister(ChecksumChecks)
	reg.MustRegister(ChecksumMismatches)
	reg.MustRegister(SnapshotEntriesDropped)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promHandler)
	log.Printf("prometheus server listening at %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
