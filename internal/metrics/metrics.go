// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScanRecorder はスキャンサイクルのメトリクス収集インターフェース。
// ワーカーから利用する。
type ScanRecorder interface {
	RecordCycle(candidates int)
	RecordCycleFailure()
	RecordNotified()
	RecordClaimConflict()
	RecordClaimFailure()
	RecordDeliveryFailure()
	RecordCycleLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	scanCycles       prometheus.Counter
	scanFailures     prometheus.Counter
	scanCandidates   prometheus.Counter
	goalsNotified    prometheus.Counter
	claimConflicts   prometheus.Counter
	claimFailures    prometheus.Counter
	deliveryFailures prometheus.Counter
	scanCycleLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scanCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_scan_cycles_total",
			Help: "完了したスキャンサイクルの合計数",
		}),
		scanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_scan_failures_total",
			Help: "クエリ失敗により中断したスキャンサイクルの合計数",
		}),
		scanCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_scan_candidates_total",
			Help: "スキャンで検出した通知候補目標の合計数",
		}),
		goalsNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_goals_notified_total",
			Help: "通知を配送した目標の合計数",
		}),
		claimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_claim_conflicts_total",
			Help: "他サイクル・他インスタンスがクレーム済みだった目標の合計数",
		}),
		claimFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_claim_failures_total",
			Help: "ストア障害によりクレームに失敗した目標の合計数",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalkeep_delivery_failures_total",
			Help: "クレーム成功後に配送へ失敗した通知の合計数",
		}),
		scanCycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goalkeep_scan_cycle_latency_seconds",
			Help:    "スキャンサイクルのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.scanCycles,
		c.scanFailures,
		c.scanCandidates,
		c.goalsNotified,
		c.claimConflicts,
		c.claimFailures,
		c.deliveryFailures,
		c.scanCycleLatency,
	)

	return c
}

// RecordCycle はサイクル完了と候補数を記録する。
func (c *Collector) RecordCycle(candidates int) {
	c.scanCycles.Inc()
	c.scanCandidates.Add(float64(candidates))
}

// RecordCycleFailure はサイクル中断を記録する。
func (c *Collector) RecordCycleFailure() {
	c.scanFailures.Inc()
}

// RecordNotified は通知配送を記録する。
func (c *Collector) RecordNotified() {
	c.goalsNotified.Inc()
}

// RecordClaimConflict はクレーム競合によるスキップを記録する。
func (c *Collector) RecordClaimConflict() {
	c.claimConflicts.Inc()
}

// RecordClaimFailure はクレームのストア障害を記録する。
func (c *Collector) RecordClaimFailure() {
	c.claimFailures.Inc()
}

// RecordDeliveryFailure は配送失敗を記録する。
func (c *Collector) RecordDeliveryFailure() {
	c.deliveryFailures.Inc()
}

// RecordCycleLatency はサイクルのレイテンシを記録する。
func (c *Collector) RecordCycleLatency(duration time.Duration) {
	c.scanCycleLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ ScanRecorder = (*Collector)(nil)
