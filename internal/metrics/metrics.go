// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 認証イベント、プロフィールブートストラップ、HTTPレスポンスを記録する。
type Collector struct {
	signupTotal         prometheus.Counter
	signinSuccess       prometheus.Counter
	signinFail          *prometheus.CounterVec
	confirmationSuccess prometheus.Counter
	confirmationFail    *prometheus.CounterVec
	profileBootstrap    *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	httpDuration        prometheus.Histogram
	cleanupDeleted      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signupTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ugresearch_signup_total",
			Help: "サインアップ成功の合計数",
		}),
		signinSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ugresearch_signin_success_total",
			Help: "サインイン成功の合計数",
		}),
		signinFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugresearch_signin_fail_total",
			Help: "サインイン失敗の理由別合計数",
		}, []string{"reason"}),
		confirmationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ugresearch_confirmation_success_total",
			Help: "メール確認成功の合計数",
		}),
		confirmationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugresearch_confirmation_fail_total",
			Help: "メール確認失敗の理由別合計数",
		}, []string{"reason"}),
		profileBootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugresearch_profile_bootstrap_total",
			Help: "プロフィールブートストラップの結果別合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugresearch_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ugresearch_http_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugresearch_cleanup_deleted_total",
			Help: "クリーンアップで削除された行の種別合計数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.signupTotal,
		c.signinSuccess,
		c.signinFail,
		c.confirmationSuccess,
		c.confirmationFail,
		c.profileBootstrap,
		c.httpStatus,
		c.httpDuration,
		c.cleanupDeleted,
	)

	return c
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signupTotal.Inc()
}

// RecordSignInSuccess はサインイン成功を記録する。
func (c *Collector) RecordSignInSuccess() {
	c.signinSuccess.Inc()
}

// RecordSignInFailure はサインイン失敗を理由付きで記録する。
func (c *Collector) RecordSignInFailure(reason string) {
	c.signinFail.WithLabelValues(reason).Inc()
}

// RecordConfirmationSuccess はメール確認成功を記録する。
func (c *Collector) RecordConfirmationSuccess() {
	c.confirmationSuccess.Inc()
}

// RecordConfirmationFailure はメール確認失敗を理由付きで記録する。
func (c *Collector) RecordConfirmationFailure(reason string) {
	c.confirmationFail.WithLabelValues(reason).Inc()
}

// RecordBootstrap はプロフィールブートストラップの結果を記録する。
// outcome: existing, created, conflict_refetched, failed
func (c *Collector) RecordBootstrap(outcome string) {
	c.profileBootstrap.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest はHTTPレスポンスのステータスと処理時間を記録する。
func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	c.httpDuration.Observe(duration.Seconds())
}

// RecordCleanupDeleted はクリーンアップで削除された行数を種別付きで記録する。
func (c *Collector) RecordCleanupDeleted(kind string, count int64) {
	c.cleanupDeleted.WithLabelValues(kind).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
