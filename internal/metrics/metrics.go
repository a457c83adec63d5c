// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/bookcal/internal/calendar"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ゲートウェイ、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordAppointment(operation, result string)
	RecordSlotConflict()
	ObserveCalendarCall(operation string, duration time.Duration, err error)
	RecordHTTPStatus(statusCode int)
	RecordLogin(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	appointments    *prometheus.CounterVec
	slotConflicts   prometheus.Counter
	calendarLatency *prometheus.HistogramVec
	calendarErrors  *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcal_appointments_total",
			Help: "予約操作の合計数（操作・結果別）",
		}, []string{"operation", "result"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookcal_slot_conflicts_total",
			Help: "枠の重複を検出した合計数",
		}),
		calendarLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookcal_calendar_latency_seconds",
			Help:    "カレンダーAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		calendarErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcal_calendar_errors_total",
			Help: "カレンダーAPI呼び出しの失敗数（分類別）",
		}, []string{"class"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookcal_logins_total",
			Help: "OAuthログインの合計数（結果別）",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.appointments,
		c.slotConflicts,
		c.calendarLatency,
		c.calendarErrors,
		c.httpStatus,
		c.logins,
	)

	return c
}

// RecordAppointment は予約操作の結果を記録する。
func (c *Collector) RecordAppointment(operation, result string) {
	c.appointments.WithLabelValues(operation, result).Inc()
}

// RecordSlotConflict は枠の重複検出を記録する。
func (c *Collector) RecordSlotConflict() {
	c.slotConflicts.Inc()
}

// ObserveCalendarCall はカレンダーAPI呼び出しのレイテンシと失敗分類を記録する。
func (c *Collector) ObserveCalendarCall(operation string, duration time.Duration, err error) {
	c.calendarLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.calendarErrors.WithLabelValues(string(calendar.Classify(err))).Inc()
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface checks
var (
	_ MetricsCollector  = (*Collector)(nil)
	_ calendar.Observer = (*Collector)(nil)
)
