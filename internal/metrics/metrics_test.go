package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/api/googleapi"

	"github.com/hitoshi/bookcal/internal/calendar"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordAppointment_IncrementsByLabels は操作・結果ラベル別にカウントされることを検証する。
func TestRecordAppointment_IncrementsByLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAppointment("create", "success")
	c.RecordAppointment("create", "success")
	c.RecordAppointment("create", "conflict")

	if got := testutil.ToFloat64(c.appointments.WithLabelValues("create", "success")); got != 2 {
		t.Errorf("create/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.appointments.WithLabelValues("create", "conflict")); got != 1 {
		t.Errorf("create/conflict = %v, want 1", got)
	}
}

// TestRecordSlotConflict_IncrementsCounter は重複検出カウンタが増加することを検証する。
func TestRecordSlotConflict_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSlotConflict()

	if got := testutil.ToFloat64(c.slotConflicts); got != 1 {
		t.Errorf("slot_conflicts_total = %v, want 1", got)
	}
}

// TestObserveCalendarCall_RecordsLatencyAndErrorClass はレイテンシと失敗分類が記録されることを検証する。
func TestObserveCalendarCall_RecordsLatencyAndErrorClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveCalendarCall("insert", 120*time.Millisecond, nil)
	c.ObserveCalendarCall("list", 30*time.Millisecond, &googleapi.Error{Code: http.StatusUnauthorized})
	c.ObserveCalendarCall("list", 10*time.Millisecond, calendar.ErrCircuitOpen)
	c.ObserveCalendarCall("delete", 10*time.Millisecond, errors.New("boom"))

	if got := testutil.CollectAndCount(c.calendarLatency); got != 3 {
		t.Errorf("latency series = %d, want 3", got)
	}
	if got := testutil.ToFloat64(c.calendarErrors.WithLabelValues("unauthorized")); got != 1 {
		t.Errorf("errors{unauthorized} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.calendarErrors.WithLabelValues("unavailable")); got != 1 {
		t.Errorf("errors{unavailable} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.calendarErrors.WithLabelValues("other")); got != 1 {
		t.Errorf("errors{other} = %v, want 1", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(409)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("status 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("409")); got != 1 {
		t.Errorf("status 409 = %v, want 1", got)
	}
}

// TestRecordLogin_IncrementsByResult はログイン結果別にカウントされることを検証する。
func TestRecordLogin_IncrementsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("failure")
	c.RecordLogin("failure")

	if got := testutil.ToFloat64(c.logins.WithLabelValues("failure")); got != 2 {
		t.Errorf("logins{failure} = %v, want 2", got)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat はハンドラーがPrometheus形式で応答することを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAppointment("list", "success")
	c.RecordHTTPStatus(200)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)
	for _, name := range []string{"bookcal_appointments_total", "bookcal_http_status_total"} {
		if !strings.Contains(bodyStr, name) {
			t.Errorf("response should contain %s", name)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリへの登録が衝突しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()

	NewCollector(prometheus.NewRegistry())
	NewCollector(prometheus.NewRegistry())
}
