package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsDomainEvents(t *testing.T) {
	m := NewMetricsService()

	m.RecordSessionTransition("start")
	m.RecordSessionTransition("end")
	m.RecordSessionTransition("end")
	m.RecordAttendanceCall("ok")
	m.RecordAttendanceCall("PORTAL_EXPIRED")
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/live", 200, 10*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(3), snap.SessionTransitions)
	assert.Equal(t, uint64(2), snap.AttendanceCalls)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `attendx_session_transitions_total{action="end"} 2`)
	assert.Contains(t, body, `attendx_attendance_calls_total{result="PORTAL_EXPIRED"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordSessionTransition("start")
	m.RecordAttendanceCall("ok")
	m.RecordPortalsSwept(3)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
