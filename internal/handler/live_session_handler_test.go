package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

type fakeLiveSessionSrv struct {
	calls       []string
	lastActor   models.Actor
	lastTarget  string
	lastMinutes *int
	err         error
}

func (f *fakeLiveSessionSrv) record(name string, actor models.Actor) {
	f.calls = append(f.calls, name)
	f.lastActor = actor
}

func (f *fakeLiveSessionSrv) Start(_ context.Context, actor models.Actor, req dto.StartSessionRequest) (*models.LiveSession, error) {
	f.record("start", actor)
	if f.err != nil {
		return nil, f.err
	}
	return &models.LiveSession{ID: "sess-1", ClassroomID: req.ClassroomID, Status: models.SessionLive}, nil
}

func (f *fakeLiveSessionSrv) Get(_ context.Context, actor models.Actor, id string) (*dto.SessionDetail, error) {
	f.record("get", actor)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SessionDetail{LiveSession: models.LiveSession{ID: id}}, nil
}

func (f *fakeLiveSessionSrv) List(_ context.Context, actor models.Actor, _ string) ([]models.SessionListItem, error) {
	f.record("list", actor)
	return []models.SessionListItem{}, f.err
}

func (f *fakeLiveSessionSrv) OpenPortal(_ context.Context, actor models.Actor, id string, minutes *int) (*models.LiveSession, error) {
	f.record("open-portal", actor)
	f.lastMinutes = minutes
	if f.err != nil {
		return nil, f.err
	}
	return &models.LiveSession{ID: id, PortalOpen: true}, nil
}

func (f *fakeLiveSessionSrv) ClosePortal(_ context.Context, actor models.Actor, id string) (*models.LiveSession, error) {
	f.record("close-portal", actor)
	return &models.LiveSession{ID: id}, f.err
}

func (f *fakeLiveSessionSrv) Admit(_ context.Context, actor models.Actor, id, target string) (*dto.AdmitResult, error) {
	f.record("admit", actor)
	f.lastTarget = target
	return &dto.AdmitResult{SessionID: id, Count: 1}, f.err
}

func (f *fakeLiveSessionSrv) Join(_ context.Context, actor models.Actor, id string) (*models.Attendee, error) {
	f.record("join", actor)
	return &models.Attendee{LiveSessionID: id, StudentID: actor.UserID}, f.err
}

func (f *fakeLiveSessionSrv) CallAttendance(_ context.Context, actor models.Actor, id string) (*dto.CallAttendanceResult, error) {
	f.record("call-attendance", actor)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CallAttendanceResult{SessionID: id, StudentID: actor.UserID, Status: models.AttendancePresent, MarkedAt: time.Now()}, nil
}

func (f *fakeLiveSessionSrv) End(_ context.Context, actor models.Actor, id string) (*dto.EndSessionResult, error) {
	f.record("end", actor)
	return &dto.EndSessionResult{Session: models.LiveSession{ID: id, Status: models.SessionEnded}}, f.err
}

func (f *fakeLiveSessionSrv) Cancel(_ context.Context, actor models.Actor, id string) (*models.LiveSession, error) {
	f.record("cancel", actor)
	return &models.LiveSession{ID: id, Status: models.SessionCancelled}, f.err
}

func TestLiveSessionHandlerStart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeLiveSessionSrv{}
	handler := NewLiveSessionHandler(svc)

	c, w := newGinContext(http.MethodPost, "/live", []byte(`{"classroomId":"class-1"}`))
	asEducator(c)
	handler.Start(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "class-1", decode(t, w).Data["classroomId"])
	assert.Equal(t, "edu-1", svc.lastActor.UserID)
}

func TestLiveSessionHandlerActDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		body   string
		action string
	}{
		{`{"action":"end"}`, "end"},
		{`{"action":"cancel"}`, "cancel"},
		{`{"action":"open-portal","portalDuration":10}`, "open-portal"},
		{`{"action":"close-portal"}`, "close-portal"},
		{`{"action":"join"}`, "join"},
		{`{"action":"admit","studentId":"all"}`, "admit"},
		{`{"action":"CALL-ATTENDANCE"}`, "call-attendance"},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			svc := &fakeLiveSessionSrv{}
			handler := NewLiveSessionHandler(svc)

			c, w := newGinContext(http.MethodPatch, "/live/sess-1", []byte(tc.body))
			c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
			asEducator(c)
			handler.Act(c)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []string{tc.action}, svc.calls)
		})
	}
}

func TestLiveSessionHandlerActPassesArguments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeLiveSessionSrv{}
	handler := NewLiveSessionHandler(svc)

	c, _ := newGinContext(http.MethodPatch, "/live/sess-1", []byte(`{"action":"open-portal","portalDuration":15}`))
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	asEducator(c)
	handler.Act(c)
	require.NotNil(t, svc.lastMinutes)
	assert.Equal(t, 15, *svc.lastMinutes)

	c, _ = newGinContext(http.MethodPatch, "/live/sess-1", []byte(`{"action":"admit","studentId":"stu-9"}`))
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	asEducator(c)
	handler.Act(c)
	assert.Equal(t, "stu-9", svc.lastTarget)
}

func TestLiveSessionHandlerActUnknownAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeLiveSessionSrv{}
	handler := NewLiveSessionHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/live/sess-1", []byte(`{"action":"pause"}`))
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	asEducator(c)
	handler.Act(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
	assert.Empty(t, svc.calls)
}

func TestLiveSessionHandlerActMapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[*appErrors.Error]int{
		appErrors.ErrPortalExpired:  http.StatusBadRequest,
		appErrors.ErrPortalClosed:   http.StatusBadRequest,
		appErrors.ErrNotAdmitted:    http.StatusForbidden,
		appErrors.ErrAlreadyCalled:  http.StatusConflict,
		appErrors.ErrSessionNotLive: http.StatusConflict,
	}
	for domainErr, status := range cases {
		t.Run(domainErr.Code, func(t *testing.T) {
			handler := NewLiveSessionHandler(&fakeLiveSessionSrv{err: domainErr})

			c, w := newGinContext(http.MethodPatch, "/live/sess-1", []byte(`{"action":"call-attendance"}`))
			c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
			asStudent(c)
			handler.Act(c)

			assert.Equal(t, status, w.Code)
			assert.Equal(t, domainErr.Code, decode(t, w).Error.Code)
		})
	}
}

func TestLiveSessionHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeLiveSessionSrv{}
	handler := NewLiveSessionHandler(svc)

	c, w := newGinContext(http.MethodGet, "/live/sess-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.calls)
}
