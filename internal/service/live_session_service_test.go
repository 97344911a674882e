package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/internal/repository"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

type fakeSessionStore struct {
	classrooms  map[string]*models.Classroom
	sessions    map[string]*models.LiveSession
	attendees   map[string]*models.Attendee
	attendances map[string]*models.Attendance
	approved    map[string][]string
	seq         int
	atomicCalls int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		classrooms:  map[string]*models.Classroom{},
		sessions:    map[string]*models.LiveSession{},
		attendees:   map[string]*models.Attendee{},
		attendances: map[string]*models.Attendance{},
		approved:    map[string][]string{},
	}
}

func pairKey(sessionID, studentID string) string { return sessionID + "|" + studentID }

func (f *fakeSessionStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeSessionStore) Atomic(_ context.Context, fn func(store repository.SessionStore) error) error {
	f.atomicCalls++
	return fn(f)
}

func (f *fakeSessionStore) LockClassroom(_ context.Context, classroomID string) (*models.Classroom, error) {
	classroom, ok := f.classrooms[classroomID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *classroom
	return &clone, nil
}

func (f *fakeSessionStore) EndLiveSessions(_ context.Context, classroomID string, now time.Time) (int64, error) {
	var n int64
	for _, session := range f.sessions {
		if session.ClassroomID == classroomID && session.Status == models.SessionLive {
			ended := now
			session.Status = models.SessionEnded
			session.EndTime = &ended
			session.PortalOpen = false
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) CreateSession(_ context.Context, session *models.LiveSession) error {
	session.ID = f.nextID("session")
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, sessionID string, _ bool) (*models.SessionWithOwner, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	classroom := f.classrooms[session.ClassroomID]
	return &models.SessionWithOwner{
		LiveSession:      *session,
		EducatorID:       classroom.EducatorID,
		ClassroomName:    classroom.Name,
		ClassroomSubject: classroom.Subject,
	}, nil
}

func (f *fakeSessionStore) ListSessions(_ context.Context, filter repository.SessionFilter) ([]models.SessionListItem, error) {
	var items []models.SessionListItem
	for _, session := range f.sessions {
		classroom := f.classrooms[session.ClassroomID]
		if filter.EducatorID != "" && classroom.EducatorID != filter.EducatorID {
			continue
		}
		if filter.ClassroomID != "" && session.ClassroomID != filter.ClassroomID {
			continue
		}
		items = append(items, models.SessionListItem{LiveSession: *session, ClassroomName: classroom.Name})
	}
	return items, nil
}

func (f *fakeSessionStore) SetPortal(_ context.Context, sessionID string, open bool, duration int, closeTime *time.Time) error {
	session := f.sessions[sessionID]
	session.PortalOpen = open
	session.PortalDuration = duration
	session.PortalCloseTime = closeTime
	return nil
}

func (f *fakeSessionStore) FinishSession(_ context.Context, sessionID string, status models.SessionStatus, now time.Time) error {
	session := f.sessions[sessionID]
	session.Status = status
	session.PortalOpen = false
	if session.EndTime == nil {
		end := now
		session.EndTime = &end
	}
	return nil
}

func (f *fakeSessionStore) GetAttendee(_ context.Context, sessionID, studentID string) (*models.Attendee, error) {
	attendee, ok := f.attendees[pairKey(sessionID, studentID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *attendee
	return &clone, nil
}

func (f *fakeSessionStore) UpsertAttendee(_ context.Context, sessionID, studentID string, now time.Time) (*models.Attendee, error) {
	key := pairKey(sessionID, studentID)
	attendee, ok := f.attendees[key]
	if !ok {
		attendee = &models.Attendee{
			ID:               f.nextID("attendee"),
			LiveSessionID:    sessionID,
			StudentID:        studentID,
			JoinedAt:         now,
			AttendanceStatus: models.AttendeePending,
		}
		f.attendees[key] = attendee
	}
	clone := *attendee
	return &clone, nil
}

func (f *fakeSessionStore) AdmitAttendee(_ context.Context, sessionID, studentID string, now time.Time) (bool, error) {
	attendee, ok := f.attendees[pairKey(sessionID, studentID)]
	if !ok || attendee.AdmittedAt != nil {
		return false, nil
	}
	admitted := now
	attendee.AdmittedAt = &admitted
	return true, nil
}

func (f *fakeSessionStore) AdmitAllAttendees(_ context.Context, sessionID string, now time.Time) (int64, error) {
	var n int64
	for _, attendee := range f.attendees {
		if attendee.LiveSessionID == sessionID && attendee.AdmittedAt == nil {
			admitted := now
			attendee.AdmittedAt = &admitted
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) IncrementAdmittedCount(_ context.Context, sessionID string) error {
	f.sessions[sessionID].AdmittedCount++
	return nil
}

func (f *fakeSessionStore) RefreshAdmittedCount(_ context.Context, sessionID string) (int, error) {
	count := 0
	for _, attendee := range f.attendees {
		if attendee.LiveSessionID == sessionID && attendee.AdmittedAt != nil {
			count++
		}
	}
	f.sessions[sessionID].AdmittedCount = count
	return count, nil
}

func (f *fakeSessionStore) MarkAttendeeCalled(_ context.Context, attendeeID string, now time.Time) error {
	for _, attendee := range f.attendees {
		if attendee.ID == attendeeID {
			called := now
			attendee.AttendanceCalled = true
			attendee.CalledAt = &called
			attendee.AttendanceStatus = models.AttendeePresent
		}
	}
	return nil
}

func (f *fakeSessionStore) MarkPendingAttendeesAbsent(_ context.Context, sessionID string) (int64, error) {
	var n int64
	for _, attendee := range f.attendees {
		if attendee.LiveSessionID == sessionID && attendee.AttendanceStatus == models.AttendeePending {
			attendee.AttendanceStatus = models.AttendeeAbsent
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) ListAttendees(_ context.Context, sessionID string) ([]models.AttendeeDetail, error) {
	var result []models.AttendeeDetail
	for _, attendee := range f.attendees {
		if attendee.LiveSessionID == sessionID {
			result = append(result, models.AttendeeDetail{Attendee: *attendee, StudentName: attendee.StudentID})
		}
	}
	return result, nil
}

func (f *fakeSessionStore) UpsertAttendance(_ context.Context, sessionID, studentID string, status models.AttendanceStatus, now time.Time) error {
	key := pairKey(sessionID, studentID)
	record, ok := f.attendances[key]
	if !ok {
		record = &models.Attendance{ID: f.nextID("attendance"), LiveSessionID: sessionID, StudentID: studentID}
		f.attendances[key] = record
	}
	record.Status = status
	record.MarkedAt = now
	return nil
}

func (f *fakeSessionStore) CountAttendances(_ context.Context, sessionID string) (int, error) {
	count := 0
	for _, record := range f.attendances {
		if record.LiveSessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) PresentAttendanceStudentIDs(_ context.Context, sessionID string) ([]string, error) {
	var ids []string
	for _, record := range f.attendances {
		if record.LiveSessionID == sessionID && record.Status == models.AttendancePresent {
			ids = append(ids, record.StudentID)
		}
	}
	return ids, nil
}

func (f *fakeSessionStore) PresentAttendeeStudentIDs(_ context.Context, sessionID string) ([]string, error) {
	var ids []string
	for _, attendee := range f.attendees {
		if attendee.LiveSessionID == sessionID && attendee.AttendanceStatus == models.AttendeePresent {
			ids = append(ids, attendee.StudentID)
		}
	}
	return ids, nil
}

func (f *fakeSessionStore) ApprovedStudentIDs(_ context.Context, classroomID string) ([]string, error) {
	return append([]string(nil), f.approved[classroomID]...), nil
}

func (f *fakeSessionStore) liveCount(classroomID string) int {
	count := 0
	for _, session := range f.sessions {
		if session.ClassroomID == classroomID && session.Status == models.SessionLive {
			count++
		}
	}
	return count
}

type recordingInvalidator struct {
	patterns []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, pattern string) {
	r.patterns = append(r.patterns, pattern)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var (
	educator      = models.Actor{UserID: "edu-1", Role: models.RoleEducator}
	otherEducator = models.Actor{UserID: "edu-2", Role: models.RoleEducator}
	studentA      = models.Actor{UserID: "stu-a", Role: models.RoleStudent}
	studentB      = models.Actor{UserID: "stu-b", Role: models.RoleStudent}
)

func newLiveSessionFixture(t *testing.T) (*LiveSessionService, *fakeSessionStore, *clock, *recordingInvalidator) {
	t.Helper()
	store := newFakeSessionStore()
	store.classrooms["class-1"] = &models.Classroom{ID: "class-1", Name: "Physics A", Subject: "Physics", EducatorID: educator.UserID}
	store.approved["class-1"] = []string{studentA.UserID, studentB.UserID, "stu-c"}

	clk := &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	cache := &recordingInvalidator{}
	svc := NewLiveSessionService(store, cache, NewMetricsService(), nil, LiveSessionConfig{DefaultPortalDuration: 5})
	svc.now = clk.Now
	return svc, store, clk, cache
}

func startSession(t *testing.T, svc *LiveSessionService) *models.LiveSession {
	t.Helper()
	session, err := svc.Start(context.Background(), educator, dto.StartSessionRequest{ClassroomID: "class-1"})
	require.NoError(t, err)
	return session
}

func admittedStudent(t *testing.T, svc *LiveSessionService, sessionID string, student models.Actor) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Join(ctx, student, sessionID)
	require.NoError(t, err)
	_, err = svc.Admit(ctx, educator, sessionID, student.UserID)
	require.NoError(t, err)
}

func TestLiveSessionStartKeepsSingleLiveSession(t *testing.T) {
	svc, store, clk, _ := newLiveSessionFixture(t)

	first := startSession(t, svc)
	clk.Advance(time.Minute)
	second := startSession(t, svc)

	assert.Equal(t, 1, store.liveCount("class-1"))
	assert.Equal(t, models.SessionEnded, store.sessions[first.ID].Status)
	require.NotNil(t, store.sessions[first.ID].EndTime)
	assert.Equal(t, clk.Now(), *store.sessions[first.ID].EndTime)
	assert.Equal(t, models.SessionLive, store.sessions[second.ID].Status)
	assert.False(t, second.PortalOpen)
	assert.Equal(t, 5, second.PortalDuration)
}

func TestLiveSessionStartValidation(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()

	tooLong := 181
	_, err := svc.Start(ctx, educator, dto.StartSessionRequest{ClassroomID: "class-1", PortalDuration: &tooLong})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Start(ctx, educator, dto.StartSessionRequest{ClassroomID: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	custom := 15
	session, err := svc.Start(ctx, educator, dto.StartSessionRequest{ClassroomID: "class-1", PortalDuration: &custom})
	require.NoError(t, err)
	assert.Equal(t, 15, session.PortalDuration)
}

func TestLiveSessionEducatorOperationsRejectStudentsAndStrangers(t *testing.T) {
	ctx := context.Background()
	for _, actor := range []models.Actor{studentA, otherEducator} {
		svc, store, _, _ := newLiveSessionFixture(t)
		session := startSession(t, svc)
		_, err := svc.Join(ctx, studentA, session.ID)
		require.NoError(t, err)

		ops := map[string]func() error{
			"start": func() error {
				_, err := svc.Start(ctx, actor, dto.StartSessionRequest{ClassroomID: "class-1"})
				return err
			},
			"open-portal": func() error {
				_, err := svc.OpenPortal(ctx, actor, session.ID, nil)
				return err
			},
			"close-portal": func() error {
				_, err := svc.ClosePortal(ctx, actor, session.ID)
				return err
			},
			"admit": func() error {
				_, err := svc.Admit(ctx, actor, session.ID, studentA.UserID)
				return err
			},
			"end": func() error {
				_, err := svc.End(ctx, actor, session.ID)
				return err
			},
			"cancel": func() error {
				_, err := svc.Cancel(ctx, actor, session.ID)
				return err
			},
		}
		for name, op := range ops {
			assert.ErrorIs(t, op(), appErrors.ErrForbidden, "%s by %s", name, actor.UserID)
		}

		stored := store.sessions[session.ID]
		assert.Equal(t, models.SessionLive, stored.Status)
		assert.False(t, stored.PortalOpen)
		assert.Equal(t, 1, store.liveCount("class-1"))
		assert.Nil(t, store.attendees[pairKey(session.ID, studentA.UserID)].AdmittedAt)
		assert.Empty(t, store.attendances)
	}
}

func TestLiveSessionCallAttendanceFlow(t *testing.T) {
	svc, store, clk, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)
	admittedStudent(t, svc, session.ID, studentA)

	_, err := svc.CallAttendance(ctx, studentA, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrPortalClosed)

	_, err = svc.OpenPortal(ctx, educator, session.ID, nil)
	require.NoError(t, err)

	result, err := svc.CallAttendance(ctx, studentA, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, result.Status)
	firstMark := store.attendances[pairKey(session.ID, studentA.UserID)].MarkedAt
	assert.Equal(t, clk.Now(), firstMark)

	attendee := store.attendees[pairKey(session.ID, studentA.UserID)]
	assert.True(t, attendee.AttendanceCalled)
	assert.Equal(t, models.AttendeePresent, attendee.AttendanceStatus)

	clk.Advance(time.Minute)
	_, err = svc.CallAttendance(ctx, studentA, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyCalled)
	assert.Equal(t, firstMark, store.attendances[pairKey(session.ID, studentA.UserID)].MarkedAt)
}

func TestLiveSessionPortalExpiryBoundary(t *testing.T) {
	svc, _, clk, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)
	admittedStudent(t, svc, session.ID, studentA)
	admittedStudent(t, svc, session.ID, studentB)

	one := 1
	opened, err := svc.OpenPortal(ctx, educator, session.ID, &one)
	require.NoError(t, err)
	require.NotNil(t, opened.PortalCloseTime)
	deadline := *opened.PortalCloseTime
	assert.Equal(t, clk.Now().Add(time.Minute), deadline)

	clk.now = deadline.Add(-time.Nanosecond)
	_, err = svc.CallAttendance(ctx, studentA, session.ID)
	require.NoError(t, err)

	clk.now = deadline
	_, err = svc.CallAttendance(ctx, studentB, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrPortalExpired)
}

func TestLiveSessionInvalidatesReportsOnAttendanceChanges(t *testing.T) {
	svc, _, _, cache := newLiveSessionFixture(t)
	ctx := context.Background()

	first := startSession(t, svc)
	assert.Empty(t, cache.patterns)

	admittedStudent(t, svc, first.ID, studentA)
	_, err := svc.OpenPortal(ctx, educator, first.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, cache.patterns)

	_, err = svc.CallAttendance(ctx, studentA, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{attendanceCachePattern}, cache.patterns)

	_, err = svc.CallAttendance(ctx, studentA, first.ID)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyCalled)
	assert.Len(t, cache.patterns, 1)

	cache.patterns = nil
	startSession(t, svc)
	assert.Equal(t, []string{attendanceCachePattern}, cache.patterns)
}

func TestLiveSessionAdmitChecksOwnerBeforeTarget(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	_, err := svc.Admit(ctx, studentA, session.ID, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Admit(ctx, otherEducator, session.ID, " ")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Admit(ctx, educator, session.ID, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLiveSessionZeroPortalDurationUsesDefault(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()

	zero := 0
	session, err := svc.Start(ctx, educator, dto.StartSessionRequest{ClassroomID: "class-1", PortalDuration: &zero})
	require.NoError(t, err)
	assert.Equal(t, 5, session.PortalDuration)

	opened, err := svc.OpenPortal(ctx, educator, session.ID, &zero)
	require.NoError(t, err)
	assert.Equal(t, 5, opened.PortalDuration)

	negative := -1
	_, err = svc.OpenPortal(ctx, educator, session.ID, &negative)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLiveSessionCallBeforeAdmitIsNotAdmitted(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	_, err := svc.Join(ctx, studentA, session.ID)
	require.NoError(t, err)

	_, err = svc.CallAttendance(ctx, studentA, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotAdmitted)

	_, err = svc.OpenPortal(ctx, educator, session.ID, nil)
	require.NoError(t, err)
	_, err = svc.CallAttendance(ctx, studentA, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotAdmitted)

	_, err = svc.CallAttendance(ctx, studentB, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotAdmitted)

	_, err = svc.CallAttendance(ctx, educator, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestLiveSessionAdmitCountsOnlyRealTransitions(t *testing.T) {
	svc, store, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	_, err := svc.Join(ctx, studentA, session.ID)
	require.NoError(t, err)
	_, err = svc.Join(ctx, studentB, session.ID)
	require.NoError(t, err)

	first, err := svc.Admit(ctx, educator, session.ID, studentA.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 1, first.AdmittedCount)

	repeat, err := svc.Admit(ctx, educator, session.ID, studentA.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, repeat.Count)
	assert.Equal(t, 1, store.sessions[session.ID].AdmittedCount)

	all, err := svc.Admit(ctx, educator, session.ID, dto.AdmitAll)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Count)
	assert.Equal(t, 2, all.AdmittedCount)

	_, err = svc.Admit(ctx, educator, session.ID, "stu-never-joined")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Admit(ctx, educator, session.ID, " ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLiveSessionEndReconcilesAndIsIdempotent(t *testing.T) {
	svc, store, clk, cache := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	// stu-a calls attendance; stu-b has a legacy attendee PRESENT row only; stu-c never shows up.
	admittedStudent(t, svc, session.ID, studentA)
	_, err := svc.OpenPortal(ctx, educator, session.ID, nil)
	require.NoError(t, err)
	_, err = svc.CallAttendance(ctx, studentA, session.ID)
	require.NoError(t, err)
	store.attendees[pairKey(session.ID, studentB.UserID)] = &models.Attendee{
		ID: "legacy", LiveSessionID: session.ID, StudentID: studentB.UserID, AttendanceStatus: models.AttendeePresent,
	}
	_, err = svc.Join(ctx, models.Actor{UserID: "stu-d", Role: models.RoleStudent}, session.ID)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	cache.patterns = nil
	result, err := svc.End(ctx, educator, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.EnrolledCount)
	assert.Equal(t, 2, result.PresentCount)
	assert.Equal(t, 1, result.AbsentCount)
	assert.Equal(t, int64(1), result.MarkedAbsent)
	assert.Equal(t, models.SessionEnded, result.Session.Status)
	assert.Equal(t, []string{attendanceCachePattern}, cache.patterns)

	snapshot := func() map[string]models.AttendanceStatus {
		out := map[string]models.AttendanceStatus{}
		for _, record := range store.attendances {
			out[record.StudentID] = record.Status
		}
		return out
	}
	first := snapshot()
	assert.Equal(t, map[string]models.AttendanceStatus{
		studentA.UserID: models.AttendancePresent,
		studentB.UserID: models.AttendancePresent,
		"stu-c":         models.AttendanceAbsent,
	}, first)
	endTime := *store.sessions[session.ID].EndTime

	clk.Advance(time.Hour)
	again, err := svc.End(ctx, educator, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot())
	assert.Len(t, store.attendances, 3)
	assert.Equal(t, endTime, *store.sessions[session.ID].EndTime)
	assert.Equal(t, endTime, *again.Session.EndTime)
	assert.Equal(t, models.AttendeeAbsent, store.attendees[pairKey(session.ID, "stu-d")].AttendanceStatus)
}

func TestLiveSessionRejectsOperationsOnFinishedSessions(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	cancelled, err := svc.Cancel(ctx, educator, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndTime)

	_, err = svc.Cancel(ctx, educator, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	_, err = svc.End(ctx, educator, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	_, err = svc.OpenPortal(ctx, educator, session.ID, nil)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotLive)
	_, err = svc.Admit(ctx, educator, session.ID, dto.AdmitAll)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotLive)
	_, err = svc.Join(ctx, studentA, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotLive)

	_, err = svc.Join(ctx, studentA, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Join(ctx, educator, session.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestLiveSessionClosePortalKeepsDeadline(t *testing.T) {
	svc, store, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)

	opened, err := svc.OpenPortal(ctx, educator, session.ID, nil)
	require.NoError(t, err)
	closed, err := svc.ClosePortal(ctx, educator, session.ID)
	require.NoError(t, err)

	assert.False(t, closed.PortalOpen)
	assert.Equal(t, opened.PortalCloseTime, store.sessions[session.ID].PortalCloseTime)
}

func TestLiveSessionGetAndList(t *testing.T) {
	svc, _, _, _ := newLiveSessionFixture(t)
	ctx := context.Background()
	session := startSession(t, svc)
	admittedStudent(t, svc, session.ID, studentA)

	detail, err := svc.Get(ctx, studentA, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics A", detail.Classroom.Name)
	assert.Equal(t, 1, detail.AttendeeCount)
	assert.Equal(t, 0, detail.AttendanceCount)

	_, err = svc.Get(ctx, studentA, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	items, err := svc.List(ctx, educator, "")
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{session.ID}, ids)

	items, err = svc.List(ctx, otherEducator, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}
