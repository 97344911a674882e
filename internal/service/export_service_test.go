package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/pkg/export"
	"github.com/noah-isme/attendx-api/pkg/storage"
)

type historyStub struct {
	classroomID string
}

func (h *historyStub) EducatorReport(ctx context.Context, educatorID, classroomID string) (*dto.EducatorAttendanceReport, error) {
	h.classroomID = classroomID
	roll := "R-07"
	return &dto.EducatorAttendanceReport{Sessions: []dto.SessionHistory{{
		SessionID:     "s1",
		ClassroomName: "Physics A",
		Subject:       "Physics",
		StartTime:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Students: []dto.StudentSessionStatus{
			{StudentID: "A", Name: "Ada Lovelace", RollNo: &roll, Status: models.AttendancePresent},
			{StudentID: "B", Name: "Ben", Status: models.AttendanceAbsent},
		},
	}}}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *historyStub) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	history := &historyStub{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(history, files, signer, cfg, zap.NewNop(), export.NewCSVExporter(true), export.NewPDFExporter())
	return svc, files, history
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, files, history := newExportServiceForTest(t)
	classroomID := "class-1"
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeAttendanceHistory,
		Params:    models.ReportJobParams{ClassroomID: &classroomID, Format: models.ReportFormatCSV},
		CreatedBy: educator.UserID,
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "class-1", history.classroomID)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.True(t, strings.HasPrefix(result.RelativePath, "attendance_history_class-1_"))

	file, err := files.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	content := string(body)
	assert.Contains(t, content, "Date,Classroom,Subject,Student,Roll No,Status")
	assert.Contains(t, content, "2026-03-02 09:00,Physics A,Physics,Ada Lovelace,R-07,PRESENT")
	assert.Contains(t, content, "Ben,,ABSENT")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, files, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeAttendanceHistory,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: educator.UserID,
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.RelativePath, "_all_")

	file, err := files.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	header := make([]byte, 4)
	_, err = io.ReadFull(file, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeAttendanceHistory,
		Params: models.ReportJobParams{Format: "xlsx"},
	})
	assert.Error(t, err)
}
