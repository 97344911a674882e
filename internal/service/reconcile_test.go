package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendx-api/internal/models"
)

func TestResolveAttendanceUnionsBothSources(t *testing.T) {
	// A has an attendance row only, B an attendee row only, C neither.
	present := unionPresence([]string{"A"}, []string{"B"})
	resolved := resolveAttendance([]string{"A", "B", "C"}, present)

	assert.Equal(t, map[string]models.AttendanceStatus{
		"A": models.AttendancePresent,
		"B": models.AttendancePresent,
		"C": models.AttendanceAbsent,
	}, resolved)
}

func TestResolveAttendanceIgnoresUnenrolledPresence(t *testing.T) {
	resolved := resolveAttendance([]string{"A"}, unionPresence([]string{"A", "gone"}))
	assert.Len(t, resolved, 1)
	assert.Equal(t, models.AttendancePresent, resolved["A"])
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 67, percentage(2, 3))
	assert.Equal(t, 33, percentage(1, 3))
	assert.Equal(t, 50, percentage(1, 2))
	assert.Equal(t, 100, percentage(4, 4))
}
