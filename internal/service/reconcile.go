package service

import "github.com/noah-isme/attendx-api/internal/models"

// unionPresence merges independent presence signals into one set.
// Attendance rows and attendee rows are both authoritative for PRESENT; a student
// present in either source is present.
func unionPresence(sources ...[]string) map[string]struct{} {
	present := make(map[string]struct{})
	for _, ids := range sources {
		for _, id := range ids {
			present[id] = struct{}{}
		}
	}
	return present
}

// resolveAttendance assigns every enrolled student exactly one final status.
func resolveAttendance(enrolled []string, present map[string]struct{}) map[string]models.AttendanceStatus {
	resolved := make(map[string]models.AttendanceStatus, len(enrolled))
	for _, studentID := range enrolled {
		if _, ok := present[studentID]; ok {
			resolved[studentID] = models.AttendancePresent
			continue
		}
		resolved[studentID] = models.AttendanceAbsent
	}
	return resolved
}

// percentage rounds present/total to a whole percent, 0 when total is 0.
func percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return (present*100*2 + total) / (total * 2)
}
