package model

import (
	"fmt"
	"strings"
	"time"
)

// AttendanceStatus is the verified outcome for a user at an event.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ParseAttendanceStatus converts a raw string into an AttendanceStatus.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch st := AttendanceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AttendancePresent, AttendanceAbsent:
		return st, nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// RegistrationStatus is the registration state an attendance outcome maps to.
func (s AttendanceStatus) RegistrationStatus() RegistrationStatus {
	if s == AttendancePresent {
		return RegistrationAttended
	}
	return RegistrationAbsent
}

// Attendance is the latest verification for one (event, user) pair.  A row
// only exists when the user holds a registration for the event.
type Attendance struct {
	ID           uint64           `json:"id"`                       // attendance.id
	EventID      uint64           `json:"event_id"`                 // attendance.event_id
	UserID       uint64           `json:"user_id"`                  // attendance.user_id
	Status       AttendanceStatus `json:"status"`                   // attendance.status
	CheckInTime  time.Time        `json:"check_in_time"`            // attendance.check_in_time
	CheckOutTime *time.Time       `json:"check_out_time,omitempty"` // attendance.check_out_time (nullable)
	VerifiedBy   uint64           `json:"verified_by"`              // attendance.verified_by
}
