package service

import (
	"context"
	"testing"

	"github.com/volunteerconnect/event-registration/internal/model"
)

func TestAdminSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vols := f.volunteers(t, 4)
	var events []model.Event
	for i := 0; i < 7; i++ {
		events = append(events, f.event(t, 10))
	}
	for _, uid := range vols[:3] {
		if _, err := f.ledger.Register(ctx, uid, events[0].ID); err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := f.attendance.MarkAttendance(ctx, MarkAttendanceInput{EventID: events[0].ID, UserID: uid, Status: model.AttendancePresent, VerifierID: f.admin}); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if _, err := f.ledger.Register(ctx, vols[3], events[0].ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	snap, err := f.stats.AdminSnapshot(ctx)
	if err != nil {
		t.Fatalf("admin snapshot: %v", err)
	}
	if snap.TotalVolunteers != 4 {
		t.Fatalf("total volunteers = %d, want 4", snap.TotalVolunteers)
	}
	if snap.TotalEvents != 7 {
		t.Fatalf("total events = %d, want 7", snap.TotalEvents)
	}
	if snap.TotalHours != 12 {
		t.Fatalf("total hours = %d, want 12", snap.TotalHours)
	}
	if len(snap.RecentEvents) != DefaultRecentEvents {
		t.Fatalf("recent events = %d, want %d", len(snap.RecentEvents), DefaultRecentEvents)
	}
	if snap.RecentEvents[0].ID != events[6].ID {
		t.Fatalf("newest event = %d, want %d", snap.RecentEvents[0].ID, events[6].ID)
	}
}

func TestVolunteerSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vol := f.user(t, "vol", model.RoleVolunteer)
	for i := 0; i < 3; i++ {
		e := f.event(t, 5)
		if _, err := f.ledger.Register(ctx, vol, e.ID); err != nil {
			t.Fatalf("register: %v", err)
		}
		status := model.AttendancePresent
		if i == 2 {
			status = model.AttendanceAbsent
		}
		if _, err := f.attendance.MarkAttendance(ctx, MarkAttendanceInput{EventID: e.ID, UserID: vol, Status: status, VerifierID: f.admin}); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}

	snap, err := f.stats.VolunteerSnapshot(ctx, vol)
	if err != nil {
		t.Fatalf("volunteer snapshot: %v", err)
	}
	want := VolunteerSnapshot{EventsAttended: 2, HoursContributed: 8, ImpactScore: 20}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestStatsMultipliersAreConfigurable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stats = NewStatsAggregator(f.users, f.events, f.regRepo, StatsConfig{HoursPerEvent: 6, ImpactPointsPerEvent: 25}, f.stats.log)
	vol := f.user(t, "vol", model.RoleVolunteer)
	e := f.event(t, 5)
	if _, err := f.ledger.Register(ctx, vol, e.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.attendance.MarkAttendance(ctx, MarkAttendanceInput{EventID: e.ID, UserID: vol, Status: model.AttendancePresent, VerifierID: f.admin}); err != nil {
		t.Fatalf("mark: %v", err)
	}
	snap, err := f.stats.VolunteerSnapshot(ctx, vol)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.HoursContributed != 6 || snap.ImpactScore != 25 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
