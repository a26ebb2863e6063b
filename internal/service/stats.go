package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/repository"
)

const (
	// DefaultHoursPerEvent is the volunteer hours credited per attended event.
	DefaultHoursPerEvent = 4
	// DefaultImpactPointsPerEvent is the impact score credited per attended event.
	DefaultImpactPointsPerEvent = 10
	// DefaultRecentEvents is how many newest events the admin snapshot lists.
	DefaultRecentEvents = 5
)

// StatsConfig holds the dashboard multipliers.
type StatsConfig struct {
	HoursPerEvent        int
	ImpactPointsPerEvent int
	RecentEvents         int
}

// DefaultStatsConfig returns the built-in multipliers.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		HoursPerEvent:        DefaultHoursPerEvent,
		ImpactPointsPerEvent: DefaultImpactPointsPerEvent,
		RecentEvents:         DefaultRecentEvents,
	}
}

// AdminSnapshot summarises the whole platform.
type AdminSnapshot struct {
	TotalVolunteers int           `json:"total_volunteers"`
	TotalEvents     int           `json:"total_events"`
	TotalHours      int           `json:"total_hours"`
	RecentEvents    []model.Event `json:"recent_events"`
}

// VolunteerSnapshot summarises one volunteer's contribution.
type VolunteerSnapshot struct {
	EventsAttended   int `json:"events_attended"`
	HoursContributed int `json:"hours_contributed"`
	ImpactScore      int `json:"impact_score"`
}

// StatsAggregator computes dashboard figures from current state on every
// call.  It only reads.
type StatsAggregator struct {
	users  *repository.UserRepo
	events *repository.EventRepo
	regs   *repository.RegistrationRepo
	cfg    StatsConfig
	log    *slog.Logger
}

// NewStatsAggregator wires a StatsAggregator.  A non-positive RecentEvents
// falls back to the default.
func NewStatsAggregator(users *repository.UserRepo, events *repository.EventRepo, regs *repository.RegistrationRepo, cfg StatsConfig, log *slog.Logger) *StatsAggregator {
	if cfg.RecentEvents <= 0 {
		cfg.RecentEvents = DefaultRecentEvents
	}
	return &StatsAggregator{users: users, events: events, regs: regs, cfg: cfg, log: log}
}

// AdminSnapshot counts volunteers, events and attended hours and lists the
// newest events.  The reads run concurrently.
func (s *StatsAggregator) AdminSnapshot(ctx context.Context) (AdminSnapshot, error) {
	var (
		snap     AdminSnapshot
		attended int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.CountByRole(gctx, model.RoleVolunteer)
		snap.TotalVolunteers = n
		return err
	})
	g.Go(func() error {
		n, err := s.events.Count(gctx)
		snap.TotalEvents = n
		return err
	})
	g.Go(func() error {
		n, err := s.regs.CountByStatus(gctx, model.RegistrationAttended)
		attended = n
		return err
	})
	g.Go(func() error {
		recent, err := s.events.Recent(gctx, s.cfg.RecentEvents)
		snap.RecentEvents = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminSnapshot{}, internal(ctx, s.log, "stats.admin", err)
	}
	snap.TotalHours = attended * s.cfg.HoursPerEvent
	return snap, nil
}

// VolunteerSnapshot derives hours and impact from userID's attended events.
func (s *StatsAggregator) VolunteerSnapshot(ctx context.Context, userID uint64) (VolunteerSnapshot, error) {
	attended, err := s.regs.CountByUserAndStatus(ctx, userID, model.RegistrationAttended)
	if err != nil {
		return VolunteerSnapshot{}, internal(ctx, s.log, "stats.volunteer", err, "user_id", userID)
	}
	return VolunteerSnapshot{
		EventsAttended:   attended,
		HoursContributed: attended * s.cfg.HoursPerEvent,
		ImpactScore:      attended * s.cfg.ImpactPointsPerEvent,
	}, nil
}
