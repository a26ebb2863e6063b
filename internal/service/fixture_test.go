package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/database/dbtest"
	"github.com/volunteerconnect/event-registration/internal/logger"
	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type notifyCall struct {
	recipientID uint64
	kind        model.NotificationKind
	payload     Payload
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID uint64, kind model.NotificationKind, p Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipientID: recipientID, kind: kind, payload: p})
	return n.err
}

func (n *recordingNotifier) kinds() []model.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.kind)
	}
	return out
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	db         *database.DB
	users      *repository.UserRepo
	events     *repository.EventRepo
	regRepo    *repository.RegistrationRepo
	attRepo    *repository.AttendanceRepo
	catalog    *EventCatalog
	ledger     *RegistrationLedger
	attendance *AttendanceLedger
	stats      *StatsAggregator
	notifier   *recordingNotifier
	clock      *fakeClock
	logs       *syncBuffer
	admin      uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	logs := &syncBuffer{}
	log := logger.New("debug", "json", logs)
	clock := &fakeClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}

	f := &fixture{
		db:       db,
		users:    repository.NewUserRepo(db),
		events:   repository.NewEventRepo(db),
		regRepo:  repository.NewRegistrationRepo(db),
		attRepo:  repository.NewAttendanceRepo(db),
		notifier: notifier,
		clock:    clock,
		logs:     logs,
	}
	f.catalog = NewEventCatalog(db, f.events, f.regRepo, log)
	f.catalog.now = clock.Now
	f.ledger = NewRegistrationLedger(db, f.catalog, f.regRepo, notifier, log)
	f.ledger.now = clock.Now
	f.attendance = NewAttendanceLedger(db, f.catalog, f.ledger, f.regRepo, f.attRepo, notifier, log)
	f.attendance.now = clock.Now
	f.stats = NewStatsAggregator(f.users, f.events, f.regRepo, DefaultStatsConfig(), log)
	f.admin = f.user(t, "admin", model.RoleNGOAdmin)
	return f
}

func (f *fixture) user(t *testing.T, name string, role model.Role) uint64 {
	t.Helper()
	id, err := f.users.Create(context.Background(), name+"@example.com", "password123", name, role, 4)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return id
}

func (f *fixture) volunteers(t *testing.T, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = f.user(t, fmt.Sprintf("volunteer%d", i), model.RoleVolunteer)
	}
	return ids
}

func (f *fixture) event(t *testing.T, capacity int) model.Event {
	t.Helper()
	e, err := f.catalog.Create(context.Background(), CreateEventInput{
		Title:     "Park restoration",
		Category:  "Environment",
		Location:  "City park",
		StartsAt:  f.clock.Now().Add(72 * time.Hour),
		Capacity:  capacity,
		CreatedBy: f.admin,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	f.clock.Advance(time.Second)
	return e
}

func (f *fixture) registeredCount(t *testing.T, eventID uint64) int {
	t.Helper()
	e, err := f.catalog.Get(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return e.RegisteredCount
}

func (f *fixture) assertCounterConsistent(t *testing.T, eventID uint64) {
	t.Helper()
	a, err := f.catalog.Audit(context.Background(), eventID)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !a.Consistent {
		t.Fatalf("counter drift: %+v", a)
	}
}

func (f *fixture) logged(substr string) bool {
	return strings.Contains(f.logs.String(), substr)
}
