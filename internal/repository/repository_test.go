package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/database/dbtest"
	"github.com/volunteerconnect/event-registration/internal/model"
)

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func createUser(t *testing.T, db *database.DB, email string, role model.Role) uint64 {
	t.Helper()
	id, err := NewUserRepo(db).Create(context.Background(), email, "password123", "Test User", role, 4)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return id
}

func createEvent(t *testing.T, db *database.DB, createdBy uint64, capacity int, createdAt time.Time) model.Event {
	t.Helper()
	e := model.Event{
		Title:       "Beach clean-up",
		Description: "Bring gloves",
		Category:    model.CategoryEnvironment,
		Location:    "North beach",
		StartsAt:    testStart,
		Capacity:    capacity,
		Status:      model.EventUpcoming,
		CreatedBy:   createdBy,
		CreatedAt:   createdAt,
	}
	if err := NewEventRepo(db).Create(context.Background(), &e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func TestEventIncrementStopsAtCapacity(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewEventRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	e := createEvent(t, db, admin, 2, testStart)

	for i := 0; i < 2; i++ {
		if err := repo.IncrementRegistered(ctx, db, e.ID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := repo.IncrementRegistered(ctx, db, e.ID); !errors.Is(err, ErrEventFull) {
		t.Fatalf("third increment err = %v, want ErrEventFull", err)
	}
	if err := repo.IncrementRegistered(ctx, db, 9999); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("missing event err = %v, want ErrEventNotFound", err)
	}

	got, err := repo.GetByID(ctx, db, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RegisteredCount != 2 {
		t.Fatalf("registered count = %d, want 2", got.RegisteredCount)
	}
}

func TestEventDecrementFloor(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewEventRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	e := createEvent(t, db, admin, 1, testStart)

	if err := repo.DecrementRegistered(ctx, db, e.ID); !errors.Is(err, ErrCounterFloor) {
		t.Fatalf("decrement at zero err = %v, want ErrCounterFloor", err)
	}
	if err := repo.IncrementRegistered(ctx, db, e.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := repo.DecrementRegistered(ctx, db, e.ID); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := repo.DecrementRegistered(ctx, db, 424242); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("missing event err = %v, want ErrEventNotFound", err)
	}
}

func TestEventUpdateGuardsCapacity(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewEventRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	e := createEvent(t, db, admin, 3, testStart)
	for i := 0; i < 2; i++ {
		if err := repo.IncrementRegistered(ctx, db, e.ID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	e.Capacity = 1
	if err := repo.Update(ctx, db, &e); !errors.Is(err, ErrCapacityBelowCount) {
		t.Fatalf("shrink below count err = %v, want ErrCapacityBelowCount", err)
	}

	e.Title = "Harbour clean-up"
	e.Capacity = 2
	e.Status = model.EventCompleted
	if err := repo.Update(ctx, db, &e); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetByID(ctx, db, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Harbour clean-up" || got.Capacity != 2 || got.Status != model.EventCompleted || got.RegisteredCount != 2 {
		t.Fatalf("event after update = %+v", got)
	}

	missing := e
	missing.ID = 9999
	if err := repo.Update(ctx, db, &missing); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("missing event err = %v, want ErrEventNotFound", err)
	}
}

func TestEventRecentAndList(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewEventRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	for i := 0; i < 7; i++ {
		createEvent(t, db, admin, 10, testStart.Add(time.Duration(i)*time.Hour))
	}

	recent, err := repo.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("recent = %d events, want 5", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].CreatedAt.After(recent[i-1].CreatedAt) {
			t.Fatalf("recent not newest first at %d", i)
		}
	}
	n, err := repo.Count(ctx)
	if err != nil || n != 7 {
		t.Fatalf("count = %d, %v", n, err)
	}
	page, err := repo.List(ctx, ListFilter{Category: model.CategoryEnvironment, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page = %d, want 3", len(page))
	}
	none, err := repo.List(ctx, ListFilter{Category: model.CategoryHealth})
	if err != nil || len(none) != 0 {
		t.Fatalf("health list = %d, %v", len(none), err)
	}
}

func TestRegistrationUniqueAndTransition(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	vol := createUser(t, db, "vol@example.com", model.RoleVolunteer)
	e := createEvent(t, db, admin, 5, testStart)

	reg := model.Registration{UserID: vol, EventID: e.ID, Status: model.RegistrationRegistered, RegisteredAt: testStart, UpdatedAt: testStart}
	if err := repo.Insert(ctx, db, &reg); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := reg
	dup.ID = 0
	if err := repo.Insert(ctx, db, &dup); !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicateRegistration", err)
	}

	ok, err := repo.Transition(ctx, db, reg.ID, model.RegistrationRegistered, model.RegistrationCancelled, testStart.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("transition = %v, %v", ok, err)
	}
	ok, err = repo.Transition(ctx, db, reg.ID, model.RegistrationRegistered, model.RegistrationCancelled, testStart.Add(2*time.Minute))
	if err != nil || ok {
		t.Fatalf("stale transition = %v, %v; want false", ok, err)
	}

	got, err := repo.FindByUserAndEvent(ctx, db, vol, e.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != model.RegistrationCancelled || !got.UpdatedAt.Equal(testStart.Add(time.Minute)) {
		t.Fatalf("registration = %+v", got)
	}
	if _, err := repo.GetByID(ctx, db, 777); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	active, err := repo.CountActiveForEvent(ctx, db, e.ID)
	if err != nil || active != 0 {
		t.Fatalf("active = %d, %v", active, err)
	}

	mine, err := repo.ListByUser(ctx, vol)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 1 || mine[0].EventTitle != "Beach clean-up" {
		t.Fatalf("list by user = %+v", mine)
	}
}

func TestRegistrationGetByIDForUpdate(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	vol := createUser(t, db, "vol@example.com", model.RoleVolunteer)
	e := createEvent(t, db, admin, 5, testStart)

	reg := model.Registration{UserID: vol, EventID: e.ID, Status: model.RegistrationRegistered, RegisteredAt: testStart, UpdatedAt: testStart}
	if err := repo.Insert(ctx, db, &reg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := db.InTx(ctx, func(tx *sql.Tx) error {
		ok, err := repo.Transition(ctx, tx, reg.ID, model.RegistrationRegistered, model.RegistrationAttended, testStart.Add(time.Minute))
		if err != nil || !ok {
			t.Fatalf("transition = %v, %v", ok, err)
		}
		got, err := repo.GetByIDForUpdate(ctx, tx, reg.ID)
		if err != nil {
			return err
		}
		if got.Status != model.RegistrationAttended {
			t.Fatalf("locked read status = %s, want attended", got.Status)
		}
		_, err = repo.GetByIDForUpdate(ctx, tx, 777)
		if !errors.Is(err, ErrRegistrationNotFound) {
			t.Fatalf("missing err = %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestAttendanceUpsertKeepsOneRow(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewAttendanceRepo(db)
	admin := createUser(t, db, "admin@example.com", model.RoleNGOAdmin)
	vol := createUser(t, db, "vol@example.com", model.RoleVolunteer)
	e := createEvent(t, db, admin, 5, testStart)

	first := model.Attendance{EventID: e.ID, UserID: vol, Status: model.AttendancePresent, CheckInTime: testStart, VerifiedBy: admin}
	if err := repo.Upsert(ctx, db, &first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.SetCheckOut(ctx, db, e.ID, vol, testStart.Add(time.Hour)); err != nil {
		t.Fatalf("check out: %v", err)
	}

	second := model.Attendance{EventID: e.ID, UserID: vol, Status: model.AttendanceAbsent, CheckInTime: testStart.Add(2 * time.Hour), VerifiedBy: admin}
	if err := repo.Upsert(ctx, db, &second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new row: %d != %d", second.ID, first.ID)
	}
	if second.Status != model.AttendanceAbsent || !second.CheckInTime.Equal(testStart.Add(2*time.Hour)) {
		t.Fatalf("stored = %+v", second)
	}
	if second.CheckOutTime != nil {
		t.Fatalf("check out not cleared: %v", second.CheckOutTime)
	}

	list, err := repo.ListByEvent(ctx, e.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
	if err := repo.SetCheckOut(ctx, db, e.ID, 9999, testStart); !errors.Is(err, ErrAttendanceNotFound) {
		t.Fatalf("check out missing err = %v", err)
	}
}

func TestNotificationMarkReadOwnerOnly(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewNotificationRepo(db)

	n := model.Notification{RecipientID: 1, Kind: model.KindRegistrationConfirmed, Type: model.NotificationSuccess, Title: "t", Message: "m", CreatedAt: testStart}
	if err := repo.Insert(ctx, &n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.MarkRead(ctx, n.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign mark err = %v, want ErrForbidden", err)
	}
	got, err := repo.MarkRead(ctx, n.ID, 1)
	if err != nil || !got.Read {
		t.Fatalf("mark read = %+v, %v", got, err)
	}
	list, err := repo.ListByRecipient(ctx, 1, 10)
	if err != nil || len(list) != 1 || !list[0].Read {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if _, err := repo.MarkRead(ctx, 999, 1); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestUserRepo(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewUserRepo(db)

	createUser(t, db, "A@Example.com", model.RoleVolunteer)
	createUser(t, db, "b@example.com", model.RoleVolunteer)
	createUser(t, db, "admin@example.com", model.RoleNGOAdmin)

	if _, err := repo.Create(ctx, "a@example.com", "password123", "Dup", model.RoleVolunteer, 4); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email err = %v", err)
	}
	u, err := repo.GetByEmail(ctx, " a@example.com ")
	if err != nil || u.Role != model.RoleVolunteer {
		t.Fatalf("get by email = %+v, %v", u, err)
	}
	n, err := repo.CountByRole(ctx, model.RoleVolunteer)
	if err != nil || n != 2 {
		t.Fatalf("volunteers = %d, %v", n, err)
	}
	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestTokenRepoLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewTokenRepo(db)
	uid := createUser(t, db, "vol@example.com", model.RoleVolunteer)

	if err := repo.StoreRefresh(ctx, uid, "hash-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := repo.ValidateRefresh(ctx, "hash-1")
	if err != nil || got != uid {
		t.Fatalf("validate = %d, %v", got, err)
	}
	if err := repo.RevokeByHash(ctx, "hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "hash-1"); err == nil {
		t.Fatal("revoked token validated")
	}
	if err := repo.StoreRefresh(ctx, uid, "hash-2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("store expired: %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "hash-2"); err == nil {
		t.Fatal("expired token validated")
	}
}
