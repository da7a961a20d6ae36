package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// In-memory stores with the same conditional-update semantics as the Mongo
// stores, including their sentinel errors, so the resolver under test sees
// identical behavior.

type memRequests struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Request
}

func newMemRequests() *memRequests {
	return &memRequests{byID: make(map[primitive.ObjectID]*models.Request)}
}

func (m *memRequests) GetByID(_ context.Context, id primitive.ObjectID) (models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return models.Request{}, requeststore.ErrNotFound
	}
	return *req, nil
}

func (m *memRequests) Create(_ context.Context, studentID primitive.ObjectID, motive string) (models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req := models.Request{
		ID:          primitive.NewObjectID(),
		StudentID:   studentID,
		Motive:      motive,
		Status:      models.RequestPending,
		SubmittedAt: time.Now().UTC(),
	}
	m.byID[req.ID] = &req
	return req, nil
}

func (m *memRequests) Reject(_ context.Context, id primitive.ObjectID, reason string) (models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return models.Request{}, requeststore.ErrNotFound
	}
	if req.Status != models.RequestPending {
		return models.Request{}, requeststore.ErrInvalidTransition
	}
	req.Status = models.RequestRejected
	req.Reason = reason
	return *req, nil
}

func (m *memRequests) MarkAssigned(_ context.Context, id, assignmentID primitive.ObjectID) (models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return models.Request{}, requeststore.ErrNotFound
	}
	if req.Status != models.RequestPending {
		return models.Request{}, requeststore.ErrInvalidTransition
	}
	req.Status = models.RequestAssigned
	req.AssignmentID = &assignmentID
	return *req, nil
}

func (m *memRequests) Reopen(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok || req.Status != models.RequestAssigned {
		return requeststore.ErrNotFound
	}
	req.Status = models.RequestPending
	req.AssignmentID = nil
	return nil
}

func (m *memRequests) HasPending(_ context.Context, studentID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.byID {
		if req.StudentID == studentID && req.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

type memRooms struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Room
}

func newMemRooms() *memRooms {
	return &memRooms{byID: make(map[primitive.ObjectID]*models.Room)}
}

func (m *memRooms) add(number, state string) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := models.Room{ID: primitive.NewObjectID(), Number: number, RoomType: models.RoomTypeSingle, Capacity: 1, State: state}
	m.byID[room.ID] = &room
	return room.ID
}

func (m *memRooms) GetByID(_ context.Context, id primitive.ObjectID) (models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.byID[id]
	if !ok {
		return models.Room{}, roomstore.ErrNotFound
	}
	return *room, nil
}

func (m *memRooms) Occupy(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.byID[id]
	if !ok {
		return roomstore.ErrNotFound
	}
	if room.State != models.RoomAvailable {
		return roomstore.ErrUnavailable
	}
	room.State = models.RoomOccupied
	return nil
}

func (m *memRooms) Free(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.byID[id]; ok && room.State == models.RoomOccupied {
		room.State = models.RoomAvailable
	}
	return nil
}

func (m *memRooms) state(id primitive.ObjectID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].State
}

type memAssignments struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]*models.Assignment
	createErr error
}

func newMemAssignments() *memAssignments {
	return &memAssignments{byID: make(map[primitive.ObjectID]*models.Assignment)}
}

func (m *memAssignments) GetByID(_ context.Context, id primitive.ObjectID) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return models.Assignment{}, assignmentstore.ErrNotFound
	}
	return *a, nil
}

func (m *memAssignments) Create(_ context.Context, a models.Assignment) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return models.Assignment{}, m.createErr
	}
	a.ID = primitive.NewObjectID()
	a.Active = true
	a.CreatedAt = time.Now().UTC()
	m.byID[a.ID] = &a
	return a, nil
}

func (m *memAssignments) Release(_ context.Context, id primitive.ObjectID, remark string, endDate time.Time) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return models.Assignment{}, assignmentstore.ErrNotFound
	}
	if !a.Active {
		return models.Assignment{}, assignmentstore.ErrAlreadyReleased
	}
	a.Active = false
	if remark != "" {
		a.Remark = remark
	}
	if a.EndDate == nil {
		a.EndDate = &endDate
	}
	now := time.Now().UTC()
	a.ReleasedAt = &now
	return *a, nil
}

func (m *memAssignments) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memAssignments) ActiveByStudent(_ context.Context, studentID primitive.ObjectID) (models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.StudentID == studentID && a.Active {
			return *a, nil
		}
	}
	return models.Assignment{}, assignmentstore.ErrNotFound
}

func (m *memAssignments) HasActiveByStudent(ctx context.Context, studentID primitive.ObjectID) (bool, error) {
	_, err := m.ActiveByStudent(ctx, studentID)
	if errors.Is(err, assignmentstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memAssignments) HasActiveByRoom(_ context.Context, roomID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.RoomID == roomID && a.Active {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAssignments) ListExpired(_ context.Context, before time.Time) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.byID {
		if a.Active && a.EndDate != nil && a.EndDate.Before(before) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAssignments) MarkExpiryNotified(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		a.ExpiryNotified = true
	}
	return nil
}

// recordingFanout counts notifications instead of writing them.
type recordingFanout struct {
	mu     sync.Mutex
	direct []string // titles of per-user notifications
	byRole []string // "role/title" of role broadcasts
}

func (f *recordingFanout) Notify(_ context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, title)
	return models.Notification{ID: primitive.NewObjectID(), RecipientID: recipientID, Kind: kind, Title: title, Message: message}, nil
}

func (f *recordingFanout) NotifyRole(_ context.Context, role, kind, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byRole = append(f.byRole, role+"/"+title)
	return nil
}

func (f *recordingFanout) directCount(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.direct {
		if t == title {
			n++
		}
	}
	return n
}

type fixture struct {
	resolver    *Resolver
	requests    *memRequests
	rooms       *memRooms
	assignments *memAssignments
	fanout      *recordingFanout
}

func newFixture() *fixture {
	f := &fixture{
		requests:    newMemRequests(),
		rooms:       newMemRooms(),
		assignments: newMemAssignments(),
		fanout:      &recordingFanout{},
	}
	f.resolver = NewResolver(f.requests, f.rooms, f.assignments, f.fanout, zap.NewNop())
	return f
}

func datePtr(t time.Time) *time.Time { return &t }

func TestSubmit_CreatesPendingAndNotifiesStaff(t *testing.T) {
	f := newFixture()
	student := primitive.NewObjectID()

	req, err := f.resolver.Submit(context.Background(), student, "first year")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if len(f.fanout.byRole) != 1 || f.fanout.byRole[0] != "staff/New housing request" {
		t.Errorf("staff fanout = %v, want one 'New housing request'", f.fanout.byRole)
	}
}

func TestSubmit_RejectsDuplicatePending(t *testing.T) {
	f := newFixture()
	student := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := f.resolver.Submit(ctx, student, ""); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if _, err := f.resolver.Submit(ctx, student, ""); !errors.Is(err, ErrDuplicatePending) {
		t.Errorf("second Submit err = %v, want ErrDuplicatePending", err)
	}
}

func TestSubmit_RejectsHousedStudent(t *testing.T) {
	f := newFixture()
	student := primitive.NewObjectID()
	roomID := f.rooms.add("101", models.RoomOccupied)
	if _, err := f.assignments.Create(context.Background(), models.Assignment{StudentID: student, RoomID: roomID, StartDate: today()}); err != nil {
		t.Fatal(err)
	}

	_, err := f.resolver.Submit(context.Background(), student, "")
	if !errors.Is(err, ErrAlreadyHoused) {
		t.Errorf("err = %v, want ErrAlreadyHoused", err)
	}
	if f.fanout.directCount("Request blocked") != 1 {
		t.Error("blocked submit should notify the student once")
	}
}

func TestAssign_HappyPath(t *testing.T) {
	f := newFixture()
	student := primitive.NewObjectID()
	ctx := context.Background()

	req, err := f.resolver.Submit(ctx, student, "")
	if err != nil {
		t.Fatal(err)
	}
	roomID := f.rooms.add("12", models.RoomAvailable)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	a, err := f.resolver.Assign(ctx, req.ID, roomID, start, datePtr(end), "")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if !a.Active {
		t.Error("assignment must be active")
	}
	if got, _ := f.requests.GetByID(ctx, req.ID); got.Status != models.RequestAssigned {
		t.Errorf("request status = %q, want assigned", got.Status)
	}
	if f.rooms.state(roomID) != models.RoomOccupied {
		t.Errorf("room state = %q, want occupied", f.rooms.state(roomID))
	}
	if f.fanout.directCount("Request accepted") != 1 {
		t.Error("student should get exactly one acceptance notification")
	}
}

func TestAssign_DateRangeInvalid(t *testing.T) {
	f := newFixture()
	student := primitive.NewObjectID()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, student, "")
	roomID := f.rooms.add("12", models.RoomAvailable)

	start := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.resolver.Assign(ctx, req.ID, roomID, start, datePtr(end), ""); !errors.Is(err, ErrDateRange) {
		t.Errorf("err = %v, want ErrDateRange", err)
	}
	if f.rooms.state(roomID) != models.RoomAvailable {
		t.Error("room must be untouched on validation failure")
	}
}

func TestAssign_OccupiedRoomConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
	roomID := f.rooms.add("12", models.RoomOccupied)

	_, err := f.resolver.Assign(ctx, req.ID, roomID, today(), nil, "")
	if !errors.Is(err, roomstore.ErrUnavailable) {
		t.Errorf("err = %v, want roomstore.ErrUnavailable", err)
	}
	if got, _ := f.requests.GetByID(ctx, req.ID); got.Status != models.RequestPending {
		t.Error("request must stay pending when the room is taken")
	}
}

func TestAssign_NonPendingRequestRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
	if _, err := f.resolver.Reject(ctx, req.ID, ""); err != nil {
		t.Fatal(err)
	}
	roomID := f.rooms.add("12", models.RoomAvailable)

	if _, err := f.resolver.Assign(ctx, req.ID, roomID, today(), nil, ""); !errors.Is(err, requeststore.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if f.rooms.state(roomID) != models.RoomAvailable {
		t.Error("room must remain available")
	}
}

func TestAssign_RollsBackWhenAssignmentInsertFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
	roomID := f.rooms.add("12", models.RoomAvailable)
	f.assignments.createErr = errors.New("insert failed")

	if _, err := f.resolver.Assign(ctx, req.ID, roomID, today(), nil, ""); err == nil {
		t.Fatal("expected failure")
	}
	if f.rooms.state(roomID) != models.RoomAvailable {
		t.Error("room occupancy not rolled back")
	}
	if got, _ := f.requests.GetByID(ctx, req.ID); got.Status != models.RequestPending {
		t.Error("request left partially transitioned")
	}
}

func TestAssign_ConcurrentSameRoom_OneWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.rooms.add("12", models.RoomAvailable)

	const contenders = 8
	reqs := make([]models.Request, contenders)
	for i := range reqs {
		req, err := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
		if err != nil {
			t.Fatal(err)
		}
		reqs[i] = req
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.resolver.Assign(ctx, reqs[i].ID, roomID, today(), nil, "")
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, roomstore.ErrUnavailable):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != contenders-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, contenders-1)
	}
	if f.rooms.state(roomID) != models.RoomOccupied {
		t.Error("room must end occupied exactly once")
	}
}

func TestReject_SecondCallFailsWithoutDuplicateNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")

	if _, err := f.resolver.Reject(ctx, req.ID, "no rooms"); err != nil {
		t.Fatalf("first Reject failed: %v", err)
	}
	if _, err := f.resolver.Reject(ctx, req.ID, "no rooms"); !errors.Is(err, requeststore.ErrInvalidTransition) {
		t.Errorf("second Reject err = %v, want ErrInvalidTransition", err)
	}
	if n := f.fanout.directCount("Request rejected"); n != 1 {
		t.Errorf("rejection notifications = %d, want 1", n)
	}
}

func TestRelease_FreesRoomAndStampsEndDate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student := primitive.NewObjectID()
	req, _ := f.resolver.Submit(ctx, student, "")
	roomID := f.rooms.add("12", models.RoomAvailable)
	a, err := f.resolver.Assign(ctx, req.ID, roomID, today(), nil, "")
	if err != nil {
		t.Fatal(err)
	}

	released, err := f.resolver.Release(ctx, a.ID, "moved out early")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Active {
		t.Error("assignment still active after release")
	}
	if released.EndDate == nil {
		t.Error("end date not stamped on release")
	}
	if f.rooms.state(roomID) != models.RoomAvailable {
		t.Error("room not freed")
	}
}

func TestRelease_AlreadyReleasedLeavesRoomUnchanged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
	roomID := f.rooms.add("12", models.RoomAvailable)
	a, _ := f.resolver.Assign(ctx, req.ID, roomID, today(), nil, "")

	if _, err := f.resolver.Release(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}
	// Occupy the room again through a fresh assignment cycle.
	req2, _ := f.resolver.Submit(ctx, primitive.NewObjectID(), "")
	if _, err := f.resolver.Assign(ctx, req2.ID, roomID, today(), nil, ""); err != nil {
		t.Fatal(err)
	}

	_, err := f.resolver.Release(ctx, a.ID, "")
	if !errors.Is(err, assignmentstore.ErrAlreadyReleased) {
		t.Errorf("err = %v, want ErrAlreadyReleased", err)
	}
	if f.rooms.state(roomID) != models.RoomOccupied {
		t.Error("repeat release must not touch the room")
	}
}

func TestReleaseCurrent_NoActiveAssignment(t *testing.T) {
	f := newFixture()
	_, err := f.resolver.ReleaseCurrent(context.Background(), primitive.NewObjectID(), "")
	if !errors.Is(err, ErrNoActiveStay) {
		t.Errorf("err = %v, want ErrNoActiveStay", err)
	}
}

func TestSweepExpired_NotifiesOnceAndFreesVacantRooms(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	student := primitive.NewObjectID()
	req, _ := f.resolver.Submit(ctx, student, "")
	roomID := f.rooms.add("5", models.RoomAvailable)

	past := today().AddDate(0, 0, -10)
	ended := past.AddDate(0, 0, 5)
	if _, err := f.resolver.Assign(ctx, req.ID, roomID, past, datePtr(ended), ""); err != nil {
		t.Fatal(err)
	}

	if err := f.resolver.SweepExpired(ctx, time.Now()); err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if f.rooms.state(roomID) != models.RoomAvailable {
		t.Error("expired room not freed")
	}
	if n := f.fanout.directCount("Assignment expired"); n != 1 {
		t.Errorf("expiry notifications = %d, want 1", n)
	}

	// A second sweep finds nothing active and must not notify again.
	if err := f.resolver.SweepExpired(ctx, time.Now()); err != nil {
		t.Fatal(err)
	}
	if n := f.fanout.directCount("Assignment expired"); n != 1 {
		t.Errorf("after second sweep notifications = %d, want 1", n)
	}
}

func TestSweepExpired_KeepsRoomHeldByNewerAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomID := f.rooms.add("5", models.RoomOccupied)

	past := today().AddDate(0, 0, -10)
	ended := past.AddDate(0, 0, 5)
	expired, err := f.assignments.Create(ctx, models.Assignment{
		StudentID: primitive.NewObjectID(),
		RoomID:    roomID,
		StartDate: past,
		EndDate:   &ended,
	})
	if err != nil {
		t.Fatal(err)
	}
	// A newer active assignment already holds the same room.
	if _, err := f.assignments.Create(ctx, models.Assignment{
		StudentID: primitive.NewObjectID(),
		RoomID:    roomID,
		StartDate: today(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.resolver.SweepExpired(ctx, time.Now()); err != nil {
		t.Fatal(err)
	}

	if f.rooms.state(roomID) != models.RoomOccupied {
		t.Error("room freed despite a newer active assignment")
	}
	if got, _ := f.assignments.GetByID(ctx, expired.ID); got.Active {
		t.Error("expired assignment not released")
	}
}
