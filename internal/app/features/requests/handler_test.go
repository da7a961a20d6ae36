package requests_test

import (
	"net/http"
	"strings"
	"testing"

	requestsfeature "github.com/dalemusser/dormdesk/internal/app/features/requests"
	"github.com/dalemusser/dormdesk/internal/app/notify"
	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	notificationstore "github.com/dalemusser/dormdesk/internal/app/store/notifications"
	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/dalemusser/dormdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	handler  *requestsfeature.Handler
	fixtures *testutil.Fixtures
	store    *requeststore.Store
	rooms    *roomstore.Store
}

func newEnv(t *testing.T) (*env, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	requests := requeststore.New(db)
	rooms := roomstore.New(db)
	assignments := assignmentstore.New(db)
	notifications := notificationstore.New(db)
	users := userstore.New(db)

	hub := unreadsync.NewHub(logger)
	fanout := notify.New(notifications, users, hub, logger)
	resolver := workflow.NewResolver(requests, rooms, assignments, fanout, logger)

	return &env{
		handler:  requestsfeature.NewHandler(requests, resolver, logger),
		fixtures: testutil.NewFixtures(t, db),
		store:    requests,
		rooms:    rooms,
	}, db
}

func TestSubmit_CreatesPendingRequest(t *testing.T) {
	e, _ := newEnv(t)
	student := testutil.StudentUser()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests", map[string]string{
		"motive": "closer to campus",
	})
	req = testutil.WithUser(req, student)
	rec := testutil.NewRecorder()

	e.handler.Submit(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var got models.Request
	rec.DecodeJSON(t, &got)
	if got.Status != models.RequestPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.StudentID != student.ObjectID() {
		t.Errorf("student_id = %v, want %v", got.StudentID, student.ObjectID())
	}
}

func TestSubmit_DuplicatePendingIs409(t *testing.T) {
	e, _ := newEnv(t)
	student := testutil.StudentUser()
	e.fixtures.CreateRequest(testutil.TestContext(t), student.ObjectID(), models.RequestPending)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests", map[string]string{})
	req = testutil.WithUser(req, student)
	rec := testutil.NewRecorder()

	e.handler.Submit(rec, req)

	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "resource_conflict")
}

func TestAssign_HappyPathOccupiesRoom(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	student := testutil.StudentUser()
	request := e.fixtures.CreateRequest(ctx, student.ObjectID(), models.RequestPending)
	room := e.fixtures.CreateRoom(ctx, "101", models.RoomAvailable)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+request.ID.Hex()+"/assign", map[string]string{
		"room_id":    room.ID.Hex(),
		"start_date": "2026-09-01",
		"end_date":   "2027-06-30",
	})
	req = testutil.WithUser(req, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", request.ID.Hex())
	rec := testutil.NewRecorder()

	e.handler.Assign(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var got models.Assignment
	rec.DecodeJSON(t, &got)
	if !got.Active {
		t.Error("assignment must be active")
	}

	updated, err := e.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.State != models.RoomOccupied {
		t.Errorf("room state = %q, want occupied", updated.State)
	}
}

func TestAssign_BackwardDateRangeIs422(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	student := testutil.StudentUser()
	request := e.fixtures.CreateRequest(ctx, student.ObjectID(), models.RequestPending)
	room := e.fixtures.CreateRoom(ctx, "102", models.RoomAvailable)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+request.ID.Hex()+"/assign", map[string]string{
		"room_id":    room.ID.Hex(),
		"start_date": "2027-06-30",
		"end_date":   "2026-09-01",
	})
	req = testutil.WithUser(req, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", request.ID.Hex())
	rec := testutil.NewRecorder()

	e.handler.Assign(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "date_range_invalid")
}

func TestAssign_MaintenanceRoomIs409(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	student := testutil.StudentUser()
	request := e.fixtures.CreateRequest(ctx, student.ObjectID(), models.RequestPending)
	room := e.fixtures.CreateRoom(ctx, "103", models.RoomMaintenance)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+request.ID.Hex()+"/assign", map[string]string{
		"room_id": room.ID.Hex(),
	})
	req = testutil.WithUser(req, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", request.ID.Hex())
	rec := testutil.NewRecorder()

	e.handler.Assign(rec, req)

	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "resource_conflict")
}

func TestReject_ThenRepeatIs409(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	student := testutil.StudentUser()
	request := e.fixtures.CreateRequest(ctx, student.ObjectID(), models.RequestPending)

	send := func() *testutil.ResponseRecorder {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+request.ID.Hex()+"/reject", map[string]string{
			"reason": "no rooms this term",
		})
		req = testutil.WithUser(req, testutil.StaffUser())
		req = testutil.WithChiURLParam(req, "id", request.ID.Hex())
		rec := testutil.NewRecorder()
		e.handler.Reject(rec, req)
		return rec
	}

	first := send()
	first.AssertStatus(t, http.StatusOK)
	var got models.Request
	first.DecodeJSON(t, &got)
	if got.Status != models.RequestRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}

	second := send()
	second.AssertStatus(t, http.StatusConflict)
	second.AssertContains(t, "invalid_transition")
}

func TestListMine_OnlyOwnRequests(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	mine := testutil.StudentUser()
	other := testutil.StudentUser()
	e.fixtures.CreateRequest(ctx, mine.ObjectID(), models.RequestPending)
	e.fixtures.CreateRequest(ctx, other.ObjectID(), models.RequestPending)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/requests/mine", mine)
	rec := testutil.NewRecorder()

	e.handler.ListMine(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var list []models.Request
	rec.DecodeJSON(t, &list)
	if len(list) != 1 {
		t.Fatalf("got %d requests, want 1", len(list))
	}
	if list[0].StudentID != mine.ObjectID() {
		t.Error("returned another student's request")
	}
}

func TestReject_OversizedBodyIs400(t *testing.T) {
	e, _ := newEnv(t)
	ctx := testutil.TestContext(t)
	student := testutil.StudentUser()
	request := e.fixtures.CreateRequest(ctx, student.ObjectID(), models.RequestPending)

	// One byte past the JSON body cap trips the reader before the decoder
	// sees a complete document.
	req := testutil.NewJSONRequest(t, http.MethodPost, "/requests/"+request.ID.Hex()+"/reject", map[string]string{
		"reason": strings.Repeat("x", int(limits.MaxJSONBody)+1),
	})
	req = testutil.WithUser(req, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", request.ID.Hex())
	rec := testutil.NewRecorder()

	e.handler.Reject(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)

	// The request itself is untouched.
	got, err := e.store.GetByID(ctx, request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RequestPending {
		t.Errorf("status = %q, want pending after oversized reject", got.Status)
	}
}
