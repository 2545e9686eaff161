package service

import (
	"context"
	"errors"
	"testing"

	"hotshot/internal/config"
	"hotshot/internal/model"
	"hotshot/internal/testutil"
)

type fixture struct {
	rooms      *testutil.MemRoomRepo
	questions  *testutil.MemQuestionRepo
	options    *testutil.MemOptionRepo
	players    *testutil.MemPlayerRepo
	votes      *testutil.MemVoteRepo
	roomCache  *testutil.MemRoomCache
	tallyCache *testutil.MemTallyCache
	bus        *testutil.RecordingBroadcaster

	auth      *AuthService
	roomSvc   *RoomService
	playerSvc *PlayerService
	voteSvc   *VoteService
	exportSvc *ExportService
}

func newFixture() *fixture {
	f := &fixture{
		rooms:      testutil.NewMemRoomRepo(),
		questions:  testutil.NewMemQuestionRepo(),
		options:    testutil.NewMemOptionRepo(),
		players:    testutil.NewMemPlayerRepo(),
		votes:      testutil.NewMemVoteRepo(),
		roomCache:  testutil.NewMemRoomCache(),
		tallyCache: testutil.NewMemTallyCache(),
		bus:        &testutil.RecordingBroadcaster{},
	}
	f.auth = NewAuthService(&config.Config{
		JWTSecret:    "test-secret",
		HostUsername: "admin",
		HostPassword: "hunter2",
	})
	f.roomSvc = NewRoomService(f.rooms, f.questions, f.options, f.players, f.votes, f.roomCache, f.tallyCache)
	f.playerSvc = NewPlayerService(f.players, f.rooms, f.roomCache, f.auth)
	f.voteSvc = NewVoteService(f.questions, f.options, f.players, f.votes, f.roomCache, f.tallyCache)
	f.exportSvc = NewExportService(f.questions, f.options, f.players, f.votes)
	f.roomSvc.SetBroadcaster(f.bus)
	f.playerSvc.SetBroadcaster(f.bus)
	f.voteSvc.SetBroadcaster(f.bus)
	return f
}

const testHost = "host_test"

// createRoom creates a draft room with one question and returns (room, question).
func (f *fixture) createRoom(t *testing.T, name string) (*model.Room, *model.Question) {
	t.Helper()
	room, err := f.roomSvc.CreateRoom(context.Background(), name, testHost)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	question, err := f.roomSvc.AddQuestion(context.Background(), room.Code, testHost, "Best color?", 5)
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	return room, question
}

// liveRoom creates a room, publishes it and opens its question.
func (f *fixture) liveRoom(t *testing.T) (*model.Room, *model.Question) {
	t.Helper()
	room, question := f.createRoom(t, "Trivia Night")
	if err := f.roomSvc.PublishRoom(context.Background(), room.Code, testHost); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	opened, err := f.roomSvc.OpenQuestion(context.Background(), room.Code, testHost, question.ID)
	if err != nil {
		t.Fatalf("OpenQuestion: %v", err)
	}
	return room, opened
}

func (f *fixture) join(t *testing.T, roomCode, name string) *model.PlayerJoinResponse {
	t.Helper()
	resp, err := f.playerSvc.JoinRoom(context.Background(), roomCode, name, "")
	if err != nil {
		t.Fatalf("JoinRoom(%s): %v", name, err)
	}
	return resp
}

func TestCreateRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.roomSvc.CreateRoom(ctx, "  Trivia Night  ", testHost)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.Status != model.RoomDraft {
		t.Errorf("new room status = %q, want draft", room.Status)
	}
	if room.Name != "Trivia Night" {
		t.Errorf("room name = %q, want trimmed", room.Name)
	}
	if len(room.Code) != 6 {
		t.Errorf("room code = %q, want 6 chars", room.Code)
	}

	meta, err := f.roomCache.GetMeta(ctx, room.Code)
	if err != nil || meta == nil {
		t.Fatalf("room meta not cached after create: %v", err)
	}
	if meta.HostSession != testHost {
		t.Errorf("cached host = %q, want %q", meta.HostSession, testHost)
	}
}

func TestCreateRoomEmptyName(t *testing.T) {
	f := newFixture()
	if _, err := f.roomSvc.CreateRoom(context.Background(), "   ", testHost); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateRoom with blank name: err = %v, want ErrValidation", err)
	}
}

func TestPublishRequiresQuestions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.roomSvc.CreateRoom(ctx, "Empty", testHost)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("publish without questions: err = %v, want ErrNoQuestions", err)
	}
}

func TestPublishOnlyFromDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, _ := f.createRoom(t, "Trivia Night")

	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); !errors.Is(err, ErrRoomNotDraft) {
		t.Fatalf("second publish: err = %v, want ErrRoomNotDraft", err)
	}

	got, _ := f.rooms.GetByCode(ctx, room.Code)
	if got.Status != model.RoomLive {
		t.Errorf("room status = %q, want live", got.Status)
	}
	meta, _ := f.roomCache.GetMeta(ctx, room.Code)
	if meta.Status != model.RoomLive {
		t.Errorf("cached status = %q, want live", meta.Status)
	}
}

func TestPublishRejectsWrongHost(t *testing.T) {
	f := newFixture()
	room, _ := f.createRoom(t, "Trivia Night")
	if err := f.roomSvc.PublishRoom(context.Background(), room.Code, "host_other"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("publish by non-owner: err = %v, want ErrNotHost", err)
	}
}

func TestAddQuestionOrderIndexes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, first := f.createRoom(t, "Trivia Night")

	second, err := f.roomSvc.AddQuestion(ctx, room.Code, testHost, "Best season?", 0)
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if first.OrderIndex != 1 || second.OrderIndex != 2 {
		t.Errorf("order indexes = %d, %d, want 1, 2", first.OrderIndex, second.OrderIndex)
	}
	if second.MaxOptions != 10 {
		t.Errorf("default max options = %d, want 10", second.MaxOptions)
	}
	if second.Status != model.QuestionClosed {
		t.Errorf("new question status = %q, want closed", second.Status)
	}

	list, err := f.roomSvc.ListQuestions(ctx, room.Code)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("ListQuestions out of order: %+v", list)
	}
}

func TestAddQuestionRejectedAfterEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, _ := f.liveRoom(t)

	if err := f.roomSvc.EndRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("EndRoom: %v", err)
	}
	if _, err := f.roomSvc.AddQuestion(ctx, room.Code, testHost, "Too late?", 0); !errors.Is(err, ErrRoomEnded) {
		t.Fatalf("AddQuestion after end: err = %v, want ErrRoomEnded", err)
	}
}

func TestOpenQuestionClosesPrevious(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, first := f.createRoom(t, "Trivia Night")
	second, err := f.roomSvc.AddQuestion(ctx, room.Code, testHost, "Best season?", 0)
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}

	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, first.ID); err != nil {
		t.Fatalf("open first: %v", err)
	}
	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, second.ID); err != nil {
		t.Fatalf("open second: %v", err)
	}

	open, err := f.questions.GetOpen(ctx, room.Code)
	if err != nil {
		t.Fatalf("GetOpen: %v", err)
	}
	if open == nil || open.ID != second.ID {
		t.Fatalf("open question = %+v, want %s", open, second.ID)
	}
	firstNow, _ := f.questions.GetByID(ctx, first.ID)
	if firstNow.Status != model.QuestionClosed {
		t.Errorf("first question status = %q, want closed after switch", firstNow.Status)
	}
}

func TestOpenQuestionResetsVoteFlags(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, first := f.createRoom(t, "Trivia Night")
	second, _ := f.roomSvc.AddQuestion(ctx, room.Code, testHost, "Best season?", 0)
	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, first.ID); err != nil {
		t.Fatalf("OpenQuestion: %v", err)
	}

	alice := f.join(t, room.Code, "Alice")
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, first.ID, "Blue"); err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	p, _ := f.players.GetByID(ctx, alice.PlayerID)
	if !p.HasVoted || p.CurrentQuestionID != first.ID {
		t.Fatalf("player not marked voted: %+v", p)
	}

	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, second.ID); err != nil {
		t.Fatalf("open second: %v", err)
	}
	p, _ = f.players.GetByID(ctx, alice.PlayerID)
	if p.HasVoted || p.CurrentQuestionID != "" {
		t.Errorf("vote flags not reset on new question: %+v", p)
	}
}

func TestOpenQuestionWrongRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roomA, _ := f.liveRoom(t)
	_, questionB := f.createRoom(t, "Other Room")

	if _, err := f.roomSvc.OpenQuestion(ctx, roomA.Code, testHost, questionB.ID); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("open foreign question: err = %v, want ErrQuestionNotFound", err)
	}
}

func TestEndRoomIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	if err := f.roomSvc.EndRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("EndRoom: %v", err)
	}

	q, _ := f.questions.GetByID(ctx, question.ID)
	if q.Status != model.QuestionClosed {
		t.Errorf("open question not closed by end: %q", q.Status)
	}
	got, _ := f.rooms.GetByCode(ctx, room.Code)
	if got.Status != model.RoomEnded {
		t.Errorf("room status = %q, want ended", got.Status)
	}
	// Cached tally snapshots are dropped with the room; post-end reads go
	// to the store.
	if cached, _ := f.tallyCache.Get(ctx, question.ID); cached != nil {
		t.Error("tally snapshot still cached after end")
	}

	if err := f.roomSvc.EndRoom(ctx, room.Code, testHost); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("second end: err = %v, want ErrRoomEnded", err)
	}
	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); !errors.Is(err, ErrRoomNotDraft) {
		t.Errorf("publish after end: err = %v, want ErrRoomNotDraft", err)
	}
	if _, err := f.playerSvc.JoinRoom(ctx, room.Code, "Late", ""); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("join after end: err = %v, want ErrRoomEnded", err)
	}
}

func TestEndRoomNotLive(t *testing.T) {
	f := newFixture()
	room, _ := f.createRoom(t, "Trivia Night")
	if err := f.roomSvc.EndRoom(context.Background(), room.Code, testHost); !errors.Is(err, ErrRoomNotLive) {
		t.Fatalf("end draft room: err = %v, want ErrRoomNotLive", err)
	}
}

func TestRoomLifecycleBroadcasts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.createRoom(t, "Trivia Night")

	if err := f.roomSvc.PublishRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("OpenQuestion: %v", err)
	}
	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}
	if err := f.roomSvc.EndRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("EndRoom: %v", err)
	}

	want := []string{"room_published", "question_opened", "question_closed", "room_ended", "disconnect"}
	got := f.bus.TypesFor(room.Code)
	if len(got) != len(want) {
		t.Fatalf("broadcasts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("broadcast[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetRoomMetaFallsBackToStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, _ := f.createRoom(t, "Trivia Night")

	// Simulate cache eviction.
	if err := f.roomCache.Delete(ctx, room.Code); err != nil {
		t.Fatalf("cache delete: %v", err)
	}

	meta, err := f.roomSvc.GetRoomMeta(ctx, room.Code)
	if err != nil {
		t.Fatalf("GetRoomMeta: %v", err)
	}
	if meta == nil || meta.Name != "Trivia Night" {
		t.Fatalf("meta = %+v, want store copy", meta)
	}
	// The read should have re-primed the cache.
	if ok, _ := f.roomCache.Exists(ctx, room.Code); !ok {
		t.Error("cache not re-primed after fallback read")
	}
}
