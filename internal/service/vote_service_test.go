package service

import (
	"context"
	"errors"
	"testing"

	"hotshot/internal/model"
	"hotshot/internal/testutil"
)

func TestVoteOnExistingOption(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")
	bob := f.join(t, room.Code, "Bob")

	tally, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue")
	if err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	if tally.TotalVotes != 1 || len(tally.Options) != 1 {
		t.Fatalf("tally after propose = %+v, want 1 option / 1 vote", tally)
	}

	tally, err = f.voteSvc.Vote(ctx, room.Code, bob.PlayerID, question.ID, tally.Options[0].ID)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if tally.TotalVotes != 2 || tally.Options[0].VotesCount != 2 {
		t.Fatalf("tally after vote = %+v, want 2 votes on Blue", tally)
	}

	count, _ := f.votes.CountByQuestion(ctx, question.ID)
	if count != 2 {
		t.Errorf("vote rows = %d, want 2", count)
	}
}

func TestVoteOnlyOncePerQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")

	tally, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue")
	if err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	optionID := tally.Options[0].ID

	if _, err := f.voteSvc.Vote(ctx, room.Code, alice.PlayerID, question.ID, optionID); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote: err = %v, want ErrAlreadyVoted", err)
	}
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Green"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second propose: err = %v, want ErrAlreadyVoted", err)
	}

	// Reopening the same question does not lift the gate; the vote row
	// stands regardless of status flips.
	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := f.voteSvc.Vote(ctx, room.Code, alice.PlayerID, question.ID, optionID); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("vote after reopen: err = %v, want ErrAlreadyVoted", err)
	}
	if count, _ := f.votes.CountByQuestion(ctx, question.ID); count != 1 {
		t.Fatalf("vote rows = %d, want 1", count)
	}

	// A different question grants a fresh vote.
	next, err := f.roomSvc.AddQuestion(ctx, room.Code, testHost, "Best season?", 0)
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if _, err := f.roomSvc.OpenQuestion(ctx, room.Code, testHost, next.ID); err != nil {
		t.Fatalf("open next: %v", err)
	}
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, next.ID, "Winter"); err != nil {
		t.Fatalf("vote on next question: %v", err)
	}
}

func TestVoteRequiresOpenQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")
	tally, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue")
	if err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	optionID := tally.Options[0].ID

	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}

	bob := f.join(t, room.Code, "Bob")
	if _, err := f.voteSvc.Vote(ctx, room.Code, bob.PlayerID, question.ID, optionID); !errors.Is(err, ErrNoOpenQuestion) {
		t.Fatalf("vote on closed question: err = %v, want ErrNoOpenQuestion", err)
	}
}

func TestVoteTargetsTheOpenQuestion(t *testing.T) {
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
	// Votes naming the non-open question are rejected even though it exists.
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, second.ID, "Winter"); !errors.Is(err, ErrNoOpenQuestion) {
		t.Fatalf("propose on non-open question: err = %v, want ErrNoOpenQuestion", err)
	}
}

func TestVoteUnknownOption(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")

	if _, err := f.voteSvc.Vote(ctx, room.Code, alice.PlayerID, question.ID, "nope"); !errors.Is(err, ErrOptionNotFound) {
		t.Fatalf("vote for missing option: err = %v, want ErrOptionNotFound", err)
	}
	// The failed attempt must not consume the player's vote.
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue"); err != nil {
		t.Fatalf("propose after failed vote: %v", err)
	}
}

func TestProposeDuplicateTextIncrements(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")
	bob := f.join(t, room.Code, "Bob")

	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue"); err != nil {
		t.Fatalf("first propose: %v", err)
	}
	// Same text up to case and surrounding whitespace collapses onto the
	// existing option.
	tally, err := f.voteSvc.ProposeAndVote(ctx, room.Code, bob.PlayerID, question.ID, "  bLuE ")
	if err != nil {
		t.Fatalf("duplicate propose: %v", err)
	}
	if len(tally.Options) != 1 {
		t.Fatalf("options = %d, want 1 (duplicate collapsed)", len(tally.Options))
	}
	if tally.Options[0].VotesCount != 2 {
		t.Errorf("votes = %d, want 2", tally.Options[0].VotesCount)
	}
	if tally.Options[0].Text != "Blue" {
		t.Errorf("option text = %q, want original casing kept", tally.Options[0].Text)
	}
}

func TestProposeOptionLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t) // MaxOptions = 5

	names := []string{"A", "B", "C", "D", "E"}
	for _, n := range names {
		p := f.join(t, room.Code, n)
		if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, p.PlayerID, question.ID, "Option "+n); err != nil {
			t.Fatalf("propose %s: %v", n, err)
		}
	}

	frank := f.join(t, room.Code, "Frank")
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, frank.PlayerID, question.ID, "Option F"); !errors.Is(err, ErrOptionLimit) {
		t.Fatalf("sixth option: err = %v, want ErrOptionLimit", err)
	}
	// The rejection applies regardless of whether the text would have been
	// a duplicate.
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, frank.PlayerID, question.ID, "option a"); !errors.Is(err, ErrOptionLimit) {
		t.Fatalf("duplicate text at limit: err = %v, want ErrOptionLimit", err)
	}

	if count, _ := f.options.CountByQuestion(ctx, question.ID); count != 5 {
		t.Errorf("option count after rejections = %d, want 5", count)
	}

	// Voting for an existing option still works at the limit.
	tally, err := f.voteSvc.GetTally(ctx, question.ID)
	if err != nil {
		t.Fatalf("GetTally: %v", err)
	}
	if _, err := f.voteSvc.Vote(ctx, room.Code, frank.PlayerID, question.ID, tally.Options[0].ID); err != nil {
		t.Fatalf("vote at option limit: %v", err)
	}
}

func TestTallyOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	// Red x1, then Blue x2, then Green x1. Blue leads; Red ties Green but
	// was proposed first.
	var tally *model.Tally
	for i, pick := range []string{"Red", "Blue", "Blue", "Green"} {
		p := f.join(t, room.Code, "P"+string(rune('A'+i)))
		var err error
		tally, err = f.voteSvc.ProposeAndVote(ctx, room.Code, p.PlayerID, question.ID, pick)
		if err != nil {
			t.Fatalf("propose %s: %v", pick, err)
		}
	}

	got := make([]string, len(tally.Options))
	for i, o := range tally.Options {
		got[i] = o.Text
	}
	want := []string{"Blue", "Red", "Green"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tally order = %v, want %v", got, want)
		}
	}
	if tally.TotalVotes != 4 {
		t.Errorf("total votes = %d, want 4", tally.TotalVotes)
	}
}

func TestCurrentQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	open, tally, err := f.voteSvc.CurrentQuestion(ctx, room.Code)
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if open == nil || open.ID != question.ID {
		t.Fatalf("current = %+v, want %s", open, question.ID)
	}
	if tally == nil || tally.TotalVotes != 0 {
		t.Fatalf("tally = %+v, want empty", tally)
	}

	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}
	open, tally, err = f.voteSvc.CurrentQuestion(ctx, room.Code)
	if err != nil {
		t.Fatalf("CurrentQuestion after close: %v", err)
	}
	if open != nil || tally != nil {
		t.Fatalf("current after close = %+v/%+v, want nil", open, tally)
	}
}

func TestGetTallyFallsBackToStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue"); err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}

	if err := f.tallyCache.Invalidate(ctx, question.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	tally, err := f.voteSvc.GetTally(ctx, question.ID)
	if err != nil {
		t.Fatalf("GetTally: %v", err)
	}
	if tally.TotalVotes != 1 {
		t.Fatalf("tally from store = %+v, want 1 vote", tally)
	}
	if cached, _ := f.tallyCache.Get(ctx, question.ID); cached == nil {
		t.Error("tally cache not re-primed after fallback read")
	}
}

// flakyVoteRepo fails Create on demand so tests can exercise the partial
// failure between the attribution write and the tally increment.
type flakyVoteRepo struct {
	*testutil.MemVoteRepo
	fail bool
}

func (r *flakyVoteRepo) Create(ctx context.Context, vote *model.Vote) error {
	if r.fail {
		return errors.New("write concern error")
	}
	return r.MemVoteRepo.Create(ctx, vote)
}

func TestFailedVoteLeavesTallyUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	votes := &flakyVoteRepo{MemVoteRepo: f.votes}
	svc := NewVoteService(f.questions, f.options, f.players, votes, f.roomCache, f.tallyCache)

	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")
	bob := f.join(t, room.Code, "Bob")

	tally, err := svc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue")
	if err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	optionID := tally.Options[0].ID

	votes.fail = true
	if _, err := svc.Vote(ctx, room.Code, bob.PlayerID, question.ID, optionID); err == nil {
		t.Fatal("vote succeeded despite failed attribution write")
	}

	// The failed attempt counted nothing: tally and rows still agree.
	opt, _ := f.options.GetByID(ctx, optionID)
	if opt.VotesCount != 1 {
		t.Fatalf("votesCount after failed vote = %d, want 1", opt.VotesCount)
	}
	if rows, _ := f.votes.CountByQuestion(ctx, question.ID); rows != 1 {
		t.Fatalf("vote rows after failed vote = %d, want 1", rows)
	}

	// Nothing was consumed either; the retry lands.
	votes.fail = false
	tally, err = svc.Vote(ctx, room.Code, bob.PlayerID, question.ID, optionID)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if tally.TotalVotes != 2 || tally.Options[0].VotesCount != 2 {
		t.Fatalf("tally after retry = %+v, want 2 votes on Blue", tally)
	}
}

func TestFailedProposalNeverInflatesTally(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	votes := &flakyVoteRepo{MemVoteRepo: f.votes}
	svc := NewVoteService(f.questions, f.options, f.players, votes, f.roomCache, f.tallyCache)

	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")

	votes.fail = true
	if _, err := svc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Green"); err == nil {
		t.Fatal("propose succeeded despite failed attribution write")
	}

	// The option may survive with zero votes, but the tally never exceeds
	// the recorded rows.
	opts, _ := f.options.ListByQuestion(ctx, question.ID)
	sum := 0
	for _, o := range opts {
		sum += o.VotesCount
	}
	rows, _ := f.votes.CountByQuestion(ctx, question.ID)
	if int64(sum) != rows {
		t.Fatalf("tally sum = %d, vote rows = %d, want equal", sum, rows)
	}

	votes.fail = false
	tally, err := svc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Green")
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if tally.TotalVotes != 1 {
		t.Fatalf("tally after retry = %+v, want 1 vote", tally)
	}
}

func TestVoteInEndedRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	alice := f.join(t, room.Code, "Alice")

	if err := f.roomSvc.EndRoom(ctx, room.Code, testHost); err != nil {
		t.Fatalf("EndRoom: %v", err)
	}
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue"); !errors.Is(err, ErrRoomEnded) {
		t.Fatalf("vote in ended room: err = %v, want ErrRoomEnded", err)
	}
}
