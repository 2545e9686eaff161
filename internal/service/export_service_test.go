package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExportCSV(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	alice := f.join(t, room.Code, "Alice")
	bob := f.join(t, room.Code, "Bob")

	tally, err := f.voteSvc.ProposeAndVote(ctx, room.Code, alice.PlayerID, question.ID, "Blue")
	if err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	if _, err := f.voteSvc.Vote(ctx, room.Code, bob.PlayerID, question.ID, tally.Options[0].ID); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}

	out, err := f.exportSvc.ExportCSV(ctx, room.Code, question.ID)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	want := "Question,Player,Option\n" +
		`"Best color?","Alice","Blue"` + "\n" +
		`"Best color?","Bob","Blue"` + "\n"
	if string(out) != want {
		t.Errorf("csv:\n%s\nwant:\n%s", out, want)
	}
}

func TestExportRejectsOpenQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	if _, err := f.exportSvc.ExportCSV(ctx, room.Code, question.ID); !errors.Is(err, ErrQuestionOpen) {
		t.Fatalf("export while open: err = %v, want ErrQuestionOpen", err)
	}
}

func TestExportWrongRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, _ := f.liveRoom(t)
	_, other := f.createRoom(t, "Other Room")

	if _, err := f.exportSvc.ExportCSV(ctx, room.Code, other.ID); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("export foreign question: err = %v, want ErrQuestionNotFound", err)
	}
}

func TestExportQuotesEmbeddedDelimiters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)

	player := f.join(t, room.Code, `Alice "The Ace", Jr.`)
	if _, err := f.voteSvc.ProposeAndVote(ctx, room.Code, player.PlayerID, question.ID, "Red, not blue"); err != nil {
		t.Fatalf("ProposeAndVote: %v", err)
	}
	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}

	out, err := f.exportSvc.ExportCSV(ctx, room.Code, question.ID)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	wantRow := `"Best color?","Alice ""The Ace"", Jr.","Red, not blue"`
	if !strings.Contains(string(out), wantRow) {
		t.Errorf("csv missing quoted row %s:\n%s", wantRow, out)
	}
}

func TestExportEmptyQuestion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room, question := f.liveRoom(t)
	if _, err := f.roomSvc.CloseQuestion(ctx, room.Code, testHost, question.ID); err != nil {
		t.Fatalf("CloseQuestion: %v", err)
	}

	out, err := f.exportSvc.ExportCSV(ctx, room.Code, question.ID)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if string(out) != "Question,Player,Option\n" {
		t.Errorf("empty export = %q, want header only", out)
	}
}
