package service

import (
	"context"
	"fmt"
	"strings"

	"hotshot/internal/model"
	"hotshot/internal/repository"
)

// ExportService flattens a closed question's vote attributions into CSV
// rows of (question text, player name, option text). Nothing is stored
// server side; the artifact is handed straight to the caller.
type ExportService struct {
	questionRepo repository.QuestionRepo
	optionRepo   repository.OptionRepo
	playerRepo   repository.PlayerRepo
	voteRepo     repository.VoteRepo
}

// NewExportService creates a new export service
func NewExportService(
	questionRepo repository.QuestionRepo,
	optionRepo repository.OptionRepo,
	playerRepo repository.PlayerRepo,
	voteRepo repository.VoteRepo,
) *ExportService {
	return &ExportService{
		questionRepo: questionRepo,
		optionRepo:   optionRepo,
		playerRepo:   playerRepo,
		voteRepo:     voteRepo,
	}
}

// ExportRow is one flattened vote attribution.
type ExportRow struct {
	Question string
	Player   string
	Option   string
}

// Rows joins the question's votes with player names and option texts, in
// cast order.
func (s *ExportService) Rows(ctx context.Context, roomCode, questionID string) ([]ExportRow, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil || question.RoomCode != roomCode {
		return nil, ErrQuestionNotFound
	}
	if question.Status != model.QuestionClosed {
		return nil, ErrQuestionOpen
	}

	votes, err := s.voteRepo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	players, err := s.playerRepo.ListByRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	playerNames := make(map[string]string, len(players))
	for _, p := range players {
		playerNames[p.ID] = p.Name
	}

	opts, err := s.optionRepo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	optionTexts := make(map[string]string, len(opts))
	for _, o := range opts {
		optionTexts[o.ID] = o.Text
	}

	rows := make([]ExportRow, 0, len(votes))
	for _, v := range votes {
		rows = append(rows, ExportRow{
			Question: question.Text,
			Player:   playerNames[v.PlayerID],
			Option:   optionTexts[v.OptionID],
		})
	}
	return rows, nil
}

// ExportCSV serializes the question's vote rows with a header line. Data
// fields are quoted unconditionally so a delimiter inside a name or option
// text can never break the row.
func (s *ExportService) ExportCSV(ctx context.Context, roomCode, questionID string) ([]byte, error) {
	rows, err := s.Rows(ctx, roomCode, questionID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("Question,Player,Option\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n",
			quoteField(row.Question), quoteField(row.Player), quoteField(row.Option)))
	}
	return []byte(sb.String()), nil
}

func quoteField(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
