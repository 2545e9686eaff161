package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotshot/internal/cache"
	"hotshot/internal/model"
	"hotshot/internal/repository"
)

// VoteService records votes against the room's open question. The
// attribution row is written before the tally moves, so the tally can
// never run ahead of the recorded votes, and the unique
// (questionId, playerId) index settles races the hasVoted check lets
// through. Tallies are only ever advanced through the store's atomic
// increment, never via read-modify-write.
type VoteService struct {
	questionRepo repository.QuestionRepo
	optionRepo   repository.OptionRepo
	playerRepo   repository.PlayerRepo
	voteRepo     repository.VoteRepo
	roomCache    cache.RoomCache
	tallyCache   cache.TallyCache
	broadcaster  Broadcaster
}

// NewVoteService creates a new vote service
func NewVoteService(
	questionRepo repository.QuestionRepo,
	optionRepo repository.OptionRepo,
	playerRepo repository.PlayerRepo,
	voteRepo repository.VoteRepo,
	roomCache cache.RoomCache,
	tallyCache cache.TallyCache,
) *VoteService {
	return &VoteService{
		questionRepo: questionRepo,
		optionRepo:   optionRepo,
		playerRepo:   playerRepo,
		voteRepo:     voteRepo,
		roomCache:    roomCache,
		tallyCache:   tallyCache,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *VoteService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Vote casts the player's single vote for an existing option of the open
// question.
func (s *VoteService) Vote(ctx context.Context, roomCode, playerID, questionID, optionID string) (*model.Tally, error) {
	question, player, err := s.requireOpenVote(ctx, roomCode, playerID, questionID)
	if err != nil {
		return nil, err
	}

	option, err := s.optionRepo.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option == nil || option.QuestionID != question.ID {
		return nil, ErrOptionNotFound
	}

	return s.recordVote(ctx, roomCode, question, player, optionID)
}

// ProposeAndVote creates a new option carrying the proposer's vote, or,
// when an option with the same normalized text already exists, votes for
// that option instead. Duplicate detection and find-or-insert are one
// atomic store operation; the tally increment follows the attribution
// row like any other vote.
func (s *VoteService) ProposeAndVote(ctx context.Context, roomCode, playerID, questionID, text string) (*model.Tally, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: option text is required", ErrValidation)
	}

	question, player, err := s.requireOpenVote(ctx, roomCode, playerID, questionID)
	if err != nil {
		return nil, err
	}

	count, err := s.optionRepo.CountByQuestion(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	if count >= int64(question.MaxOptions) {
		// A duplicate proposal would not add an option, but rejecting here
		// keeps the outcome independent of the submitted text.
		return nil, ErrOptionLimit
	}

	option, err := s.optionRepo.FindOrCreateByText(ctx, question.ID, strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("failed to add option: %w", err)
	}

	return s.recordVote(ctx, roomCode, question, player, option.ID)
}

// CurrentQuestion returns the room's open question and its tally, or
// (nil, nil, nil) when every question is closed.
func (s *VoteService) CurrentQuestion(ctx context.Context, roomCode string) (*model.Question, *model.Tally, error) {
	question, err := s.questionRepo.GetOpen(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	if question == nil {
		return nil, nil, nil
	}
	tally, err := s.GetTally(ctx, question.ID)
	if err != nil {
		return nil, nil, err
	}
	return question, tally, nil
}

// GetTally returns the question's option snapshot, preferring the cached
// copy and falling back to a Mongo read.
func (s *VoteService) GetTally(ctx context.Context, questionID string) (*model.Tally, error) {
	tally, err := s.tallyCache.Get(ctx, questionID)
	if err != nil {
		log.Warn().Err(err).Str("question", questionID).Msg("tally cache read failed")
	}
	if tally != nil {
		return tally, nil
	}

	tally, err = loadTally(ctx, s.optionRepo, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.tallyCache.Set(ctx, questionID, tally); err != nil {
		log.Warn().Err(err).Str("question", questionID).Msg("tally cache write failed")
	}
	return tally, nil
}

// requireOpenVote checks the gate every vote goes through: live room, the
// target question is the room's open one, and the caller has not voted on
// it yet.
func (s *VoteService) requireOpenVote(ctx context.Context, roomCode, playerID, questionID string) (*model.Question, *model.Player, error) {
	meta, err := s.roomCache.GetMeta(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	if meta != nil && meta.Status != model.RoomLive {
		if meta.Status == model.RoomEnded {
			return nil, nil, ErrRoomEnded
		}
		return nil, nil, ErrRoomNotLive
	}

	question, err := s.questionRepo.GetOpen(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	if question == nil {
		return nil, nil, ErrNoOpenQuestion
	}
	if question.ID != questionID {
		return nil, nil, ErrNoOpenQuestion
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	if player == nil || player.RoomCode != roomCode {
		return nil, nil, ErrPlayerNotFound
	}
	if player.HasVoted {
		return nil, nil, ErrAlreadyVoted
	}

	return question, player, nil
}

// recordVote writes the attribution row first, so a failure anywhere in
// the sequence leaves the tally at or behind the recorded votes, never
// ahead. The unique (questionId, playerId) index rejects a second row for
// the same player, which also settles concurrent requests that both
// passed the hasVoted check.
func (s *VoteService) recordVote(ctx context.Context, roomCode string, question *model.Question, player *model.Player, optionID string) (*model.Tally, error) {
	vote := &model.Vote{
		ID:         uuid.NewString(),
		RoomCode:   roomCode,
		QuestionID: question.ID,
		OptionID:   optionID,
		PlayerID:   player.ID,
		CastAt:     time.Now(),
	}
	if err := s.voteRepo.Create(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	matched, err := s.optionRepo.IncrementVotes(ctx, optionID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment tally: %w", err)
	}
	if !matched {
		return nil, ErrOptionNotFound
	}

	if err := s.playerRepo.MarkVoted(ctx, player.ID, question.ID); err != nil {
		return nil, fmt.Errorf("failed to mark player voted: %w", err)
	}

	tally, err := loadTally(ctx, s.optionRepo, question.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tallyCache.Set(ctx, question.ID, tally); err != nil {
		log.Warn().Err(err).Str("question", question.ID).Msg("tally cache write failed")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(roomCode, "tally_update", tally)
	}
	log.Info().Str("room", roomCode).Str("player", player.ID).Str("option", optionID).Msg("vote recorded")
	return tally, nil
}
