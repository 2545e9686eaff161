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

// PlayerService handles joining a room. A browser's stable identity within
// a room is its session token; presenting a token it already holds is
// answered with the existing player instead of a duplicate.
type PlayerService struct {
	playerRepo  repository.PlayerRepo
	roomCache   cache.RoomCache
	roomRepo    repository.RoomRepo
	authSvc     *AuthService
	broadcaster Broadcaster
}

// NewPlayerService creates a new player service
func NewPlayerService(
	playerRepo repository.PlayerRepo,
	roomRepo repository.RoomRepo,
	roomCache cache.RoomCache,
	authSvc *AuthService,
) *PlayerService {
	return &PlayerService{
		playerRepo: playerRepo,
		roomRepo:   roomRepo,
		roomCache:  roomCache,
		authSvc:    authSvc,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *PlayerService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// JoinRoom adds a participant to a live room. sessionToken may carry a
// previously issued token; when it matches an existing player the join is
// treated as "already joined" and the same player is returned.
func (s *PlayerService) JoinRoom(ctx context.Context, roomCode, name, sessionToken string) (*model.PlayerJoinResponse, error) {
	if strings.TrimSpace(name) == "" && sessionToken == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	meta, err := s.roomMeta(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrRoomNotFound
	}
	if meta.Status == model.RoomEnded {
		return nil, ErrRoomEnded
	}
	if meta.Status != model.RoomLive {
		return nil, ErrRoomNotLive
	}

	if sessionToken != "" {
		existing, err := s.playerRepo.GetBySession(ctx, roomCode, sessionToken)
		if err != nil {
			return nil, fmt.Errorf("failed to look up player: %w", err)
		}
		if existing != nil {
			return s.rejoin(roomCode, meta, existing)
		}
	}

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if sessionToken == "" {
		sessionToken = uuid.NewString()
	}

	player := &model.Player{
		ID:           "p_" + uuid.New().String()[:8],
		RoomCode:     roomCode,
		SessionToken: sessionToken,
		Name:         strings.TrimSpace(name),
		HasVoted:     false,
		JoinedAt:     time.Now(),
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		// Two requests presenting the same session token can race past
		// the lookup above; the unique (roomCode, sessionToken) index
		// decides, and the loser reads the winner back as a rejoin.
		if errors.Is(err, repository.ErrDuplicateKey) {
			existing, lookupErr := s.playerRepo.GetBySession(ctx, roomCode, sessionToken)
			if lookupErr == nil && existing != nil {
				return s.rejoin(roomCode, meta, existing)
			}
		}
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	token, err := s.authSvc.GeneratePlayerToken(roomCode, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToHost(roomCode, "player_joined", map[string]string{
			"playerId": player.ID,
			"name":     player.Name,
		})
	}
	log.Info().Str("room", roomCode).Str("player", player.ID).Msg("player joined")

	return &model.PlayerJoinResponse{
		PlayerID:     player.ID,
		SessionToken: sessionToken,
		Token:        token,
		Room:         meta,
	}, nil
}

// rejoin answers a join from a session that already has a player in the
// room: same player, fresh capability token.
func (s *PlayerService) rejoin(roomCode string, meta *model.RoomMeta, existing *model.Player) (*model.PlayerJoinResponse, error) {
	token, err := s.authSvc.GeneratePlayerToken(roomCode, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.PlayerJoinResponse{
		PlayerID:     existing.ID,
		SessionToken: existing.SessionToken,
		Token:        token,
		Room:         meta,
		Rejoined:     true,
	}, nil
}

// GetPlayer retrieves a player by ID
func (s *PlayerService) GetPlayer(ctx context.Context, playerID string) (*model.Player, error) {
	return s.playerRepo.GetByID(ctx, playerID)
}

func (s *PlayerService) roomMeta(ctx context.Context, roomCode string) (*model.RoomMeta, error) {
	meta, err := s.roomCache.GetMeta(ctx, roomCode)
	if err != nil || meta != nil {
		return meta, err
	}
	room, err := s.roomRepo.GetByCode(ctx, roomCode)
	if err != nil || room == nil {
		return nil, err
	}
	return &model.RoomMeta{
		Name:        room.Name,
		Status:      room.Status,
		HostSession: room.HostSession,
		CreatedAt:   room.CreatedAt,
	}, nil
}
