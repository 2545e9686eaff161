// Package testutil provides in-memory implementations of the repository,
// cache and broadcaster interfaces so service and handler tests run
// without MongoDB or Redis.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hotshot/internal/model"
	"hotshot/internal/repository"
)

// MemRoomRepo is an in-memory repository.RoomRepo.
type MemRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]model.Room
}

func NewMemRoomRepo() *MemRoomRepo {
	return &MemRoomRepo{rooms: make(map[string]model.Room)}
}

func (r *MemRoomRepo) Create(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.Code] = *room
	return nil
}

func (r *MemRoomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *MemRoomRepo) SetStatus(ctx context.Context, code string, status model.RoomStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[code]; ok {
		room.Status = status
		r.rooms[code] = room
	}
	return nil
}

// MemQuestionRepo is an in-memory repository.QuestionRepo.
type MemQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]model.Question
	order     []string // insertion order of IDs
}

func NewMemQuestionRepo() *MemQuestionRepo {
	return &MemQuestionRepo{questions: make(map[string]model.Question)}
}

func (r *MemQuestionRepo) Create(ctx context.Context, question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions[question.ID] = *question
	r.order = append(r.order, question.ID)
	return nil
}

func (r *MemQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *MemQuestionRepo) GetOpen(ctx context.Context, roomCode string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		q := r.questions[id]
		if q.RoomCode == roomCode && q.Status == model.QuestionOpen {
			return &q, nil
		}
	}
	return nil, nil
}

func (r *MemQuestionRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Question
	for _, id := range r.order {
		if q := r.questions[id]; q.RoomCode == roomCode {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *MemQuestionRepo) CountByRoom(ctx context.Context, roomCode string) (int64, error) {
	qs, _ := r.ListByRoom(ctx, roomCode)
	return int64(len(qs)), nil
}

func (r *MemQuestionRepo) NextOrderIndex(ctx context.Context, roomCode string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, q := range r.questions {
		if q.RoomCode == roomCode && q.OrderIndex > max {
			max = q.OrderIndex
		}
	}
	return max + 1, nil
}

func (r *MemQuestionRepo) CloseOpen(ctx context.Context, roomCode string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, q := range r.questions {
		if q.RoomCode == roomCode && q.Status == model.QuestionOpen {
			q.Status = model.QuestionClosed
			r.questions[id] = q
			n++
		}
	}
	return n, nil
}

func (r *MemQuestionRepo) SetStatus(ctx context.Context, id string, status model.QuestionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.questions[id]; ok {
		q.Status = status
		r.questions[id] = q
	}
	return nil
}

// MemOptionRepo is an in-memory repository.OptionRepo. Listing reproduces
// the store's sort: votes descending, ties in insertion order.
type MemOptionRepo struct {
	mu      sync.Mutex
	options map[string]model.Option
	order   []string
	seq     int64
}

func NewMemOptionRepo() *MemOptionRepo {
	return &MemOptionRepo{options: make(map[string]model.Option)}
}

func (r *MemOptionRepo) GetByID(ctx context.Context, id string) (*model.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opt, ok := r.options[id]
	if !ok {
		return nil, nil
	}
	return &opt, nil
}

func (r *MemOptionRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Option
	for _, id := range r.order {
		if opt := r.options[id]; opt.QuestionID == questionID {
			out = append(out, opt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VotesCount != out[j].VotesCount {
			return out[i].VotesCount > out[j].VotesCount
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *MemOptionRepo) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, opt := range r.options {
		if opt.QuestionID == questionID {
			n++
		}
	}
	return n, nil
}

func (r *MemOptionRepo) IncrementVotes(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opt, ok := r.options[id]
	if !ok {
		return false, nil
	}
	opt.VotesCount++
	r.options[id] = opt
	return true, nil
}

func (r *MemOptionRepo) FindOrCreateByText(ctx context.Context, questionID, text string) (*model.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := model.NormalizeOptionText(text)
	for _, id := range r.order {
		opt := r.options[id]
		if opt.QuestionID == questionID && opt.TextKey == key {
			return &opt, nil
		}
	}
	r.seq++
	opt := model.Option{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		Text:       text,
		TextKey:    key,
		VotesCount: 0,
		Seq:        r.seq,
		CreatedAt:  time.Now(),
	}
	r.options[opt.ID] = opt
	r.order = append(r.order, opt.ID)
	return &opt, nil
}

// MemPlayerRepo is an in-memory repository.PlayerRepo.
type MemPlayerRepo struct {
	mu      sync.Mutex
	players map[string]model.Player
	order   []string
}

func NewMemPlayerRepo() *MemPlayerRepo {
	return &MemPlayerRepo{players: make(map[string]model.Player)}
}

func (r *MemPlayerRepo) Create(ctx context.Context, player *model.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		p := r.players[id]
		if p.RoomCode == player.RoomCode && p.SessionToken == player.SessionToken {
			return fmt.Errorf("%w: session already joined room", repository.ErrDuplicateKey)
		}
	}
	r.players[player.ID] = *player
	r.order = append(r.order, player.ID)
	return nil
}

func (r *MemPlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemPlayerRepo) GetBySession(ctx context.Context, roomCode, sessionToken string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		p := r.players[id]
		if p.RoomCode == roomCode && p.SessionToken == sessionToken {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *MemPlayerRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Player
	for _, id := range r.order {
		if p := r.players[id]; p.RoomCode == roomCode {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemPlayerRepo) MarkVoted(ctx context.Context, id, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.HasVoted = true
		p.CurrentQuestionID = questionID
		r.players[id] = p
	}
	return nil
}

func (r *MemPlayerRepo) ResetVotes(ctx context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.players {
		if p.RoomCode == roomCode {
			p.HasVoted = false
			p.CurrentQuestionID = ""
			r.players[id] = p
		}
	}
	return nil
}

// MemVoteRepo is an in-memory repository.VoteRepo.
type MemVoteRepo struct {
	mu    sync.Mutex
	votes []model.Vote
}

func NewMemVoteRepo() *MemVoteRepo {
	return &MemVoteRepo{}
}

func (r *MemVoteRepo) Create(ctx context.Context, vote *model.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.QuestionID == vote.QuestionID && v.PlayerID == vote.PlayerID {
			return fmt.Errorf("%w: player already voted on question", repository.ErrDuplicateKey)
		}
	}
	r.votes = append(r.votes, *vote)
	return nil
}

func (r *MemVoteRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Vote
	for _, v := range r.votes {
		if v.QuestionID == questionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *MemVoteRepo) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	votes, _ := r.ListByQuestion(ctx, questionID)
	return int64(len(votes)), nil
}

// MemRoomCache is an in-memory cache.RoomCache.
type MemRoomCache struct {
	mu    sync.Mutex
	metas map[string]model.RoomMeta
}

func NewMemRoomCache() *MemRoomCache {
	return &MemRoomCache{metas: make(map[string]model.RoomMeta)}
}

func (c *MemRoomCache) SetMeta(ctx context.Context, code string, meta *model.RoomMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[code] = *meta
	return nil
}

func (c *MemRoomCache) GetMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (c *MemRoomCache) SetStatus(ctx context.Context, code string, status model.RoomStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if meta, ok := c.metas[code]; ok {
		meta.Status = status
		c.metas[code] = meta
	}
	return nil
}

func (c *MemRoomCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, code)
	return nil
}

func (c *MemRoomCache) Exists(ctx context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.metas[code]
	return ok, nil
}

// MemTallyCache is an in-memory cache.TallyCache.
type MemTallyCache struct {
	mu      sync.Mutex
	tallies map[string]model.Tally
}

func NewMemTallyCache() *MemTallyCache {
	return &MemTallyCache{tallies: make(map[string]model.Tally)}
}

func (c *MemTallyCache) Set(ctx context.Context, questionID string, tally *model.Tally) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tallies[questionID] = *tally
	return nil
}

func (c *MemTallyCache) Get(ctx context.Context, questionID string) (*model.Tally, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tally, ok := c.tallies[questionID]
	if !ok {
		return nil, nil
	}
	return &tally, nil
}

func (c *MemTallyCache) Invalidate(ctx context.Context, questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tallies, questionID)
	return nil
}

// Event is one recorded broadcast.
type Event struct {
	RoomCode string
	Type     string
	Payload  interface{}
	HostOnly bool
}

// RecordingBroadcaster captures broadcasts for assertions.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	Events []Event
}

func (b *RecordingBroadcaster) BroadcastToHost(roomCode string, msgType string, payload interface{}) {
	b.record(Event{RoomCode: roomCode, Type: msgType, Payload: payload, HostOnly: true})
}

func (b *RecordingBroadcaster) BroadcastToRoom(roomCode string, msgType string, payload interface{}) {
	b.record(Event{RoomCode: roomCode, Type: msgType, Payload: payload})
}

func (b *RecordingBroadcaster) DisconnectRoom(roomCode string) {
	b.record(Event{RoomCode: roomCode, Type: "disconnect"})
}

func (b *RecordingBroadcaster) record(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, e)
}

// TypesFor returns the recorded message types for a room, in order.
func (b *RecordingBroadcaster) TypesFor(roomCode string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.Events {
		if e.RoomCode == roomCode {
			out = append(out, e.Type)
		}
	}
	return out
}
