package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hotshot/internal/model"
)

// TallyCache holds the latest sorted option snapshot per question so the
// live view refetch path does not hit Mongo on every reconnect. Mongo stays
// the source of truth; entries are replaced after every vote and dropped
// when the question changes.
type TallyCache interface {
	Set(ctx context.Context, questionID string, tally *model.Tally) error
	Get(ctx context.Context, questionID string) (*model.Tally, error)
	Invalidate(ctx context.Context, questionID string) error
}

type tallyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTallyCache creates a new tally snapshot cache
func NewTallyCache(client *redis.Client) TallyCache {
	return &tallyCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *tallyCache) key(questionID string) string {
	return fmt.Sprintf("question:%s:tally", questionID)
}

func (c *tallyCache) Set(ctx context.Context, questionID string, tally *model.Tally) error {
	data, err := json.Marshal(tally)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(questionID), data, c.ttl).Err()
}

func (c *tallyCache) Get(ctx context.Context, questionID string) (*model.Tally, error) {
	data, err := c.client.Get(ctx, c.key(questionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tally model.Tally
	if err := json.Unmarshal([]byte(data), &tally); err != nil {
		return nil, err
	}
	return &tally, nil
}

func (c *tallyCache) Invalidate(ctx context.Context, questionID string) error {
	return c.client.Del(ctx, c.key(questionID)).Err()
}
