// Package redis wires memory.Store to Redis: a sorted set of item IDs
// scored by insertion time plus a hash of payloads. Recall performs a naive substring/tag scan over a
// bounded candidate window rather than vector search, which is out of
// scope for this module.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentloom/agentcore/memory"
)

const (
	defaultKeyPrefix  = "agentcore:memory"
	defaultWindowSize = 200
)

// Options configures the Store.
type Options struct {
	// Client is the Redis connection. Required.
	Client *redis.Client
	// KeyPrefix namespaces all keys this store writes. Defaults to
	// "agentcore:memory".
	KeyPrefix string
	// WindowSize bounds how many of the most recent items Recall scans
	// before returning. Defaults to 200.
	WindowSize int64
}

// Store implements memory.Store against Redis.
type Store struct {
	client     *redis.Client
	prefix     string
	windowSize int64
}

var _ memory.Store = (*Store)(nil)

// NewStore builds a Redis-backed memory store.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	windowSize := opts.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Store{client: opts.Client, prefix: prefix, windowSize: windowSize}, nil
}

type payload struct {
	Text string         `json:"text"`
	Tags []string       `json:"tags,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

func (s *Store) itemsKey() string { return s.prefix + ":items" }
func (s *Store) hashKey() string  { return s.prefix + ":payloads" }

// Remember appends text and metadata to the store's sorted set (scored by
// insertion time) and hash of payloads. Tags are read from
// metadata["tags"] when present as a []string.
func (s *Store) Remember(ctx context.Context, text string, metadata map[string]any) error {
	var tags []string
	if t, ok := metadata["tags"].([]string); ok {
		tags = t
	}
	raw, err := json.Marshal(payload{Text: text, Tags: tags, Meta: metadata})
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	id := strconv.FormatInt(now, 10)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.itemsKey(), redis.Z{Score: float64(now), Member: id})
	pipe.HSet(ctx, s.hashKey(), id, raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Recall scans the most recent WindowSize items (newest first) and returns
// up to topK whose text or tags contain query as a case-insensitive
// substring. An empty query matches everything in the window.
func (s *Store) Recall(ctx context.Context, query string, topK int) ([]memory.Item, error) {
	ids, err := s.client.ZRevRange(ctx, s.itemsKey(), 0, s.windowSize-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raws, err := s.client.HMGet(ctx, s.hashKey(), ids...).Result()
	if err != nil {
		return nil, err
	}

	lowerQuery := strings.ToLower(query)
	var out []memory.Item
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var p payload
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue
		}
		if lowerQuery != "" && !matches(p, lowerQuery) {
			continue
		}
		out = append(out, memory.Item{Text: p.Text, Tags: p.Tags, Meta: p.Meta})
		if topK > 0 && len(out) >= topK {
			break
		}
	}
	return out, nil
}

func matches(p payload, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(p.Text), lowerQuery) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), lowerQuery) {
			return true
		}
	}
	return false
}
