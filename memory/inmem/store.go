// Package inmem provides an in-memory memory.Store implementation suitable
// for development, testing, and single-process deployments where recall
// does not need to survive a restart.
package inmem

import (
	"context"
	"strings"
	"sync"

	"github.com/agentloom/agentcore/memory"
)

// Store is an in-memory memory.Store. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []memory.Item
}

var _ memory.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Remember appends text and metadata as a new item. Tags are read from the
// "tags" key of metadata when present as a []string.
func (s *Store) Remember(ctx context.Context, text string, metadata map[string]any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	var tags []string
	if metadata != nil {
		if t, ok := metadata["tags"].([]string); ok {
			tags = t
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, memory.Item{Text: text, Tags: tags, Meta: metadata})
	return nil
}

// Recall returns the items in which any whitespace-separated word of query
// appears, case-insensitively, in the item's text or one of its tags (or
// contains one of its tags, so "preferences" matches the tag "preference"),
// at most topK of them in insertion order. An empty
// query matches every item (topK still applies), since the loader uses
// fixed preference-extraction and context-block queries rather than
// free-form search.
func (s *Store) Recall(ctx context.Context, query string, topK int) ([]memory.Item, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := strings.Fields(strings.ToLower(query))
	var out []memory.Item
	for _, item := range s.items {
		if len(words) > 0 && !matchesAnyWord(item, words) {
			continue
		}
		out = append(out, item)
		if topK > 0 && len(out) >= topK {
			break
		}
	}
	return out, nil
}

// matchesAnyWord is a naive stand-in for semantic search: it reports
// whether any query word appears in the item's text or tags, or contains
// one of the tags. Real
// deployments back Store with an actual semantic index (see memory/redis,
// memory/mongo for keyword/tag-based approximations of the same contract).
func matchesAnyWord(item memory.Item, words []string) bool {
	lowerText := strings.ToLower(item.Text)
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			return true
		}
		for _, t := range item.Tags {
			lt := strings.ToLower(t)
			if strings.Contains(lt, w) || (lt != "" && strings.Contains(w, lt)) {
				return true
			}
		}
	}
	return false
}
