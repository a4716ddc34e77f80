package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxHistory = 10
	historyTTL = 30 * 24 * time.Hour
)

// Viewed is one browsing history entry.
type Viewed struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// History keeps the most recently viewed products per visitor in a capped
// Redis list, newest first and without duplicates.
type History struct {
	client redis.Cmdable
}

func NewHistory(client redis.Cmdable) *History {
	return &History{client: client}
}

func historyKey(visitorID string) string {
	return fmt.Sprintf("history:%s", visitorID)
}

// Add records a product view.
func (h *History) Add(ctx context.Context, visitorID string, v Viewed) error {
	entry, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := historyKey(visitorID)
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, entry)
		pipe.LPush(ctx, key, entry)
		pipe.LTrim(ctx, key, 0, maxHistory-1)
		pipe.Expire(ctx, key, historyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis history add failed: %w", err)
	}
	return nil
}

// List returns the visitor's history, newest first.
func (h *History) List(ctx context.Context, visitorID string) ([]Viewed, error) {
	raw, err := h.client.LRange(ctx, historyKey(visitorID), 0, maxHistory-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history list failed: %w", err)
	}
	out := make([]Viewed, 0, len(raw))
	for _, r := range raw {
		var v Viewed
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// HistoryType selects what the browsing history endpoint returns.
type HistoryType string

const (
	HistoryViewed  HistoryType = "history"
	HistoryRelated HistoryType = "related"
)

// FromHistory picks products for the browsing history lists: the viewed
// products themselves in view order, or unviewed products from the viewed
// categories, best sellers first.
func FromHistory(products []Product, viewed []Viewed, typ HistoryType, excludeID string, limit int) []Product {
	ids := make(map[string]int, len(viewed))
	categories := make(map[string]struct{}, len(viewed))
	for i, v := range viewed {
		ids[v.ID] = i
		categories[v.Category] = struct{}{}
	}

	out := make([]Product, 0)
	switch typ {
	case HistoryRelated:
		for _, p := range products {
			_, seen := ids[p.ProductID]
			_, inCategory := categories[p.Category]
			if inCategory && !seen && p.ProductID != excludeID {
				out = append(out, p)
			}
		}
		sortProducts(out, SortBestSelling)
	default:
		ordered := make([]*Product, len(viewed))
		for i := range products {
			p := &products[i]
			if pos, ok := ids[p.ProductID]; ok && p.ProductID != excludeID {
				ordered[pos] = p
			}
		}
		for _, p := range ordered {
			if p != nil {
				out = append(out, *p)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
