package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// TickerEncoder maintains the stable ticker→id mapping. The mapping is
// append-only: new tickers get the next unused id and existing ids are
// never reassigned. It is loaded from and persisted through a repository
// rather than living as ambient global state.
type TickerEncoder struct {
	repo   contracts.TickerIDRepository
	ids    map[string]int
	nextID int
}

// LoadTickerEncoder builds an encoder from the persisted mapping
func LoadTickerEncoder(ctx context.Context, repo contracts.TickerIDRepository) (*TickerEncoder, error) {
	ids, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ticker ids: %w", err)
	}

	next := 0
	for _, id := range ids {
		if id >= next {
			next = id + 1
		}
	}

	return &TickerEncoder{repo: repo, ids: ids, nextID: next}, nil
}

// Encode returns the id for a ticker, allocating and persisting a new one
// for tickers never seen before
func (e *TickerEncoder) Encode(ctx context.Context, ticker string) (int, error) {
	if id, ok := e.ids[ticker]; ok {
		return id, nil
	}

	id := e.nextID
	if err := e.repo.Append(ctx, ticker, id); err != nil {
		return 0, fmt.Errorf("append ticker id: %w", err)
	}

	e.ids[ticker] = id
	e.nextID++
	return id, nil
}

// Known returns the tickers currently in the mapping, sorted
func (e *TickerEncoder) Known() []string {
	out := make([]string, 0, len(e.ids))
	for t := range e.ids {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
