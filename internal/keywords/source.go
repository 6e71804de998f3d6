// Package keywords supplies trending keywords for precision-mode
// generation. Sources are pluggable: a deterministic static list for
// development and the external trends API for production.
package keywords

import (
	"context"

	"github.com/contentforge/contentforge/internal/model"
	"github.com/contentforge/contentforge/pkg/trends"
)

// DefaultCategory is used when the caller has no better category.
const DefaultCategory = "general"

// Source supplies a small ranked list of trending keywords for a
// category. The list may be empty.
type Source interface {
	Trending(ctx context.Context, category string) ([]model.TrendingKeyword, error)
}

// Static is a deterministic source backed by a fixed list.
type Static struct {
	keywords []model.TrendingKeyword
}

// NewStatic creates a static source. With no keywords it serves a
// built-in development list.
func NewStatic(keywords ...model.TrendingKeyword) *Static {
	if len(keywords) == 0 {
		keywords = []model.TrendingKeyword{
			{Keyword: "example keyword 1", SearchVolume: 1000},
			{Keyword: "example keyword 2", SearchVolume: 2000},
		}
	}
	return &Static{keywords: keywords}
}

func (s *Static) Trending(_ context.Context, _ string) ([]model.TrendingKeyword, error) {
	out := make([]model.TrendingKeyword, len(s.keywords))
	copy(out, s.keywords)
	return out, nil
}

// API adapts the trends client to the Source interface.
type API struct {
	client trends.Client
	limit  int
}

// NewAPI creates a source backed by the trends API. limit bounds the
// number of keywords requested per call.
func NewAPI(client trends.Client, limit int) *API {
	if limit <= 0 {
		limit = 10
	}
	return &API{client: client, limit: limit}
}

func (a *API) Trending(ctx context.Context, category string) ([]model.TrendingKeyword, error) {
	raw, err := a.client.Trending(ctx, category, a.limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.TrendingKeyword, 0, len(raw))
	for _, kw := range raw {
		out = append(out, model.TrendingKeyword{
			Keyword:      kw.Keyword,
			SearchVolume: kw.SearchVolume,
		})
	}
	return out, nil
}
