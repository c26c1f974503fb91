package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ghindexer/internal/index"
)

// Hit is one search result, reduced to what a listing shows.
type Hit struct {
	ID        string    `json:"id"`
	Number    int       `json:"number,omitempty"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Search runs a full-text query against one collection.
func (e *Engine) Search(ctx context.Context, collection, text string, limit int) ([]Hit, error) {
	if err := e.checkLocal(ctx); err != nil {
		return nil, err
	}
	if err := index.CheckName(collection); err != nil {
		return nil, err
	}
	ok, err := e.Store.Exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: collection %s does not exist", ErrPrecondition, collection)
	}

	docs, err := e.Store.Search(ctx, collection, text, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", collection, err)
	}
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		var body struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
			Name   string `json:"name"`
			URL    string `json:"url"`
		}
		if err := json.Unmarshal(d.Body, &body); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, d.ID, err)
		}
		h := Hit{ID: d.ID, Number: body.Number, Title: body.Title, URL: body.URL, UpdatedAt: d.UpdatedAt}
		if h.Title == "" {
			h.Title = body.Name
		}
		hits = append(hits, h)
	}
	return hits, nil
}
