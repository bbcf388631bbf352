package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
	"github.com/keyxmakerx/courtside/internal/storage"
)

// CourtRepository defines the data access contract for court documents.
// Reads of a missing or unreadable document yield empty state; only
// backend failures are returned as errors.
type CourtRepository interface {
	LoadCourt(ctx context.Context, courtID string) (*CourtDocument, error)
	LoadAll(ctx context.Context) (*Document, error)

	// SaveCourt replaces one court's part of the shared document, leaving
	// every other court as currently stored.
	SaveCourt(ctx context.Context, courtID string, doc *CourtDocument) error

	// PruneFinished drops finished sessions that ended before cutoff, or all
	// of them when cutoff is zero. It returns how many were removed per court.
	PruneFinished(ctx context.Context, cutoff time.Time) (map[string]int, error)

	Ping(ctx context.Context) error
}

// documentRepository keeps every court in one JSON document under a single
// storage key.
type documentRepository struct {
	store storage.Store
	key   string
}

// NewCourtRepository creates a repository over store, using key as the
// document key.
func NewCourtRepository(store storage.Store, key string) CourtRepository {
	return &documentRepository{store: store, key: key}
}

// LoadCourt returns one court's document, empty when absent.
func (r *documentRepository) LoadCourt(ctx context.Context, courtID string) (*CourtDocument, error) {
	doc, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if cd, ok := doc.Courts[courtID]; ok {
		return cd, nil
	}
	return NewCourtDocument(), nil
}

// LoadAll returns the whole document.
func (r *documentRepository) LoadAll(ctx context.Context) (*Document, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		return decodeDocument(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session document: %w", err)
	}
	return decodeDocument(raw), nil
}

// SaveCourt merges doc into the stored document atomically.
func (r *documentRepository) SaveCourt(ctx context.Context, courtID string, doc *CourtDocument) error {
	err := r.store.Update(ctx, r.key, func(current []byte) ([]byte, error) {
		all := decodeDocument(current)
		all.Courts[courtID] = doc
		return json.Marshal(all)
	})
	if err != nil {
		return fmt.Errorf("saving court %s: %w", courtID, err)
	}
	return nil
}

// PruneFinished removes finished sessions across all courts in one update.
func (r *documentRepository) PruneFinished(ctx context.Context, cutoff time.Time) (map[string]int, error) {
	var removed map[string]int
	err := r.store.Update(ctx, r.key, func(current []byte) ([]byte, error) {
		// Reset on every attempt; the backend may retry this function.
		removed = make(map[string]int)
		all := decodeDocument(current)
		for id, cd := range all.Courts {
			kept := make([]Session, 0, len(cd.Finished))
			for _, s := range cd.Finished {
				if !cutoff.IsZero() && (s.EndTime == nil || !s.EndTime.Before(cutoff)) {
					kept = append(kept, s)
				}
			}
			if n := len(cd.Finished) - len(kept); n > 0 {
				removed[id] = n
			}
			cd.Finished = kept
		}
		return json.Marshal(all)
	})
	if err != nil {
		return nil, fmt.Errorf("pruning history: %w", err)
	}
	return removed, nil
}

// Ping checks the backing store.
func (r *documentRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// decodeDocument parses raw, treating absence and corruption as empty state.
func decodeDocument(raw []byte) *Document {
	doc := &Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			slog.Warn("session document is unreadable, starting empty",
				slog.Any("error", err),
				slog.Int("bytes", len(raw)),
			)
			doc = &Document{}
		}
	}
	if doc.Courts == nil {
		doc.Courts = make(map[string]*CourtDocument)
	}
	for id, cd := range doc.Courts {
		if cd == nil {
			doc.Courts[id] = NewCourtDocument()
			continue
		}
		if cd.Upcoming == nil {
			cd.Upcoming = []Session{}
		}
		if cd.Finished == nil {
			cd.Finished = []Session{}
		}
		for i := range cd.Upcoming {
			fillItems(&cd.Upcoming[i])
		}
		if cd.Active != nil {
			fillItems(cd.Active)
		}
		for i := range cd.Finished {
			fillItems(&cd.Finished[i])
		}
	}
	return doc
}

func fillItems(s *Session) {
	if s.Items == nil {
		s.Items = []pricing.ItemSelection{}
	}
}
