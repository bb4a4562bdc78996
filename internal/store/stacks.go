package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"github.com/thoreinstein/conductor/internal/errors"
)

// SaveStack stores an exported stack document and returns its record.
func (s *Store) SaveStack(ctx context.Context, data json.RawMessage) (SavedStack, error) {
	if !json.Valid(data) {
		return SavedStack{}, errors.Wrap(errors.ErrInvalidConfig, "stack is not valid JSON")
	}
	saved := SavedStack{
		ID:        uuid.NewString(),
		JSON:      slices.Clone(data),
		CreatedAt: s.now().UTC(),
	}
	err := s.Update(ctx, func(doc *Document) error {
		doc.Stacks = append(doc.Stacks, saved)
		return nil
	})
	return saved, err
}

// Stacks returns the saved stacks, newest first.
func (s *Store) Stacks() ([]SavedStack, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := slices.Clone(doc.Stacks)
	slices.SortStableFunc(out, func(a, b SavedStack) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// DeleteStack removes the saved stack with id.
func (s *Store) DeleteStack(ctx context.Context, id string) error {
	return s.Update(ctx, func(doc *Document) error {
		n := len(doc.Stacks)
		doc.Stacks = slices.DeleteFunc(doc.Stacks, func(st SavedStack) bool { return st.ID == id })
		if len(doc.Stacks) == n {
			return &errors.NotFoundError{Kind: "stack", ID: id}
		}
		return nil
	})
}
