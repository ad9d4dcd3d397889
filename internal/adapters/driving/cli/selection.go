package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// selectDocuments resolves positional document IDs, or every document of
// party (all parties when empty).
func selectDocuments(ctx context.Context, party string, args []string) ([]domain.Document, error) {
	ids, err := parseIDs(args)
	if err != nil {
		return nil, err
	}

	docs, err := corpusService.ListDocuments(ctx, party)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(ids) > 0 {
		want := make(map[int64]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		picked := docs[:0:0]
		for _, d := range docs {
			if want[d.ID] {
				picked = append(picked, d)
				delete(want, d.ID)
			}
		}
		for id := range want {
			return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}
		docs = picked
	}
	if len(docs) == 0 {
		return nil, errNoSelection
	}
	return docs, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: invalid document id %q", domain.ErrInvalidInput, a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func documentIDs(docs []domain.Document) []int64 {
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
