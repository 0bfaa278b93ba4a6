package ids

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
)

// tempPrefix marks client-side scratch ids that must never be persisted.
const tempPrefix = "temp_"

func New() string {
	return ksuid.New().String()
}

// OwnerLookup resolves the fixed owner of an existing record. exists is false
// when no record carries the id; owner is empty for anonymous records.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, id string) (owner string, exists bool, err error)
}

type Allocator struct {
	records OwnerLookup
}

func NewAllocator(records OwnerLookup) *Allocator {
	return &Allocator{records: records}
}

// Allocate resolves the asset id a save request should target. A candidate
// already owned by the caller is returned unchanged (update path). An empty
// candidate, a temp-prefixed candidate, or a candidate held by someone else
// yields a fresh id verified free against existing records. The final claim
// happens at the metadata upsert, which keys on the id and retries through
// here on conflict.
func (a *Allocator) Allocate(ctx context.Context, candidate string, owner string) (string, error) {
	candidate = strings.TrimSpace(candidate)

	if candidate != "" && !strings.HasPrefix(candidate, tempPrefix) {
		existingOwner, exists, err := a.records.OwnerOf(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("lookup candidate id: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		if owner != "" && existingOwner == owner {
			return candidate, nil
		}
		// Held by a different (or anonymous) owner: reallocate.
	}

	return a.fresh(ctx)
}

func (a *Allocator) fresh(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := New()
		_, exists, err := a.records.OwnerOf(ctx, id)
		if err != nil {
			return "", fmt.Errorf("verify fresh id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique id")
}
