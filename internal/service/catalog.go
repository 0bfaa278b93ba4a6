package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"geomodel/internal/models"
	"geomodel/internal/repository"
)

// CatalogService mutates record-level attributes: visibility, favorites,
// counters and descriptive metadata.
type CatalogService struct {
	records   ModelStore
	favorites FavoriteStore
	log       zerolog.Logger
}

func NewCatalogService(records ModelStore, favorites FavoriteStore, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		records:   records,
		favorites: favorites,
		log:       logger.With().Str("component", "catalog").Logger(),
	}
}

func (s *CatalogService) owned(ctx context.Context, requesterID, id string) (models.Model, error) {
	m, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return models.Model{}, ErrNotFound
		}
		return models.Model{}, fmt.Errorf("load record %s: %w", id, err)
	}
	if !m.OwnedBy(requesterID) {
		return models.Model{}, ErrForbidden
	}
	return m, nil
}

// ToggleVisibility flips the record between private and public. Going
// private resets the view counter.
func (s *CatalogService) ToggleVisibility(ctx context.Context, requesterID, id string) (models.Visibility, error) {
	m, err := s.owned(ctx, requesterID, id)
	if err != nil {
		return "", err
	}

	next := models.VisibilityPublic
	if m.Visibility == models.VisibilityPublic {
		next = models.VisibilityPrivate
	}
	if err := s.records.SetVisibility(ctx, id, next); err != nil {
		return "", fmt.Errorf("set visibility: %w", err)
	}
	return next, nil
}

// ToggleFavorite adds or removes the record from the requester's favorites.
// Owners may not favorite their own records; private records are off limits
// to everyone else.
func (s *CatalogService) ToggleFavorite(ctx context.Context, requesterID, id string) (bool, int, error) {
	m, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return false, 0, ErrNotFound
		}
		return false, 0, fmt.Errorf("load record %s: %w", id, err)
	}
	if m.OwnedBy(requesterID) {
		return false, 0, fmt.Errorf("%w: cannot favorite own model", ErrValidation)
	}
	if m.Visibility != models.VisibilityPublic {
		return false, 0, ErrForbidden
	}

	favorited, count, err := s.favorites.Toggle(ctx, id, requesterID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle favorite: %w", err)
	}
	return favorited, count, nil
}

// RecordView counts one public view. Owner views are not counted; private
// records accumulate none.
func (s *CatalogService) RecordView(ctx context.Context, requesterID, id string) (int, error) {
	m, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("load record %s: %w", id, err)
	}
	if m.Visibility != models.VisibilityPublic {
		if m.OwnedBy(requesterID) {
			return m.ViewCount, nil
		}
		return 0, ErrForbidden
	}
	if m.OwnedBy(requesterID) {
		return m.ViewCount, nil
	}

	views, err := s.records.IncrementViews(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// UpdateMeta changes title and/or description, owner only. Nil fields keep
// their current value; a provided title must not be blank.
func (s *CatalogService) UpdateMeta(ctx context.Context, requesterID, id string, title, description *string) error {
	if _, err := s.owned(ctx, requesterID, id); err != nil {
		return err
	}
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return fmt.Errorf("%w: title cannot be blank", ErrValidation)
		}
		title = &trimmed
	}
	if err := s.records.UpdateMeta(ctx, id, title, description); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}
