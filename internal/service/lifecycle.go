package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"geomodel/internal/artifact"
	"geomodel/internal/repository"
	"geomodel/internal/security"
)

// LifecycleService performs cascading deletion: per-asset cleanup across
// every artifact location, and whole-account teardown. Individual artifact
// removals are best effort; only the final record deletes are fatal.
type LifecycleService struct {
	records   ModelStore
	favorites FavoriteStore
	accounts  AccountStore
	sessions  SessionStore
	artifacts ArtifactStore
	log       zerolog.Logger
}

func NewLifecycleService(records ModelStore, favorites FavoriteStore, accounts AccountStore, sessions SessionStore, artifacts ArtifactStore, logger zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		records:   records,
		favorites: favorites,
		accounts:  accounts,
		sessions:  sessions,
		artifacts: artifacts,
		log:       logger.With().Str("component", "lifecycle").Logger(),
	}
}

// DeleteModel removes one record and every artifact copy it references.
func (s *LifecycleService) DeleteModel(ctx context.Context, requesterID, id string) error {
	m, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load record %s: %w", id, err)
	}
	if !m.OwnedBy(requesterID) {
		return ErrForbidden
	}

	if err := s.favorites.Clear(ctx, id); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("clearing favorites failed")
	}

	s.removeArtifacts(ctx, id, m.ThumbnailPath)

	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete record: %v", ErrStorage, err)
	}
	if _, err := s.accounts.RecomputeModelsCount(ctx, requesterID); err != nil {
		s.log.Error().Err(err).Str("owner", requesterID).Msg("recompute models count failed")
	}
	return nil
}

// removeArtifacts attempts every candidate location for one asset. Each
// removal is independent; a failure is logged and the rest proceed.
func (s *LifecycleService) removeArtifacts(ctx context.Context, id, thumbnailRel string) {
	if err := s.artifacts.DeleteSnapshot(ctx, id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
		s.log.Warn().Err(err).Str("id", id).Msg("snapshot remove failed")
	}
	if err := s.artifacts.DeleteExport(ctx, id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
		s.log.Warn().Err(err).Str("id", id).Msg("export remove failed")
	}
	if err := s.records.ClearExportBlob(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("export blob clear failed")
	}
	if thumbnailRel != "" {
		if err := s.artifacts.DeleteByRel(ctx, thumbnailRel); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			s.log.Warn().Err(err).Str("id", id).Msg("thumbnail remove failed")
		}
	}
}

// DeleteAccount tears down everything the account owns after a password
// confirmation: per-asset cleanup for each owned record, the favorites the
// account placed on others' records, the profile image, every session, and
// finally the account row. A failing asset never blocks the rest.
func (s *LifecycleService) DeleteAccount(ctx context.Context, accountID, password string) error {
	user, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return ErrForbidden
	}

	owned, err := s.records.ListByOwner(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list owned records: %w", err)
	}
	for _, m := range owned {
		if err := s.favorites.Clear(ctx, m.ID); err != nil {
			s.log.Error().Err(err).Str("id", m.ID).Msg("clearing favorites failed")
		}
		s.removeArtifacts(ctx, m.ID, m.ThumbnailPath)
		if err := s.records.Delete(ctx, m.ID); err != nil {
			s.log.Error().Err(err).Str("id", m.ID).Msg("record delete failed during account teardown")
		}
	}

	if err := s.favorites.ClearByUser(ctx, accountID); err != nil {
		s.log.Error().Err(err).Str("account", accountID).Msg("clearing placed favorites failed")
	}

	if user.AvatarPath != "" {
		if err := s.artifacts.DeleteProfileImage(ctx, user.AvatarPath); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			s.log.Warn().Err(err).Str("account", accountID).Msg("profile image remove failed")
		}
	}

	if err := s.sessions.RevokeAllForUser(ctx, accountID); err != nil {
		s.log.Error().Err(err).Str("account", accountID).Msg("session revocation failed")
	}

	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("%w: delete account: %v", ErrStorage, err)
	}
	return nil
}
