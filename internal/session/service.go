package session

import (
	"context"
	"log/slog"
	"time"
)

// Service is the single credential authority: it seals credentials into the
// repository and serves reads through the optional cache. Cache misses and
// cache failures fall through to the repository; cache entries are dropped on
// every write and delete so the two can never diverge.
type Service struct {
	repo   Repository
	cache  *Cache
	sealer *Sealer
	logger *slog.Logger
}

// NewService builds a session service. cache may be nil.
func NewService(repo Repository, cache *Cache, sealer *Sealer, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, sealer: sealer, logger: logger}
}

// Save seals and persists the credential for the user, replacing any prior one.
func (s *Service) Save(ctx context.Context, userID int64, credential string) error {
	sealed, err := s.sealer.Seal([]byte(credential))
	if err != nil {
		return err
	}
	if err := s.repo.Put(ctx, UserSession{UserID: userID, Credential: sealed, UpdatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Load returns the plaintext credential for the user, or ErrNotFound.
func (s *Service) Load(ctx context.Context, userID int64) (string, error) {
	if s.cache != nil {
		sealed, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("session cache read failed", "user_id", userID, "error", err)
		} else if ok {
			plain, err := s.sealer.Open(sealed)
			if err == nil {
				return string(plain), nil
			}
			s.logger.Warn("cached session blob unreadable", "user_id", userID, "error", err)
			s.invalidate(ctx, userID)
		}
	}

	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, stored.Credential); err != nil {
			s.logger.Warn("session cache write failed", "user_id", userID, "error", err)
		}
	}

	plain, err := s.sealer.Open(stored.Credential)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Exists reports whether the user has a stored session.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the stored session and its cache entry.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Count returns the number of stored sessions.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("session cache invalidation failed", "user_id", userID, "error", err)
	}
}
