package patterns

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"meldeamt/internal/patterns/models"
	"meldeamt/internal/patterns/store"
	platformredis "meldeamt/internal/platform/redis"
	id "meldeamt/pkg/domain"
	"meldeamt/pkg/requestcontext"
)

const (
	cacheKey = "meldeamt:resolutions:all"
	cacheTTL = 5 * time.Minute
)

// Metrics is the subset of pipeline metrics the pattern service reports.
type Metrics interface {
	IncPatternsLearned()
	IncPatternsApplied(n int)
}

// Service is the pattern memory: it replays learned corrections on new
// addresses and learns new patterns from human correction diffs.
//
// The pattern list is read on every new case, so it is served from a Redis
// read-through cache when Redis is configured. The cache is invalidated on
// every learn.
type Service struct {
	store   store.ResolutionStore
	cache   *platformredis.Client
	metrics Metrics
	logger  *slog.Logger
}

func NewService(store store.ResolutionStore, cache *platformredis.Client, metrics Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, metrics: metrics, logger: logger}
}

// ApplyLearned corrects a raw address using all stored patterns and reports
// which substitutions fired. Matched patterns get their last-used timestamp
// touched; a touch failure is logged and ignored because it never affects
// the correction itself.
func (s *Service) ApplyLearned(ctx context.Context, address string) (string, []models.Applied, error) {
	resolutions, err := s.loadResolutions(ctx)
	if err != nil {
		return "", nil, err
	}

	corrected, applied := Apply(address, resolutions)
	if len(applied) == 0 {
		return corrected, nil, nil
	}

	if s.metrics != nil {
		s.metrics.IncPatternsApplied(len(applied))
	}
	if err := s.store.Touch(ctx, matchedIDs(resolutions, applied), requestcontext.Now(ctx)); err != nil {
		s.logger.WarnContext(ctx, "touch fired patterns failed", slog.String("error", err.Error()))
	}
	return corrected, applied, nil
}

// LearnFromCorrection extracts patterns from the diff between the original
// address and its human-corrected form and stores them. Returns the stored
// candidates.
func (s *Service) LearnFromCorrection(ctx context.Context, original, corrected string) ([]models.Candidate, error) {
	candidates := LearnFromDiff(original, corrected)
	if len(candidates) == 0 {
		return nil, nil
	}

	now := requestcontext.Now(ctx)
	for _, c := range candidates {
		if _, err := s.store.Upsert(ctx, c.Pattern, c.Corrected, c.Type, now); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.IncPatternsLearned()
		}
	}
	s.invalidateCache(ctx)
	return candidates, nil
}

// List returns all stored patterns, longest first.
func (s *Service) List(ctx context.Context) ([]models.Resolution, error) {
	return s.loadResolutions(ctx)
}

func (s *Service) loadResolutions(ctx context.Context) ([]models.Resolution, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached []models.Resolution
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	resolutions, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(resolutions) > 0 {
		if raw, err := json.Marshal(resolutions); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "resolution cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return resolutions, nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "resolution cache invalidation failed", slog.String("error", err.Error()))
	}
}

// matchedIDs maps fired substitutions back to their resolution rows.
func matchedIDs(resolutions []models.Resolution, applied []models.Applied) []id.ResolutionID {
	ids := make([]id.ResolutionID, 0, len(applied))
	for _, a := range applied {
		for _, r := range resolutions {
			if r.Pattern == a.Original && r.Type == a.Type {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	return ids
}
