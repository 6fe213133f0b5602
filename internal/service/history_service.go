package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	"github.com/noah-isme/academy-retake-api/pkg/config"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

type historyStore interface {
	ForAssignment(ctx context.Context, retakeID string) ([]models.HistoryEntry, error)
	Recent(ctx context.Context, limit int) ([]models.HistoryFeedEntry, error)
}

type assignmentGetter interface {
	GetByID(ctx context.Context, id string) (*models.RetakeAssignment, error)
}

type feedCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool)
}

// HistoryService serves the audit trail read surfaces: the per-assignment
// trail, the cached global feed, and the replay consistency check.
type HistoryService struct {
	repo    historyStore
	retakes assignmentGetter
	cache   feedCacheStore
	metrics cacheRecorder
	cfg     config.RetakeConfig
	logger  *zap.Logger
}

// NewHistoryService constructs the service. Cache and metrics are optional.
func NewHistoryService(repo historyStore, retakes assignmentGetter, cache feedCacheStore, metrics cacheRecorder, cfg config.RetakeConfig, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeedDefaultLimit <= 0 {
		cfg.FeedDefaultLimit = 50
	}
	if cfg.FeedMaxLimit <= 0 {
		cfg.FeedMaxLimit = 200
	}
	return &HistoryService{repo: repo, retakes: retakes, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// HistoryFor returns the assignment's trail oldest first, erroring with
// NotFound when the assignment itself is gone.
func (s *HistoryService) HistoryFor(ctx context.Context, retakeID string) ([]models.HistoryEntry, error) {
	if _, err := s.retakes.GetByID(ctx, retakeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load retake assignment")
	}
	entries, err := s.repo.ForAssignment(ctx, retakeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return entries, nil
}

// Recent returns the global feed, newest first, clamped to the configured
// limits and served from cache within its TTL. Mutations invalidate the
// cache so the feed never lags a write past the TTL.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]models.HistoryFeedEntry, error) {
	if limit <= 0 {
		limit = s.cfg.FeedDefaultLimit
	}
	if limit > s.cfg.FeedMaxLimit {
		limit = s.cfg.FeedMaxLimit
	}

	key := fmt.Sprintf("%s%d", feedCachePrefix, limit)
	if s.cache != nil {
		var cached []models.HistoryFeedEntry
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("history feed cache read failed", zap.Error(err))
		}
		s.recordCache(false)
	}

	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent history")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.cfg.FeedCacheTTL); err != nil {
			s.logger.Warn("history feed cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// VerifyConsistency replays the assignment's trail and diffs the result
// against the stored row. A divergence means either the trail was tampered
// with or a write bypassed the lifecycle.
func (s *HistoryService) VerifyConsistency(ctx context.Context, retakeID string) (*dto.ConsistencyReport, error) {
	assignment, err := s.retakes.GetByID(ctx, retakeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load retake assignment")
	}
	entries, err := s.repo.ForAssignment(ctx, retakeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	replayed, err := ReplayHistory(entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "history is not replayable")
	}

	stored := dto.ReplayedState{
		Status:           assignment.Status,
		ScheduledDate:    assignment.ScheduledDate,
		PostponeCount:    assignment.PostponeCount,
		AbsentCount:      assignment.AbsentCount,
		ManagementStatus: assignment.ManagementStatus,
	}

	report := &dto.ConsistencyReport{
		RetakeID:   retakeID,
		Stored:     stored,
		Replayed:   *replayed,
		EntryCount: len(entries),
	}
	report.Divergences = diffStates(stored, *replayed)
	report.Consistent = len(report.Divergences) == 0
	return report, nil
}

func (s *HistoryService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func diffStates(stored, replayed dto.ReplayedState) []string {
	var divergences []string
	if stored.Status != replayed.Status {
		divergences = append(divergences, fmt.Sprintf("status: stored %s, replayed %s", stored.Status, replayed.Status))
	}
	if !sameOptionalDate(stored.ScheduledDate, replayed.ScheduledDate) {
		divergences = append(divergences, fmt.Sprintf("scheduled date: stored %s, replayed %s",
			formatOptionalDate(stored.ScheduledDate), formatOptionalDate(replayed.ScheduledDate)))
	}
	if stored.PostponeCount != replayed.PostponeCount {
		divergences = append(divergences, fmt.Sprintf("postpone count: stored %d, replayed %d", stored.PostponeCount, replayed.PostponeCount))
	}
	if stored.AbsentCount != replayed.AbsentCount {
		divergences = append(divergences, fmt.Sprintf("absent count: stored %d, replayed %d", stored.AbsentCount, replayed.AbsentCount))
	}
	return divergences
}

func sameOptionalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return sameDate(*a, *b)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "<none>"
	}
	return t.Format(dateLayout)
}
