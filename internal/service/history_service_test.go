package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-retake-api/internal/models"
	"github.com/noah-isme/academy-retake-api/pkg/config"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

type historyRepoStub struct {
	byRetake    map[string][]models.HistoryEntry
	feed        []models.HistoryFeedEntry
	recentCalls []int
}

func (s *historyRepoStub) ForAssignment(_ context.Context, retakeID string) ([]models.HistoryEntry, error) {
	return s.byRetake[retakeID], nil
}

func (s *historyRepoStub) Recent(_ context.Context, limit int) ([]models.HistoryFeedEntry, error) {
	s.recentCalls = append(s.recentCalls, limit)
	if limit < len(s.feed) {
		return s.feed[:limit], nil
	}
	return s.feed, nil
}

type feedCacheStub struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newFeedCacheStub() *feedCacheStub {
	return &feedCacheStub{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *feedCacheStub) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *feedCacheStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.ttls[key] = ttl
	return nil
}

func feedEntries(n int) []models.HistoryFeedEntry {
	entries := make([]models.HistoryFeedEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.HistoryFeedEntry{
			HistoryEntry: models.HistoryEntry{ID: string(rune('a' + i)), Action: models.HistoryActionPostpone},
			StudentName:  "Ada Lovelace",
		})
	}
	return entries
}

func newHistoryTestService(historyRepo *historyRepoStub, retakeRepo *retakeRepoStub, cache feedCacheStore) *HistoryService {
	cfg := config.RetakeConfig{FeedDefaultLimit: 10, FeedMaxLimit: 25, FeedCacheTTL: 30 * time.Second}
	return NewHistoryService(historyRepo, retakeRepo, cache, nil, cfg, nil)
}

func TestHistoryForUnknownAssignment(t *testing.T) {
	svc := newHistoryTestService(&historyRepoStub{}, newRetakeRepoStub(), nil)

	_, err := svc.HistoryFor(context.Background(), "missing")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestHistoryForReturnsTrail(t *testing.T) {
	retakeRepo := newRetakeRepoStub()
	seedAssignment(retakeRepo, "r1", models.RetakeStatusPending)
	d := date("2025-03-01")
	historyRepo := &historyRepoStub{byRetake: map[string][]models.HistoryEntry{
		"r1": {{Action: models.HistoryActionAssign, NewDate: &d}},
	}}
	svc := newHistoryTestService(historyRepo, retakeRepo, nil)

	entries, err := svc.HistoryFor(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.HistoryActionAssign, entries[0].Action)
}

func TestRecentClampsLimit(t *testing.T) {
	historyRepo := &historyRepoStub{feed: feedEntries(3)}
	svc := newHistoryTestService(historyRepo, newRetakeRepoStub(), nil)

	_, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.Recent(context.Background(), 999)
	require.NoError(t, err)
	_, err = svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []int{10, 25, 5}, historyRepo.recentCalls)
}

func TestRecentServesFromCacheWithinTTL(t *testing.T) {
	historyRepo := &historyRepoStub{feed: feedEntries(3)}
	cache := newFeedCacheStub()
	svc := newHistoryTestService(historyRepo, newRetakeRepoStub(), cache)

	first, err := svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, 30*time.Second, cache.ttls[feedCachePrefix+"5"])

	second, err := svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, second, 3)

	// only the first call reached the store
	require.Equal(t, []int{5}, historyRepo.recentCalls)
}

func TestVerifyConsistencyCleanTrail(t *testing.T) {
	retakeRepo := newRetakeRepoStub()
	a := seedAssignment(retakeRepo, "r1", models.RetakeStatusPending)
	a.PostponeCount = 1
	newDate := date("2025-03-08")
	a.ScheduledDate = &newDate

	oldDate := date("2025-03-01")
	historyRepo := &historyRepoStub{byRetake: map[string][]models.HistoryEntry{
		"r1": {
			{Action: models.HistoryActionAssign, NewDate: &oldDate},
			{Action: models.HistoryActionPostpone, PreviousDate: &oldDate, NewDate: &newDate},
		},
	}}
	svc := newHistoryTestService(historyRepo, retakeRepo, nil)

	report, err := svc.VerifyConsistency(context.Background(), "r1")
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Empty(t, report.Divergences)
	require.Equal(t, 2, report.EntryCount)
}

func TestVerifyConsistencyFlagsDivergence(t *testing.T) {
	retakeRepo := newRetakeRepoStub()
	a := seedAssignment(retakeRepo, "r1", models.RetakeStatusPending)
	a.PostponeCount = 5 // counter bumped without a matching history entry

	d := date("2025-03-01")
	historyRepo := &historyRepoStub{byRetake: map[string][]models.HistoryEntry{
		"r1": {{Action: models.HistoryActionAssign, NewDate: &d}},
	}}
	svc := newHistoryTestService(historyRepo, retakeRepo, nil)

	report, err := svc.VerifyConsistency(context.Background(), "r1")
	require.NoError(t, err)
	require.False(t, report.Consistent)
	require.Len(t, report.Divergences, 1)
	require.Contains(t, report.Divergences[0], "postpone count")
}

func TestVerifyConsistencyRejectsBrokenTrail(t *testing.T) {
	retakeRepo := newRetakeRepoStub()
	seedAssignment(retakeRepo, "r1", models.RetakeStatusPending)
	historyRepo := &historyRepoStub{byRetake: map[string][]models.HistoryEntry{
		"r1": {{Action: models.HistoryActionPostpone}},
	}}
	svc := newHistoryTestService(historyRepo, retakeRepo, nil)

	_, err := svc.VerifyConsistency(context.Background(), "r1")
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}
