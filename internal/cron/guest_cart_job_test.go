package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aforsev/storefront-backend/pkg/logger"
)

func TestGuestCartCleanupJobUsesConfiguredTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeGuestCartRepo{}
	job := newGuestCartCleanupJob(t, repo, 72*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-72 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestGuestCartCleanupJobDefaultsTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeGuestCartRepo{}
	job := newGuestCartCleanupJob(t, repo, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-defaultGuestCartTTL)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}

func TestGuestCartCleanupJobPropagatesError(t *testing.T) {
	repo := &fakeGuestCartRepo{err: errors.New("boom")}
	job := newGuestCartCleanupJob(t, repo, time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newGuestCartCleanupJob(t *testing.T, repo *fakeGuestCartRepo, ttl time.Duration) *guestCartCleanupJob {
	t.Helper()
	jobIface, err := NewGuestCartCleanupJob(GuestCartCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		TTL:        ttl,
	})
	if err != nil {
		t.Fatalf("NewGuestCartCleanupJob: %v", err)
	}
	job, ok := jobIface.(*guestCartCleanupJob)
	if !ok {
		t.Fatalf("expected guestCartCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeGuestCartRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeGuestCartRepo) DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}
