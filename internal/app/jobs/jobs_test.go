package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
)

type fakeFiles struct {
	orphans []*models.File
	cutoff  time.Time
	deleted []int64
}

func (f *fakeFiles) ListOrphans(_ context.Context, cutoff time.Time, _ uint64) ([]*models.File, error) {
	f.cutoff = cutoff
	return f.orphans, nil
}

func (f *fakeFiles) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDisk struct {
	removed []string
	fail    map[string]bool
}

func (d *fakeDisk) Delete(path string) error {
	if d.fail[path] {
		return errors.New("permission denied")
	}
	d.removed = append(d.removed, path)
	return nil
}

func TestAttachmentReaper(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	files := &fakeFiles{orphans: []*models.File{
		{ID: 1, FilePath: "messages/a.pdf"},
		{ID: 2, FilePath: "messages/b.pdf"},
		{ID: 3, FilePath: "messages/c.pdf"},
	}}
	disk := &fakeDisk{fail: map[string]bool{"messages/b.pdf": true}}

	job := AttachmentReaper(files, disk, 24*time.Hour, func() time.Time { return now })
	n, err := job(context.Background())

	assert.Equal(t, int64(2), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file 2")
	assert.Equal(t, now.Add(-24*time.Hour), files.cutoff)
	assert.Equal(t, []string{"messages/a.pdf", "messages/c.pdf"}, disk.removed)
	// the row stays when its content could not be removed
	assert.Equal(t, []int64{1, 3}, files.deleted)
}

func TestAttachmentReaper_StopsOnCancel(t *testing.T) {
	files := &fakeFiles{orphans: []*models.File{{ID: 1, FilePath: "a"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := AttachmentReaper(files, &fakeDisk{}, time.Hour, time.Now)(ctx)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, files.deleted)
}

type fakeTokens struct{ n int64 }

func (f fakeTokens) CleanupExpiredTokens(context.Context) (int64, error) { return f.n, nil }

func TestScheduler_RunRecordsMetrics(t *testing.T) {
	s := NewScheduler(zerolog.Nop())

	s.Run("token-cleanup", TokenCleanup(fakeTokens{n: 4}))
	s.Run("attachment-reaper", func(context.Context) (int64, error) { return 1, errors.New("disk gone") })

	assert.Equal(t, 1.0, testutil.ToFloat64(s.runs.WithLabelValues("token-cleanup", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.removed.WithLabelValues("token-cleanup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.runs.WithLabelValues("attachment-reaper", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.removed.WithLabelValues("attachment-reaper")))
}

func TestScheduler_AddAndStop(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	require.Error(t, s.Add("broken", "every now and then", TokenCleanup(fakeTokens{})))

	var calls atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) (int64, error) {
		calls.Add(1)
		return 0, nil
	}))
	s.Start()
	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
