package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/BinLe1988/payday-server/internal/testdb"
	"github.com/BinLe1988/payday-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct{ jobs []Job }

func (q *recordingQueue) Enqueue(_ context.Context, job Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func TestSweepRequeuesStalePending(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	now := time.Now()
	old := now.Add(-time.Hour)

	stale := &models.Post{UserID: "u", AnonymousName: "a", Content: "stale", CreatedAt: old}
	fresh := &models.Post{UserID: "u", AnonymousName: "a", Content: "fresh", CreatedAt: now}
	score := 60
	scored := &models.Post{UserID: "u", AnonymousName: "a", Content: "manual", CreatedAt: old}
	scored.RiskScore = &score
	scored.RiskCheckedAt = &old
	approved := &models.Post{UserID: "u", AnonymousName: "a", Content: "ok", CreatedAt: old}
	approved.RiskStatus = models.RiskApproved
	staleComment := &models.Comment{PostID: "p", UserID: "u", AnonymousName: "a", Content: "c", CreatedAt: old}

	for _, rec := range []interface{}{stale, fresh, scored, approved, staleComment} {
		require.NoError(t, db.Create(rec).Error)
	}

	q := &recordingQueue{}
	s := NewSweeper(db, q, SweeperConfig{Grace: 10 * time.Minute}, nil, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []Job{
		{Kind: KindPost, ContentID: stale.ID},
		{Kind: KindComment, ContentID: staleComment.ID},
	}, q.jobs)
}

func TestSweepBatchLimit(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	old := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Post{UserID: "u", AnonymousName: "a", Content: "x", CreatedAt: old}).Error)
	}

	q := &recordingQueue{}
	s := NewSweeper(db, q, SweeperConfig{Grace: time.Minute, Batch: 3}, nil, nil)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSweeperStartValidatesSchedule(t *testing.T) {
	db := testdb.New(t)

	s := NewSweeper(db, &recordingQueue{}, SweeperConfig{Schedule: "not a cron"}, nil, nil)
	assert.Error(t, s.Start(context.Background()))

	s = NewSweeper(db, &recordingQueue{}, SweeperConfig{}, nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	s.Stop()

	s = NewSweeper(db, &recordingQueue{}, SweeperConfig{Schedule: "*/5 * * * *"}, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
