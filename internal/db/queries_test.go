package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/store"
)

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewQueries(database)
}

func TestPendingCodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)

	code := models.PendingCode{Code: "XY34ZK", ProfileID: "XY34ZK", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, q.SavePendingCode(ctx, code))

	got, err := q.TakePendingCode(ctx, "XY34ZK")
	require.NoError(t, err)
	assert.Equal(t, "XY34ZK", got.ProfileID)

	_, err = q.TakePendingCode(ctx, "XY34ZK")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCoverLetterSingleDraftPerThread(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)
	now := time.Now()

	first := models.CoverLetter{ID: "l1", ProfileID: "p1", ThreadID: "t1", Text: "v1", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, q.SaveCoverLetter(ctx, first))

	// A second save for the same thread replaces the existing record instead
	// of accumulating drafts, and the saved id is the one that survives.
	second := models.CoverLetter{ID: "l2", ProfileID: "p1", ThreadID: "t1", Text: "v2", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)}
	require.NoError(t, q.SaveCoverLetter(ctx, second))

	got, err := q.LatestCoverLetter(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "l2", got.ID)
	assert.Equal(t, "v2", got.Text)

	_, err = q.CoverLetter(ctx, "l1")
	assert.True(t, errors.Is(err, store.ErrNotFound), "replaced draft id no longer resolves")

	// Updating by id keeps the record in place.
	got.Text = "v3"
	got.UpdatedAt = now.Add(2 * time.Second)
	require.NoError(t, q.SaveCoverLetter(ctx, *got))

	byID, err := q.CoverLetter(ctx, "l2")
	require.NoError(t, err)
	assert.Equal(t, "v3", byID.Text)
}

func TestJobDescriptionOverwrite(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)

	require.NoError(t, q.SaveJobDescription(ctx, models.JobDescription{ProfileID: "p1", ThreadID: "", Text: "old", StoredAt: time.Now()}))
	require.NoError(t, q.SaveJobDescription(ctx, models.JobDescription{ProfileID: "p1", ThreadID: "default", Text: "new", StoredAt: time.Now()}))

	got, err := q.JobDescription(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
}

func TestChatMessagesRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)

	base := time.Now().Add(-time.Hour)
	var lastID string
	for i := 0; i < 4; i++ {
		var err error
		lastID, err = q.AppendMessage(ctx, models.ChatMessage{
			ProfileID: "p1",
			ThreadID:  "t1",
			Role:      "assistant",
			Content:   "m",
			Metadata:  map[string]any{"resume_review": true},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := q.RecentMessages(ctx, "p1", "t1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	assert.Equal(t, true, msgs[1].Metadata["resume_review"])

	require.NoError(t, q.SetFeedback(ctx, "p1", lastID, "up", "nice"))
	assert.True(t, errors.Is(q.SetFeedback(ctx, "p1", "missing", "up", ""), store.ErrNotFound))

	deleted, err := q.DeleteThread(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}

func TestUploadOwnershipScoping(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)

	require.NoError(t, q.SaveUpload(ctx, models.Upload{ID: "f1", ProfileID: "p1", Name: "resume.pdf", UploadedAt: time.Now()}))

	_, err := q.Upload(ctx, "p2", "f1")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	uploads, err := q.UploadsForProfile(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, uploads, 1)

	assert.True(t, errors.Is(q.DeleteUpload(ctx, "p2", "f1"), store.ErrNotFound))
	require.NoError(t, q.DeleteUpload(ctx, "p1", "f1"))
}
