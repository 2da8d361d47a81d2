package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywise/applywise/internal/models"
)

func TestNormalizeThreadID(t *testing.T) {
	assert.Equal(t, "default", NormalizeThreadID(""))
	assert.Equal(t, "default", NormalizeThreadID("   "))
	assert.Equal(t, "abc", NormalizeThreadID(" abc "))
}

func TestPendingCodeRedeemedOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	code := models.PendingCode{Code: "ABC234", ProfileID: "ABC234", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, m.SavePendingCode(ctx, code))

	got, err := m.TakePendingCode(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", got.ProfileID)

	_, err = m.TakePendingCode(ctx, "ABC234")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPruneExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SavePendingCode(ctx, models.PendingCode{Code: "OLD", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, m.SaveSession(ctx, models.Session{Token: "stale", ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, m.SaveSession(ctx, models.Session{Token: "fresh", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, m.PruneExpired(ctx))

	_, err := m.TakePendingCode(ctx, "OLD")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.Session(ctx, "stale")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.Session(ctx, "fresh")
	assert.NoError(t, err)
}

func TestLatestCoverLetterPerThread(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	older := models.CoverLetter{ID: "l1", ProfileID: "p1", ThreadID: "t1", Text: "first", CreatedAt: time.Now().Add(-time.Hour)}
	newer := models.CoverLetter{ID: "l2", ProfileID: "p1", ThreadID: "t1", Text: "second", CreatedAt: time.Now()}
	other := models.CoverLetter{ID: "l3", ProfileID: "p1", ThreadID: "t2", Text: "elsewhere", CreatedAt: time.Now()}
	for _, letter := range []models.CoverLetter{older, newer, other} {
		require.NoError(t, m.SaveCoverLetter(ctx, letter))
	}

	got, err := m.LatestCoverLetter(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "l2", got.ID)

	_, err = m.LatestCoverLetter(ctx, "p2", "t1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCoverLetterSingleDraftPerThread(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	first := models.CoverLetter{ID: "l1", ProfileID: "p1", ThreadID: "t1", Text: "v1", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, m.SaveCoverLetter(ctx, first))

	// A second save for the same thread replaces the existing record instead
	// of accumulating drafts, and the saved id is the one that survives.
	second := models.CoverLetter{ID: "l2", ProfileID: "p1", ThreadID: "t1", Text: "v2", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)}
	require.NoError(t, m.SaveCoverLetter(ctx, second))

	got, err := m.LatestCoverLetter(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "l2", got.ID)
	assert.Equal(t, "v2", got.Text)

	_, err = m.CoverLetter(ctx, "l1")
	assert.True(t, errors.Is(err, ErrNotFound), "replaced draft id no longer resolves")

	// A draft on another thread is untouched.
	require.NoError(t, m.SaveCoverLetter(ctx, models.CoverLetter{ID: "l3", ProfileID: "p1", ThreadID: "t2", Text: "other", CreatedAt: now}))
	byID, err := m.CoverLetter(ctx, "l2")
	require.NoError(t, err)
	assert.Equal(t, "v2", byID.Text)
}

func TestJobDescriptionSingleSlot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveJobDescription(ctx, models.JobDescription{ProfileID: "p1", ThreadID: "", Text: "first"}))
	require.NoError(t, m.SaveJobDescription(ctx, models.JobDescription{ProfileID: "p1", ThreadID: "default", Text: "second"}))

	got, err := m.JobDescription(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
}

func TestUploadOwnership(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveUpload(ctx, models.Upload{ID: "f1", ProfileID: "p1", Name: "resume.pdf"}))

	_, err := m.Upload(ctx, "p2", "f1")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = m.DeleteUpload(ctx, "p2", "f1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.DeleteUpload(ctx, "p1", "f1"))
	_, err = m.Upload(ctx, "p1", "f1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := m.AppendMessage(ctx, models.ChatMessage{
			ProfileID: "p1",
			ThreadID:  "t1",
			Role:      "user",
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := m.RecentMessages(ctx, "p1", "t1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// Keeps the newest three, oldest first.
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "e", msgs[2].Content)
}

func TestFeedbackOnlyOnAssistantMessages(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	userID, err := m.AppendMessage(ctx, models.ChatMessage{ProfileID: "p1", ThreadID: "t1", Role: "user", Content: "hi"})
	require.NoError(t, err)
	assistantID, err := m.AppendMessage(ctx, models.ChatMessage{ProfileID: "p1", ThreadID: "t1", Role: "assistant", Content: "hello"})
	require.NoError(t, err)

	assert.True(t, errors.Is(m.SetFeedback(ctx, "p1", userID, "up", ""), ErrNotFound))
	assert.NoError(t, m.SetFeedback(ctx, "p1", assistantID, "up", "great"))
}

func TestDeleteThreadCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, thread := range []string{"t1", "t1", "t2"} {
		_, err := m.AppendMessage(ctx, models.ChatMessage{ProfileID: "p1", ThreadID: thread, Role: "user", Content: "x"})
		require.NoError(t, err)
	}

	deleted, err := m.DeleteThread(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	threads, err := m.Threads(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "t2", threads[0].ThreadID)
}

func TestStatsAndWorkspaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.AppendMessage(ctx, models.ChatMessage{ProfileID: "p1", ThreadID: "t1", Role: "user", Content: "x"})
	require.NoError(t, err)
	require.NoError(t, m.SaveUpload(ctx, models.Upload{ID: "f1", ProfileID: "p1"}))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalWorkspaces)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Equal(t, int64(1), stats.TotalFiles)

	summaries, err := m.WorkspaceSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].FileCount)
}
