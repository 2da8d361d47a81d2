package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/store"
)

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeChars, r), "unexpected character %q", r)
		}
	}
}

func TestGenerateTokenPrefix(t *testing.T) {
	tok := GenerateToken("sess")
	assert.True(t, strings.HasPrefix(tok, "sess_"))
	assert.NotEqual(t, tok, GenerateToken("sess"))
}

func TestRequestAndVerify(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	code, expires, err := svc.RequestCode(ctx, "")
	require.NoError(t, err)
	require.Len(t, code, 6)
	assert.True(t, expires.After(time.Now()))

	sess, err := svc.Verify(ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, code, sess.ProfileID)
	assert.Equal(t, code, sess.AccessCode)
	assert.True(t, strings.HasPrefix(sess.Token, "sess_"))

	// The pending code is single-use and there is no activity yet beyond the
	// fresh session, which re-verification accepts as a returning workspace.
	again, err := svc.Verify(ctx, code)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, again.Token)
}

func TestVerifyUnknownCode(t *testing.T) {
	svc := NewService(store.NewMemory())

	_, err := svc.Verify(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Verify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyExpiredCode(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem)

	require.NoError(t, mem.SavePendingCode(ctx, models.PendingCode{
		Code:      "ABCDEF",
		ProfileID: "ABCDEF",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := svc.Verify(ctx, "ABCDEF")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyReturningWorkspace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem)

	_, err := mem.AppendMessage(ctx, models.ChatMessage{
		ProfileID: "OLDUSR",
		ThreadID:  "default",
		Role:      "user",
		Content:   "hello",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	sess, err := svc.Verify(ctx, "oldusr")
	require.NoError(t, err)
	assert.Equal(t, "OLDUSR", sess.ProfileID)
}

func TestValidateAndExpiry(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem)

	code, _, err := svc.RequestCode(ctx, "MYCODE")
	require.NoError(t, err)
	sess, err := svc.Verify(ctx, code)
	require.NoError(t, err)

	got, err := svc.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ProfileID, got.ProfileID)

	_, err = svc.Validate(ctx, "sess_bogus")
	assert.ErrorIs(t, err, ErrInvalidSession)

	expired := models.Session{
		Token:      "sess_expired",
		ProfileID:  "MYCODE",
		AccessCode: "MYCODE",
		IssuedAt:   time.Now().Add(-25 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, mem.SaveSession(ctx, expired))
	_, err = svc.Validate(ctx, "sess_expired")
	assert.ErrorIs(t, err, ErrInvalidSession)

	// The expired session was removed on validation.
	_, err = mem.Session(ctx, "sess_expired")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem)

	code, _, err := svc.RequestCode(ctx, "")
	require.NoError(t, err)
	sess, err := svc.Verify(ctx, code)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Validate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	assert.NoError(t, svc.Logout(ctx, "sess_missing"))
}
