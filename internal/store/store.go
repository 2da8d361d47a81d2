// Package store defines the repository contracts the rest of the service
// depends on, plus an in-memory implementation. The sqlite-backed
// implementation lives in internal/db; which one runs is a configuration
// choice, never a branch inside call sites.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/applywise/applywise/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

type SessionStore interface {
	SavePendingCode(ctx context.Context, code models.PendingCode) error
	// TakePendingCode redeems a code, removing it so it cannot be reused.
	TakePendingCode(ctx context.Context, code string) (*models.PendingCode, error)
	SaveSession(ctx context.Context, session models.Session) error
	Session(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	// HasProfileActivity reports whether a profile has ever held a session or
	// chat history, allowing a returning workspace code to re-verify.
	HasProfileActivity(ctx context.Context, profileID string) (bool, error)
	// PruneExpired removes codes and sessions whose expiry has passed.
	PruneExpired(ctx context.Context) error
}

type LetterStore interface {
	SaveCoverLetter(ctx context.Context, letter models.CoverLetter) error
	CoverLetter(ctx context.Context, id string) (*models.CoverLetter, error)
	// LatestCoverLetter returns the newest draft for a profile + normalized
	// thread, or ErrNotFound.
	LatestCoverLetter(ctx context.Context, profileID, threadID string) (*models.CoverLetter, error)
	// SaveJobDescription overwrites the single job-description slot for a
	// profile + thread.
	SaveJobDescription(ctx context.Context, jd models.JobDescription) error
	JobDescription(ctx context.Context, profileID, threadID string) (*models.JobDescription, error)
}

type UploadStore interface {
	SaveUpload(ctx context.Context, upload models.Upload) error
	Upload(ctx context.Context, profileID, fileID string) (*models.Upload, error)
	UploadsForProfile(ctx context.Context, profileID string) ([]models.Upload, error)
	DeleteUpload(ctx context.Context, profileID, fileID string) error
}

type HistoryStore interface {
	AppendMessage(ctx context.Context, msg models.ChatMessage) (string, error)
	// RecentMessages returns up to limit messages for a thread, oldest first.
	RecentMessages(ctx context.Context, profileID, threadID string, limit int) ([]models.ChatMessage, error)
	Threads(ctx context.Context, profileID string) ([]models.Thread, error)
	SetThreadTitle(ctx context.Context, profileID, threadID, title string) error
	// SetFeedback records thumbs feedback on an assistant message; feedback ""
	// clears it. Returns ErrNotFound when no eligible message matches.
	SetFeedback(ctx context.Context, profileID, messageID, feedback, comment string) error
	DeleteThread(ctx context.Context, profileID, threadID string) (int64, error)
	DeleteAllHistory(ctx context.Context, profileID string) (int64, error)
}

// AdminStore exposes the aggregate counters behind the admin endpoints.
type AdminStore interface {
	WorkspaceSummaries(ctx context.Context) ([]WorkspaceSummary, error)
	Stats(ctx context.Context) (Stats, error)
}

type WorkspaceSummary struct {
	WorkspaceCode string `json:"workspace_code"`
	MessageCount  int64  `json:"message_count"`
	ThreadCount   int64  `json:"thread_count"`
	FileCount     int64  `json:"file_count"`
}

type Stats struct {
	TotalWorkspaces int64 `json:"total_workspaces"`
	TotalSessions   int64 `json:"total_sessions"`
	TotalMessages   int64 `json:"total_messages"`
	TotalThreads    int64 `json:"total_threads"`
	TotalFiles      int64 `json:"total_files"`
	PendingCodes    int64 `json:"pending_codes"`
}

// Store groups every repository interface; both implementations satisfy it.
type Store interface {
	SessionStore
	LetterStore
	UploadStore
	HistoryStore
	AdminStore
}

// DefaultThreadID is the shared bucket used when a request carries no thread.
const DefaultThreadID = "default"

// NormalizeThreadID collapses blank thread ids into the default bucket.
func NormalizeThreadID(threadID string) string {
	if trimmed := strings.TrimSpace(threadID); trimmed != "" {
		return trimmed
	}
	return DefaultThreadID
}
