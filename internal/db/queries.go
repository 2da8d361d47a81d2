package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/store"
)

// Queries implements store.Store on top of sqlite. Timestamps are stored as
// unix milliseconds.
type Queries struct {
	db *sql.DB
}

var _ store.Store = (*Queries)(nil)

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Sessions and codes

func (q *Queries) SavePendingCode(ctx context.Context, code models.PendingCode) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO pending_codes (code, profile_id, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET profile_id = excluded.profile_id, expires_at = excluded.expires_at`,
		code.Code, code.ProfileID, millis(code.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("saving pending code: %w", err)
	}
	return nil
}

func (q *Queries) TakePendingCode(ctx context.Context, code string) (*models.PendingCode, error) {
	record := &models.PendingCode{}
	var expiresAt int64
	err := q.db.QueryRowContext(ctx,
		`DELETE FROM pending_codes WHERE code = ? RETURNING code, profile_id, expires_at`, code,
	).Scan(&record.Code, &record.ProfileID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redeeming pending code: %w", err)
	}
	record.ExpiresAt = fromMillis(expiresAt)
	return record, nil
}

func (q *Queries) SaveSession(ctx context.Context, session models.Session) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sessions (token, profile_id, access_code, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET profile_id = excluded.profile_id, access_code = excluded.access_code,
		     issued_at = excluded.issued_at, expires_at = excluded.expires_at`,
		session.Token, session.ProfileID, session.AccessCode, millis(session.IssuedAt), millis(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (q *Queries) Session(ctx context.Context, token string) (*models.Session, error) {
	session := &models.Session{}
	var issuedAt, expiresAt int64
	err := q.db.QueryRowContext(ctx,
		`SELECT token, profile_id, access_code, issued_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&session.Token, &session.ProfileID, &session.AccessCode, &issuedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	session.IssuedAt = fromMillis(issuedAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return session, nil
}

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (q *Queries) HasProfileActivity(ctx context.Context, profileID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM sessions WHERE profile_id = ?
		    UNION
		    SELECT 1 FROM chat_messages WHERE profile_id = ?
		 )`, profileID, profileID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking profile activity: %w", err)
	}
	return exists, nil
}

func (q *Queries) PruneExpired(ctx context.Context) error {
	now := millis(time.Now())
	if _, err := q.db.ExecContext(ctx, `DELETE FROM pending_codes WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("pruning codes: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("pruning sessions: %w", err)
	}
	return nil
}

// Cover letters and job descriptions

func (q *Queries) SaveCoverLetter(ctx context.Context, letter models.CoverLetter) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO cover_letters (id, profile_id, thread_id, text, header_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     text = excluded.text, header_date = excluded.header_date, updated_at = excluded.updated_at
		 ON CONFLICT(profile_id, thread_id) DO UPDATE SET
		     id = excluded.id, text = excluded.text, header_date = excluded.header_date, updated_at = excluded.updated_at`,
		letter.ID, letter.ProfileID, store.NormalizeThreadID(letter.ThreadID), letter.Text,
		letter.HeaderDate, millis(letter.CreatedAt), millis(letter.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving cover letter: %w", err)
	}
	return nil
}

func (q *Queries) CoverLetter(ctx context.Context, id string) (*models.CoverLetter, error) {
	return q.scanLetter(q.db.QueryRowContext(ctx,
		`SELECT id, profile_id, thread_id, text, header_date, created_at, updated_at
		 FROM cover_letters WHERE id = ?`, id))
}

func (q *Queries) LatestCoverLetter(ctx context.Context, profileID, threadID string) (*models.CoverLetter, error) {
	return q.scanLetter(q.db.QueryRowContext(ctx,
		`SELECT id, profile_id, thread_id, text, header_date, created_at, updated_at
		 FROM cover_letters WHERE profile_id = ? AND thread_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		profileID, store.NormalizeThreadID(threadID)))
}

func (q *Queries) scanLetter(row *sql.Row) (*models.CoverLetter, error) {
	letter := &models.CoverLetter{}
	var createdAt, updatedAt int64
	err := row.Scan(&letter.ID, &letter.ProfileID, &letter.ThreadID, &letter.Text,
		&letter.HeaderDate, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning cover letter: %w", err)
	}
	letter.CreatedAt = fromMillis(createdAt)
	letter.UpdatedAt = fromMillis(updatedAt)
	return letter, nil
}

func (q *Queries) SaveJobDescription(ctx context.Context, jd models.JobDescription) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO job_descriptions (profile_id, thread_id, text, excerpt, stored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id, thread_id) DO UPDATE SET
		     text = excluded.text, excerpt = excluded.excerpt, stored_at = excluded.stored_at`,
		jd.ProfileID, store.NormalizeThreadID(jd.ThreadID), jd.Text, jd.Excerpt, millis(jd.StoredAt),
	)
	if err != nil {
		return fmt.Errorf("saving job description: %w", err)
	}
	return nil
}

func (q *Queries) JobDescription(ctx context.Context, profileID, threadID string) (*models.JobDescription, error) {
	jd := &models.JobDescription{}
	var storedAt int64
	err := q.db.QueryRowContext(ctx,
		`SELECT profile_id, thread_id, text, excerpt, stored_at
		 FROM job_descriptions WHERE profile_id = ? AND thread_id = ?`,
		profileID, store.NormalizeThreadID(threadID),
	).Scan(&jd.ProfileID, &jd.ThreadID, &jd.Text, &jd.Excerpt, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting job description: %w", err)
	}
	jd.StoredAt = fromMillis(storedAt)
	return jd, nil
}

// Uploads

func (q *Queries) SaveUpload(ctx context.Context, upload models.Upload) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO uploads (id, profile_id, name, size, mime_type, contents, text, text_excerpt, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name, size = excluded.size, mime_type = excluded.mime_type,
		     contents = excluded.contents, text = excluded.text, text_excerpt = excluded.text_excerpt`,
		upload.ID, upload.ProfileID, upload.Name, upload.Size, upload.MimeType,
		upload.Contents, upload.Text, upload.TextExcerpt, millis(upload.UploadedAt),
	)
	if err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	return nil
}

func (q *Queries) Upload(ctx context.Context, profileID, fileID string) (*models.Upload, error) {
	upload := &models.Upload{}
	var uploadedAt int64
	err := q.db.QueryRowContext(ctx,
		`SELECT id, profile_id, name, size, mime_type, contents, text, text_excerpt, uploaded_at
		 FROM uploads WHERE id = ? AND profile_id = ?`, fileID, profileID,
	).Scan(&upload.ID, &upload.ProfileID, &upload.Name, &upload.Size, &upload.MimeType,
		&upload.Contents, &upload.Text, &upload.TextExcerpt, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}
	upload.UploadedAt = fromMillis(uploadedAt)
	return upload, nil
}

func (q *Queries) UploadsForProfile(ctx context.Context, profileID string) ([]models.Upload, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, profile_id, name, size, mime_type, contents, text, text_excerpt, uploaded_at
		 FROM uploads WHERE profile_id = ? ORDER BY uploaded_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var upload models.Upload
		var uploadedAt int64
		if err := rows.Scan(&upload.ID, &upload.ProfileID, &upload.Name, &upload.Size, &upload.MimeType,
			&upload.Contents, &upload.Text, &upload.TextExcerpt, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		upload.UploadedAt = fromMillis(uploadedAt)
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

func (q *Queries) DeleteUpload(ctx context.Context, profileID, fileID string) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM uploads WHERE id = ? AND profile_id = ?`, fileID, profileID)
	if err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Chat history

func (q *Queries) AppendMessage(ctx context.Context, msg models.ChatMessage) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return "", fmt.Errorf("encoding message metadata: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, profile_id, access_code, thread_id, role, content, metadata, feedback, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ProfileID, msg.AccessCode, store.NormalizeThreadID(msg.ThreadID),
		msg.Role, msg.Content, string(metadata), msg.Feedback, msg.Comment, millis(msg.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("appending chat message: %w", err)
	}
	return msg.ID, nil
}

func (q *Queries) RecentMessages(ctx context.Context, profileID, threadID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, profile_id, access_code, thread_id, role, content, metadata, feedback, comment, created_at
		 FROM (
		     SELECT * FROM chat_messages WHERE profile_id = ? AND thread_id = ?
		     ORDER BY created_at DESC LIMIT ?
		 ) ORDER BY created_at ASC`,
		profileID, store.NormalizeThreadID(threadID), limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var metadata string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ProfileID, &msg.AccessCode, &msg.ThreadID, &msg.Role,
			&msg.Content, &metadata, &msg.Feedback, &msg.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		if metadata != "" && metadata != "null" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decoding message metadata: %w", err)
			}
		}
		msg.CreatedAt = fromMillis(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (q *Queries) Threads(ctx context.Context, profileID string) ([]models.Thread, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT m.thread_id,
		        COALESCE(t.title, '') AS title,
		        COUNT(*) AS message_count,
		        MIN(m.created_at) AS created_at,
		        MAX(m.created_at) AS updated_at
		 FROM chat_messages m
		 LEFT JOIN thread_metadata t ON t.profile_id = m.profile_id AND t.thread_id = m.thread_id
		 WHERE m.profile_id = ?
		 GROUP BY m.thread_id
		 ORDER BY updated_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		thread := models.Thread{ProfileID: profileID}
		var createdAt, updatedAt int64
		if err := rows.Scan(&thread.ThreadID, &thread.Title, &thread.MessageCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		thread.CreatedAt = fromMillis(createdAt)
		thread.UpdatedAt = fromMillis(updatedAt)
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

func (q *Queries) SetThreadTitle(ctx context.Context, profileID, threadID, title string) error {
	now := millis(time.Now())
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO thread_metadata (profile_id, thread_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id, thread_id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		profileID, store.NormalizeThreadID(threadID), title, now, now,
	)
	if err != nil {
		return fmt.Errorf("setting thread title: %w", err)
	}
	return nil
}

func (q *Queries) SetFeedback(ctx context.Context, profileID, messageID, feedback, comment string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE chat_messages SET feedback = ?, comment = ?
		 WHERE id = ? AND profile_id = ? AND role = 'assistant'`,
		feedback, comment, messageID, profileID)
	if err != nil {
		return fmt.Errorf("setting feedback: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteThread(ctx context.Context, profileID, threadID string) (int64, error) {
	normalized := store.NormalizeThreadID(threadID)
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE profile_id = ? AND thread_id = ?`, profileID, normalized)
	if err != nil {
		return 0, fmt.Errorf("deleting thread: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM thread_metadata WHERE profile_id = ? AND thread_id = ?`, profileID, normalized); err != nil {
		return 0, fmt.Errorf("deleting thread metadata: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

func (q *Queries) DeleteAllHistory(ctx context.Context, profileID string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE profile_id = ?`, profileID)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Admin

func (q *Queries) WorkspaceSummaries(ctx context.Context) ([]store.WorkspaceSummary, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT p.profile_id,
		        (SELECT COUNT(*) FROM chat_messages WHERE profile_id = p.profile_id),
		        (SELECT COUNT(DISTINCT thread_id) FROM chat_messages WHERE profile_id = p.profile_id),
		        (SELECT COUNT(*) FROM uploads WHERE profile_id = p.profile_id)
		 FROM (
		     SELECT profile_id FROM sessions
		     UNION
		     SELECT profile_id FROM chat_messages
		 ) p
		 ORDER BY p.profile_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var summaries []store.WorkspaceSummary
	for rows.Next() {
		var s store.WorkspaceSummary
		if err := rows.Scan(&s.WorkspaceCode, &s.MessageCount, &s.ThreadCount, &s.FileCount); err != nil {
			return nil, fmt.Errorf("scanning workspace summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (q *Queries) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	err := q.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(DISTINCT profile_id) FROM chat_messages),
		    (SELECT COUNT(*) FROM sessions),
		    (SELECT COUNT(*) FROM chat_messages),
		    (SELECT COUNT(DISTINCT profile_id || '::' || thread_id) FROM chat_messages),
		    (SELECT COUNT(*) FROM uploads),
		    (SELECT COUNT(*) FROM pending_codes)`,
	).Scan(&stats.TotalWorkspaces, &stats.TotalSessions, &stats.TotalMessages,
		&stats.TotalThreads, &stats.TotalFiles, &stats.PendingCodes)
	if err != nil {
		return stats, fmt.Errorf("collecting stats: %w", err)
	}
	return stats, nil
}
