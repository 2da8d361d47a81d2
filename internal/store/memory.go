package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applywise/applywise/internal/models"
)

// Memory is the in-process Store used by tests and no-database deployments.
// A single RWMutex guards all maps; the service's request-serialized runtime
// keeps contention negligible.
type Memory struct {
	mu           sync.RWMutex
	pendingCodes map[string]models.PendingCode
	sessions     map[string]models.Session
	letters      map[string]models.CoverLetter
	jobs         map[string]models.JobDescription // keyed profile::thread
	uploads      map[string]models.Upload
	messages     []models.ChatMessage
	threadTitles map[string]string // keyed profile::thread
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		pendingCodes: map[string]models.PendingCode{},
		sessions:     map[string]models.Session{},
		letters:      map[string]models.CoverLetter{},
		jobs:         map[string]models.JobDescription{},
		uploads:      map[string]models.Upload{},
		threadTitles: map[string]string{},
	}
}

func threadKey(profileID, threadID string) string {
	return profileID + "::" + NormalizeThreadID(threadID)
}

// Sessions

func (m *Memory) SavePendingCode(_ context.Context, code models.PendingCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingCodes[code.Code] = code
	return nil
}

func (m *Memory) TakePendingCode(_ context.Context, code string) (*models.PendingCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.pendingCodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.pendingCodes, code)
	return &record, nil
}

func (m *Memory) SaveSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *Memory) Session(_ context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (m *Memory) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *Memory) HasProfileActivity(_ context.Context, profileID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, session := range m.sessions {
		if session.ProfileID == profileID {
			return true, nil
		}
	}
	for _, msg := range m.messages {
		if msg.ProfileID == profileID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) PruneExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for code, record := range m.pendingCodes {
		if !record.ExpiresAt.After(now) {
			delete(m.pendingCodes, code)
		}
	}
	for token, session := range m.sessions {
		if !session.ExpiresAt.After(now) {
			delete(m.sessions, token)
		}
	}
	return nil
}

// Cover letters and job descriptions

func (m *Memory) SaveCoverLetter(_ context.Context, letter models.CoverLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	letter.ThreadID = NormalizeThreadID(letter.ThreadID)
	// One draft per profile + thread: a save under a new id replaces the
	// thread's previous record, matching the sqlite unique index.
	for id, existing := range m.letters {
		if id != letter.ID && existing.ProfileID == letter.ProfileID && existing.ThreadID == letter.ThreadID {
			delete(m.letters, id)
		}
	}
	m.letters[letter.ID] = letter
	return nil
}

func (m *Memory) CoverLetter(_ context.Context, id string) (*models.CoverLetter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	letter, ok := m.letters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &letter, nil
}

func (m *Memory) LatestCoverLetter(_ context.Context, profileID, threadID string) (*models.CoverLetter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := NormalizeThreadID(threadID)
	var latest *models.CoverLetter
	for _, letter := range m.letters {
		if letter.ProfileID != profileID || letter.ThreadID != normalized {
			continue
		}
		letter := letter
		if latest == nil || letter.CreatedAt.After(latest.CreatedAt) {
			latest = &letter
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *Memory) SaveJobDescription(_ context.Context, jd models.JobDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	jd.ThreadID = NormalizeThreadID(jd.ThreadID)
	m.jobs[threadKey(jd.ProfileID, jd.ThreadID)] = jd
	return nil
}

func (m *Memory) JobDescription(_ context.Context, profileID, threadID string) (*models.JobDescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jd, ok := m.jobs[threadKey(profileID, threadID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &jd, nil
}

// Uploads

func (m *Memory) SaveUpload(_ context.Context, upload models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[upload.ID] = upload
	return nil
}

func (m *Memory) Upload(_ context.Context, profileID, fileID string) (*models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	upload, ok := m.uploads[fileID]
	if !ok || upload.ProfileID != profileID {
		return nil, ErrNotFound
	}
	return &upload, nil
}

func (m *Memory) UploadsForProfile(_ context.Context, profileID string) ([]models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var uploads []models.Upload
	for _, upload := range m.uploads {
		if upload.ProfileID == profileID {
			uploads = append(uploads, upload)
		}
	}
	sort.Slice(uploads, func(i, j int) bool {
		return uploads[i].UploadedAt.After(uploads[j].UploadedAt)
	})
	return uploads, nil
}

func (m *Memory) DeleteUpload(_ context.Context, profileID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	upload, ok := m.uploads[fileID]
	if !ok || upload.ProfileID != profileID {
		return ErrNotFound
	}
	delete(m.uploads, fileID)
	return nil
}

// Chat history

func (m *Memory) AppendMessage(_ context.Context, msg models.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ThreadID = NormalizeThreadID(msg.ThreadID)
	m.messages = append(m.messages, msg)
	return msg.ID, nil
}

func (m *Memory) RecentMessages(_ context.Context, profileID, threadID string, limit int) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := NormalizeThreadID(threadID)
	var matches []models.ChatMessage
	for _, msg := range m.messages {
		if msg.ProfileID == profileID && msg.ThreadID == normalized {
			matches = append(matches, msg)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}
	return matches, nil
}

func (m *Memory) Threads(_ context.Context, profileID string) ([]models.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byThread := map[string]*models.Thread{}
	for _, msg := range m.messages {
		if msg.ProfileID != profileID {
			continue
		}
		thread, ok := byThread[msg.ThreadID]
		if !ok {
			thread = &models.Thread{
				ProfileID: profileID,
				ThreadID:  msg.ThreadID,
				Title:     m.threadTitles[threadKey(profileID, msg.ThreadID)],
				CreatedAt: msg.CreatedAt,
			}
			byThread[msg.ThreadID] = thread
		}
		thread.MessageCount++
		if msg.CreatedAt.After(thread.UpdatedAt) {
			thread.UpdatedAt = msg.CreatedAt
		}
	}
	threads := make([]models.Thread, 0, len(byThread))
	for _, thread := range byThread {
		threads = append(threads, *thread)
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (m *Memory) SetThreadTitle(_ context.Context, profileID, threadID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadTitles[threadKey(profileID, threadID)] = title
	return nil
}

func (m *Memory) SetFeedback(_ context.Context, profileID, messageID, feedback, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.ID == messageID && msg.ProfileID == profileID && msg.Role == "assistant" {
			msg.Feedback = feedback
			msg.Comment = comment
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteThread(_ context.Context, profileID, threadID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized := NormalizeThreadID(threadID)
	var kept []models.ChatMessage
	var deleted int64
	for _, msg := range m.messages {
		if msg.ProfileID == profileID && msg.ThreadID == normalized {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	delete(m.threadTitles, threadKey(profileID, threadID))
	return deleted, nil
}

func (m *Memory) DeleteAllHistory(_ context.Context, profileID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.ChatMessage
	var deleted int64
	for _, msg := range m.messages {
		if msg.ProfileID == profileID {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return deleted, nil
}

// Admin

func (m *Memory) WorkspaceSummaries(_ context.Context) ([]WorkspaceSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := map[string]*WorkspaceSummary{}
	summary := func(profileID string) *WorkspaceSummary {
		s, ok := profiles[profileID]
		if !ok {
			s = &WorkspaceSummary{WorkspaceCode: profileID}
			profiles[profileID] = s
		}
		return s
	}
	for _, session := range m.sessions {
		summary(session.ProfileID)
	}
	threadSeen := map[string]bool{}
	for _, msg := range m.messages {
		s := summary(msg.ProfileID)
		s.MessageCount++
		key := threadKey(msg.ProfileID, msg.ThreadID)
		if !threadSeen[key] {
			threadSeen[key] = true
			s.ThreadCount++
		}
	}
	for _, upload := range m.uploads {
		summary(upload.ProfileID).FileCount++
	}
	summaries := make([]WorkspaceSummary, 0, len(profiles))
	for _, s := range profiles {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].WorkspaceCode < summaries[j].WorkspaceCode
	})
	return summaries, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := map[string]bool{}
	threads := map[string]bool{}
	for _, msg := range m.messages {
		profiles[msg.ProfileID] = true
		threads[threadKey(msg.ProfileID, msg.ThreadID)] = true
	}
	return Stats{
		TotalWorkspaces: int64(len(profiles)),
		TotalSessions:   int64(len(m.sessions)),
		TotalMessages:   int64(len(m.messages)),
		TotalThreads:    int64(len(threads)),
		TotalFiles:      int64(len(m.uploads)),
		PendingCodes:    int64(len(m.pendingCodes)),
	}, nil
}
