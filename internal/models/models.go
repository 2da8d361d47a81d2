package models

import "time"

type Session struct {
	Token      string
	ProfileID  string
	AccessCode string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type PendingCode struct {
	Code      string
	ProfileID string
	ExpiresAt time.Time
}

type CoverLetter struct {
	ID         string
	ProfileID  string
	ThreadID   string
	Text       string
	HeaderDate string // first non-blank line of the formatted text, best effort
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type JobDescription struct {
	ProfileID string
	ThreadID  string
	Text      string
	Excerpt   string
	StoredAt  time.Time
}

type Upload struct {
	ID          string
	ProfileID   string
	Name        string
	Size        int64
	MimeType    string
	Contents    string // base64-encoded raw bytes
	Text        string // extracted plain text, empty when extraction failed
	TextExcerpt string
	UploadedAt  time.Time
}

type ChatMessage struct {
	ID         string
	ProfileID  string
	AccessCode string
	ThreadID   string
	Role       string // "user", "assistant"
	Content    string
	Metadata   map[string]any
	Feedback   string // "up", "down", or empty
	Comment    string
	CreatedAt  time.Time
}

type Thread struct {
	ProfileID    string
	ThreadID     string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactInfo holds fields scraped from the header region of a resume.
type ContactInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Zip     string
}

func (c ContactInfo) IsZero() bool {
	return c == ContactInfo{}
}
