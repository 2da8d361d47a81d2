// Package letter holds the storage-facing cover letter operations: draft
// persistence, job description snapshots, resume selection, and the canned
// reply fragments the chat flow stitches into responses.
package letter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/placeholder"
	"github.com/applywise/applywise/internal/store"
	"github.com/applywise/applywise/internal/textutil"
)

// ReadyFollowUp is appended to a draft reply once no placeholders remain.
const ReadyFollowUp = "\n\nWhen you're satisfied, ask me to generate your PDF. Otherwise, let me know what you'd like to revise."

// JobDescriptionMaxLength caps stored job description text.
const JobDescriptionMaxLength = 5000

// JobDescriptionExcerptLength caps the cached excerpt.
const JobDescriptionExcerptLength = 600

// Service wraps the letter and upload stores with the draft lifecycle rules.
type Service struct {
	letters store.LetterStore
	uploads store.UploadStore
	now     func() time.Time
}

func NewService(letters store.LetterStore, uploads store.UploadStore) *Service {
	return &Service{letters: letters, uploads: uploads, now: time.Now}
}

// SaveDraft formats and persists cover letter text for a profile + thread.
// When existingID names a draft owned by the profile, that record is mutated
// in place; otherwise the thread's current draft, if any, is overwritten, so
// a thread never holds more than one draft and the returned id always
// resolves. The first non-blank line of the formatted text is captured as the
// header date for PDF rendering.
func (s *Service) SaveDraft(ctx context.Context, profileID, threadID, text, existingID string) (models.CoverLetter, error) {
	formatted := placeholder.EnsureDate(text)
	now := s.now()

	record := models.CoverLetter{
		ID:        "letter_" + uuid.NewString(),
		ProfileID: profileID,
		ThreadID:  store.NormalizeThreadID(threadID),
		CreatedAt: now,
	}
	reused := false
	if existingID != "" {
		existing, err := s.letters.CoverLetter(ctx, existingID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.CoverLetter{}, fmt.Errorf("loading draft %s: %w", existingID, err)
		}
		if existing != nil && existing.ProfileID == profileID {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			reused = true
		}
	}
	if !reused {
		current, err := s.letters.LatestCoverLetter(ctx, profileID, record.ThreadID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.CoverLetter{}, fmt.Errorf("loading latest draft: %w", err)
		}
		if current != nil {
			record.ID = current.ID
			record.CreatedAt = current.CreatedAt
		}
	}
	record.Text = formatted
	record.HeaderDate = textutil.FirstNonEmptyLine(formatted)
	record.UpdatedAt = now

	if err := s.letters.SaveCoverLetter(ctx, record); err != nil {
		return models.CoverLetter{}, fmt.Errorf("saving draft: %w", err)
	}
	return record, nil
}

// LatestDraft returns the newest draft for a profile + thread, or nil.
func (s *Service) LatestDraft(ctx context.Context, profileID, threadID string) (*models.CoverLetter, error) {
	rec, err := s.letters.LatestCoverLetter(ctx, profileID, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest draft: %w", err)
	}
	return rec, nil
}

// Draft returns a draft by id when it belongs to the profile.
func (s *Service) Draft(ctx context.Context, profileID, letterID string) (*models.CoverLetter, error) {
	rec, err := s.letters.CoverLetter(ctx, letterID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft %s: %w", letterID, err)
	}
	if rec.ProfileID != profileID {
		return nil, nil
	}
	return rec, nil
}

// StoreJobDescription overwrites the single job description slot for a
// profile + thread. Text is whitespace-collapsed and hard-truncated before
// storage; blank input is ignored.
func (s *Service) StoreJobDescription(ctx context.Context, profileID, threadID, text string) error {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil
	}
	cleaned = textutil.Truncate(cleaned, JobDescriptionMaxLength)
	jd := models.JobDescription{
		ProfileID: profileID,
		ThreadID:  store.NormalizeThreadID(threadID),
		Text:      cleaned,
		Excerpt:   textutil.MakeExcerpt(cleaned, JobDescriptionExcerptLength),
		StoredAt:  s.now(),
	}
	if err := s.letters.SaveJobDescription(ctx, jd); err != nil {
		return fmt.Errorf("saving job description: %w", err)
	}
	return nil
}

// LatestJobDescription returns the stored snapshot for a thread, or nil.
func (s *Service) LatestJobDescription(ctx context.Context, profileID, threadID string) (*models.JobDescription, error) {
	jd, err := s.letters.JobDescription(ctx, profileID, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading job description: %w", err)
	}
	return jd, nil
}

// SelectResumeUpload picks the best resume candidate among a profile's
// uploads: filenames mentioning resume/cv win over PDF mime types, which win
// over anything else; ties go to the most recent upload.
func (s *Service) SelectResumeUpload(ctx context.Context, profileID string) (*models.Upload, error) {
	uploads, err := s.uploads.UploadsForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	if len(uploads) == 0 {
		return nil, nil
	}

	best := uploads[0]
	for _, u := range uploads[1:] {
		if better(u, best) {
			best = u
		}
	}
	return &best, nil
}

func better(a, b models.Upload) bool {
	pa, pb := resumePriority(a), resumePriority(b)
	if pa != pb {
		return pa > pb
	}
	return a.UploadedAt.After(b.UploadedAt)
}

func resumePriority(u models.Upload) int {
	name := strings.ToLower(u.Name)
	if strings.Contains(name, "resume") || strings.Contains(name, "cv") {
		return 2
	}
	if strings.ToLower(u.MimeType) == "application/pdf" {
		return 1
	}
	return 0
}

// HasUploads reports whether a profile has any files on record.
func (s *Service) HasUploads(ctx context.Context, profileID string) (bool, error) {
	uploads, err := s.uploads.UploadsForProfile(ctx, profileID)
	if err != nil {
		return false, fmt.Errorf("listing uploads: %w", err)
	}
	return len(uploads) > 0, nil
}

// FollowUpText returns the reminder appended after a draft reply, listing
// still-unfilled placeholder keys when any remain.
func FollowUpText(missing []string) string {
	if len(missing) == 0 {
		return ReadyFollowUp
	}
	return fmt.Sprintf("\n\nI still need the following details before the PDF is ready: %s.", strings.Join(missing, ", "))
}

// FallbackReply is the deterministic response used when the language model
// is unavailable or failed.
func FallbackReply(shouldDraft, hasAttachments, hasJobDescription bool) string {
	if shouldDraft {
		second := "Upload your resume to help me personalize the cover letter."
		if hasAttachments {
			second = "I'll incorporate your uploaded materials while drafting the letter."
		}
		return "Working on your cover letter request.\n" + second
	}

	lines := []string{
		"Hi! I'm ApplyWise, your cover letter co-pilot.",
		"Share a job description when you're ready and I'll draft a tailored cover letter for you.",
	}
	if hasAttachments {
		lines = append(lines, "I have your materials; send the job details or ask for tips when you're ready.")
	} else {
		lines = append(lines, "You can upload your resume for more personalization.")
	}
	if hasJobDescription {
		lines = append(lines, "I've saved the role details you shared; just tell me when to start drafting.")
	}
	return strings.Join(lines, "\n")
}

// Conversational lead-ins the model sometimes emits despite instructions to
// output only the letter text.
var responsePrefixes = []string{
	"here is your cover letter:",
	"here's your cover letter:",
	"here is the cover letter:",
	"here's the cover letter:",
	"here is your revised cover letter:",
	"here's your revised cover letter:",
	"here is the revised cover letter:",
	"here's the revised cover letter:",
	"i've drafted this cover letter:",
	"i've created this cover letter:",
	"here is a cover letter:",
	"here's a cover letter:",
	"below is your cover letter:",
	"below is the cover letter:",
}

// CleanDraftResponse strips a single conversational prefix from model output
// so only the letter body is stored.
func CleanDraftResponse(text string) string {
	lower := strings.ToLower(text)
	for _, prefix := range responsePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimLeft(text[len(prefix):], " \t\r\n")
		}
	}
	return text
}
