// Package chat sequences a conversational turn: classify the message,
// consult stored letter and job-description state, call the completion
// service or placeholder engine, and produce the reply plus side effects.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/applywise/applywise/internal/intent"
	"github.com/applywise/applywise/internal/letter"
	"github.com/applywise/applywise/internal/llm"
	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/pdf"
	"github.com/applywise/applywise/internal/placeholder"
	"github.com/applywise/applywise/internal/store"
	"github.com/applywise/applywise/internal/textutil"
)

const (
	reviewMaxTokens    = 1500
	historyLimit       = 20
	historyLineLimit   = 500
	adviceLookback     = 5
	errCodeUnavailable = "openai_unavailable"
)

// Attachment describes an upload referenced by the current message.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	HasText  bool   `json:"hasText"`
}

// Download is a rendered artifact returned inline with the reply.
type Download struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Result is the logical reply payload for one turn.
type Result struct {
	Status             int
	Reply              string
	Attachments        []Attachment
	CoverLetterID      string
	Downloads          []Download
	AssistantMessageID string
	Model              string
	Usage              *llm.Usage
	ErrCode            string
	ErrDetails         string
}

// Input is one inbound chat message with its selected uploads.
type Input struct {
	Message  string
	FileIDs  []string
	ThreadID string
}

// Orchestrator owns the turn-processing state machine.
type Orchestrator struct {
	letters   *letter.Service
	uploads   store.UploadStore
	history   store.HistoryStore
	completer llm.Completer
}

func NewOrchestrator(letters *letter.Service, uploads store.UploadStore, history store.HistoryStore, completer llm.Completer) *Orchestrator {
	return &Orchestrator{letters: letters, uploads: uploads, history: history, completer: completer}
}

// Turn processes one chat message end to end. Errors are reserved for
// storage failures; every model/classifier outcome maps to a Result.
func (o *Orchestrator) Turn(ctx context.Context, session models.Session, in Input) (Result, error) {
	message := strings.TrimSpace(in.Message)
	profileID := session.ProfileID
	threadID := store.NormalizeThreadID(in.ThreadID)

	attachments, previews := o.collectAttachments(ctx, profileID, in.FileIDs)

	var contact models.ContactInfo
	resume, err := o.letters.SelectResumeUpload(ctx, profileID)
	if err != nil {
		return Result{}, err
	}
	if resume != nil && resume.Text != "" {
		contact = textutil.ExtractContactInfo(resume.Text)
	}

	hasUploads, err := o.letters.HasUploads(ctx, profileID)
	if err != nil {
		return Result{}, err
	}

	if _, err := o.history.AppendMessage(ctx, models.ChatMessage{
		ProfileID:  profileID,
		AccessCode: session.AccessCode,
		ThreadID:   threadID,
		Role:       "user",
		Content:    message,
		Metadata:   map[string]any{"file_ids": in.FileIDs, "attachments": attachments},
		CreatedAt:  time.Now(),
	}); err != nil {
		log.Printf("chat: saving user message: %v", err)
	}

	inResumeAdviceMode := o.resumeAdviceMode(ctx, profileID, threadID)

	jd, err := o.letters.LatestJobDescription(ctx, profileID, threadID)
	if err != nil {
		return Result{}, err
	}
	active, err := o.letters.LatestDraft(ctx, profileID, threadID)
	if err != nil {
		return Result{}, err
	}

	var tokens map[string][]string
	var availableKeys []string
	if active != nil {
		tokens = placeholder.CollectTokens(active.Text)
		for key := range tokens {
			availableKeys = append(availableKeys, key)
		}
		sort.Strings(availableKeys)
	}
	adjustmentRequested := active != nil && intent.LooksLikeLetterAdjustment(message)

	pc := promptContext{
		contact:     contact,
		attachments: attachments,
		previews:    previews,
	}
	if jd != nil {
		pc.jobDescription = jd.Text
	}

	if target := intent.DetectPDFRequest(message); target != intent.PDFNone {
		return o.handlePDFRequest(ctx, session, threadID, message, target, active, resume, jd, attachments, inResumeAdviceMode)
	}

	if intent.DetectResumeReview(message) {
		return o.handleResumeReview(ctx, session, threadID, message, resume, jd, attachments, "")
	}

	signals := intent.DetectRequestSignals(message)

	if textutil.LooksLikeJobDescription(message) && !(signals.HasIntent || signals.RequestsCoverLetter || signals.RequestsResumeUpdate) {
		return o.captureJobDescription(ctx, session, threadID, message, attachments)
	}

	if !hasUploads {
		if signals.RequestsResumeUpdate {
			return Result{
				Status: http.StatusOK,
				Reply: "I cannot update your resume before you upload it on the right-hand side. " +
					"Please add a resume, portfolio, or previous cover letter so I have your background on file.",
				Attachments: attachments,
			}, nil
		}
		if signals.RequestsCoverLetter && active == nil {
			return Result{
				Status: http.StatusOK,
				Reply: "Are you sure you want me to make a cover letter when I do not have any of your previous work information on file? " +
					"Please upload a resume, portfolio, or previous cover letter so I can personalize the draft.",
				Attachments: attachments,
			}, nil
		}
	}

	if active != nil {
		updates := placeholder.ResolveUpdates(message, availableKeys, !adjustmentRequested)
		updated, replaced := placeholder.ApplyUpdates(active.Text, updates, tokens)
		if replaced {
			stored, err := o.letters.SaveDraft(ctx, profileID, threadID, updated, active.ID)
			if err != nil {
				return Result{}, err
			}
			return Result{
				Status:        http.StatusOK,
				Reply:         stored.Text + letter.FollowUpText(placeholder.FindUnknown(stored.Text)),
				Attachments:   attachments,
				CoverLetterID: stored.ID,
			}, nil
		}
	}

	if adjustmentRequested {
		pc.history = o.conversationHistory(ctx, profileID, threadID)
		return o.handleAdjustment(ctx, session, threadID, message, active, attachments, pc)
	}

	pc.history = o.conversationHistory(ctx, profileID, threadID)
	return o.handleDraftOrConverse(ctx, session, threadID, message, signals, active, jd, attachments, pc)
}

func (o *Orchestrator) collectAttachments(ctx context.Context, profileID string, fileIDs []string) ([]Attachment, []string) {
	var attachments []Attachment
	var previews []string
	for _, id := range fileIDs {
		if id == "" {
			continue
		}
		record, err := o.uploads.Upload(ctx, profileID, id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("chat: loading upload %s: %v", id, err)
			}
			continue
		}
		attachments = append(attachments, Attachment{
			ID:       record.ID,
			Name:     record.Name,
			Size:     record.Size,
			MimeType: record.MimeType,
			HasText:  record.Text != "",
		})
		preview := record.TextExcerpt
		if preview == "" {
			preview = textutil.SafeTextPreview(record.Contents, 0)
		}
		if preview != "" {
			previews = append(previews, fmt.Sprintf("From %s: %s", record.Name, preview))
		}
	}
	return attachments, previews
}

// resumeAdviceMode checks whether the most recent assistant message in the
// thread carried a resume-review flag. History failures leave the mode off
// so PDF export stays available.
func (o *Orchestrator) resumeAdviceMode(ctx context.Context, profileID, threadID string) bool {
	recent, err := o.history.RecentMessages(ctx, profileID, threadID, adviceLookback)
	if err != nil {
		log.Printf("chat: could not determine resume advice mode: %v", err)
		return false
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != "assistant" {
			continue
		}
		if flag, ok := recent[i].Metadata["resume_review"].(bool); ok && flag {
			return true
		}
		return false
	}
	return false
}

func (o *Orchestrator) conversationHistory(ctx context.Context, profileID, threadID string) []string {
	messages, err := o.history.RecentMessages(ctx, profileID, threadID, historyLimit)
	if err != nil {
		log.Printf("chat: could not retrieve conversation history: %v", err)
		return nil
	}
	var lines []string
	for _, msg := range messages {
		content := msg.Content
		if len(content) > historyLineLimit {
			content = content[:historyLineLimit]
		}
		lines = append(lines, strings.ToUpper(msg.Role)+": "+content)
	}
	return lines
}

func (o *Orchestrator) saveAssistant(ctx context.Context, session models.Session, threadID, content string, metadata map[string]any) string {
	id, err := o.history.AppendMessage(ctx, models.ChatMessage{
		ProfileID:  session.ProfileID,
		AccessCode: session.AccessCode,
		ThreadID:   threadID,
		Role:       "assistant",
		Content:    content,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("chat: saving assistant message: %v", err)
		return ""
	}
	return id
}

func (o *Orchestrator) handlePDFRequest(
	ctx context.Context,
	session models.Session,
	threadID, message string,
	target intent.PDFTarget,
	active *models.CoverLetter,
	resume *models.Upload,
	jd *models.JobDescription,
	attachments []Attachment,
	inResumeAdviceMode bool,
) (Result, error) {
	if inResumeAdviceMode && target == intent.PDFCoverLetter && active == nil {
		reply := "While we're working on resume feedback, I won't create PDFs. " +
			"I can generate PDFs for cover letters—ask me to draft a cover letter when you're ready."
		msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"pdf_request_blocked_in_resume_mode": true})
		return Result{Status: http.StatusOK, Reply: reply, Attachments: attachments, AssistantMessageID: msgID}, nil
	}

	if target == intent.PDFCoverLetter {
		if active == nil {
			reply := "I'll create a cover letter for you first, then generate the PDF. " +
				"Please share the job description and company name so I can draft it."
			msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"pdf_requested": true, "needs_draft": true})
			return Result{Status: http.StatusOK, Reply: reply, Attachments: attachments, AssistantMessageID: msgID}, nil
		}

		if missing := placeholder.FindUnknown(active.Text); len(missing) > 0 {
			reply := fmt.Sprintf(
				"I'll generate your PDF as soon as you provide: %s. Please share these details and I'll create the PDF immediately.",
				strings.Join(missing, ", "))
			msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"pdf_requested": true, "missing_fields": missing})
			return Result{
				Status:             http.StatusOK,
				Reply:              reply,
				Attachments:        attachments,
				CoverLetterID:      active.ID,
				AssistantMessageID: msgID,
			}, nil
		}

		data, err := pdf.RenderCoverLetter(*active)
		if err != nil {
			log.Printf("chat: failed to render cover letter pdf: %v", err)
			reply := fmt.Sprintf(
				"I encountered a technical error while generating your PDF: %v\n\n"+
					"This is a temporary issue with the PDF rendering engine. "+
					"Please try again in a moment, or contact support if the problem persists.", err)
			msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"pdf_error": err.Error(), "pdf_type": "cover_letter"})
			return Result{
				Status:             http.StatusOK,
				Reply:              reply,
				Attachments:        attachments,
				CoverLetterID:      active.ID,
				AssistantMessageID: msgID,
				ErrCode:            "pdf_generation_failed",
			}, nil
		}

		reply := "Here is your PDF cover letter:"
		msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"pdf_generated": true, "pdf_type": "cover_letter"})
		return Result{
			Status:        http.StatusOK,
			Reply:         reply,
			Attachments:   attachments,
			CoverLetterID: active.ID,
			Downloads: []Download{{
				ID:       active.ID + "-pdf",
				Label:    "Cover Letter",
				Filename: "cover-letter-" + active.ID + ".pdf",
				MimeType: "application/pdf",
				Data:     base64.StdEncoding.EncodeToString(data),
			}},
			AssistantMessageID: msgID,
		}, nil
	}

	// Resume PDFs are not produced; offer a review instead.
	preface := "I don’t create PDFs for resumes yet—only for cover letters."
	return o.handleResumeReview(ctx, session, threadID, message, resume, jd, attachments, preface)
}

func (o *Orchestrator) handleResumeReview(
	ctx context.Context,
	session models.Session,
	threadID, message string,
	resume *models.Upload,
	jd *models.JobDescription,
	attachments []Attachment,
	preface string,
) (Result, error) {
	prefix := ""
	if preface != "" {
		prefix = preface + " "
	}

	if resume == nil {
		reply := prefix + "Please upload your resume using the file upload panel on the right, and I'll provide detailed feedback."
		if preface == "" {
			reply = "I'd be happy to review your resume! However, I don't see any resume uploaded yet. " +
				"Please upload your resume using the file upload panel on the right, and I'll provide detailed feedback."
		}
		msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"resume_review_requested": true, "needs_resume_upload": true})
		return Result{Status: http.StatusOK, Reply: reply, Attachments: attachments, AssistantMessageID: msgID}, nil
	}

	if resume.Text == "" {
		reply := fmt.Sprintf(
			"%sI found your resume file (%s), but I'm unable to extract text from it. "+
				"This might be an image-based PDF or a format I can't read. "+
				"Please try uploading a text-based PDF or Word document for me to review.", prefix, resume.Name)
		msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"resume_review_requested": true, "no_text_content": true})
		return Result{Status: http.StatusOK, Reply: reply, Attachments: attachments, AssistantMessageID: msgID}, nil
	}

	jdText := ""
	if jd != nil {
		jdText = jd.Text
	}
	completion, err := o.completer.Complete(ctx, buildReviewPrompt(message, resume.Text, jdText), reviewMaxTokens)
	if err != nil {
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			log.Printf("chat: upstream error during resume review: %v", err)
			reply := prefix + "I ran into an error while trying to review your resume. Please try again shortly."
			if preface == "" {
				reply = "I encountered an error while trying to review your resume. " +
					"Please try again in a moment. If the problem persists, please check your connection."
			}
			return Result{
				Status:      http.StatusBadGateway,
				Reply:       reply,
				Attachments: attachments,
				ErrCode:     "Upstream OpenAI request failed.",
				ErrDetails:  err.Error(),
			}, nil
		}
		log.Printf("chat: unexpected error during resume review: %v", err)
		reply := prefix + "I encountered an unexpected error while reviewing your resume. Please try again."
		return Result{
			Status:      http.StatusInternalServerError,
			Reply:       reply,
			Attachments: attachments,
			ErrCode:     "Unexpected error during resume review.",
			ErrDetails:  err.Error(),
		}, nil
	}

	review := strings.TrimSpace(completion.Text)
	if review == "" {
		review = "I've reviewed your resume, but I'm having trouble generating feedback at the moment. " +
			"Please try again, or feel free to ask specific questions about your resume."
	}
	review += "\n\nIf you'd like me to focus on any specific section or have questions about my feedback, just let me know!"

	reply := review
	metadata := map[string]any{"resume_review": true, "resume_file": resume.Name, "model": completion.Model}
	if preface != "" {
		reply = preface + "\n\n" + review
		metadata["resume_pdf_request_blocked"] = true
	}

	msgID := o.saveAssistant(ctx, session, threadID, reply, metadata)
	usage := completion.Usage
	return Result{
		Status:             http.StatusOK,
		Reply:              reply,
		Attachments:        attachments,
		AssistantMessageID: msgID,
		Model:              completion.Model,
		Usage:              &usage,
	}, nil
}

func (o *Orchestrator) captureJobDescription(
	ctx context.Context,
	session models.Session,
	threadID, message string,
	attachments []Attachment,
) (Result, error) {
	if err := o.letters.StoreJobDescription(ctx, session.ProfileID, threadID, message); err != nil {
		return Result{}, err
	}
	jd, err := o.letters.LatestJobDescription(ctx, session.ProfileID, threadID)
	if err != nil {
		return Result{}, err
	}

	reply := "Thanks for sharing the job description! I've saved it for you. " +
		"What would you like me to help you with?\n\n" +
		"• Say 'draft a cover letter' if you want me to create a tailored cover letter\n" +
		"• Say 'help with my resume' if you want resume advice for this role"
	if jd != nil && jd.Excerpt != "" {
		reply += "\n\nSaved highlight: " + jd.Excerpt
	}

	msgID := o.saveAssistant(ctx, session, threadID, reply, map[string]any{"job_description_saved": true})
	return Result{Status: http.StatusOK, Reply: reply, Attachments: attachments, AssistantMessageID: msgID}, nil
}

func (o *Orchestrator) handleAdjustment(
	ctx context.Context,
	session models.Session,
	threadID, message string,
	active *models.CoverLetter,
	attachments []Attachment,
	pc promptContext,
) (Result, error) {
	followUp := letter.FollowUpText(placeholder.FindUnknown(active.Text))

	completion, err := o.completer.Complete(ctx, buildAdjustmentPrompt(message, active.Text, pc), 0)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnavailable):
			return Result{
				Status:        http.StatusOK,
				Reply:         active.Text + followUp + "\n\nI couldn't reach OpenAI to apply that change. Please try again shortly.",
				Attachments:   attachments,
				CoverLetterID: active.ID,
				ErrCode:       errCodeUnavailable,
			}, nil
		case isUpstream(err):
			log.Printf("chat: upstream error during letter adjustment: %v", err)
			return Result{
				Status:        http.StatusBadGateway,
				Reply:         active.Text + followUp,
				Attachments:   attachments,
				CoverLetterID: active.ID,
				ErrCode:       "Upstream OpenAI request failed.",
				ErrDetails:    err.Error(),
			}, nil
		default:
			log.Printf("chat: unexpected error during letter adjustment: %v", err)
			return Result{
				Status:        http.StatusInternalServerError,
				Reply:         active.Text + followUp,
				Attachments:   attachments,
				CoverLetterID: active.ID,
				ErrCode:       "Unexpected error contacting OpenAI.",
				ErrDetails:    err.Error(),
			}, nil
		}
	}

	base := letter.CleanDraftResponse(strings.TrimSpace(completion.Text))
	if base == "" {
		base = active.Text
	}
	stored, err := o.letters.SaveDraft(ctx, session.ProfileID, threadID, base, active.ID)
	if err != nil {
		return Result{}, err
	}
	usage := completion.Usage
	return Result{
		Status:        http.StatusOK,
		Reply:         stored.Text + letter.FollowUpText(placeholder.FindUnknown(stored.Text)),
		Attachments:   attachments,
		CoverLetterID: stored.ID,
		Model:         completion.Model,
		Usage:         &usage,
	}, nil
}

func (o *Orchestrator) handleDraftOrConverse(
	ctx context.Context,
	session models.Session,
	threadID, message string,
	signals intent.RequestSignals,
	active *models.CoverLetter,
	jd *models.JobDescription,
	attachments []Attachment,
	pc promptContext,
) (Result, error) {
	shouldDraft := intent.ShouldDraftCoverLetter(message, len(attachments) > 0, signals.HasIntent, signals.RequestsCoverLetter)
	fallback := letter.FallbackReply(shouldDraft, len(attachments) > 0, jd != nil)
	followUp := ""
	if shouldDraft {
		followUp = letter.ReadyFollowUp
	}

	completion, err := o.completer.Complete(ctx, buildDraftPrompt(message, shouldDraft, pc), 0)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnavailable):
			base := "We hit an issue contacting OpenAI. Please check the server configuration.\n\n" + fallback
			return o.degradedDraftResult(ctx, session, threadID, base, shouldDraft, followUp, attachments, http.StatusOK, errCodeUnavailable, "")
		case isUpstream(err):
			log.Printf("chat: upstream error during chat request: %v", err)
			return o.degradedDraftResult(ctx, session, threadID, fallback, shouldDraft, followUp, attachments, http.StatusBadGateway, "Upstream OpenAI request failed.", err.Error())
		default:
			log.Printf("chat: unexpected error during chat request: %v", err)
			return o.degradedDraftResult(ctx, session, threadID, fallback, shouldDraft, followUp, attachments, http.StatusInternalServerError, "Unexpected error contacting OpenAI.", err.Error())
		}
	}

	base := strings.TrimSpace(completion.Text)
	if base == "" {
		base = fallback
	}

	// The model sometimes drafts a full letter even when the routing said
	// converse, typically after the user supplies requested details.
	appearsToBeLetter := textutil.AppearsToBeCoverLetter(base)

	var letterID string
	rendered := base
	if shouldDraft || appearsToBeLetter {
		stored, err := o.letters.SaveDraft(ctx, session.ProfileID, threadID, letter.CleanDraftResponse(base), "")
		if err != nil {
			return Result{}, err
		}
		letterID = stored.ID
		rendered = stored.Text + followUp
	}

	metadata := map[string]any{
		"letter_id":    letterID,
		"model":        completion.Model,
		"should_draft": shouldDraft,
	}
	if !shouldDraft {
		metadata["appears_to_be_letter"] = appearsToBeLetter
	}
	msgID := o.saveAssistant(ctx, session, threadID, rendered, metadata)

	usage := completion.Usage
	return Result{
		Status:             http.StatusOK,
		Reply:              rendered,
		Attachments:        attachments,
		CoverLetterID:      letterID,
		AssistantMessageID: msgID,
		Model:              completion.Model,
		Usage:              &usage,
	}, nil
}

// degradedDraftResult persists a fallback draft when the turn intended to
// draft, so the user still gets an editable letter shell.
func (o *Orchestrator) degradedDraftResult(
	ctx context.Context,
	session models.Session,
	threadID, baseText string,
	shouldDraft bool,
	followUp string,
	attachments []Attachment,
	status int,
	errCode, details string,
) (Result, error) {
	reply := baseText
	var letterID string
	if shouldDraft {
		stored, err := o.letters.SaveDraft(ctx, session.ProfileID, threadID, baseText, "")
		if err != nil {
			return Result{}, err
		}
		letterID = stored.ID
		reply = stored.Text + followUp
	}
	return Result{
		Status:        status,
		Reply:         reply,
		Attachments:   attachments,
		CoverLetterID: letterID,
		ErrCode:       errCode,
		ErrDetails:    details,
	}, nil
}

func isUpstream(err error) bool {
	var upstream *llm.UpstreamError
	return errors.As(err, &upstream)
}
