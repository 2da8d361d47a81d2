package server

import (
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/applywise/applywise/internal/chat"
	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/pdf"
	"github.com/applywise/applywise/internal/placeholder"
	"github.com/applywise/applywise/internal/session"
	"github.com/applywise/applywise/internal/store"
	"github.com/applywise/applywise/internal/textutil"
)

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Auth

type requestCodeBody struct {
	ProfileID string `json:"profileId"`
	Code      string `json:"code"`
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var body requestCodeBody
	_ = decodeJSON(r, &body)

	provided := body.ProfileID
	if provided == "" {
		provided = body.Code
	}

	code, expiresAt, err := s.sessions.RequestCode(r.Context(), provided)
	if err != nil {
		log.Printf("requesting code: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to issue code.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":      code,
		"profileId": code,
		"expiresAt": millis(expiresAt),
	})
}

type verifyBody struct {
	Code string `json:"code"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	_ = decodeJSON(r, &body)

	if strings.TrimSpace(body.Code) == "" {
		writeError(w, http.StatusBadRequest, "Code is required.")
		return
	}

	sess, err := s.sessions.Verify(r.Context(), body.Code)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCode) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired code.")
			return
		}
		log.Printf("verifying code: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify code.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.Token,
		"profileId": sess.ProfileID,
		"expiresAt": millis(sess.ExpiresAt),
	})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.Token,
		"profileId": sess.ProfileID,
		"expiresAt": millis(sess.ExpiresAt),
	})
}

// Chat

type chatBody struct {
	Message  string   `json:"message"`
	FileIDs  []string `json:"fileIds"`
	ThreadID string   `json:"threadId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var body chatBody
	_ = decodeJSON(r, &body)
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing 'message' in request body.")
		return
	}

	result, err := s.chat.Turn(r.Context(), sess, chat.Input{
		Message:  body.Message,
		FileIDs:  body.FileIDs,
		ThreadID: body.ThreadID,
	})
	if err != nil {
		log.Printf("processing chat turn: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	payload := map[string]any{
		"reply":              result.Reply,
		"attachments":        attachmentsOrEmpty(result.Attachments),
		"coverLetterId":      nullableString(result.CoverLetterID),
		"downloads":          downloadsOrEmpty(result.Downloads),
		"assistantMessageId": nullableString(result.AssistantMessageID),
	}
	if result.Model != "" {
		payload["model"] = result.Model
	}
	if result.Usage != nil {
		payload["usage"] = result.Usage
	}
	if result.ErrCode != "" {
		payload["error"] = result.ErrCode
	}
	if result.ErrDetails != "" {
		payload["details"] = result.ErrDetails
	}
	writeJSON(w, result.Status, payload)
}

func attachmentsOrEmpty(in []chat.Attachment) []chat.Attachment {
	if in == nil {
		return []chat.Attachment{}
	}
	return in
}

func downloadsOrEmpty(in []chat.Download) []chat.Download {
	if in == nil {
		return []chat.Download{}
	}
	return in
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type feedbackBody struct {
	MessageID string `json:"messageId"`
	Feedback  string `json:"feedback"`
	Comment   string `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var body feedbackBody
	_ = decodeJSON(r, &body)

	messageID := strings.TrimSpace(body.MessageID)
	if messageID == "" {
		writeError(w, http.StatusBadRequest, "Missing 'messageId' in request body.")
		return
	}

	feedback := strings.ToLower(strings.TrimSpace(body.Feedback))
	switch feedback {
	case "up", "down", "none":
	default:
		writeError(w, http.StatusBadRequest, "Invalid 'feedback' value. Use 'up', 'down', or 'none'.")
		return
	}
	if feedback == "none" {
		feedback = ""
	}
	comment := strings.TrimSpace(body.Comment)

	err := s.store.SetFeedback(r.Context(), sess.ProfileID, messageID, feedback, comment)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Message not found or not eligible for feedback.")
		return
	}
	if err != nil {
		log.Printf("recording feedback: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to record feedback.")
		return
	}

	payload := map[string]any{"message": "Feedback recorded."}
	if feedback == "" {
		payload["feedback"] = nil
	} else {
		fb := map[string]any{"status": feedback}
		if comment != "" {
			fb["comment"] = comment
		}
		payload["feedback"] = fb
	}
	writeJSON(w, http.StatusOK, payload)
}

type messageView struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"threadId"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Feedback  string         `json:"feedback,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	CreatedAt int64          `json:"createdAt"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	threadID := r.URL.Query().Get("threadId")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := s.store.RecentMessages(r.Context(), sess.ProfileID, threadID, limit)
	if err != nil {
		log.Printf("retrieving chat history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve chat history.")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, messageView{
			ID:        msg.ID,
			ThreadID:  msg.ThreadID,
			Role:      msg.Role,
			Content:   msg.Content,
			Metadata:  msg.Metadata,
			Feedback:  msg.Feedback,
			Comment:   msg.Comment,
			CreatedAt: millis(msg.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

type threadView struct {
	ThreadID     string `json:"threadId"`
	Title        string `json:"title,omitempty"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	threads, err := s.store.Threads(r.Context(), sess.ProfileID)
	if err != nil {
		log.Printf("retrieving chat threads: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve chat threads.")
		return
	}

	views := make([]threadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, threadView{
			ThreadID:     t.ThreadID,
			Title:        t.Title,
			MessageCount: t.MessageCount,
			CreatedAt:    millis(t.CreatedAt),
			UpdatedAt:    millis(t.UpdatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": views})
}

type threadTitleBody struct {
	Title string `json:"title"`
}

func (s *Server) handleUpdateThread(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	threadID := r.PathValue("id")
	var body threadTitleBody
	_ = decodeJSON(r, &body)
	if strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid 'title' in request body.")
		return
	}

	if err := s.store.SetThreadTitle(r.Context(), sess.ProfileID, threadID, body.Title); err != nil {
		log.Printf("updating thread metadata: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update thread metadata.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Thread metadata updated.",
		"threadId": threadID,
		"title":    body.Title,
	})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.DeleteThread(r.Context(), sess.ProfileID, r.PathValue("id"))
	if err != nil {
		log.Printf("deleting chat thread: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete chat thread.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"message": "Deleted " + strconv.FormatInt(deleted, 10) + " messages.",
	})
}

func (s *Server) handleDeleteAllHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.DeleteAllHistory(r.Context(), sess.ProfileID)
	if err != nil {
		log.Printf("deleting chat history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete chat history.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"message": "Deleted " + strconv.FormatInt(deleted, 10) + " total messages.",
	})
}

// Uploads

type uploadView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mimeType"`
	UploadedAt int64  `json:"uploadedAt"`
	HasText    bool   `json:"hasText"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or oversized upload.")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded.")
		return
	}

	var uploaded []uploadView
	for _, header := range files {
		if header.Filename == "" {
			continue
		}
		f, err := header.Open()
		if err != nil {
			log.Printf("opening multipart file: %v", err)
			continue
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.Printf("reading multipart file: %v", err)
			continue
		}

		mimeType := header.Header.Get("Content-Type")
		contents := base64.StdEncoding.EncodeToString(raw)
		text := textutil.ExtractUploadText(raw, header.Filename, mimeType)
		excerpt := textutil.MakeExcerpt(text, 0)
		if excerpt == "" {
			excerpt = textutil.SafeTextPreview(contents, 0)
		}

		record := models.Upload{
			ID:          session.GenerateToken("file"),
			ProfileID:   sess.ProfileID,
			Name:        header.Filename,
			Size:        int64(len(raw)),
			MimeType:    mimeType,
			Contents:    contents,
			Text:        text,
			TextExcerpt: excerpt,
			UploadedAt:  time.Now(),
		}
		if err := s.store.SaveUpload(r.Context(), record); err != nil {
			log.Printf("saving upload %s: %v", record.Name, err)
			continue
		}
		uploaded = append(uploaded, uploadView{
			ID:         record.ID,
			Name:       record.Name,
			Size:       record.Size,
			MimeType:   record.MimeType,
			UploadedAt: millis(record.UploadedAt),
			HasText:    record.Text != "",
		})
	}

	if len(uploaded) == 0 {
		writeError(w, http.StatusBadRequest, "No valid files provided.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": uploaded})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	uploads, err := s.store.UploadsForProfile(r.Context(), sess.ProfileID)
	if err != nil {
		log.Printf("listing uploads: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list files.")
		return
	}

	views := make([]uploadView, 0, len(uploads))
	for _, u := range uploads {
		views = append(views, uploadView{
			ID:         u.ID,
			Name:       u.Name,
			Size:       u.Size,
			MimeType:   u.MimeType,
			UploadedAt: millis(u.UploadedAt),
			HasText:    u.Text != "",
		})
	}
	// Most recent first.
	sort.Slice(views, func(i, j int) bool { return views[i].UploadedAt > views[j].UploadedAt })
	writeJSON(w, http.StatusOK, map[string]any{"files": views})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	record, err := s.store.Upload(r.Context(), sess.ProfileID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	if err != nil {
		log.Printf("loading upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load file.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          record.ID,
		"name":        record.Name,
		"size":        record.Size,
		"mimeType":    record.MimeType,
		"contents":    record.Contents,
		"uploadedAt":  millis(record.UploadedAt),
		"text":        nullableString(record.Text),
		"textExcerpt": nullableString(record.TextExcerpt),
	})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteUpload(r.Context(), sess.ProfileID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	if err != nil {
		log.Printf("deleting upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete file.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Cover letters

func (s *Server) handleCoverLetterPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	letterID := r.PathValue("id")
	record, err := s.letters.Draft(r.Context(), sess.ProfileID, letterID)
	if err != nil {
		log.Printf("loading cover letter: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load cover letter.")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Cover letter not found.")
		return
	}

	if missing := placeholder.FindUnknown(record.Text); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":         "cover_letter_missing_info",
			"message":       "Please provide the following details before downloading a PDF: " + strings.Join(missing, ", ") + ".",
			"missingFields": missing,
		})
		return
	}

	data, err := pdf.RenderCoverLetter(*record)
	if err != nil {
		log.Printf("rendering cover letter pdf: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to render PDF.")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="cover-letter-`+letterID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("writing pdf response: %v", err)
	}
}

// Admin

func (s *Server) handleAdminWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.store.WorkspaceSummaries(r.Context())
	if err != nil {
		log.Printf("listing workspaces: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list workspaces.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspaces":  workspaces,
		"total_count": len(workspaces),
	})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("collecting stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to collect stats.")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
