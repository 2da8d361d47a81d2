// Package server exposes the JSON API: auth, chat, uploads, cover letter
// export, chat history, and admin counters.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/applywise/applywise/internal/chat"
	"github.com/applywise/applywise/internal/letter"
	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/session"
	"github.com/applywise/applywise/internal/store"
)

// maxUploadBytes caps a single upload request body.
const maxUploadBytes = 5 << 20

type Server struct {
	store    store.Store
	sessions *session.Service
	letters  *letter.Service
	chat     *chat.Orchestrator
	httpSrv  *http.Server
	ln       net.Listener
	addr     string
}

func New(st store.Store, sessions *session.Service, letters *letter.Service, orchestrator *chat.Orchestrator) *Server {
	s := &Server{
		store:    st,
		sessions: sessions,
		letters:  letters,
		chat:     orchestrator,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/request-code", s.handleRequestCode)
	mux.HandleFunc("POST /api/auth/verify", s.handleVerify)
	mux.HandleFunc("GET /api/auth/session", s.handleSessionInfo)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/chat/history", s.handleHistory)
	mux.HandleFunc("GET /api/chat/threads", s.handleThreads)
	mux.HandleFunc("PUT /api/chat/threads/{id}", s.handleUpdateThread)
	mux.HandleFunc("DELETE /api/chat/history/{id}", s.handleDeleteThread)
	mux.HandleFunc("DELETE /api/chat/history", s.handleDeleteAllHistory)

	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("GET /api/uploads", s.handleListUploads)
	mux.HandleFunc("GET /api/uploads/{id}", s.handleGetUpload)
	mux.HandleFunc("DELETE /api/uploads/{id}", s.handleDeleteUpload)

	mux.HandleFunc("POST /api/cover-letters/{id}/pdf", s.handleCoverLetterPDF)

	mux.HandleFunc("GET /api/admin/workspaces", s.handleAdminWorkspaces)
	mux.HandleFunc("GET /api/admin/stats", s.handleAdminStats)

	s.httpSrv = &http.Server{Handler: withCORS(mux)}
	return s
}

// withCORS answers preflight requests and tags API responses so a separately
// hosted frontend can call the service.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Listen binds the server to addr. Call Serve to start handling requests.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

// Serve starts handling HTTP requests. Blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.httpSrv.Shutdown(context.Background())
	}()

	fmt.Printf("ApplyWise running at http://%s\n", s.addr)
	fmt.Println("Press Ctrl+C to stop.")

	if err := s.httpSrv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	fmt.Println("\nShutting down...")
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

// Handler exposes the routing stack for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// requireSession resolves the Bearer token; on failure it writes the 401 and
// returns ok=false.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "Missing authorization token.")
		return models.Session{}, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	sess, err := s.sessions.Validate(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session.")
		} else {
			log.Printf("validating session: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error.")
		}
		return models.Session{}, false
	}
	return sess, true
}
