package twin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"
)

// DefaultDomains are served when Config.Domains is empty.
var DefaultDomains = []string{"moemail.app"}

// Config configures a Server.
type Config struct {
	// Domains mailboxes may be created under.
	Domains []string
	// APIKey, when set, is required in the X-API-Key header of /api requests.
	APIKey string
	// Store defaults to a fresh MemoryStore.
	Store Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string
}

// Server is the fake provider's HTTP handler.
type Server struct {
	store   Store
	domains []string
	apiKey  string
	logger  *slog.Logger
	router  chi.Router
	now     func() time.Time

	mu       sync.Mutex
	requests []string
}

// New builds a Server from cfg.
func New(cfg Config) *Server {
	s := &Server{
		store:   cfg.Store,
		domains: cleanDomains(cfg.Domains),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		logger:  cfg.Logger,
		now:     time.Now,
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.domains) == 0 {
		s.domains = DefaultDomains
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(c.Handler)
	r.Use(s.requestLog)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.apiKeyAuth)
		r.Get("/config", s.handleConfig)
		r.Post("/emails/generate", s.handleGenerate)
		r.Get("/emails/{id}", s.handleList)
		r.Get("/emails/{id}/{messageId}", s.handleMessage)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/reset", s.handleReset)
		r.Post("/emails/{id}/messages", s.handleDeliver)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Domains returns the domains the server accepts.
func (s *Server) Domains() []string {
	return append([]string(nil), s.domains...)
}

// Requests returns "METHOD path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Deliver stores a message in the mailbox, filling in its id, mailbox
// and receive time when unset.
func (s *Server) Deliver(ctx context.Context, mailboxID string, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	msg.MailboxID = mailboxID
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now().UTC()
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return Message{}, err
	}
	s.logger.Info("message delivered", "mailbox", mailboxID, "message", msg.ID)
	return msg, nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"emailDomains": strings.Join(s.domains, ","),
		"defaultRole":  "CIVILIAN",
	})
}

type generateRequest struct {
	Name       string `json:"name"`
	ExpiryTime int64  `json:"expiryTime"`
	Domain     string `json:"domain"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		name = strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	}
	if strings.ContainsAny(name, "@ \t\r\n") {
		writeError(w, http.StatusBadRequest, "Invalid email name")
		return
	}

	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain == "" {
		domain = s.domains[0]
	}
	if !s.acceptsDomain(domain) {
		writeError(w, http.StatusBadRequest, "Invalid domain")
		return
	}
	if req.ExpiryTime < 0 {
		writeError(w, http.StatusBadRequest, "Invalid expiry time")
		return
	}

	now := s.now().UTC()
	mb := Mailbox{
		ID:        uuid.NewString(),
		Address:   name + "@" + domain,
		CreatedAt: now,
	}
	if req.ExpiryTime > 0 {
		mb.ExpiresAt = now.Add(time.Duration(req.ExpiryTime) * time.Millisecond)
	}

	switch err := s.store.CreateMailbox(r.Context(), mb); {
	case errors.Is(err, ErrAddressTaken):
		writeError(w, http.StatusConflict, "Email address already exists")
		return
	case err != nil:
		s.logger.Error("create mailbox", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create email")
		return
	}

	s.logger.Info("mailbox created", "address", mb.Address, "id", mb.ID)
	writeJSON(w, http.StatusOK, map[string]string{"email": mb.Address, "id": mb.ID})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(msgs))
	for _, msg := range msgs {
		entry := messageJSON(msg)
		delete(entry, "html")
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":   entries,
		"nextCursor": nil,
		"total":      len(entries),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.store.GetMessage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "messageId"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": messageJSON(msg)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		s.logger.Error("reset", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset")
		return
	}
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type deliverRequest struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" && req.HTML == "" {
		writeError(w, http.StatusBadRequest, "Message needs text or html")
		return
	}

	msg, err := s.Deliver(r.Context(), chi.URLParam(r, "id"), Message{
		From:    req.From,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": msg.ID})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.logger.Error("store", "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) acceptsDomain(domain string) bool {
	for _, d := range s.domains {
		if d == domain {
			return true
		}
	}
	return false
}

// messageJSON renders a message the way the provider does. Text goes out
// as "content", and absent bodies are omitted.
func messageJSON(msg Message) map[string]any {
	received := msg.ReceivedAt.UTC().Format(time.RFC3339Nano)
	m := map[string]any{
		"id":           msg.ID,
		"from_address": msg.From,
		"subject":      msg.Subject,
		"createdAt":    received,
		"receivedAt":   received,
	}
	if msg.Text != "" {
		m["content"] = msg.Text
	}
	if msg.HTML != "" {
		m["html"] = msg.HTML
	}
	return m
}

func cleanDomains(domains []string) []string {
	var out []string
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
