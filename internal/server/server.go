package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"aria-access-backend/internal/agent"
	"aria-access-backend/internal/config"
	"aria-access-backend/internal/db"
	"aria-access-backend/internal/normalize"
	"aria-access-backend/internal/relay"
	"aria-access-backend/internal/store"
	"aria-access-backend/internal/tools"
	"aria-access-backend/internal/types"
)

const transcriptLimit = 40

type Server struct {
	router       *chi.Mux
	cfg          config.Config
	log          *zap.Logger
	registry     *relay.Registry
	invoker      *relay.Invoker
	toolbox      *tools.Registry
	memory       *store.MemoryStore
	prefs        *store.FilePreferencesStore
	database     *db.DB
	interactions *store.InteractionStore
}

func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	profiles, err := agent.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent profiles: %w", err)
	}
	client := agent.NewClient(cfg.OpenAIAPIKey, profiles, agent.Options{
		Model:       cfg.Model,
		STTModel:    cfg.STTModel,
		IdleTimeout: cfg.SessionIdleTimeout,
	}, log)

	registry := relay.NewRegistry(client.Opener(), log)
	invoker := relay.NewInvoker(client.Opener(), log)
	memory := store.NewMemoryStore(transcriptLimit)
	prefs := store.NewFilePreferencesStore(cfg.DataDir)

	var database *db.DB
	var interactions *store.InteractionStore
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.RunMigrations("./migrations"); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		interactions = store.NewInteractionStore(database)
		log.Info("database connection established")
	} else {
		log.Info("DB_URL not provided, interaction audit disabled")
	}

	interpreter := normalize.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return client.Generate(ctx, agent.ProfileFormInterpreter, prompt)
	})

	toolbox := tools.NewRegistry()
	toolbox.Register("text_to_speech", tools.TextToSpeech{})
	toolbox.Register("speech_to_instructions", tools.SpeechToInstructions{Invoker: invoker, Memory: memory})
	toolbox.Register("ai_alt_text", tools.AIAltText{})
	toolbox.Register("adaptive_css", tools.AdaptiveCSS{Prefs: prefs})
	toolbox.Register("semantic_search", tools.SemanticSearch{})
	toolbox.Register("text_simplification", tools.TextSimplification{})
	toolbox.Register("form_interpreter", tools.FormInterpreter{Generator: interpreter, Memory: memory})

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:       r,
		cfg:          cfg,
		log:          log,
		registry:     registry,
		invoker:      invoker,
		toolbox:      toolbox,
		memory:       memory,
		prefs:        prefs,
		database:     database,
		interactions: interactions,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/tools", s.handleToolList)
	s.router.Post("/api/tools/{toolID}/process", s.handleToolProcess)
	s.router.Get("/api/sessions/history", s.handleSessionHistory)
	s.router.Get("/api/sessions/interactions", s.handleSessionInteractions)
	s.router.Post("/api/sessions/clear", s.handleSessionClear)
	// live agent sessions
	s.router.Get("/api/agents/{kind}/{userID}/events", s.handleAgentEvents)
	s.router.Post("/api/agents/{kind}/{userID}/send", s.handleAgentSend)
	s.router.Delete("/api/agents/{kind}/{userID}", s.handleAgentClose)
}

func (s *Server) Router() http.Handler { return s.router }

// Close tears down every live session and releases shared resources. Called
// once at process shutdown.
func (s *Server) Close() {
	s.registry.CloseAll()
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			s.log.Warn("database close failed", zap.Error(err))
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return fmt.Sprintf("s_%d", time.Now().UnixNano())
}

// getSessionID retrieves the session ID from cookie, header, or query param.
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or mints a new one,
// setting the cookie.
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		SetSessionCookie(w, sid)
	}
	return sid
}
