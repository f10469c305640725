package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/agent"
	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/auth"
	"github.com/skygkruger/vaultagent-sub000/internal/ratelimit"
	"github.com/skygkruger/vaultagent-sub000/internal/storage"
)

type Server struct {
	cfg Config

	mux    *http.ServeMux
	logger *log.Logger
	signer *auth.JWTSigner

	accounts   auth.AccountStore
	vaults     storage.VaultStore
	sessions   storage.SessionStore
	auditStore storage.AuditStore
	recorder   *audit.Recorder
	agent      *agent.Service
	limiter    ratelimit.Limiter

	mongo *storage.Mongo
	now   func() time.Time
}

// New connects to Mongo and assembles a production server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.setDefaults()
	if cfg.MongoURI == "" {
		return nil, errors.New("server: MongoURI required")
	}
	if cfg.MongoDB == "" {
		return nil, errors.New("server: MongoDB required")
	}

	m, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}

	accounts, err := auth.NewMongoAccountStore(ctx, m.Client(), cfg.MongoDB, cfg.AccountsCollection)
	if err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	s, err := newServer(cfg, accounts, m, m, m, ratelimit.NewInProcess(time.Hour))
	if err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	s.mongo = m
	return s, nil
}

// newServer wires a server from parts. Tests assemble it with in-memory
// stores.
func newServer(cfg Config, accounts auth.AccountStore, vaults storage.VaultStore, sessions storage.SessionStore, auditStore storage.AuditStore, limiter ratelimit.Limiter) (*Server, error) {
	cfg.setDefaults()

	priv, _, err := auth.GenerateEd25519()
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	recorder := audit.NewRecorder(auditStore, logger)

	s := &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		logger:     logger,
		signer:     auth.NewJWTSigner(priv, cfg.JWTIssuer, cfg.TokenTTL),
		accounts:   accounts,
		vaults:     vaults,
		sessions:   sessions,
		auditStore: auditStore,
		recorder:   recorder,
		agent:      agent.NewService(vaults, sessions, recorder, logger),
		limiter:    limiter,
		now:        time.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") && !s.isPublic(path) {
		handler := auth.AuthRequired(s.signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		}))
		handler.ServeHTTP(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler { return s }

// Close flushes in-flight audit appends and releases storage.
func (s *Server) Close(ctx context.Context) error {
	s.recorder.Flush()
	if s.mongo != nil {
		return s.mongo.Close(ctx)
	}
	return nil
}

// Agent endpoints authenticate with the va_sess_ bearer token inside their
// handlers, not with a dashboard JWT.
func (s *Server) isPublic(path string) bool {
	if strings.HasPrefix(path, "/api/agent/") {
		return true
	}
	switch path {
	case "/health", "/api/health", "/api/login", "/api/signup":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
}
