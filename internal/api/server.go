// Package api provides the HTTP surface and the main server logic for
// IntakeFlow.
//
// It exposes the inbound webhook for the chat transport, a read endpoint for
// durable conversation records, and a health probe. Run wires the store,
// GenAI, transport, and dialogue engine modules together.
package api

import (
	"net/http"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/flow"
	"github.com/BTreeMap/IntakeFlow/internal/messaging"
	"github.com/BTreeMap/IntakeFlow/internal/store"
)

// Default server configuration constants
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8080"
	// DefaultSweepSchedule runs the idle-session sweep hourly.
	DefaultSweepSchedule = "0 * * * *"
	// DefaultSessionMaxIdle is how long a session may sit untouched before
	// the sweep resets it.
	DefaultSessionMaxIdle = 24 * time.Hour
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	DBDriver       string
	SweepSchedule  string
	SessionMaxIdle time.Duration
	DisableGenAI   bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithDBDriver pins the conversation store backend ("sqlite3", "postgres",
// "memory"). Empty selects by DSN shape.
func WithDBDriver(driver string) Option {
	return func(o *Opts) { o.DBDriver = driver }
}

// WithSweepSchedule sets the cron expression for the idle-session sweep.
func WithSweepSchedule(expr string) Option {
	return func(o *Opts) { o.SweepSchedule = expr }
}

// WithSessionMaxIdle sets the idle age after which sessions are reset.
func WithSessionMaxIdle(d time.Duration) Option {
	return func(o *Opts) { o.SessionMaxIdle = d }
}

// WithGenAIDisabled skips the completion gateway entirely; escalated turns
// then carry the fixed apology instead of generated text.
func WithGenAIDisabled() Option {
	return func(o *Opts) { o.DisableGenAI = true }
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	msgService messaging.Service
	store      store.ConversationStore
	engine     *flow.Engine
	webhook    http.HandlerFunc
}

// NewServer creates an API server. webhook is the transport's inbound
// handler, mounted at /webhook.
func NewServer(msgService messaging.Service, st store.ConversationStore, engine *flow.Engine, webhook http.HandlerFunc) *Server {
	return &Server{
		msgService: msgService,
		store:      st,
		engine:     engine,
		webhook:    webhook,
	}
}

// Routes builds the HTTP mux for the server.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhook)
	mux.HandleFunc("/conversations", s.conversationHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	return mux
}
