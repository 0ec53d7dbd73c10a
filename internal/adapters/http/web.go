package web

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"github.com/utamadigital/30-hari-new/internal/adapters/email"
	"github.com/utamadigital/30-hari-new/internal/adapters/http/middleware"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
)

// csrfKeyInfo is the HKDF info string for the CSRF key.
const csrfKeyInfo = "kalender/csrf/v1"

// ErrShortCSRFSecret is returned for secrets too short to derive a key from.
var ErrShortCSRFSecret = errors.New("csrf secret must be at least 32 characters")

// DefaultRateLimitPerSecond is the per-IP request budget.
const DefaultRateLimitPerSecond = 20

// Deps holds everything the HTTP adapter needs.
type Deps struct {
	Sessions *orchestrators.SessionRegistry
	Sender   email.Sender
	From     string
	ReplyTo  string
	Logger   *zap.Logger
	// CSRFKey is 32 bytes; see DeriveCSRFKey.
	CSRFKey []byte
	// StaticDir is served under /static/ when set.
	StaticDir string
	// SlowRequest defaults to middleware.DefaultSlowRequest.
	SlowRequest time.Duration
	// RateLimitPerSecond defaults to DefaultRateLimitPerSecond.
	RateLimitPerSecond int
	// TrustedOrigins are extra host:port values accepted by CSRF checks.
	TrustedOrigins []string
}

// DeriveCSRFKey expands a configured secret into a 32-byte CSRF key.
// PRE: secret is empty (development) or at least 32 characters
// POST: An empty secret yields a random key, so form tokens do not survive a restart
func DeriveCSRFKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}
	if len(secret) < 32 {
		return nil, ErrShortCSRFSecret
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(csrfKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return key, nil
}

// NewMux wires HTTP handlers for the calendar.
// PRE: deps.Sessions is non-nil; deps.CSRFKey is 32 bytes
// POST: Returns the handler and a cleanup func that stops background work
func NewMux(deps Deps) (http.Handler, func()) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RateLimitPerSecond <= 0 {
		deps.RateLimitPerSecond = DefaultRateLimitPerSecond
	}
	app := &app{
		sessions: deps.Sessions,
		sender:   deps.Sender,
		from:     deps.From,
		replyTo:  deps.ReplyTo,
		log:      deps.Logger,
	}

	mux := http.NewServeMux()
	if deps.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))
	}
	app.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(deps.RateLimitPerSecond, time.Second, deps.Logger)

	// Timing -> RateLimit -> CSRF -> SecurityHeaders -> Visitor -> Mux
	handler := middleware.Chain(mux,
		middleware.Visitor,
		middleware.SecurityHeaders,
		middleware.CSRF(deps.CSRFKey, deps.TrustedOrigins...),
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Logger, deps.SlowRequest),
	)
	return handler, limiter.Close
}
