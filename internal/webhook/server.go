/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package webhook

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v66/github"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// maxPayloadBytes caps the request body GitHub may send (25 MB)
const maxPayloadBytes = 25 << 20

// Trigger requests a sweep. It must not block.
type Trigger func(reason string)

// Server handles GitHub webhook requests
type Server struct {
	addr          string
	webhookSecret string
	repository    string
	trigger       Trigger
	server        *http.Server
	rateLimiter   *RateLimiter
}

// RateLimiter provides per-repository rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	limit    int
	window   time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewServer creates a new webhook server listening on addr. Events from
// repositories other than repository (owner/repo) are ignored; an empty
// repository accepts all.
func NewServer(addr, webhookSecret, repository string, trigger Trigger) *Server {
	return &Server{
		addr:          addr,
		webhookSecret: webhookSecret,
		repository:    repository,
		trigger:       trigger,
		rateLimiter:   NewRateLimiter(5, time.Minute),
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*bucket),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request from the given repository should be allowed
func (rl *RateLimiter) Allow(repo string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.limiters[repo]
	if !exists {
		b = &bucket{
			tokens:    rl.limit,
			lastReset: time.Now(),
		}
		rl.limiters[repo] = b
	}

	if time.Since(b.lastReset) >= rl.window {
		b.tokens = rl.limit
		b.lastReset = time.Now()
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Handler returns the HTTP handler serving /webhook and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start serves webhooks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting webhook server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.FromContext(ctx).Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck,gosec
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close() //nolint:errcheck

	signature := r.Header.Get("X-Hub-Signature-256")
	if !ValidateSignature(payload, signature, s.webhookSecret) {
		logger.Info("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	if eventType != "delete" {
		logger.V(1).Info("Ignoring event", "event", eventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	parsed, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		logger.Error(err, "Failed to parse JSON payload")
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	event, ok := parsed.(*github.DeleteEvent)
	if !ok {
		http.Error(w, "Unexpected event payload", http.StatusBadRequest)
		return
	}

	if event.GetRefType() != "branch" {
		logger.V(1).Info("Ignoring deleted ref", "refType", event.GetRefType(), "ref", event.GetRef())
		w.WriteHeader(http.StatusOK)
		return
	}

	repository := event.GetRepo().GetFullName()
	if s.repository != "" && !strings.EqualFold(repository, s.repository) {
		logger.V(1).Info("Ignoring event from unwatched repository", "repository", repository)
		w.WriteHeader(http.StatusOK)
		return
	}

	if !s.rateLimiter.Allow(repository) {
		logger.Info("Rate limit exceeded", "repository", repository)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	logger.Info("Branch deleted, requesting sweep", "repository", repository, "branch", event.GetRef())
	s.trigger("branch deleted: " + event.GetRef())
	w.WriteHeader(http.StatusAccepted)
}
