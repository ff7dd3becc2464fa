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
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const testSecret = "test-webhook-secret"

type triggerRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *triggerRecorder) trigger(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *triggerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func setupTest(t *testing.T) (*Server, *triggerRecorder) {
	t.Helper()
	rec := &triggerRecorder{}
	return NewServer("localhost:0", testSecret, "gitpod-io/gitpod", rec.trigger), rec
}

func computeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(event string, payload []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", computeSignature(payload, testSecret))
	return req
}

const branchDeleted = `{"ref":"mads/some-branch","ref_type":"branch","repository":{"full_name":"gitpod-io/gitpod","name":"gitpod","owner":{"login":"gitpod-io"}}}`

func TestHandleHealth(t *testing.T) {
	server, _ := setupTest(t)

	w := httptest.NewRecorder()
	server.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("handleHealth returns %d, expected %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "OK" {
		t.Errorf("handleHealth body is %q, expected %q", w.Body.String(), "OK")
	}
}

func TestHandler_Routes(t *testing.T) {
	server, _ := setupTest(t)

	tests := []struct {
		path     string
		wantCode int
	}{
		{path: "/healthz", wantCode: http.StatusOK},
		{path: "/webhook", wantCode: http.StatusMethodNotAllowed},
		{path: "/health", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Errorf("GET %s returns %d, expected %d", tt.path, w.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name        string
		request     func() *http.Request
		wantCode    int
		wantTrigger bool
	}{
		{
			name: "GET is not allowed",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/webhook", nil)
			},
			wantCode: http.StatusMethodNotAllowed,
		},
		{
			name: "invalid signature",
			request: func() *http.Request {
				req := signedRequest("delete", []byte(branchDeleted))
				req.Header.Set("X-Hub-Signature-256", "sha256=invalid")
				return req
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "push event is ignored",
			request: func() *http.Request {
				return signedRequest("push", []byte(`{"ref":"refs/heads/main"}`))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "invalid JSON",
			request: func() *http.Request {
				return signedRequest("delete", []byte(`{invalid json}`))
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "tag deletion is ignored",
			request: func() *http.Request {
				return signedRequest("delete", []byte(`{"ref":"v1.0","ref_type":"tag","repository":{"full_name":"gitpod-io/gitpod"}}`))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "other repository is ignored",
			request: func() *http.Request {
				return signedRequest("delete", []byte(`{"ref":"main","ref_type":"branch","repository":{"full_name":"acme/shop"}}`))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "delete event without repository is ignored",
			request: func() *http.Request {
				return signedRequest("delete", []byte(`{"ref":"main","ref_type":"branch"}`))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "branch deletion requests a sweep",
			request: func() *http.Request {
				return signedRequest("delete", []byte(branchDeleted))
			},
			wantCode:    http.StatusAccepted,
			wantTrigger: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, rec := setupTest(t)

			w := httptest.NewRecorder()
			server.handleWebhook(w, tt.request())

			if w.Code != tt.wantCode {
				t.Errorf("handleWebhook returns %d, expected %d", w.Code, tt.wantCode)
			}
			if triggered := rec.count() == 1; triggered != tt.wantTrigger {
				t.Errorf("handleWebhook triggered = %v, expected %v", triggered, tt.wantTrigger)
			}
		})
	}
}

func TestHandleWebhook_RateLimit(t *testing.T) {
	server, rec := setupTest(t)
	server.rateLimiter = NewRateLimiter(2, time.Hour)

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		server.handleWebhook(w, signedRequest("delete", []byte(branchDeleted)))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Errorf("handleWebhook codes = %v, expected [202 202 429]", codes)
	}
	if rec.count() != 2 {
		t.Errorf("handleWebhook triggered %d sweeps, expected 2", rec.count())
	}
}

func TestRateLimiter_ResetsAfterWindow(t *testing.T) {
	limiter := NewRateLimiter(1, 20*time.Millisecond)

	if !limiter.Allow("gitpod-io/gitpod") {
		t.Fatal("Allow() rejects the first request")
	}
	if limiter.Allow("gitpod-io/gitpod") {
		t.Fatal("Allow() accepts a request over the limit")
	}
	if !limiter.Allow("acme/shop") {
		t.Error("Allow() shares buckets across repositories")
	}

	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("gitpod-io/gitpod") {
		t.Error("Allow() does not reset after the window")
	}
}

func TestServer_Start_stops_on_cancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	rec := &triggerRecorder{}
	server := NewServer(addr, testSecret, "", rec.trigger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/healthz") //nolint:noctx
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server did not come up: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz returns %d, expected 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}
