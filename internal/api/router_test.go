package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/venuewatch/venuewatch/internal/auth"
	"github.com/venuewatch/venuewatch/internal/control"
	"github.com/venuewatch/venuewatch/internal/logging"
	"github.com/venuewatch/venuewatch/internal/models"
)

type dispatchCall struct {
	command string
	params  control.Params
}

type fakeDispatcher struct {
	calls  []dispatchCall
	result any
	err    error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, command string, params control.Params) (any, error) {
	f.calls = append(f.calls, dispatchCall{command: command, params: params})
	return f.result, f.err
}

func (f *fakeDispatcher) last() dispatchCall {
	if len(f.calls) == 0 {
		return dispatchCall{}
	}
	return f.calls[len(f.calls)-1]
}

type fakeHealth map[models.SourceChannel]error

func (f fakeHealth) HealthCheck(ctx context.Context) map[models.SourceChannel]error { return f }

var testAuth = auth.Config{JWTSecret: "test-secret", AdminPassword: "letmein", TokenDuration: time.Hour}

type fakeStore struct {
	err error
}

func (f fakeStore) Ping(ctx context.Context) error { return f.err }

func (f fakeStore) Stats() map[string]interface{} {
	return map[string]interface{}{"open_connections": 2}
}

func newTestMux(d Dispatcher, health HealthChecker) *http.ServeMux {
	return newTestMuxWithStore(d, health, nil)
}

func newTestMuxWithStore(d Dispatcher, health HealthChecker, store StoreChecker) *http.ServeMux {
	mux := http.NewServeMux()
	SetupRoutes(mux, d, health, store, testAuth, logging.Discard())
	return mux
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("admin", testAuth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func TestLogin(t *testing.T) {
	mux := newTestMux(&fakeDispatcher{}, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid password", `{"password":"letmein"}`, http.StatusOK},
		{"wrong password", `{"password":"nope"}`, http.StatusUnauthorized},
		{"malformed body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body)))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var resp LoginResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, err := auth.ValidateToken(resp.Token, testAuth.JWTSecret); err != nil {
				t.Errorf("issued token does not validate: %v", err)
			}
		})
	}
}

func TestAutomationRoutes(t *testing.T) {
	d := &fakeDispatcher{result: map[string]int{"total_events": 3}}
	mux := newTestMux(d, nil)

	t.Run("requires auth", func(t *testing.T) {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/automation/start", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
		if len(d.calls) != 0 {
			t.Error("command must not run without auth")
		}
	})

	for _, cmd := range []string{control.CmdStart, control.CmdStop, control.CmdRunCycleNow, control.CmdForceUpdateAllVenues, control.CmdRunLightweightMonitoring} {
		t.Run(cmd, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/automation/"+cmd, nil)
			req.Header.Set("Authorization", bearer(t))
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if d.last().command != cmd {
				t.Errorf("dispatched %q, want %q", d.last().command, cmd)
			}
			if !strings.Contains(rr.Body.String(), `"total_events":3`) {
				t.Errorf("unexpected body %s", rr.Body.String())
			}
		})
	}

	t.Run("read commands are not automation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/automation/approve-event", nil)
		req.Header.Set("Authorization", bearer(t))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rr.Code)
		}
	})
}

func TestModerationRoutes(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		authed  bool
		err     error
		want    int
		command string
		id      string
	}{
		{"approve", http.MethodPost, "/api/events/e1/approve", true, nil, http.StatusOK, control.CmdApproveEvent, "e1"},
		{"reject", http.MethodPost, "/api/events/e2/reject", true, nil, http.StatusOK, control.CmdRejectEvent, "e2"},
		{"approve unauthenticated", http.MethodPost, "/api/events/e1/approve", false, nil, http.StatusUnauthorized, "", ""},
		{"approve missing", http.MethodPost, "/api/events/zz/approve", true, models.ErrEventNotFound, http.StatusNotFound, control.CmdApproveEvent, "zz"},
		{"approve twice", http.MethodPost, "/api/events/e1/approve", true, models.ErrInvalidTransition, http.StatusConflict, control.CmdApproveEvent, "e1"},
		{"pending", http.MethodGet, "/api/events/pending", true, nil, http.StatusOK, control.CmdGetPendingEvents, ""},
		{"pending unauthenticated", http.MethodGet, "/api/events/pending", false, nil, http.StatusUnauthorized, "", ""},
		{"store failure", http.MethodGet, "/api/events/pending", true, errors.New("db down"), http.StatusInternalServerError, control.CmdGetPendingEvents, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{result: []models.Event{}, err: tt.err}
			mux := newTestMux(d, nil)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authed {
				req.Header.Set("Authorization", bearer(t))
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if d.last().command != tt.command {
				t.Errorf("dispatched %q, want %q", d.last().command, tt.command)
			}
			if tt.id != "" && d.last().params["id"] != tt.id {
				t.Errorf("id param = %q, want %q", d.last().params["id"], tt.id)
			}
		})
	}
}

func TestPublicReadRoutes(t *testing.T) {
	tests := []struct {
		path    string
		command string
		params  control.Params
	}{
		{"/api/status", control.CmdGetStatus, nil},
		{"/api/stats", control.CmdGetStats, nil},
		{"/api/notifications", control.CmdGetNotifications, nil},
		{"/api/venues/search?name=loco", control.CmdSearchVenue, control.Params{"name": "loco"}},
		{"/api/events/approved?city=Madrid&limit=2", control.CmdGetApprovedEvents, control.Params{"city": "Madrid", "category": "", "limit": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := &fakeDispatcher{result: map[string]bool{"running": false}}
			mux := newTestMux(d, nil)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			got := d.last()
			if got.command != tt.command {
				t.Errorf("dispatched %q, want %q", got.command, tt.command)
			}
			for k, v := range tt.params {
				if got.params[k] != v {
					t.Errorf("param %s = %q, want %q", k, got.params[k], v)
				}
			}
			if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("expected CORS header")
			}
		})
	}
}

func TestBadParameterIsClientError(t *testing.T) {
	d := &fakeDispatcher{err: control.ErrMissingParameter}
	mux := newTestMux(d, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/venues/search", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

type slowDispatcher struct {
	delay time.Duration
}

func (d slowDispatcher) Dispatch(ctx context.Context, command string, params control.Params) (any, error) {
	time.Sleep(d.delay)
	return map[string]string{"command": command}, nil
}

func TestAutomationOutlivesServerWriteTimeout(t *testing.T) {
	srv := httptest.NewUnstartedServer(newTestMux(slowDispatcher{delay: 300 * time.Millisecond}, nil))
	srv.Config.WriteTimeout = 50 * time.Millisecond
	srv.Start()
	defer srv.Close()

	for _, path := range []string{"/api/automation/run-cycle-now", "/api/venues/search?name=blue"} {
		method := http.MethodGet
		if strings.HasPrefix(path, "/api/automation/") {
			method = http.MethodPost
		}
		req, err := http.NewRequest(method, srv.URL+path, nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		req.Header.Set("Authorization", bearer(t))

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s: response lost after write timeout: %v", path, err)
		}
		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mux := newTestMux(&fakeDispatcher{}, fakeHealth{models.SourceWebsite: nil})
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		mux := newTestMux(&fakeDispatcher{}, fakeHealth{
			models.SourceWebsite:  nil,
			models.SourceChannelA: errors.New("unreachable"),
		})
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "unreachable") {
			t.Errorf("expected failing channel in body, got %s", rr.Body.String())
		}
	})

	t.Run("store healthy", func(t *testing.T) {
		mux := newTestMuxWithStore(&fakeDispatcher{}, fakeHealth{models.SourceWebsite: nil}, fakeStore{})
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		var body struct {
			Store struct {
				Status string         `json:"status"`
				Pool   map[string]any `json:"pool"`
			} `json:"store"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Store.Status != "ok" || body.Store.Pool["open_connections"] != float64(2) {
			t.Fatalf("unexpected store section: %+v", body.Store)
		}
	})

	t.Run("store unreachable", func(t *testing.T) {
		mux := newTestMuxWithStore(&fakeDispatcher{}, fakeHealth{models.SourceWebsite: nil}, fakeStore{err: errors.New("connection refused")})
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "connection refused") {
			t.Errorf("expected store error in body, got %s", rr.Body.String())
		}
	})
}

func TestPreflight(t *testing.T) {
	mux := newTestMux(&fakeDispatcher{}, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/events/e1/approve", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("expected CORS headers on preflight")
	}
}
