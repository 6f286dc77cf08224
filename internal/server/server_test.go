package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"yt-access","token_type":"Bearer","refresh_token":"yt-refresh","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://localhost:8081/",
	}
}

func TestOAuthHandler(t *testing.T) {
	tokens := tokenServer(t)

	newRouter := func(h *OAuthHandler) *BasicRouter {
		r := NewBasicRouter()
		r.Handler(h)
		return r
	}

	t.Run("exchanges code and sends token", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "state-1")
		rec := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=state-1&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "yt-access" || result.Token.RefreshToken != "yt-refresh" {
			t.Errorf("unexpected token: %+v", result.Token)
		}
	})

	t.Run("rejects wrong state", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("reports consent denial", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=s&error=access_denied", nil))

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("reports failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("ignores requests without redirect parameters", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		select {
		case <-h.Result():
			t.Error("no result expected")
		default:
		}
	})

	t.Run("processes only one callback", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?state=s&code=good-code", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?state=s&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
	})

	t.Run("other paths are not routed", func(t *testing.T) {
		h := NewOAuthHandler(context.Background(), oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	t.Run("Handle filters by method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle("post", "/items", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		if got := r.Patterns(); !slices.Equal(got, []string{"POST /items"}) {
			t.Errorf("unexpected patterns %v", got)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/", ok)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !slices.Equal(order, []string{"first", "second"}) {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		r := NewBasicRouter()
		r.Use(RequestLogger(logger))
		r.Handle(http.MethodGet, "/", ok)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "callback request") {
			t.Errorf("expected request log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string leaked into log: %q", out)
		}
	})
}

func TestListen(t *testing.T) {
	r := NewBasicRouter()
	r.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "hello")
	}))

	cb, err := Listen("127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	resp, err := http.Get("http://" + cb.Addr() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "hello" {
		t.Errorf("unexpected body %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cb.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-cb.Errors():
		t.Errorf("unexpected serve error: %v", err)
	default:
	}

	t.Run("address in use", func(t *testing.T) {
		first, err := Listen("127.0.0.1:0", r)
		if err != nil {
			t.Fatalf("Listen() error = %v", err)
		}
		defer first.Shutdown(context.Background())

		if _, err := Listen(first.Addr(), r); err == nil {
			t.Error("expected error binding a used address")
		}
	})
}
