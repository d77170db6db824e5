package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/noodklaar/storefront/internal/platform/requestctx"
)

func TestMiddleware_IssuesSessionForNewVisitor(t *testing.T) {
	var captured string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestctx.SessionID(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if captured == "" {
		t.Fatal("expected session id in request context")
	}
	if _, err := ulid.ParseStrict(captured); err != nil {
		t.Fatalf("expected ULID session id, got %q: %v", captured, err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != DefaultCookieName {
		t.Fatalf("unexpected cookie name %q", cookie.Name)
	}
	if cookie.Value != captured {
		t.Fatalf("cookie %q does not match context session %q", cookie.Value, captured)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected SameSite mode %v", cookie.SameSite)
	}
}

func TestMiddleware_ReusesExistingSession(t *testing.T) {
	existing := ulid.Make().String()
	var captured string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestctx.SessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: existing})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured != existing {
		t.Fatalf("expected session %q to be reused, got %q", existing, captured)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != existing {
		t.Fatalf("expected refreshed cookie with the same id, got %v", cookies)
	}
}

func TestMiddleware_ReplacesMalformedCookie(t *testing.T) {
	var captured string
	handler := Middleware(WithIDGenerator(func() string { return "01JD0000000000000000000000" }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = requestctx.SessionID(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-ulid"})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured != "01JD0000000000000000000000" {
		t.Fatalf("expected freshly generated session, got %q", captured)
	}
}

func TestMiddleware_Options(t *testing.T) {
	handler := Middleware(
		WithCookieName("storefront_session"),
		WithTTL(time.Hour),
		WithSecureCookies(false),
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "storefront_session" {
		t.Fatalf("unexpected cookie name %q", cookie.Name)
	}
	if cookie.MaxAge != 3600 {
		t.Fatalf("unexpected max age %d", cookie.MaxAge)
	}
	if cookie.Secure {
		t.Fatal("expected Secure attribute disabled")
	}
}
