package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/models"
	"conteudo_app_echo/internal/services"
)

func newRequest(t *testing.T, path, sessionID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequireSessionPassesValidSession(t *testing.T) {
	store := services.NewMemorySessionStore()
	sess := services.NewSession("tok", models.UserProfile{ID: 3, Nome: "Caio"})
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	var seen *services.Session
	handler := RequireSession(store, nil)(func(c echo.Context) error {
		seen = SessionFromContext(c)
		return okHandler(c)
	})

	c, rec := newRequest(t, "/dashboard", sess.ID)
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
	if seen == nil || seen.User.Nome != "Caio" {
		t.Errorf("session not propagated: %+v", seen)
	}
}

func TestRequireSessionRedirectsPages(t *testing.T) {
	store := services.NewMemorySessionStore()
	handler := RequireSession(store, nil)(okHandler)

	c, rec := newRequest(t, "/dashboard", "")
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d; want 307", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/signin" {
		t.Errorf("Location = %q; want /signin", got)
	}
}

func TestRequireSessionRejectsAPIWithJSON(t *testing.T) {
	store := services.NewMemorySessionStore()
	handler := RequireSession(store, nil)(okHandler)

	c, rec := newRequest(t, "/api/conteudo", "sessao-inexistente")
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "login novamente") {
		t.Errorf("body = %q; want the re-login message", body)
	}
}

func TestRequireSessionExpiredToken(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("segredo"))
	if err != nil {
		t.Fatal(err)
	}

	store := services.NewMemorySessionStore()
	sess := services.NewSession(expired, models.UserProfile{ID: 3})
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	var tornDown string
	handler := RequireSession(store, func(id string) { tornDown = id })(okHandler)

	c, rec := newRequest(t, "/api/conteudo", sess.ID)
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
	if tornDown != sess.ID {
		t.Errorf("teardown got %q; want %q", tornDown, sess.ID)
	}
	if _, err := store.Find(context.Background(), sess.ID); err == nil {
		t.Error("expired session should have been deleted")
	}

	// The browser's cookie is expired on the way out.
	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookie && cookie.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("session cookie was not cleared")
	}
}
