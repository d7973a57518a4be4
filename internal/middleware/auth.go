package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/services"
)

// SessionCookie carries the opaque session ID; it is the only
// authorization gate checked before protected routes render.
const SessionCookie = "sessao"

const sessionContextKey = "session"

// Teardown releases per-session resources (content store, checkout
// subflow) when a session dies outside an explicit logout.
type Teardown func(sessionID string)

// RequireSession loads the session for the request or sends the user
// back to sign-in. API routes get a 401 with a message the page shows
// as a persistent banner; page routes get a redirect. An expired token
// fails fast here, without any call to the content API.
func RequireSession(store services.SessionStore, teardown Teardown) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return reject(c, "")
			}

			sess, err := store.Find(c.Request().Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, services.ErrSessionNotFound) {
					c.Logger().Errorf("session lookup failed: %v", err)
				}
				return reject(c, cookie.Value)
			}

			if services.TokenExpired(sess.Token) {
				_ = store.Delete(c.Request().Context(), sess.ID)
				if teardown != nil {
					teardown(sess.ID)
				}
				return reject(c, sess.ID)
			}

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// SessionFromContext returns the session set by RequireSession.
func SessionFromContext(c echo.Context) *services.Session {
	sess, _ := c.Get(sessionContextKey).(*services.Session)
	return sess
}

// ClearSessionCookie expires the session cookie on the browser.
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}

func reject(c echo.Context, sessionID string) error {
	ClearSessionCookie(c)
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"message": "Você não está autenticado. Por favor, faça o login novamente.",
		})
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/signin")
}
