package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/middleware"
	"conteudo_app_echo/internal/services"
)

// sessionMaxAge matches the cookie lifetime to the session TTL.
const sessionMaxAge = 24 * time.Hour * 5

// AuthHandler handles sign-in, sign-up and logout against the content
// API.
type AuthHandler struct {
	backend   *services.BackendClient
	sessions  services.SessionStore
	contents  *services.ContentManager
	checkouts *services.CheckoutService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(backend *services.BackendClient, sessions services.SessionStore, contents *services.ContentManager, checkouts *services.CheckoutService) *AuthHandler {
	return &AuthHandler{backend: backend, sessions: sessions, contents: contents, checkouts: checkouts}
}

// SignInPage renders the sign-in page.
func (h *AuthHandler) SignInPage(c echo.Context) error {
	return c.Render(http.StatusOK, "signin.html", map[string]interface{}{
		"Title": "Entrar",
	})
}

// SignUpPage renders the sign-up page.
func (h *AuthHandler) SignUpPage(c echo.Context) error {
	return c.Render(http.StatusOK, "signup.html", map[string]interface{}{
		"Title": "Criar conta",
	})
}

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

// HandleLogin exchanges credentials for a session. Field checks happen
// before the network call; the content API keeps the final word on the
// credentials themselves.
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Requisição inválida."})
	}

	var missing []string
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Senha == "" {
		missing = append(missing, "senha")
	}
	if len(missing) > 0 {
		return jsonError(c, &services.ValidationError{Fields: missing})
	}

	result, err := h.backend.Login(c.Request().Context(), req.Email, req.Senha)
	if err != nil {
		return jsonError(c, err)
	}

	sess := services.NewSession(result.Token, result.Usuario)
	if err := h.sessions.Save(c.Request().Context(), sess); err != nil {
		c.Logger().Errorf("failed to save session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Falha ao criar a sessão."})
	}
	setSessionCookie(c, sess.ID)

	return c.JSON(http.StatusOK, map[string]string{
		"status":   "success",
		"redirect": "/dashboard",
	})
}

type registerRequest struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	Senha    string `json:"senha"`
}

// HandleRegister creates an account. When the API already returns a
// token the user lands signed in; otherwise they go through sign-in.
func (h *AuthHandler) HandleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Requisição inválida."})
	}

	var missing []string
	if strings.TrimSpace(req.Nome) == "" {
		missing = append(missing, "nome")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Senha == "" {
		missing = append(missing, "senha")
	}
	if len(missing) > 0 {
		return jsonError(c, &services.ValidationError{Fields: missing})
	}

	result, err := h.backend.Register(c.Request().Context(), req.Nome, req.Email, req.Telefone, req.Senha)
	if err != nil {
		return jsonError(c, err)
	}

	if result.Token == "" {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "success",
			"message":  "Conta criada com sucesso! Faça o login para continuar.",
			"redirect": "/signin",
		})
	}

	sess := services.NewSession(result.Token, result.Usuario)
	if err := h.sessions.Save(c.Request().Context(), sess); err != nil {
		c.Logger().Errorf("failed to save session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Falha ao criar a sessão."})
	}
	setSessionCookie(c, sess.ID)

	return c.JSON(http.StatusOK, map[string]string{
		"status":   "success",
		"redirect": "/dashboard",
	})
}

// HandleLogout tears the session down: content store and any open
// checkout attempt included, so no poll fires after disposal.
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		h.contents.Close(cookie.Value)
		h.checkouts.CloseSession(cookie.Value)
		if err := h.sessions.Delete(c.Request().Context(), cookie.Value); err != nil && !errors.Is(err, services.ErrSessionNotFound) {
			c.Logger().Errorf("failed to delete session: %v", err)
		}
	}
	middleware.ClearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/signin")
}

func setSessionCookie(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sessionID,
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   os.Getenv("ENV") == "production",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}
