package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/middleware"
	"conteudo_app_echo/internal/models"
)

// DashboardHandler renders the dashboard page.
type DashboardHandler struct {
	stripePublishableKey string
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(stripePublishableKey string) *DashboardHandler {
	return &DashboardHandler{stripePublishableKey: stripePublishableKey}
}

// Dashboard renders the dashboard shell. The content list itself is
// loaded by the page from /api/conteudo, so the polling state lives in
// one place.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	return c.Render(http.StatusOK, "dashboard.html", map[string]interface{}{
		"Title":                "Dashboard",
		"UserNome":             sess.User.Nome,
		"UserEmail":            sess.User.Email,
		"PlanOptions":          models.PlanOptions,
		"FreePlanDias":         models.FreePlanDias,
		"StripePublishableKey": h.stripePublishableKey,
		"SnackbarDurationMS":   SnackbarDurationMS,
	})
}
