package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/models"
	"conteudo_app_echo/internal/services"
)

// SnackbarDurationMS is the display time of transient notifications.
// The page pauses the countdown on hover and resumes it on release.
const SnackbarDurationMS = 5000

// ContentView is one content item prepared for the dashboard. A payload
// that fails to parse sets ParseError and leaves the rest of the list
// untouched.
type ContentView struct {
	ID            uint                `json:"id"`
	CreatedAt     string              `json:"created_at"`
	Delivered     bool                `json:"delivered"`
	FreeTier      bool                `json:"free_tier"`
	PlanoNome     string              `json:"plano_nome,omitempty"`
	PlanoDias     int                 `json:"plano_dias,omitempty"`
	Titulo        string              `json:"titulo,omitempty"`
	Justificativa string              `json:"justificativa,omitempty"`
	Agenda        []models.AgendaPost `json:"agenda,omitempty"`
	ParseError    bool                `json:"parse_error,omitempty"`
}

// ListResponse is the dashboard's content payload plus the derived
// queries the page needs to route the next generation request.
type ListResponse struct {
	Conteudos   []ContentView `json:"conteudos"`
	IsEmpty     bool          `json:"is_empty"`
	HasPending  bool          `json:"has_pending"`
	HasFreeUsed bool          `json:"has_free_used"`
}

// errorStatus maps taxonomy errors onto HTTP status codes for the
// JSON API.
func errorStatus(err error) int {
	var valErr *services.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest
	}
	if services.IsAuthFailure(err) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, services.ErrSubmissionInFlight) {
		return http.StatusConflict
	}
	var reqErr *services.RequestError
	if errors.As(err, &reqErr) && reqErr.Status >= 400 {
		return reqErr.Status
	}
	var transErr *services.TransportError
	if errors.As(err, &transErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// jsonError answers an API request with the user-facing message for
// the error. The page decides between banner and snackbar by status.
func jsonError(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), map[string]string{"message": services.UserMessage(err)})
}
