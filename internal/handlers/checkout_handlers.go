package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/middleware"
	"conteudo_app_echo/internal/services"
)

// CheckoutHandler drives the embedded checkout subflow from the
// browser's callbacks: mount, explicit success, and close.
type CheckoutHandler struct {
	checkouts *services.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkouts *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts}
}

// Mount hands out the one-time client secret for the embedded checkout
// surface. A second call for the same attempt fails; the handle is not
// reusable.
func (h *CheckoutHandler) Mount(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	secret, err := h.checkouts.Secret(sess.ID, c.Param("id"))
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"clientSecret": secret})
}

// Complete is the explicit success callback from the checkout surface.
// Success is never inferred from the modal closing; only this signal
// finishes the attempt and triggers the content refresh.
func (h *CheckoutHandler) Complete(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	if err := h.checkouts.Complete(c.Request().Context(), sess.ID, c.Param("id")); err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Pagamento confirmado! Gerando seu conteúdo...",
		"duration": SnackbarDurationMS,
	})
}

// Close abandons the attempt: the user shut the modal without a success
// signal. No refresh happens and the secret is gone for good.
func (h *CheckoutHandler) Close(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	if err := h.checkouts.Abandon(sess.ID, c.Param("id")); err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "closed"})
}

func checkoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrCheckoutNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": err.Error()})
	case errors.Is(err, services.ErrSecretConsumed):
		return c.JSON(http.StatusConflict, map[string]string{"message": err.Error()})
	case errors.Is(err, services.ErrCheckoutFinished):
		return c.JSON(http.StatusGone, map[string]string{"message": err.Error()})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"message": err.Error()})
	}
}
