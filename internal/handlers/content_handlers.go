package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"conteudo_app_echo/internal/middleware"
	"conteudo_app_echo/internal/models"
	"conteudo_app_echo/internal/services"
)

// ContentHandler serves the content list, generation submissions and
// the CSV export.
type ContentHandler struct {
	contents  *services.ContentManager
	generator *services.GenerationService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(contents *services.ContentManager, generator *services.GenerationService) *ContentHandler {
	return &ContentHandler{contents: contents, generator: generator}
}

// List returns the session's content list. The first read does a live
// fetch; after that the page re-reads the reconciled snapshot, which
// the polling reconciler keeps current while items are pending.
func (h *ContentHandler) List(c echo.Context) error {
	sess := middleware.SessionFromContext(c)
	store := h.contents.Store(sess)

	if !store.Fetched() {
		if err := store.Refresh(c.Request().Context()); err != nil && !errors.Is(err, services.ErrRefreshInFlight) {
			return jsonError(c, err)
		}
	}

	items := store.Items()
	views := make([]ContentView, 0, len(items))
	for _, item := range items {
		views = append(views, buildContentView(item))
	}

	return c.JSON(http.StatusOK, ListResponse{
		Conteudos:   views,
		IsEmpty:     len(items) == 0,
		HasPending:  store.HasPending(),
		HasFreeUsed: store.HasFreeItemUsed(),
	})
}

type generateRequest struct {
	Setor             string `json:"setor"`
	TipoNegocio       string `json:"tipoNegocio"`
	ObjetivoPrincipal string `json:"objetivoPrincipal"`
	PriceID           string `json:"priceId"`
}

// Generate submits a generation request. The free path answers with a
// success snackbar; the paid path answers with the checkout attempt the
// page must mount.
func (h *ContentHandler) Generate(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Requisição inválida."})
	}

	in := services.GenerationInput{
		Setor:             req.Setor,
		TipoNegocio:       req.TipoNegocio,
		ObjetivoPrincipal: req.ObjetivoPrincipal,
	}

	result, err := h.generator.Submit(c.Request().Context(), sess, in, req.PriceID)
	if err != nil {
		return jsonError(c, err)
	}

	if result.Tier == services.TierFree {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "success",
			"tier":     string(result.Tier),
			"message":  result.Message,
			"duration": SnackbarDurationMS,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "checkout",
		"tier":       string(result.Tier),
		"checkoutId": result.Checkout.ID,
	})
}

// ExportCSV streams one delivered item's posting agenda as a CSV file.
func (h *ContentHandler) ExportCSV(c echo.Context) error {
	sess := middleware.SessionFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Identificador de conteúdo inválido.")
	}

	store := h.contents.Store(sess)
	if !store.Fetched() {
		if err := store.Refresh(c.Request().Context()); err != nil && !errors.Is(err, services.ErrRefreshInFlight) {
			return echo.NewHTTPError(errorStatus(err), services.UserMessage(err))
		}
	}

	item, ok := store.FindItem(uint(id))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Conteúdo não encontrado.")
	}
	if !item.Delivered() {
		return echo.NewHTTPError(http.StatusConflict, "Este conteúdo ainda está sendo gerado.")
	}
	if _, err := item.ParsePayload(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Erro ao carregar dados deste conteúdo.")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="agenda-%d.csv"`, item.ID))
	c.Response().WriteHeader(http.StatusOK)

	if err := item.ExportCSV(c.Response()); err != nil {
		// Headers already sent; log and cut the stream short.
		c.Logger().Errorf("csv export failed for content %d: %v", item.ID, err)
		return nil
	}
	return nil
}

func buildContentView(item models.ContentItem) ContentView {
	view := ContentView{
		ID:        item.ID,
		CreatedAt: item.CreatedAt.Format("02/01/2006"),
		Delivered: item.Delivered(),
		FreeTier:  item.FreeTier(),
	}
	if item.Plano != nil {
		view.PlanoNome = item.Plano.Nome
		view.PlanoDias = item.Plano.Dias
	}
	if !view.Delivered {
		return view
	}

	payload, err := item.ParsePayload()
	if err != nil {
		// Contained to this item; the rest of the list renders fine.
		view.ParseError = true
		return view
	}
	view.Titulo = payload.AnaliseEstrategica.TituloEstrategia
	if view.Titulo == "" {
		view.Titulo = "Agenda de Conteúdo"
	}
	view.Justificativa = payload.AnaliseEstrategica.Justificativa
	view.Agenda = payload.AgendaDePostagens
	return view
}
