package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CustomErrorHandler converts unhandled errors into either a JSON body
// the dashboard shows as a notification (API routes) or the error page
// (everything else). Taxonomy errors never reach this point; the
// handlers convert those themselves.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	errorTitle := "Erro interno"
	errorMessage := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			errorMessage = msg
		}

		switch code {
		case http.StatusNotFound:
			errorTitle = "Página não encontrada"
			if errorMessage == "" {
				errorMessage = "A página que você procura não existe."
			}
		case http.StatusForbidden:
			errorTitle = "Acesso negado"
			if errorMessage == "" {
				errorMessage = "Você não tem permissão para acessar este recurso."
			}
		case http.StatusUnauthorized:
			errorTitle = "Não autorizado"
			if errorMessage == "" {
				errorMessage = "Faça o login para continuar."
			}
		case http.StatusBadRequest:
			errorTitle = "Requisição inválida"
			if errorMessage == "" {
				errorMessage = "A requisição não pôde ser processada."
			}
		default:
			if errorMessage == "" {
				errorMessage = "Ocorreu um erro. Tente novamente mais tarde."
			}
		}
	} else {
		errorMessage = "Ocorreu um erro. Tente novamente mais tarde."
	}

	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		_ = c.JSON(code, map[string]string{"message": errorMessage})
		return
	}

	data := map[string]interface{}{
		"Title":        errorTitle,
		"ErrorTitle":   errorTitle,
		"ErrorMessage": errorMessage,
	}
	if renderErr := c.Render(code, "error.html", data); renderErr != nil {
		c.Logger().Errorf("failed to render error page: %v", renderErr)
		_ = c.String(code, errorMessage)
	}
}
