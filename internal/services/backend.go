package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"conteudo_app_echo/internal/models"
)

// ErrAuthMissing marks a request attempted without a stored token. It
// fails fast, before any network call, and routes the user to sign-in.
var ErrAuthMissing = errors.New("autenticação não encontrada, faça o login novamente")

// ValidationError is a local, pre-network failure: one or more required
// fields are missing. It never reaches the wire.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "campos obrigatórios ausentes: " + strings.Join(e.Fields, ", ")
}

// RequestError carries a non-success response from the content API. The
// message comes from the server payload when present, otherwise a
// generic fallback supplied by the caller.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api respondeu %d: %s", e.Status, e.Message)
}

// TransportError is a network-level failure with no response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "falha de conexão com o servidor: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether the error means the session is no
// longer (or was never) authenticated. These surface as a persistent
// banner rather than a transient notification.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrAuthMissing) {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status == http.StatusUnauthorized || reqErr.Status == http.StatusForbidden
	}
	return false
}

// UserMessage converts any of the taxonomy errors into the text shown
// to the user.
func UserMessage(err error) string {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return "Por favor, preencha todos os campos."
	}
	if errors.Is(err, ErrAuthMissing) {
		return "Autenticação não encontrada. Faça o login novamente."
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var transErr *TransportError
	if errors.As(err, &transErr) {
		return "Não foi possível conectar ao servidor. Tente novamente."
	}
	return "Ocorreu um erro. Tente novamente."
}

// GenerationInput are the business-profile fields every generation
// request requires.
type GenerationInput struct {
	Setor             string `json:"setor"`
	TipoNegocio       string `json:"tipoNegocio"`
	ObjetivoPrincipal string `json:"objetivoPrincipal"`
}

// Validate returns a ValidationError naming every empty field, or nil.
func (in GenerationInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Setor) == "" {
		missing = append(missing, "setor")
	}
	if strings.TrimSpace(in.TipoNegocio) == "" {
		missing = append(missing, "tipoNegocio")
	}
	if strings.TrimSpace(in.ObjetivoPrincipal) == "" {
		missing = append(missing, "objetivoPrincipal")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// AuthResult is the content API's answer to login and sign-up.
type AuthResult struct {
	Token   string             `json:"token"`
	Usuario models.UserProfile `json:"usuario"`
}

// BackendClient talks to the content API. It owns no state beyond the
// base URL; callers pass the bearer token per request.
type BackendClient struct {
	baseURL string
	http    *http.Client
}

// NewBackendClient creates a client for the content API at baseURL.
// No client-side timeout is enforced; transport defaults apply.
func NewBackendClient(baseURL string) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Login exchanges credentials for a token and profile.
func (b *BackendClient) Login(ctx context.Context, email, senha string) (*AuthResult, error) {
	body := map[string]string{"email": email, "senha": senha}
	var result AuthResult
	if err := b.post(ctx, "/usuarios/login", "", body, &result, "Credenciais inválidas."); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a new account. Some API revisions return the token
// directly; others expect a follow-up login, in which case Token is
// empty.
func (b *BackendClient) Register(ctx context.Context, nome, email, telefone, senha string) (*AuthResult, error) {
	body := map[string]string{"nome": nome, "email": email, "telefone": telefone, "senha": senha}
	var result AuthResult
	if err := b.post(ctx, "/usuarios/cadastro", "", body, &result, "Falha ao criar a conta."); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListContent fetches the full ordered content list for the token's
// user. Order is whatever the server returns; the client imposes none.
func (b *BackendClient) ListContent(ctx context.Context, token string) ([]models.ContentItem, error) {
	if token == "" {
		return nil, ErrAuthMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/conteudo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Status: resp.StatusCode, Message: serverMessage(data, "Falha ao buscar seus conteúdos.")}
	}

	var items []models.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: "Resposta inesperada do servidor."}
	}
	return items, nil
}

// GenerateFree asks the API for the single free-tier generation.
func (b *BackendClient) GenerateFree(ctx context.Context, token string, in GenerationInput) error {
	if token == "" {
		return ErrAuthMissing
	}
	return b.post(ctx, "/conteudo/gerar-gratis", token, in, nil, "Falha ao gerar o conteúdo.")
}

type checkoutRequest struct {
	PriceID    string          `json:"priceId"`
	UsuarioID  uint            `json:"usuarioId"`
	PromptData GenerationInput `json:"promptData"`
}

type checkoutResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreateCheckout opens a paid checkout session and returns its client
// secret. The secret is valid for exactly one embedded checkout mount.
func (b *BackendClient) CreateCheckout(ctx context.Context, token, priceID string, userID uint, in GenerationInput) (string, error) {
	if token == "" {
		return "", ErrAuthMissing
	}

	var result checkoutResponse
	body := checkoutRequest{PriceID: priceID, UsuarioID: userID, PromptData: in}
	if err := b.post(ctx, "/pagamentos/checkout", token, body, &result, "Falha ao iniciar o pagamento."); err != nil {
		return "", err
	}
	if result.ClientSecret == "" {
		return "", &RequestError{Status: http.StatusOK, Message: "Resposta de pagamento sem clientSecret."}
	}
	return result.ClientSecret, nil
}

// post issues one JSON POST and decodes the answer into out (when out
// is non-nil). fallback is the user message used when the server sends
// no message of its own.
func (b *BackendClient) post(ctx context.Context, path, token string, body, out interface{}, fallback string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{Status: resp.StatusCode, Message: serverMessage(data, fallback)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "Resposta inesperada do servidor."}
		}
	}
	return nil
}

// serverMessage extracts {"message": ...} from an error payload.
func serverMessage(data []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
