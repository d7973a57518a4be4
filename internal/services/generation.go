package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"conteudo_app_echo/internal/models"
)

// ErrSubmissionInFlight rejects a duplicate submit while one is still
// resolving for the same session.
var ErrSubmissionInFlight = errors.New("já existe uma geração em andamento")

// SubmitResult tells the caller which path the request took. Checkout
// is set only on the paid path, and carries the subflow the browser
// must drive through the embedded checkout.
type SubmitResult struct {
	Tier     Tier
	Message  string
	Checkout *Subflow
}

// GenerationService turns a submitted form into either a free
// generation call or a paid checkout session.
type GenerationService struct {
	backend   *BackendClient
	contents  *ContentManager
	checkouts *CheckoutService
	settling  time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewGenerationService wires the service. settling is the pause between
// a generation success and the list refresh it triggers.
func NewGenerationService(backend *BackendClient, contents *ContentManager, checkouts *CheckoutService, settling time.Duration) *GenerationService {
	return &GenerationService{
		backend:   backend,
		contents:  contents,
		checkouts: checkouts,
		settling:  settling,
		inFlight:  make(map[string]bool),
	}
}

// Submit validates the form, chooses the tier from the current content
// list and issues exactly one request to the content API. Validation
// always completes before anything touches the network. The free path
// schedules one list refresh after the settling delay; the paid path
// schedules nothing, only the checkout subflow's success signal does.
func (s *GenerationService) Submit(ctx context.Context, sess *Session, in GenerationInput, priceID string) (*SubmitResult, error) {
	if sess == nil || sess.Token == "" {
		return nil, ErrAuthMissing
	}

	s.mu.Lock()
	if s.inFlight[sess.ID] {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.inFlight[sess.ID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sess.ID)
		s.mu.Unlock()
	}()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	store := s.contents.Store(sess)

	switch store.Tier() {
	case TierFree:
		if err := s.backend.GenerateFree(ctx, sess.Token, in); err != nil {
			return nil, err
		}
		store.ScheduleRefresh(s.settling)
		return &SubmitResult{
			Tier:    TierFree,
			Message: "Conteúdo gerado com sucesso! Atualizando seu painel...",
		}, nil

	default:
		if !models.ValidPriceID(priceID) {
			return nil, &ValidationError{Fields: []string{"plano"}}
		}
		secret, err := s.backend.CreateCheckout(ctx, sess.Token, priceID, sess.User.ID, in)
		if err != nil {
			return nil, err
		}
		flow, err := s.checkouts.Begin(ctx, sess, priceID, secret, in)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Tier: TierPaid, Checkout: flow}, nil
	}
}
