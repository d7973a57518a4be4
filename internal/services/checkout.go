package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conteudo_app_echo/internal/models"
)

// ErrCheckoutNotFound means the subflow ID is unknown or belongs to a
// different session.
var ErrCheckoutNotFound = errors.New("tentativa de pagamento não encontrada")

// ErrSecretConsumed rejects a second mount of the same subflow. The
// client secret is single-use; a retry needs a fresh checkout session.
var ErrSecretConsumed = errors.New("este pagamento já foi iniciado, comece uma nova tentativa")

// ErrCheckoutFinished rejects signals on a subflow that already ended.
var ErrCheckoutFinished = errors.New("esta tentativa de pagamento já foi encerrada")

// Subflow is one embedded checkout attempt. Mutable fields are guarded
// by the owning CheckoutService; handlers only read the immutable ID.
type Subflow struct {
	ID string

	sessionID string
	state     models.CheckoutState
	secret    string
	stripeRef string
	recordID  uint
	createdAt time.Time
}

// CheckoutService supervises embedded checkout attempts: it holds the
// one-time client secret between the paid submission and the mount,
// tracks the requested → mounted → succeeded/abandoned lifecycle, and
// fires the single post-payment content refresh. Only the explicit
// success signal ever counts as success; closing the surface, or the
// session going away, abandons the attempt and discards the secret.
type CheckoutService struct {
	db       *gorm.DB
	verifier *StripeVerifier
	contents *ContentManager
	settling time.Duration

	mu        sync.Mutex
	flows     map[string]*Subflow
	bySession map[string]string
}

// NewCheckoutService wires the service. db may be nil; audit records
// are then skipped.
func NewCheckoutService(db *gorm.DB, verifier *StripeVerifier, contents *ContentManager, settling time.Duration) *CheckoutService {
	return &CheckoutService{
		db:        db,
		verifier:  verifier,
		contents:  contents,
		settling:  settling,
		flows:     make(map[string]*Subflow),
		bySession: make(map[string]string),
	}
}

// Begin registers a new subflow for a freshly created checkout session.
// Any attempt still open for the same session is abandoned first; its
// secret was superseded the moment a new one was issued.
func (s *CheckoutService) Begin(ctx context.Context, sess *Session, priceID, clientSecret string, in GenerationInput) (*Subflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prevID, ok := s.bySession[sess.ID]; ok {
		if prev, ok := s.flows[prevID]; ok && openState(prev.state) {
			s.finishLocked(prev, models.CheckoutStateAbandoned)
		}
	}

	flow := &Subflow{
		ID:        uuid.NewString(),
		sessionID: sess.ID,
		state:     models.CheckoutStateRequested,
		secret:    clientSecret,
		stripeRef: SessionIDFromClientSecret(clientSecret),
		createdAt: time.Now(),
	}

	if s.db != nil {
		request, _ := json.Marshal(in)
		record := models.CheckoutSession{
			UserID:    sess.User.ID,
			PriceID:   priceID,
			SessionID: flow.stripeRef,
			State:     models.CheckoutStateRequested,
			IsActive:  true,
			Request:   request,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			log.Printf("checkout: failed to persist session record: %v", err)
		} else {
			flow.recordID = record.ID
		}
	}

	s.flows[flow.ID] = flow
	s.bySession[sess.ID] = flow.ID
	return flow, nil
}

// Secret hands the client secret over for mounting the embedded
// checkout surface, exactly once. The second call fails: the handle is
// not reusable and a retry requires a fresh checkout session.
func (s *CheckoutService) Secret(sessionID, flowID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, err := s.findLocked(sessionID, flowID)
	if err != nil {
		return "", err
	}
	switch flow.state {
	case models.CheckoutStateRequested:
		flow.state = models.CheckoutStateMounted
		s.updateRecordLocked(flow, models.CheckoutStateMounted, true)
		return flow.secret, nil
	case models.CheckoutStateMounted:
		return "", ErrSecretConsumed
	default:
		return "", ErrCheckoutFinished
	}
}

// Complete handles the explicit success signal from the checkout
// surface. When a Stripe key is configured the signal is verified
// against the checkout session's status first. On success the subflow
// ends, the secret is discarded and exactly one content refresh is
// scheduled after the settling delay.
func (s *CheckoutService) Complete(ctx context.Context, sessionID, flowID string) error {
	s.mu.Lock()
	flow, err := s.findLocked(sessionID, flowID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if flow.state != models.CheckoutStateMounted {
		s.mu.Unlock()
		if flow.state == models.CheckoutStateRequested {
			return errors.New("o pagamento ainda não foi iniciado")
		}
		return ErrCheckoutFinished
	}
	stripeRef := flow.stripeRef
	s.mu.Unlock()

	// Network verification happens outside the lock.
	if err := s.verifier.Confirm(stripeRef); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if flow.state != models.CheckoutStateMounted {
		// Abandoned (or torn down) while we were verifying.
		return ErrCheckoutFinished
	}
	s.finishLocked(flow, models.CheckoutStateSucceeded)

	if store, ok := s.contents.Lookup(sessionID); ok {
		store.ScheduleRefresh(s.settling)
	}
	return nil
}

// Abandon handles the user closing the checkout surface without a
// success signal. No refresh is triggered and the secret is discarded;
// it must not be reused even if the user retries. Closing an already
// finished subflow is a no-op.
func (s *CheckoutService) Abandon(sessionID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, err := s.findLocked(sessionID, flowID)
	if err != nil {
		return err
	}
	if !openState(flow.state) {
		return nil
	}
	s.finishLocked(flow, models.CheckoutStateAbandoned)
	return nil
}

// State reports the subflow's current state.
func (s *CheckoutService) State(sessionID, flowID string) (models.CheckoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, err := s.findLocked(sessionID, flowID)
	if err != nil {
		return "", err
	}
	return flow.state, nil
}

// CloseSession abandons whatever attempt the session still has open.
// Runs on logout and on session expiry, so the surface's resources are
// released even when the surrounding view goes away unexpectedly.
func (s *CheckoutService) CloseSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flowID, ok := s.bySession[sessionID]
	if !ok {
		return
	}
	if flow, ok := s.flows[flowID]; ok {
		if openState(flow.state) {
			s.finishLocked(flow, models.CheckoutStateAbandoned)
		}
		delete(s.flows, flowID)
	}
	delete(s.bySession, sessionID)
}

func (s *CheckoutService) findLocked(sessionID, flowID string) (*Subflow, error) {
	flow, ok := s.flows[flowID]
	if !ok || flow.sessionID != sessionID {
		return nil, ErrCheckoutNotFound
	}
	return flow, nil
}

// finishLocked moves the subflow to a terminal state and releases its
// resources on every exit path: the secret is zeroed and the audit
// record deactivated.
func (s *CheckoutService) finishLocked(flow *Subflow, state models.CheckoutState) {
	flow.state = state
	flow.secret = ""
	s.updateRecordLocked(flow, state, false)
}

func (s *CheckoutService) updateRecordLocked(flow *Subflow, state models.CheckoutState, active bool) {
	if s.db == nil || flow.recordID == 0 {
		return
	}
	err := s.db.Model(&models.CheckoutSession{}).
		Where("id = ?", flow.recordID).
		Updates(map[string]interface{}{"state": state, "is_active": active}).Error
	if err != nil {
		log.Printf("checkout: failed to update session record %d: %v", flow.recordID, err)
	}
}

func openState(state models.CheckoutState) bool {
	return state == models.CheckoutStateRequested || state == models.CheckoutStateMounted
}
