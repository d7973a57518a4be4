package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"conteudo_app_echo/internal/models"
)

// generationBackend is the fake content API used by the submission
// tests. It records how many requests of each kind arrived.
type generationBackend struct {
	mu        sync.Mutex
	listCalls int
	freeCalls int
	payCalls  int

	listBody  string
	blockFree chan struct{}
}

func (b *generationBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		switch r.URL.Path {
		case "/conteudo":
			b.listCalls++
			body := b.listBody
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		case "/conteudo/gerar-gratis":
			b.freeCalls++
			block := b.blockFree
			b.mu.Unlock()
			if block != nil {
				<-block
			}
			w.WriteHeader(http.StatusCreated)
		case "/pagamentos/checkout":
			b.payCalls++
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"clientSecret": "cs_test_ref_secret_key"}`))
		default:
			b.mu.Unlock()
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (b *generationBackend) counts() (list, free, pay int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls, b.freeCalls, b.payCalls
}

func newGenerationFixture(t *testing.T, backend *generationBackend) (*GenerationService, *Session, *ContentManager) {
	t.Helper()
	if backend.listBody == "" {
		backend.listBody = "[]"
	}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	client := NewBackendClient(server.URL)
	contents := NewContentManager(client, nil, 50*time.Millisecond)
	checkouts := NewCheckoutService(nil, NewStripeVerifier(""), contents, 10*time.Millisecond)
	generator := NewGenerationService(client, contents, checkouts, 10*time.Millisecond)

	sess := NewSession("tok", models.UserProfile{ID: 1, Nome: "Ana", Email: "ana@example.com"})
	t.Cleanup(func() { contents.Close(sess.ID) })
	return generator, sess, contents
}

func validInput() GenerationInput {
	return GenerationInput{Setor: "Moda", TipoNegocio: "Loja", ObjetivoPrincipal: "Vender mais"}
}

func TestSubmitValidationNeverReachesNetwork(t *testing.T) {
	backend := &generationBackend{}
	generator, sess, _ := newGenerationFixture(t, backend)

	_, err := generator.Submit(context.Background(), sess, GenerationInput{Setor: "Moda"}, "")

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if list, free, pay := backend.counts(); list+free+pay != 0 {
		t.Errorf("backend saw %d/%d/%d requests; want none", list, free, pay)
	}
}

func TestSubmitWithoutSessionFailsFast(t *testing.T) {
	backend := &generationBackend{}
	generator, _, _ := newGenerationFixture(t, backend)

	if _, err := generator.Submit(context.Background(), nil, validInput(), ""); !errors.Is(err, ErrAuthMissing) {
		t.Errorf("nil session = %v; want ErrAuthMissing", err)
	}
	if _, err := generator.Submit(context.Background(), &Session{ID: "x"}, validInput(), ""); !errors.Is(err, ErrAuthMissing) {
		t.Errorf("empty token = %v; want ErrAuthMissing", err)
	}
	if list, free, pay := backend.counts(); list+free+pay != 0 {
		t.Errorf("backend saw %d/%d/%d requests; want none", list, free, pay)
	}
}

func TestSubmitFreePathSchedulesRefresh(t *testing.T) {
	backend := &generationBackend{
		listBody: `[{"id": 1, "conteudo_gerado": "{}", "compra_id": null}]`,
	}
	generator, sess, contents := newGenerationFixture(t, backend)

	result, err := generator.Submit(context.Background(), sess, validInput(), "")
	if err != nil {
		t.Fatalf("Submit() returned error: %v", err)
	}
	if result.Tier != TierFree {
		t.Fatalf("tier = %s; want free", result.Tier)
	}
	if result.Checkout != nil {
		t.Error("free path must not open a checkout")
	}
	if result.Message == "" {
		t.Error("free path should carry a success message")
	}

	if _, free, _ := backend.counts(); free != 1 {
		t.Fatalf("free generation calls = %d; want 1", free)
	}

	// The refresh is deferred; nothing happens immediately.
	if list, _, _ := backend.counts(); list != 0 {
		t.Errorf("list fetched before the settling delay")
	}

	deadline := time.After(time.Second)
	store, _ := contents.Lookup(sess.ID)
	for !store.Fetched() {
		select {
		case <-deadline:
			t.Fatal("refresh never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if len(store.Items()) != 1 {
		t.Errorf("store has %d items after refresh; want 1", len(store.Items()))
	}
}

func TestSubmitPaidPathOpensCheckout(t *testing.T) {
	backend := &generationBackend{}
	generator, sess, contents := newGenerationFixture(t, backend)

	// Free slot already spent.
	store := contents.Store(sess)
	store.items = []models.ContentItem{freeItem(1)}

	result, err := generator.Submit(context.Background(), sess, validInput(), models.PlanOptions[0].PriceID)
	if err != nil {
		t.Fatalf("Submit() returned error: %v", err)
	}
	if result.Tier != TierPaid {
		t.Fatalf("tier = %s; want paid", result.Tier)
	}
	if result.Checkout == nil || result.Checkout.ID == "" {
		t.Fatal("paid path must return a checkout subflow")
	}

	list, free, pay := backend.counts()
	if free != 0 {
		t.Errorf("free generation calls = %d; want 0", free)
	}
	if pay != 1 {
		t.Errorf("checkout calls = %d; want 1", pay)
	}

	// No refresh until the checkout signals success.
	time.Sleep(50 * time.Millisecond)
	if nowList, _, _ := backend.counts(); nowList != list {
		t.Error("paid submission must not schedule a refresh on its own")
	}
}

func TestSubmitPaidPathRejectsUnknownPlan(t *testing.T) {
	backend := &generationBackend{}
	generator, sess, contents := newGenerationFixture(t, backend)

	store := contents.Store(sess)
	store.items = []models.ContentItem{freeItem(1)}

	_, err := generator.Submit(context.Background(), sess, validInput(), "price_desconhecido")

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, _, pay := backend.counts(); pay != 0 {
		t.Errorf("checkout calls = %d; want 0", pay)
	}
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	backend := &generationBackend{blockFree: make(chan struct{})}
	generator, sess, _ := newGenerationFixture(t, backend)

	firstDone := make(chan error, 1)
	go func() {
		_, err := generator.Submit(context.Background(), sess, validInput(), "")
		firstDone <- err
	}()

	// Wait until the first submission is holding the network call open.
	deadline := time.After(time.Second)
	for {
		if _, free, _ := backend.counts(); free == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first submission never reached the backend")
		case <-time.After(2 * time.Millisecond):
		}
	}

	if _, err := generator.Submit(context.Background(), sess, validInput(), ""); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("second submission = %v; want ErrSubmissionInFlight", err)
	}

	close(backend.blockFree)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	if _, free, _ := backend.counts(); free != 1 {
		t.Errorf("free generation calls = %d; want 1", free)
	}
}
