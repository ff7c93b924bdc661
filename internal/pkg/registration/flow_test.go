package registration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonyco/armonyco/app/repository/memrepo"
	"github.com/armonyco/armonyco/internal/pkg/draft"
	"github.com/armonyco/armonyco/internal/pkg/identity"
	"github.com/armonyco/armonyco/internal/pkg/payment"
	"github.com/armonyco/armonyco/internal/pkg/provisioning"
)

type fakeVerifier struct {
	calls  atomic.Int32
	result *payment.VerificationResult
	err    error
}

func (f *fakeVerifier) Verify(ctx context.Context, sessionID string) (*payment.VerificationResult, error) {
	f.calls.Add(1)
	if f.err != nil || f.result == nil {
		return nil, f.err
	}
	out := *f.result
	return &out, nil
}

type fakeProvisioner struct {
	calls   atomic.Int32
	result  provisioning.Result
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeProvisioner) Provision(ctx context.Context, d *draft.RegistrationDraft, v *payment.VerificationResult) provisioning.Result {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
		<-f.release
	}
	return f.result
}

const scope = "browser-1"

func paid() *payment.VerificationResult {
	return &payment.VerificationResult{Verified: true, PaymentStatus: "paid", StripeCustomerID: "cus_1"}
}

func savedDraft(t *testing.T, store *draft.MemoryStore) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), scope, &draft.RegistrationDraft{
		Email:    "a@b.com",
		Password: "abcdef",
		Plan:     draft.Plan{ID: "p1", Credits: 1000},

		CheckoutSessionID: "cs_test_1",
	}))
}

func TestTransition(t *testing.T) {
	legal := [][2]State{
		{StateVerifying, StateCreatingAccount},
		{StateVerifying, StateError},
		{StateCreatingAccount, StateSuccess},
		{StateCreatingAccount, StateError},
	}
	for _, tr := range legal {
		got, err := Transition(tr[0], tr[1])
		require.NoError(t, err)
		assert.Equal(t, tr[1], got)
	}

	illegal := [][2]State{
		{StateSuccess, StateCreatingAccount},
		{StateError, StateVerifying},
		{StateSuccess, StateError},
		{StateVerifying, StateSuccess},
	}
	for _, tr := range illegal {
		got, err := Transition(tr[0], tr[1])
		assert.Error(t, err)
		assert.Equal(t, tr[0], got)
	}

	assert.True(t, StateSuccess.IsTerminal())
	assert.True(t, StateError.IsTerminal())
	assert.False(t, StateCreatingAccount.IsTerminal())
}

func TestRunMissingSessionID(t *testing.T) {
	v := &fakeVerifier{result: paid()}
	p := &fakeProvisioner{}
	flow := NewFlow(v, draft.NewMemoryStore(nil), p)

	out := flow.Run(context.Background(), scope, "  ")
	assert.Equal(t, StateError, out.State)
	assert.Equal(t, KindMissingSessionID, out.Kind)
	assert.Equal(t, "missing session identifier", out.Message)
	assert.False(t, out.Retryable)
	assert.Equal(t, ActionGoHome, out.Action)
	assert.Equal(t, int32(0), v.calls.Load())
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestRunTransportError(t *testing.T) {
	v := &fakeVerifier{err: &payment.TransportError{Message: "payment verification service unreachable"}}
	p := &fakeProvisioner{}
	flow := NewFlow(v, draft.NewMemoryStore(nil), p)

	out := flow.Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, KindVerificationTransportError, out.Kind)
	assert.Equal(t, "payment verification service unreachable", out.Message)
	assert.True(t, out.Retryable)
	assert.True(t, out.NoDuplicateCharge)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestRunNeverProvisionsUnverifiedPayment(t *testing.T) {
	for _, status := range []string{"unpaid", "", "open"} {
		store := draft.NewMemoryStore(nil)
		savedDraft(t, store)
		v := &fakeVerifier{result: &payment.VerificationResult{Verified: false, PaymentStatus: status}}
		p := &fakeProvisioner{}
		flow := NewFlow(v, store, p)

		out := flow.Run(context.Background(), scope, "cs_test_1")
		assert.Equal(t, KindPaymentNotVerified, out.Kind)
		assert.Equal(t, status, out.PaymentStatus)
		assert.True(t, out.Retryable)
		assert.False(t, out.Charged)
		assert.Equal(t, int32(0), p.calls.Load())

		_, err := store.Load(context.Background(), scope)
		assert.NoError(t, err)
	}
}

func TestRunDraftMissing(t *testing.T) {
	p := &fakeProvisioner{}
	flow := NewFlow(&fakeVerifier{result: paid()}, draft.NewMemoryStore(nil), p)

	out := flow.Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, KindDraftMissing, out.Kind)
	assert.False(t, out.Retryable)
	assert.True(t, out.Charged)
	assert.Equal(t, ActionRestartRegistration, out.Action)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestRunDraftExpiredIsCleared(t *testing.T) {
	saved := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	store := draft.NewMemoryStore(func() time.Time { return saved })
	savedDraft(t, store)

	p := &fakeProvisioner{}
	flow := NewFlow(&fakeVerifier{result: paid()}, store, p)
	flow.Now = func() time.Time { return saved.Add(25 * time.Hour) }

	out := flow.Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, KindDraftExpired, out.Kind)
	assert.False(t, out.Retryable)
	assert.Equal(t, int32(0), p.calls.Load())

	_, err := store.Load(context.Background(), scope)
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
}

func TestRunSuccessClearsDraft(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	require.NoError(t, store.SaveWizard(context.Background(), scope, &draft.RegistrationDraft{Email: "a@b.com"}))

	p := &fakeProvisioner{result: provisioning.Result{Success: true, UserID: "user-1"}}
	flow := NewFlow(&fakeVerifier{result: paid()}, store, p)

	out := flow.Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, "user-1", out.UserID)
	assert.Equal(t, 3*time.Second, out.HandoffAfter)
	assert.Equal(t, int64(3000), out.HandoffAfterMs)
	assert.Equal(t, DefaultShellPath, out.RedirectTo)
	assert.Equal(t, []State{StateVerifying, StateCreatingAccount, StateSuccess}, out.Trail)
	assert.False(t, out.Joined)

	_, err := store.Load(context.Background(), scope)
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
	_, err = store.LoadWizard(context.Background(), scope)
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
}

func TestRunFailureKeepsDraftAndRetryReverifies(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	v := &fakeVerifier{result: paid()}
	p := &fakeProvisioner{result: provisioning.Result{Err: &provisioning.Error{
		Kind:     provisioning.KindDependentRecordFailed,
		Resource: provisioning.ResourceBillingDetails,
		Message:  "could not save billing details",
		Err:      errors.New("db down"),
	}}}
	flow := NewFlow(v, store, p)

	out := flow.Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, StateError, out.State)
	assert.Equal(t, "dependent_record_failed", out.Kind)
	assert.Equal(t, "could not save billing details", out.Message)
	assert.True(t, out.Retryable)
	assert.True(t, out.Charged)
	assert.True(t, out.NoDuplicateCharge)
	assert.Equal(t, []State{StateVerifying, StateCreatingAccount, StateError}, out.Trail)

	loaded, err := store.Load(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", loaded.Email)

	p.result = provisioning.Result{Success: true, UserID: "user-1"}
	out = flow.Retry(context.Background(), scope, "cs_test_1")
	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, int32(2), v.calls.Load())
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestRunInvalidDraftIsNotRetryable(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	p := &fakeProvisioner{result: provisioning.Result{Err: &provisioning.Error{
		Kind: provisioning.KindInvalidDraft, Field: "password", Message: "password must be at least 6 characters",
	}}}
	out := NewFlow(&fakeVerifier{result: paid()}, store, p).Run(context.Background(), scope, "cs_test_1")

	assert.Equal(t, "invalid_draft", out.Kind)
	assert.False(t, out.Retryable)
	assert.Equal(t, ActionRestartRegistration, out.Action)
}

func TestRunConcurrentCallsJoinOneAttempt(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	p := &fakeProvisioner{
		result:  provisioning.Result{Success: true, UserID: "user-1"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	flow := NewFlow(&fakeVerifier{result: paid()}, store, p)

	var first Outcome
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = flow.Run(context.Background(), scope, "cs_test_1")
	}()
	<-p.started

	var second Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		second = flow.Retry(context.Background(), scope, "cs_test_1")
	}()

	// Give the second call time to attach before the attempt finishes.
	time.Sleep(50 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, StateSuccess, first.State)
	assert.Equal(t, StateSuccess, second.State)
	assert.False(t, first.Joined)
	assert.True(t, second.Joined)
}

func TestRunRejectsMalformedSessionID(t *testing.T) {
	v := &fakeVerifier{result: paid()}
	p := &fakeProvisioner{}
	flow := NewFlow(v, draft.NewMemoryStore(nil), p)

	out := flow.Run(context.Background(), scope, "not-a-session")
	assert.Equal(t, KindInvalidSessionID, out.Kind)
	assert.False(t, out.Retryable)
	assert.False(t, out.NoDuplicateCharge)
	assert.Equal(t, ActionGoHome, out.Action)
	assert.Equal(t, int32(0), v.calls.Load())
}

func TestRunEmptyVerificationResultIsTransportError(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	p := &fakeProvisioner{}
	flow := NewFlow(&fakeVerifier{}, store, p)

	var out Outcome
	require.NotPanics(t, func() { out = flow.Run(context.Background(), scope, "cs_test_1") })
	assert.Equal(t, KindVerificationTransportError, out.Kind)
	assert.True(t, out.Retryable)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestRunRejectsPaymentOfAnotherCheckout(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		reference string
	}{
		{name: "different session", sessionID: "cs_someone_else"},
		{name: "reference of another scope", sessionID: "cs_test_1", reference: draft.Reference("browser-2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := draft.NewMemoryStore(nil)
			savedDraft(t, store)
			result := paid()
			result.ClientReferenceID = tt.reference
			p := &fakeProvisioner{result: provisioning.Result{Success: true, UserID: "user-1"}}
			flow := NewFlow(&fakeVerifier{result: result}, store, p)

			out := flow.Run(context.Background(), scope, tt.sessionID)
			assert.Equal(t, StateError, out.State)
			assert.Equal(t, KindPaymentNotVerified, out.Kind)
			assert.False(t, out.Retryable)
			assert.False(t, out.Charged)
			assert.Equal(t, int32(0), p.calls.Load())

			_, err := store.Load(context.Background(), scope)
			assert.NoError(t, err)
		})
	}
}

func TestRunAcceptsMatchingReference(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	result := paid()
	result.ClientReferenceID = draft.Reference(scope)
	p := &fakeProvisioner{result: provisioning.Result{Success: true, UserID: "user-1"}}

	out := NewFlow(&fakeVerifier{result: result}, store, p).Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, StateSuccess, out.State)
}

func TestRunUsedSessionIsNotRetryable(t *testing.T) {
	store := draft.NewMemoryStore(nil)
	savedDraft(t, store)
	p := &fakeProvisioner{result: provisioning.Result{Err: &provisioning.Error{
		Kind: provisioning.KindPaymentSessionUsed, Message: "this payment has already been used for an account",
	}}}

	out := NewFlow(&fakeVerifier{result: paid()}, store, p).Run(context.Background(), scope, "cs_test_1")
	assert.Equal(t, "payment_session_used", out.Kind)
	assert.False(t, out.Retryable)
	assert.Equal(t, ActionGoHome, out.Action)
}

func TestOnePaidSessionCreatesOneAccount(t *testing.T) {
	ctx := context.Background()
	repos := memrepo.New()
	orchestrator := provisioning.New(identity.NewLocalProvider(repos.Repositories().User), repos.Repositories(), time.Second)
	store := draft.NewMemoryStore(nil)
	v := &fakeVerifier{result: paid()}
	flow := NewFlow(v, store, orchestrator)

	require.NoError(t, store.Save(ctx, "browser-A", &draft.RegistrationDraft{
		Email: "first@b.com", Password: "abcdef", Plan: draft.Plan{ID: "p1"}, CheckoutSessionID: "cs_paid_once",
	}))
	// The second browser opened its own checkout and never paid it.
	require.NoError(t, store.Save(ctx, "browser-B", &draft.RegistrationDraft{
		Email: "second@b.com", Password: "abcdef", Plan: draft.Plan{ID: "p1"}, CheckoutSessionID: "cs_unpaid",
	}))

	first := flow.Run(ctx, "browser-A", "cs_paid_once")
	require.Equal(t, StateSuccess, first.State, first.Message)

	second := flow.Run(ctx, "browser-B", "cs_paid_once")
	assert.Equal(t, StateError, second.State)
	assert.Equal(t, KindPaymentNotVerified, second.Kind)

	// Even a draft that claims the paid session cannot reuse it.
	require.NoError(t, store.Save(ctx, "browser-C", &draft.RegistrationDraft{
		Email: "third@b.com", Password: "abcdef", Plan: draft.Plan{ID: "p1"}, CheckoutSessionID: "cs_paid_once",
	}))
	third := flow.Run(ctx, "browser-C", "cs_paid_once")
	assert.Equal(t, "payment_session_used", third.Kind)

	users, _, _, billingRows := repos.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, billingRows)
}
