package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-api-magiclink/internal/domain"
	jwtinfra "github.com/go-api-magiclink/internal/infrastructure/jwt"
	"github.com/go-api-magiclink/internal/infrastructure/memory"
	"github.com/go-api-magiclink/internal/pkg/secret"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Create(ctx context.Context, v *domain.VerificationCode) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockCodeStore) Redeem(ctx context.Context, code string) (*domain.VerificationCode, error) {
	args := m.Called(ctx, code)
	if v, _ := args.Get(0).(*domain.VerificationCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) DeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserDirectory) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, msg domain.TemplateEmail) (*domain.Receipt, error) {
	args := m.Called(ctx, msg)
	if r, _ := args.Get(0).(*domain.Receipt); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) Issue(userID string) (string, *jwtinfra.Claims, error) {
	args := m.Called(userID)
	c, _ := args.Get(1).(*jwtinfra.Claims)
	return args.String(0), c, args.Error(2)
}
func (m *mockIssuer) Verify(token string) (*jwtinfra.Claims, error) {
	args := m.Called(token)
	c, _ := args.Get(0).(*jwtinfra.Claims)
	return c, args.Error(1)
}

// --- helpers ---

var alice = &domain.User{UserID: "u-1", Email: "a@example.com", UserName: "Alice"}

func testOptions() Options {
	return Options{
		BaseURL:        "https://example.com/",
		SiteName:       "Example",
		TemplateID:     34154243,
		TemplateKey:    "magic-link",
		SingleLiveCode: true,
		StoreTimeout:   time.Second,
		NotifyTimeout:  time.Second,
	}
}

func newProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := secret.New(strings.Repeat("k", 32))
	require.NoError(t, err)
	p, err := jwtinfra.NewProvider(key, "https://example.com")
	require.NoError(t, err)
	return p
}

func newTestService(codes VerificationStore, users UserDirectory, n Notifier, tokens TokenIssuer, now time.Time) *service {
	svc := NewService(codes, users, n, tokens, testOptions()).(*service)
	svc.now = func() time.Time { return now }
	return svc
}

// --- RequestLogin ---

func TestRequestLogin_PersistsCodeAndSendsLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	n := &mockNotifier{}

	var stored *domain.VerificationCode
	users.On("GetByEmail", mock.Anything, "a@example.com").Return(alice, nil)
	codes.On("DeleteByUser", mock.Anything, "u-1").Return(nil)
	codes.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.VerificationCode)
	}).Return(nil)
	n.On("Send", mock.Anything, mock.MatchedBy(func(msg domain.TemplateEmail) bool {
		return msg.To == "a@example.com" &&
			msg.TemplateID == 34154243 &&
			msg.TemplateKey == "magic-link" &&
			msg.Model.SiteName == "Example" &&
			msg.Model.UserName == "Alice" &&
			strings.HasPrefix(msg.Model.MagicLink, "https://example.com/auth/verify/")
	})).Return(&domain.Receipt{MessageID: "m-1"}, nil)

	svc := newTestService(codes, users, n, &mockIssuer{}, now)
	receipt, err := svc.RequestLogin(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "m-1", receipt.MessageID)

	require.NotNil(t, stored)
	assert.Equal(t, "u-1", stored.UserID)
	assert.Len(t, stored.Code, 64)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, now.Add(time.Hour), stored.ExpiresAt)
	assert.Equal(t, now, stored.InsertedAt)

	link := n.Calls[0].Arguments.Get(1).(domain.TemplateEmail).Model.MagicLink
	assert.Equal(t, "https://example.com/auth/verify/"+stored.Code, link)
	codes.AssertExpectations(t)
}

func TestRequestLogin_UnknownUser(t *testing.T) {
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound)

	before := testutil.ToFloat64(loginRequests.WithLabelValues(loginUnknownUser))
	_, err := newTestService(codes, users, &mockNotifier{}, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	codes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, before+1, testutil.ToFloat64(loginRequests.WithLabelValues(loginUnknownUser)))
}

func TestRequestLogin_LookupFailureIsUnauthorized(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := newTestService(&mockCodeStore{}, users, &mockNotifier{}, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestRequestLogin_CreateFailure(t *testing.T) {
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	n := &mockNotifier{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(alice, nil)
	codes.On("DeleteByUser", mock.Anything, mock.Anything).Return(nil)
	codes.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := newTestService(codes, users, n, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.NotContains(t, err.Error(), "disk full")
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRequestLogin_ClearFailure(t *testing.T) {
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(alice, nil)
	codes.On("DeleteByUser", mock.Anything, mock.Anything).Return(domain.ErrBackend)

	_, err := newTestService(codes, users, &mockNotifier{}, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, domain.ErrBackend)
	codes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestLogin_NotifyFailure(t *testing.T) {
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	n := &mockNotifier{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(alice, nil)
	codes.On("DeleteByUser", mock.Anything, mock.Anything).Return(nil)
	codes.On("Create", mock.Anything, mock.Anything).Return(nil)
	n.On("Send", mock.Anything, mock.Anything).Return(nil, errors.New("smtp 554"))

	_, err := newTestService(codes, users, n, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotification)
	n.AssertNumberOfCalls(t, "Send", 1)
}

func TestRequestLogin_WithoutSingleLiveCodeKeepsOldCodes(t *testing.T) {
	store := memory.NewStore(*alice)
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(&domain.Receipt{MessageID: "m"}, nil)

	opts := testOptions()
	opts.SingleLiveCode = false
	svc := NewService(store, store, n, &mockIssuer{}, opts)

	for range 2 {
		_, err := svc.RequestLogin(context.Background(), "a@example.com")
		require.NoError(t, err)
	}
	assert.Len(t, store.CodesFor("u-1"), 2)
}

func TestRequestLogin_SingleLiveCodeReplacesOldCode(t *testing.T) {
	store := memory.NewStore(*alice)
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(&domain.Receipt{MessageID: "m"}, nil)
	svc := NewService(store, store, n, &mockIssuer{}, testOptions())

	for range 2 {
		_, err := svc.RequestLogin(context.Background(), "a@example.com")
		require.NoError(t, err)
	}
	assert.Len(t, store.CodesFor("u-1"), 1)
}

func TestRequestLogin_StoreCallHasDeadline(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetByEmail", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		_, ok := args.Get(0).(context.Context).Deadline()
		assert.True(t, ok)
	}).Return(nil, domain.ErrNotFound)

	_, _ = newTestService(&mockCodeStore{}, users, &mockNotifier{}, &mockIssuer{}, time.Now()).
		RequestLogin(context.Background(), "a@example.com")
	users.AssertExpectations(t)
}

// --- Verify ---

func TestVerify_IssuesToken(t *testing.T) {
	now := time.Now()
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	codes.On("Redeem", mock.Anything, "abc").Return(&domain.VerificationCode{UserID: "u-1", ExpiresAt: now.Add(time.Minute)}, nil)
	users.On("Get", mock.Anything, "u-1").Return(alice, nil)

	sess, err := newTestService(codes, users, &mockNotifier{}, newProvider(t), now).Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.IssuedAt))
}

func TestVerify_NotFound(t *testing.T) {
	codes := &mockCodeStore{}
	codes.On("Redeem", mock.Anything, "nope").Return(nil, domain.ErrNotFound)
	users := &mockUserDirectory{}

	_, err := newTestService(codes, users, &mockNotifier{}, &mockIssuer{}, time.Now()).Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVerify_ExpiredIsConsumed(t *testing.T) {
	now := time.Now()
	store := memory.NewStore(*alice)
	require.NoError(t, store.Create(context.Background(), &domain.VerificationCode{
		ID: "v-1", UserID: "u-1", Code: "old", ExpiresAt: now.Add(-time.Second), InsertedAt: now.Add(-time.Hour),
	}))
	issuer := &mockIssuer{}
	svc := newTestService(store, store, &mockNotifier{}, issuer, now)

	_, err := svc.Verify(context.Background(), "old")
	assert.ErrorIs(t, err, domain.ErrExpired)
	issuer.AssertNotCalled(t, "Issue", mock.Anything)

	_, err = svc.Verify(context.Background(), "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_RedeemBackendFailure(t *testing.T) {
	codes := &mockCodeStore{}
	codes.On("Redeem", mock.Anything, mock.Anything).Return(nil, errors.New("pool closed"))

	_, err := newTestService(codes, &mockUserDirectory{}, &mockNotifier{}, &mockIssuer{}, time.Now()).
		Verify(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.NotContains(t, err.Error(), "pool closed")
}

func TestVerify_OwnerMissingIsBackendFault(t *testing.T) {
	now := time.Now()
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	codes.On("Redeem", mock.Anything, "abc").Return(&domain.VerificationCode{UserID: "ghost", ExpiresAt: now.Add(time.Minute)}, nil)
	users.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := newTestService(codes, users, &mockNotifier{}, &mockIssuer{}, now).Verify(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_SigningFailure(t *testing.T) {
	now := time.Now()
	codes := &mockCodeStore{}
	users := &mockUserDirectory{}
	issuer := &mockIssuer{}
	codes.On("Redeem", mock.Anything, "abc").Return(&domain.VerificationCode{UserID: "u-1", ExpiresAt: now.Add(time.Minute)}, nil)
	users.On("Get", mock.Anything, "u-1").Return(alice, nil)
	issuer.On("Issue", "u-1").Return("", nil, domain.ErrSigning)

	before := testutil.ToFloat64(verifyRequests.WithLabelValues(verifySigning))
	_, err := newTestService(codes, users, &mockNotifier{}, issuer, now).Verify(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrSigning)
	assert.Equal(t, before+1, testutil.ToFloat64(verifyRequests.WithLabelValues(verifySigning)))
}

func TestVerify_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	now := time.Now()
	store := memory.NewStore(*alice)
	require.NoError(t, store.Create(context.Background(), &domain.VerificationCode{
		ID: "v-1", UserID: "u-1", Code: "shared", ExpiresAt: now.Add(time.Hour), InsertedAt: now,
	}))
	svc := newTestService(store, store, &mockNotifier{}, newProvider(t), now)

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(context.Background(), "shared")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, notFound)
}

// --- full flow ---

func TestLoginThenVerify(t *testing.T) {
	now := time.Now()
	store := memory.NewStore(*alice)
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(&domain.Receipt{MessageID: "m"}, nil)
	svc := newTestService(store, store, n, newProvider(t), now)

	_, err := svc.RequestLogin(context.Background(), "a@example.com")
	require.NoError(t, err)

	live := store.CodesFor("u-1")
	require.Len(t, live, 1)
	assert.WithinDuration(t, now.Add(time.Hour), live[0].ExpiresAt, time.Second)

	link := n.Calls[0].Arguments.Get(1).(domain.TemplateEmail).Model.MagicLink
	code := strings.TrimPrefix(link, "https://example.com/auth/verify/")

	sess, err := svc.Verify(context.Background(), code)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	claims, err := svc.CurrentSession(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)

	_, err = svc.Verify(context.Background(), code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- CurrentSession ---

func TestCurrentSession_Invalid(t *testing.T) {
	_, err := newTestService(&mockCodeStore{}, &mockUserDirectory{}, &mockNotifier{}, newProvider(t), time.Now()).
		CurrentSession(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
