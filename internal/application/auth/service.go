package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-api-magiclink/internal/domain"
	jwtinfra "github.com/go-api-magiclink/internal/infrastructure/jwt"
	"github.com/go-api-magiclink/internal/pkg/errlog"
	"github.com/go-api-magiclink/internal/pkg/id"
	pkgtoken "github.com/go-api-magiclink/internal/pkg/token"
)

// VerificationStore persists one-time codes. Redeem must delete and return the
// matching record in one atomic step.
type VerificationStore interface {
	Create(ctx context.Context, v *domain.VerificationCode) error
	Redeem(ctx context.Context, code string) (*domain.VerificationCode, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type UserDirectory interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Notifier interface {
	Send(ctx context.Context, msg domain.TemplateEmail) (*domain.Receipt, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, *jwtinfra.Claims, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// Options carries the flow's settings. Zero timeouts fall back to the defaults.
type Options struct {
	BaseURL        string
	SiteName       string
	TemplateID     int64
	TemplateKey    string
	SingleLiveCode bool
	StoreTimeout   time.Duration
	NotifyTimeout  time.Duration
}

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultNotifyTimeout = 10 * time.Second
)

type Service interface {
	// RequestLogin issues a code for the user owning email and mails the magic link.
	RequestLogin(ctx context.Context, email string) (*domain.Receipt, error)
	// Verify redeems code and mints a session token for its owner.
	Verify(ctx context.Context, code string) (*domain.Session, error)
	// CurrentSession validates a previously issued session token.
	CurrentSession(ctx context.Context, token string) (*jwtinfra.Claims, error)
}

type service struct {
	codes    VerificationStore
	users    UserDirectory
	notifier Notifier
	tokens   TokenIssuer
	opts     Options
	log      *slog.Logger
	now      func() time.Time
	newCode  func() string
}

func NewService(codes VerificationStore, users UserDirectory, notifier Notifier, tokens TokenIssuer, opts Options) Service {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &service{
		codes:    codes,
		users:    users,
		notifier: notifier,
		tokens:   tokens,
		opts:     opts,
		log:      slog.Default().With("component", "auth"),
		now:      time.Now,
		newCode:  pkgtoken.NewVerificationCode,
	}
}

func (s *service) RequestLogin(ctx context.Context, email string) (*domain.Receipt, error) {
	u, err := callStore(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*domain.User, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		loginRequests.WithLabelValues(loginUnknownUser).Inc()
		if !errors.Is(err, domain.ErrNotFound) {
			errlog.Log(s.log, "user lookup failed", err)
		}
		// Unknown and unreachable users look the same to the caller.
		return nil, fmt.Errorf("login: %w", domain.ErrUnauthorized)
	}

	now := s.now().UTC()
	vc := &domain.VerificationCode{
		ID:         id.New(),
		UserID:     u.UserID,
		Code:       s.newCode(),
		ExpiresAt:  now.Add(domain.CodeTTL),
		InsertedAt: now,
	}

	if s.opts.SingleLiveCode {
		if err := s.storeCall(ctx, func(ctx context.Context) error { return s.codes.DeleteByUser(ctx, u.UserID) }); err != nil {
			loginRequests.WithLabelValues(loginStoreError).Inc()
			errlog.Log(s.log, "clear outstanding codes failed", err, "user_id", u.UserID)
			return nil, fmt.Errorf("clear outstanding codes: %w", domain.ErrBackend)
		}
	}
	if err := s.storeCall(ctx, func(ctx context.Context) error { return s.codes.Create(ctx, vc) }); err != nil {
		loginRequests.WithLabelValues(loginStoreError).Inc()
		errlog.Log(s.log, "persist verification code failed", err, "user_id", u.UserID)
		return nil, fmt.Errorf("persist verification code: %w", domain.ErrBackend)
	}

	msg := domain.TemplateEmail{
		To:          u.Email,
		TemplateID:  s.opts.TemplateID,
		TemplateKey: s.opts.TemplateKey,
		Model: domain.MagicLinkModel{
			MagicLink: s.opts.BaseURL + "/auth/verify/" + vc.Code,
			SiteName:  s.opts.SiteName,
			UserName:  u.UserName,
		},
	}
	nctx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()
	receipt, err := s.notifier.Send(nctx, msg)
	if err != nil {
		loginRequests.WithLabelValues(loginNotifyError).Inc()
		errlog.Log(s.log, "send magic link failed", err, "user_id", u.UserID)
		return nil, fmt.Errorf("send magic link: %w", domain.ErrNotification)
	}

	loginRequests.WithLabelValues(loginSent).Inc()
	s.log.InfoContext(ctx, "magic link sent", "user_id", u.UserID, "message_id", receipt.MessageID)
	return receipt, nil
}

func (s *service) Verify(ctx context.Context, code string) (*domain.Session, error) {
	vc, err := callStore(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*domain.VerificationCode, error) {
		return s.codes.Redeem(ctx, code)
	})
	if errors.Is(err, domain.ErrNotFound) {
		verifyRequests.WithLabelValues(verifyNotFound).Inc()
		return nil, fmt.Errorf("redeem code: %w", domain.ErrNotFound)
	}
	if err != nil {
		verifyRequests.WithLabelValues(verifyBackend).Inc()
		errlog.Log(s.log, "redeem code failed", err)
		return nil, fmt.Errorf("redeem code: %w", domain.ErrBackend)
	}

	// The record is gone either way; an expired code is consumed, not restored.
	if vc.Expired(s.now()) {
		verifyRequests.WithLabelValues(verifyExpired).Inc()
		s.log.InfoContext(ctx, "expired code redeemed", "user_id", vc.UserID)
		return nil, fmt.Errorf("redeem code: %w", domain.ErrExpired)
	}

	u, err := callStore(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*domain.User, error) {
		return s.users.Get(ctx, vc.UserID)
	})
	if err != nil {
		verifyRequests.WithLabelValues(verifyBackend).Inc()
		errlog.Log(s.log, "resolve code owner failed", err, "user_id", vc.UserID)
		return nil, fmt.Errorf("resolve code owner: %w", domain.ErrBackend)
	}

	token, claims, err := s.tokens.Issue(u.UserID)
	if err != nil {
		verifyRequests.WithLabelValues(verifySigning).Inc()
		errlog.Log(s.log, "issue session token failed", err, "user_id", u.UserID)
		return nil, fmt.Errorf("issue session token: %w", domain.ErrSigning)
	}

	verifyRequests.WithLabelValues(verifySuccess).Inc()
	s.log.InfoContext(ctx, "session issued", "user_id", u.UserID)
	return &domain.Session{
		Token:     token,
		UserID:    claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *service) CurrentSession(_ context.Context, token string) (*jwtinfra.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("current session: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

func (s *service) storeCall(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

// callStore runs fn under its own deadline. There are no retries.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
