package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/infrastructure/metrics"
)

// fallbackTimingHash is a well-formed cost-10 bcrypt hash used when the
// timing hash cannot be built at runtime.
const fallbackTimingHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

// LoginThrottle abstracts the failed-login counter (Redis).
type LoginThrottle interface {
	Allow(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// AuthService implements registration, credential exchange and token refresh.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenCodec
	throttle LoginThrottle
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the service. throttle may be nil to disable login
// throttling.
func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	throttle LoginThrottle,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		throttle: throttle,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	log := s.logger(ctx)

	if err := validateCredentials(username, password); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("register: lookup: %w", err)
	}
	if existing != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultExists).Inc()
		return nil, domain.ErrUserExists
	}

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	user, err := s.repo.Insert(ctx, username, hash, domain.Roles{})
	if err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, domain.ErrDuplicateUser) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultExists).Inc()
			return nil, domain.ErrUserExists
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("register: insert: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Authenticate exchanges a username and password for a signed token. Unknown
// users and wrong passwords yield the same ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	log := s.logger(ctx)

	if username == "" || password == "" || !storableText(username) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
		return "", domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, username)
		if err != nil {
			log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		} else if !ok {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultThrottled).Inc()
			return "", domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("authenticate: lookup: %w", err)
	}

	start := time.Now()
	var ok bool
	if user == nil {
		// burn the same bcrypt work so response time does not reveal existence
		s.hasher.Verify(password, s.timingHash())
	} else {
		ok = s.hasher.Verify(password, user.PasswordHash)
	}
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())

	if !ok {
		s.recordFailure(ctx, log, username)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
		return "", domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("authenticate: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Debug().Str("user_id", user.ID).Msg("token issued")
	return token, nil
}

// Refresh swaps a token whose refresh window is still open for a new one.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	identity, err := s.tokens.DecodeForRefresh(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultExpired).Inc()
		} else {
			metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		}
		return "", err
	}

	user, err := s.repo.FindByID(ctx, identity.UserID)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("refresh: lookup: %w", err)
	}
	if user == nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return "", fmt.Errorf("%w: subject no longer exists", domain.ErrTokenInvalid)
	}

	fresh, err := s.tokens.Issue(user)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("refresh: %w", err)
	}
	metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return fresh, nil
}

func (s *AuthService) Identify(_ context.Context, token string) (domain.Identity, error) {
	return s.tokens.Decode(token)
}

func (s *AuthService) Profile(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: subject no longer exists", domain.ErrTokenInvalid)
	}
	return user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, log *zerolog.Logger, username string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		log.Warn().Err(err).Msg("failed to record login failure")
	}
}

// timingHash lazily produces a real hash to verify against for unknown users.
func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equaliser")
		if err != nil {
			s.log.Warn().Err(err).Msg("could not build timing hash, using fallback")
			s.dummyHash = fallbackTimingHash
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *AuthService) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return domain.NewValidationError("username", "is required")
	case password == "":
		return domain.NewValidationError("password", "is required")
	case !storableText(username):
		return domain.NewValidationError("username", "must be valid UTF-8 without NUL bytes")
	case len(username) > domain.MaxUsernameLength:
		return domain.NewValidationError("username", fmt.Sprintf("must be at most %d bytes", domain.MaxUsernameLength))
	case len(password) > domain.MaxPasswordLength:
		return domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", domain.MaxPasswordLength))
	}
	return nil
}

// storableText rejects strings that SQL text columns refuse.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
