package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/logger"
	"github.com/mtsatou/mte-core/internal/infra/security"
	"github.com/mtsatou/mte-core/internal/repository"
)

const (
	verificationCodeDigits = 6
	defaultCodeTTL         = 10 * time.Minute
)

// ErrMailDelivery indicates the verification code could not be sent.
var ErrMailDelivery = errors.New("mail delivery failed")

// VerificationService issues and redeems single-use email verification codes.
// One live code per email: requesting a new code unconditionally replaces an
// unclaimed older one.
type VerificationService struct {
	codes   port.VerificationRepository
	mailer  port.Mailer
	events  port.EventPublisher
	logger  *zap.Logger
	codeTTL time.Duration
	now     func() time.Time
}

// NewVerificationService wires the verification-code flow.
func NewVerificationService(codes port.VerificationRepository, mailer port.Mailer, codeTTL time.Duration, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}

	return &VerificationService{
		codes:   codes,
		mailer:  mailer,
		logger:  log,
		codeTTL: codeTTL,
		now:     time.Now,
	}
}

// WithEventPublisher attaches a publisher for verification events.
func (s *VerificationService) WithEventPublisher(events port.EventPublisher) *VerificationService {
	s.events = events
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *VerificationService) WithClock(clock func() time.Time) *VerificationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Request generates a fresh code for the email, persists it (replacing any
// prior code) and delivers it. The stored code outliving a failed delivery is
// harmless: it is unclaimed and expires on its own.
func (s *VerificationService) Request(ctx context.Context, email string) error {
	code, err := security.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now().UTC()
	record := domain.VerificationCode{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL),
	}

	if err := s.codes.Save(ctx, record); err != nil {
		return fmt.Errorf("save verification code: %w", err)
	}

	if err := s.mailer.Send(ctx, email, code); err != nil {
		s.logger.Warn("verification mail failed",
			zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		return ErrMailDelivery
	}

	s.publishRequested(ctx, email, record.ExpiresAt)
	return nil
}

// Verify redeems a code. Expired codes are deleted and fail; a mismatch fails
// but keeps the code so the user may retry within the TTL; a match deletes
// the code and succeeds. A code is single-use once matched.
func (s *VerificationService) Verify(ctx context.Context, email, code string) (bool, error) {
	record, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load verification code: %w", err)
	}

	if record.Expired(s.now().UTC()) {
		if err := s.codes.Delete(ctx, email); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("delete expired verification code failed",
				zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		}
		return false, nil
	}

	if record.Code != code {
		return false, nil
	}

	if err := s.codes.Delete(ctx, email); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("consume verification code: %w", err)
	}

	return true, nil
}

// CleanExpired sweeps expired codes and reports how many were removed.
func (s *VerificationService) CleanExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("clean expired codes: %w", err)
	}
	return n, nil
}

func (s *VerificationService) publishRequested(ctx context.Context, email string, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.VerificationRequestedEvent{
		Email:       email,
		RequestedAt: s.now().UTC(),
		ExpiresAt:   expiresAt,
	}
	if err := s.events.PublishVerificationRequested(ctx, event); err != nil {
		s.logger.Warn("publish verification event failed",
			zap.String("email", logger.MaskEmail(email)), zap.Error(err))
	}
}
