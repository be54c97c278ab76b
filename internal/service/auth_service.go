package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvlbulankin/yamdb-final/internal/mailer"
	"github.com/mvlbulankin/yamdb-final/internal/metrics"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/utils"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

const (
	confirmationSubject = "Confirmation code"
	confirmationBody    = "Your confirmation code: %s."
)

// AuthService implements sign-up with emailed confirmation codes and the
// code-for-token exchange.
type AuthService struct {
	users  repository.UserRepository
	codes  *utils.CodeGenerator
	signer *utils.JWTSigner
	mail   mailer.Sender
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, codes *utils.CodeGenerator, signer *utils.JWTSigner, mail mailer.Sender) *AuthService {
	return &AuthService{
		users:  users,
		codes:  codes,
		signer: signer,
		mail:   mail,
		now:    time.Now,
	}
}

// Signup creates the user on first request and re-issues a code when the
// same (username, email) pair comes back. The code is mailed; a delivery
// failure is logged and does not fail the call.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*models.User, string, error) {
	start := time.Now()

	if err := validateUsername(username); err != nil {
		metrics.SignupsTotal.WithLabelValues("rejected").Inc()
		return nil, "", err
	}
	if err := validateEmail(email); err != nil {
		metrics.SignupsTotal.WithLabelValues("rejected").Inc()
		return nil, "", err
	}

	user, created, err := s.findOrCreate(ctx, username, email)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.SignupsTotal.WithLabelValues("rejected").Inc()
			logger.Log.Warn("Sign-up conflict",
				zap.String("username", username),
				zap.String("email", email),
			)
		}
		return nil, "", err
	}

	code := s.codes.Make(user, s.now())
	s.sendCode(ctx, user, code)

	outcome := "reissued"
	if created {
		outcome = "created"
	}
	metrics.SignupsTotal.WithLabelValues(outcome).Inc()

	logger.Log.Info("Confirmation code issued",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)

	return user, code, nil
}

func (s *AuthService) findOrCreate(ctx context.Context, username, email string) (*models.User, bool, error) {
	user, err := s.users.FindByUsernameAndEmail(ctx, username, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	if err := s.ensureFree(ctx, username, email); err != nil {
		return nil, false, err
	}

	user = &models.User{Username: username, Email: email, Role: models.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			logger.Log.Error("Failed to create user",
				zap.String("username", username),
				zap.Error(err),
			)
			return nil, false, err
		}
		// Lost a race with a concurrent sign-up; the winner may have used
		// the very same pair.
		existing, findErr := s.users.FindByUsernameAndEmail(ctx, username, email)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: user with this username or email already exists", ErrConflict)
		}
		return existing, false, nil
	}
	return user, true, nil
}

func (s *AuthService) ensureFree(ctx context.Context, username, email string) error {
	byName, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if byName != nil {
		return fmt.Errorf("%w: username %q is already registered with another email", ErrConflict, username)
	}

	byEmail, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if byEmail != nil {
		return fmt.Errorf("%w: email %q is already registered with another username", ErrConflict, email)
	}
	return nil
}

func (s *AuthService) sendCode(ctx context.Context, user *models.User, code string) {
	err := s.mail.Send(ctx, user.Email, confirmationSubject, fmt.Sprintf(confirmationBody, code))
	if err != nil {
		metrics.ConfirmationEmailsTotal.WithLabelValues("failed").Inc()
		logger.Log.Error("Failed to send confirmation code",
			zap.String("user_id", user.ID.String()),
			zap.String("email", user.Email),
			zap.Error(err),
		)
		return
	}
	metrics.ConfirmationEmailsTotal.WithLabelValues("sent").Inc()
}

// ObtainToken exchanges a confirmation code for an access token. A
// successful exchange stamps last_login, which invalidates the code and
// every other outstanding one.
func (s *AuthService) ObtainToken(ctx context.Context, username, code string) (string, error) {
	if err := validateUsername(username); err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("%w: confirmation_code is required", ErrValidation)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		metrics.TokenExchangesTotal.WithLabelValues("unknown_user").Inc()
		return "", fmt.Errorf("%w: user %q", ErrNotFound, username)
	}

	now := s.now()
	if !s.codes.Check(user, code, now) {
		metrics.TokenExchangesTotal.WithLabelValues("invalid_code").Inc()
		logger.Log.Warn("Invalid confirmation code",
			zap.String("user_id", user.ID.String()),
			zap.String("username", username),
		)
		return "", ErrInvalidCode
	}

	// Microsecond precision survives every supported database round trip.
	loginAt := now.UTC().Truncate(time.Microsecond)
	if err := s.users.TouchLastLogin(ctx, user.ID, loginAt); err != nil {
		logger.Log.Error("Failed to record login",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return "", err
	}
	user.LastLogin = &loginAt

	token, err := s.signer.Sign(user)
	if err != nil {
		logger.Log.Error("Failed to sign access token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return "", err
	}

	metrics.TokenExchangesTotal.WithLabelValues("issued").Inc()
	logger.Log.Info("Access token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return token, nil
}
