package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

// UserInput is the admin create payload.
type UserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      models.Role
}

// UserPatch carries the fields present in a partial update.
type UserPatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *models.Role
}

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns all users; search narrows to an exact username.
func (s *UserService) List(ctx context.Context, search string) ([]models.User, error) {
	return s.users.List(ctx, search)
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validateProfile(in.FirstName, in.LastName); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user with this username or email already exists", ErrConflict)
		}
		return nil, err
	}

	logger.Log.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	return user, nil
}

// Update is the admin patch; it may change the role.
func (s *UserService) Update(ctx context.Context, username string, patch UserPatch) (*models.User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, patch)
}

func (s *UserService) Delete(ctx context.Context, username string) error {
	user, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return err
	}

	logger.Log.Info("User deleted",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
	)
	return nil
}

func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

// UpdateMe patches the caller's own profile. A role in the patch is ignored.
func (s *UserService) UpdateMe(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	user, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Role != nil {
		logger.Log.Debug("Ignoring role change on own profile",
			zap.String("user_id", id.String()),
			zap.String("requested_role", string(*patch.Role)),
		)
		patch.Role = nil
	}
	return s.apply(ctx, user, patch)
}

func (s *UserService) apply(ctx context.Context, user *models.User, patch UserPatch) (*models.User, error) {
	fields := make(map[string]interface{})

	if patch.Username != nil && *patch.Username != user.Username {
		if err := validateUsername(*patch.Username); err != nil {
			return nil, err
		}
		fields["username"] = *patch.Username
	}
	if patch.Email != nil && *patch.Email != user.Email {
		if err := validateEmail(*patch.Email); err != nil {
			return nil, err
		}
		fields["email"] = *patch.Email
	}
	if patch.FirstName != nil {
		if err := validateMaxLength("first_name", *patch.FirstName, maxNameLength); err != nil {
			return nil, err
		}
		fields["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		if err := validateMaxLength("last_name", *patch.LastName, maxNameLength); err != nil {
			return nil, err
		}
		fields["last_name"] = *patch.LastName
	}
	if patch.Bio != nil {
		fields["bio"] = *patch.Bio
	}
	if patch.Role != nil && *patch.Role != user.Role {
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *patch.Role)
		}
		fields["role"] = string(*patch.Role)
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user.ID, fields); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("%w: user with this username or email already exists", ErrConflict)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}

	logger.Log.Info("User updated",
		zap.String("user_id", user.ID.String()),
		zap.Int("fields", len(fields)),
	)
	return s.Me(ctx, user.ID)
}

func validateProfile(firstName, lastName string) error {
	if err := validateMaxLength("first_name", firstName, maxNameLength); err != nil {
		return err
	}
	return validateMaxLength("last_name", lastName, maxNameLength)
}
