package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"latiafanny/backend/internal/domain"
)

const (
	minUsername = 4
	minPassword = 6
	maxUserName = 120
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserRequest) (domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}
	switch {
	case req.Username == nil:
		return domain.UserAccount{}, invalid("username", "is required")
	case req.Password == nil:
		return domain.UserAccount{}, invalid("password", "is required")
	}

	user := domain.UserAccount{Role: domain.RoleCashier, Active: true}
	if err := applyUserRequest(&user, req); err != nil {
		return domain.UserAccount{}, err
	}
	if user.Name == "" {
		user.Name = user.Username
	}
	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return domain.UserAccount{}, err
	}
	zerolog.Ctx(ctx).Info().Str("username", created.Username).Str("role", created.Role).Msg("user created")
	return *created, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req domain.UserRequest) (domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	updated := *existing
	updated.Password = ""
	if err := applyUserRequest(&updated, req); err != nil {
		return domain.UserAccount{}, err
	}
	if isSelf(ctx, existing.Username) && (updated.Role != domain.RoleAdmin || !updated.Active) {
		return domain.UserAccount{}, invalid("role", "you cannot demote or deactivate your own account")
	}
	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if isSelf(ctx, existing.Username) {
		return invalid("id", "you cannot delete your own account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("username", existing.Username).Msg("user deleted")
	return nil
}

func isSelf(ctx context.Context, username string) bool {
	actor, ok := ActorFromContext(ctx)
	return ok && strings.EqualFold(actor.Username, username)
}

// applyUserRequest copies the non-nil fields onto u. A new password is stored
// as a bcrypt hash.
func applyUserRequest(u *domain.UserAccount, req domain.UserRequest) error {
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if utf8.RuneCountInString(username) < minUsername {
			return invalid("username", "must be at least %d characters", minUsername)
		}
		if strings.ContainsAny(username, " \t\r\n") {
			return invalid("username", "must not contain spaces")
		}
		u.Username = username
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if utf8.RuneCountInString(name) > maxUserName {
			return invalid("name", "must not exceed %d characters", maxUserName)
		}
		u.Name = name
	}
	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" || len(*req.Password) < minPassword {
			return invalid("password", "must be at least %d characters", minPassword)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		u.Password = string(hashed)
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if role != domain.RoleAdmin && role != domain.RoleCashier {
			return invalid("role", "must be admin or cashier")
		}
		u.Role = role
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	return nil
}
