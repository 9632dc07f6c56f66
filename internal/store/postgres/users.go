package postgres

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/store"
)

var userColumns = []string{"id", "username", "name", "password", "role", "active", "created_at"}

func scanUser(row rowScanner) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Password, &u.Role, &u.Active, &u.CreatedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}

	query, args, err := psql.Insert("app_users").
		Columns("username", "name", "password", "role", "active").
		Values(user.Username, user.Name, user.Password, user.Role, user.Active).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		return nil, mapError(err, "create user")
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	query, args, err := psql.Select(userColumns...).From("app_users").OrderBy("username ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list users")
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.UserAccount, error) {
	query, args, err := psql.Select(userColumns...).From("app_users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return &user, nil
}

// UpdateUser keeps the stored password when user.Password is empty.
func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	b := psql.Update("app_users").
		Set("username", user.Username).
		Set("name", user.Name).
		Set("role", user.Role).
		Set("active", user.Active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": user.ID})
	if user.Password != "" {
		b = b.Set("password", user.Password)
	}
	if err := execAffecting(ctx, s.db, b, "update user"); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return execAffecting(ctx, s.db, psql.Delete("app_users").Where(squirrel.Eq{"id": id}), "delete user")
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	b := psql.Update("app_users").
		Set("password", password).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"username": username})
	return execAffecting(ctx, s.db, b, "update user password")
}
