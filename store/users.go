package store

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID       int
	Username string
	IsAdmin  bool
}

func (st *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	u := User{}
	err := st.db.QueryRowContext(ctx, `
		SELECT id, username, is_admin
		FROM user
		WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// SaveUser creates the account, or resets its password and role if it exists.
func (st *Store) SaveUser(ctx context.Context, username, password string, isAdmin bool) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{Username: username, IsAdmin: isAdmin}
	err = st.db.QueryRowContext(ctx, `
		INSERT INTO user (username, password_hash, is_admin) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			is_admin = excluded.is_admin
		RETURNING id`,
		username, hash, isAdmin,
	).Scan(&u.ID)
	return u, err
}

// RevokeTokens drops every refresh token issued to username.
func (st *Store) RevokeTokens(ctx context.Context, username string) error {
	_, err := st.db.ExecContext(ctx, `
		DELETE FROM token
		WHERE username = ?`,
		username,
	)
	return err
}
