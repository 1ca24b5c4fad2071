package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baiirun/leadflow/internal/model"
)

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.get(ctx, &u, `SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("user", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get user", err)
	}
	return &u, nil
}

// ListUsers returns all users by name.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := db.selectAll(ctx, &users, `SELECT id, name, email, created_at, updated_at FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, model.StoreFailure("list users", err)
	}
	return users, nil
}

// InsertUser stores a new user.
func (db *DB) InsertUser(ctx context.Context, u *model.User) error {
	_, err := db.exec(ctx,
		`INSERT INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return model.StoreFailure("create user", err)
	}
	return nil
}

// UpdateUser rewrites a user's name and email.
func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	rows, err := db.exec(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Email, u.UpdatedAt, u.ID)
	if err != nil {
		return model.StoreFailure("update user", err)
	}
	if rows == 0 {
		return model.NotFound("user", u.ID)
	}
	return nil
}
