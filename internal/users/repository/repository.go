// Package repository resolves task assignees: the party's owning agent and
// users holding a functional role for a property.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leasing_crm_backend/platform/apperr"
)

// Repo is the PostgreSQL users repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new users repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// UserIDsWithFunctionalRole returns the active users holding the given
// functional role for the property. Falls back to tenant-wide role holders
// when the party has no assigned property.
func (r *Repo) UserIDsWithFunctionalRole(ctx context.Context, partyID uuid.UUID, role string, propertyID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT u.id
		FROM users u
		JOIN user_functional_roles ufr ON ufr.user_id = u.id
		JOIN parties p ON p.id = $1
		WHERE ufr.role = $2
		  AND u.tenant_id = p.tenant_id
		  AND u.active = true
		  AND ($3::uuid IS NULL OR ufr.property_id IS NULL OR ufr.property_id = $3)
		ORDER BY u.id`

	var property *uuid.UUID
	if propertyID != uuid.Nil {
		property = &propertyID
	}

	rows, err := r.pool.Query(ctx, query, partyID, role, property)
	if err != nil {
		return nil, fmt.Errorf("users with functional role %s: %w", role, err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UserEmails returns the email address of each active user in the set.
// Users without an address are omitted.
func (r *Repo) UserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `
		SELECT id, email
		FROM users
		WHERE id = ANY($1)
		  AND active = true
		  AND email IS NOT NULL
		  AND email <> ''`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("user emails: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]string, len(userIDs))
	for rows.Next() {
		var (
			id    uuid.UUID
			email string
		)
		if err := rows.Scan(&id, &email); err != nil {
			return nil, fmt.Errorf("scan user email: %w", err)
		}
		out[id] = email
	}
	return out, rows.Err()
}

// PartyOwner returns the party's owning agent.
func (r *Repo) PartyOwner(ctx context.Context, partyID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT user_id FROM parties WHERE id = $1`

	var ownerID uuid.UUID
	if err := r.pool.QueryRow(ctx, query, partyID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("party not found")
		}
		return uuid.Nil, fmt.Errorf("party owner: %w", err)
	}
	return ownerID, nil
}
