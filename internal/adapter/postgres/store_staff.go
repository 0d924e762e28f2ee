package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/domain"
	"github.com/atelier-hq/atelier/internal/domain/record"
)

// --- Staff accounts (auth gate + admin subcommand) ---

func (s *Store) CreateStaff(ctx context.Context, email, name, passwordHash string, isAdmin bool) (*record.Staff, error) {
	var st record.Staff
	err := s.pool.QueryRow(ctx,
		`INSERT INTO staff (email, name, password_hash, is_admin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, name, password_hash, is_admin, created_at`,
		email, name, passwordHash, isAdmin,
	).Scan(&st.ID, &st.Email, &st.Name, &st.PasswordHash, &st.IsAdmin, &st.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create staff %s: %w", email, err)
	}
	return &st, nil
}

func (s *Store) StaffByEmail(ctx context.Context, email string) (*record.Staff, error) {
	var st record.Staff
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_admin, created_at
		 FROM staff WHERE email = $1`, email,
	).Scan(&st.ID, &st.Email, &st.Name, &st.PasswordHash, &st.IsAdmin, &st.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "staff %s", email)
	}
	return &st, nil
}

// StaffBySessionHash resolves a legacy session token hash to its holder.
// Expired sessions do not resolve.
func (s *Store) StaffBySessionHash(ctx context.Context, tokenHash string) (*record.Staff, error) {
	var st record.Staff
	err := s.pool.QueryRow(ctx,
		`SELECT st.id, st.email, st.name, st.password_hash, st.is_admin, st.created_at
		 FROM staff st
		 JOIN staff_sessions ss ON ss.staff_id = st.id
		 WHERE ss.token_hash = $1 AND ss.expires_at > now()`, tokenHash,
	).Scan(&st.ID, &st.Email, &st.Name, &st.PasswordHash, &st.IsAdmin, &st.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "staff session")
	}
	return &st, nil
}

// CreateStaffSession records a legacy session token hash for the gate's
// X-Legacy-Session path.
func (s *Store) CreateStaffSession(ctx context.Context, staffID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO staff_sessions (staff_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		staffID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create staff session: %w", err)
	}
	return nil
}

func (s *Store) UpdateStaffPassword(ctx context.Context, email, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE staff SET password_hash = $2, updated_at = now() WHERE email = $1`,
		email, passwordHash)
	if err != nil {
		return fmt.Errorf("update staff %s password: %w", email, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update staff %s password: %w", email, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListStaff(ctx context.Context) ([]record.Staff, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, password_hash, is_admin, created_at
		 FROM staff ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var staff []record.Staff
	for rows.Next() {
		var st record.Staff
		if err := rows.Scan(&st.ID, &st.Email, &st.Name, &st.PasswordHash, &st.IsAdmin, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}
