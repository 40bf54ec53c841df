package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stacksignal/lms-accounts/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

const userColumns = `id, email, display_name, password_hash, role, email_verified,
	avatar_public_id, avatar_url, pending_email,
	verify_fp, verify_expires_at,
	reset_fp, reset_expires_at,
	email_change_fp, email_change_expires_at,
	created_at, updated_at`

// slotColumns maps a token purpose to its fingerprint and expiry
// columns. The returned names are compile-time constants, never user
// input.
func slotColumns(p domain.TokenPurpose) (fpCol, expCol string, err error) {
	switch p {
	case domain.TokenVerifyEmail:
		return "verify_fp", "verify_expires_at", nil
	case domain.TokenPasswordReset:
		return "reset_fp", "reset_expires_at", nil
	case domain.TokenEmailChange:
		return "email_change_fp", "email_change_expires_at", nil
	default:
		return "", "", fmt.Errorf("unknown token purpose %q", p)
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, role, email_verified,
			avatar_public_id, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Role, user.EmailVerified,
		user.AvatarPublicID, user.AvatarURL, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *UserRepository) GetByTokenFingerprint(ctx context.Context, purpose domain.TokenPurpose, fingerprint string) (*domain.User, error) {
	fpCol, _, err := slotColumns(purpose)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, fpCol+" = ?", fingerprint)
}

func (r *UserRepository) SetTokenSlot(ctx context.Context, userID string, purpose domain.TokenPurpose, slot domain.TokenSlot, pendingEmail string) error {
	fpCol, expCol, err := slotColumns(purpose)
	if err != nil {
		return err
	}

	var result sql.Result
	if purpose == domain.TokenEmailChange {
		result, err = r.db.ExecContext(ctx,
			`UPDATE users SET `+fpCol+` = ?, `+expCol+` = ?, pending_email = ?, updated_at = ? WHERE id = ?`,
			slot.Fingerprint, slot.ExpiresAt, pendingEmail, time.Now().UTC(), userID,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE users SET `+fpCol+` = ?, `+expCol+` = ?, updated_at = ? WHERE id = ?`,
			slot.Fingerprint, slot.ExpiresAt, time.Now().UTC(), userID,
		)
	}
	if err != nil {
		return fmt.Errorf("set token slot: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) ClearTokenSlot(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	fpCol, expCol, err := slotColumns(purpose)
	if err != nil {
		return err
	}

	query := `UPDATE users SET ` + fpCol + ` = NULL, ` + expCol + ` = NULL, updated_at = ? WHERE id = ?`
	if purpose == domain.TokenEmailChange {
		query = `UPDATE users SET ` + fpCol + ` = NULL, ` + expCol + ` = NULL, pending_email = NULL, updated_at = ? WHERE id = ?`
	}

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("clear token slot: %w", err)
	}
	return requireRow(result)
}

// ConsumeVerifyToken marks the email verified and clears the slot in
// one conditional statement. ErrInvalidToken means the slot no longer
// holds this fingerprint (already spent, replaced, or cleared).
func (r *UserRepository) ConsumeVerifyToken(ctx context.Context, userID, fingerprint string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, verify_fp = NULL, verify_expires_at = NULL, updated_at = ?
		 WHERE id = ? AND verify_fp = ?`,
		time.Now().UTC(), userID, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("consume verify token: %w", err)
	}
	return requireToken(result)
}

// ConsumePasswordResetToken writes the new password hash and clears the
// slot in one conditional statement.
func (r *UserRepository) ConsumePasswordResetToken(ctx context.Context, userID, fingerprint, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_fp = NULL, reset_expires_at = NULL, updated_at = ?
		 WHERE id = ? AND reset_fp = ?`,
		newPasswordHash, time.Now().UTC(), userID, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	return requireToken(result)
}

// ConsumeEmailChangeToken swaps the identity to the pending address,
// marks it verified, and clears both the slot and the pending address
// in one conditional statement.
func (r *UserRepository) ConsumeEmailChangeToken(ctx context.Context, userID, fingerprint, newEmail string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, email_verified = 1, pending_email = NULL,
			email_change_fp = NULL, email_change_expires_at = NULL, updated_at = ?
		 WHERE id = ? AND email_change_fp = ?`,
		newEmail, time.Now().UTC(), userID, fingerprint,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("consume email change token: %w", err)
	}
	return requireToken(result)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, publicID, url string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_public_id = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		publicID, url, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(result)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	)

	user := &domain.User{}
	var (
		pendingEmail sql.NullString
		verifyFP     sql.NullString
		verifyExp    sql.NullTime
		resetFP      sql.NullString
		resetExp     sql.NullTime
		changeFP     sql.NullString
		changeExp    sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.EmailVerified,
		&user.AvatarPublicID, &user.AvatarURL, &pendingEmail,
		&verifyFP, &verifyExp,
		&resetFP, &resetExp,
		&changeFP, &changeExp,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	user.PendingEmail = pendingEmail.String
	if verifyFP.Valid {
		user.VerifyToken = &domain.TokenSlot{Fingerprint: verifyFP.String, ExpiresAt: verifyExp.Time}
	}
	if resetFP.Valid {
		user.ResetToken = &domain.TokenSlot{Fingerprint: resetFP.String, ExpiresAt: resetExp.Time}
	}
	if changeFP.Valid {
		user.EmailChangeToken = &domain.TokenSlot{Fingerprint: changeFP.String, ExpiresAt: changeExp.Time}
	}
	return user, nil
}

// requireRow maps a zero-row update to ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// requireToken maps a zero-row conditional update to ErrInvalidToken:
// either the user is gone or the slot no longer holds the fingerprint.
func requireToken(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrInvalidToken
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite unique
// constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
