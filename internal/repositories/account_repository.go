package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/models"
)

const accountColumns = `id, username, email, full_name, password_hash,
        avatar_url, avatar_storage_id, cover_image_url, cover_image_storage_id,
        refresh_token, created_at, updated_at`

// PostgresAccountRepository provides PostgreSQL-backed persistence for accounts.
type PostgresAccountRepository struct {
	pool db.Pool
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// Create persists a new account record.
func (r *PostgresAccountRepository) Create(ctx context.Context, account models.Account) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO accounts (id, username, email, full_name, password_hash,
            avatar_url, avatar_storage_id, cover_image_url, cover_image_storage_id,
            refresh_token, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, account.ID, account.Username, account.Email, account.FullName, account.Password,
		account.Avatar.URL, account.Avatar.StorageID,
		account.CoverImage.URL, account.CoverImage.StorageID,
		account.RefreshToken, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// FindByID fetches an account by its identifier.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	return r.findBy(ctx, "id = $1", id)
}

// FindByEmail fetches an account by its email address.
func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.findBy(ctx, "email = $1", email)
}

// FindByUsername fetches an account by its username.
func (r *PostgresAccountRepository) FindByUsername(ctx context.Context, username string) (models.Account, error) {
	return r.findBy(ctx, "username = $1", username)
}

func (r *PostgresAccountRepository) findBy(ctx context.Context, where string, arg any) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)

	var account models.Account
	if err := row.Scan(&account.ID, &account.Username, &account.Email, &account.FullName,
		&account.Password, &account.Avatar.URL, &account.Avatar.StorageID,
		&account.CoverImage.URL, &account.CoverImage.StorageID,
		&account.RefreshToken, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("select account: %w", err)
	}

	return account, nil
}

// SetRefreshToken stores token as the account's single live refresh token.
// Only the token column is written, so the update cannot be rejected by
// validation on unrelated fields. An empty token clears the value.
func (r *PostgresAccountRepository) SetRefreshToken(ctx context.Context, accountID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts SET refresh_token = $2 WHERE id = $1
    `, accountID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateProfile modifies the mutable identity fields of an account.
func (r *PostgresAccountRepository) UpdateProfile(ctx context.Context, accountID, fullName, email string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET full_name = $2, email = $3, updated_at = NOW()
        WHERE id = $1
    `, accountID, fullName, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("update account profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
    `, accountID, passwordHash)
	if err != nil {
		return fmt.Errorf("update account password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateAvatar replaces the avatar object reference and returns the previous one.
func (r *PostgresAccountRepository) UpdateAvatar(ctx context.Context, accountID string, ref models.FileRef) (models.FileRef, error) {
	return r.swapFileRef(ctx, accountID, "avatar_url", "avatar_storage_id", ref)
}

// UpdateCoverImage replaces the cover image object reference and returns the previous one.
func (r *PostgresAccountRepository) UpdateCoverImage(ctx context.Context, accountID string, ref models.FileRef) (models.FileRef, error) {
	return r.swapFileRef(ctx, accountID, "cover_image_url", "cover_image_storage_id", ref)
}

func (r *PostgresAccountRepository) swapFileRef(ctx context.Context, accountID, urlCol, idCol string, ref models.FileRef) (models.FileRef, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FileRef{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, fmt.Sprintf(`
        UPDATE accounts a
        SET %s = $2, %s = $3, updated_at = NOW()
        FROM (SELECT id, %s AS old_url, %s AS old_id FROM accounts WHERE id = $1) prev
        WHERE a.id = prev.id
        RETURNING prev.old_url, prev.old_id
    `, urlCol, idCol, urlCol, idCol), accountID, ref.URL, ref.StorageID)

	var old models.FileRef
	if err := row.Scan(&old.URL, &old.StorageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FileRef{}, ErrNotFound
		}
		return models.FileRef{}, fmt.Errorf("swap account file ref: %w", err)
	}

	return old, nil
}

// AppendWatchHistory records that the account watched the video. Set
// semantics: re-watching an already recorded video is a no-op.
func (r *PostgresAccountRepository) AppendWatchHistory(ctx context.Context, accountID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (account_id, video_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (account_id, video_id) DO NOTHING
    `, accountID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("append watch history: %w", err)
	}

	return nil
}
