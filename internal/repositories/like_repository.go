package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubestream/backend/internal/db"
	"github.com/tubestream/backend/internal/models"
)

// likeSubjectColumn maps a like subject to the column holding its reference.
var likeSubjectColumn = map[models.LikeSubject]string{
	models.LikeVideo:   "video_id",
	models.LikeComment: "comment_id",
	models.LikeTweet:   "tweet_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle applies the like-toggle contract: delete the (subject, owner) like
// when it exists, create it when absent. Both steps share one retryable
// transaction so two toggles always return to the starting state. The
// returned flag reports whether the subject is liked after the call.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, subject models.LikeSubject, subjectID, ownerID string) (bool, error) {
	column, ok := likeSubjectColumn[subject]
	if !ok {
		return false, fmt.Errorf("unknown like subject %q", subject)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var liked bool
	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf(`
            DELETE FROM likes WHERE %s = $1 AND owner_id = $2
        `, column), subjectID, ownerID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		if tag.RowsAffected() > 0 {
			liked = false
			return nil
		}

		_, err = tx.Exec(ctx, fmt.Sprintf(`
            INSERT INTO likes (id, %s, owner_id, created_at)
            VALUES ($1, $2, $3, $4)
        `, column), uuid.NewString(), subjectID, ownerID, time.Now().UTC())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return ErrNotFound
			}
			return fmt.Errorf("insert like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return liked, nil
}
