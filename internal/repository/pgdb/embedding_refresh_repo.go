package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/internal/repository/pgdb/converter"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/tr"
)

type EmbeddingRefreshRepo struct {
	pool *pgxpool.Pool
	conv converter.EmbeddingRefreshConverter
}

func NewEmbeddingRefreshRepo(pool *pgxpool.Pool, conv converter.EmbeddingRefreshConverter) *EmbeddingRefreshRepo {
	return &EmbeddingRefreshRepo{
		pool: pool,
		conv: conv,
	}
}

// Upsert инкрементирует счётчик явных пересчётов эмбеддинга пользователя.
// Выполняется только в транзакции refresh-запроса.
func (r *EmbeddingRefreshRepo) Upsert(ctx context.Context, userID string) (*domain.EmbeddingRefresh, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.EmbeddingRefreshModel
	query := `
	INSERT INTO user_embedding_refreshes (user_id)
    VALUES ($1)
    ON CONFLICT (user_id)
    DO UPDATE SET refresh_count = user_embedding_refreshes.refresh_count + 1,
                  updated_at = NOW()
    RETURNING id, user_id, refresh_count, created_at, updated_at;
	`

	err = tx.QueryRow(ctx, query, userID).Scan(
		&model.ID,
		&model.UserID,
		&model.RefreshCount,
		&model.CreatedAt,
		&model.UpdatedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToEntity(&model), nil
}
