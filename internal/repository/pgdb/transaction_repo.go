package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
)

// TransactionRepo реализует read-only репозиторий истории покупок поверх PostgreSQL.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CompletedTransactions возвращает до limit последних завершённых покупок
// пользователя, новые первыми, с категорией товара из каталога.
func (t *TransactionRepo) CompletedTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT tr.id, tr.user_id, tr.product_id, tr.amount, pr.category, tr.status, tr.created_at
		FROM transactions tr
		JOIN products pr ON pr.id = tr.product_id
		WHERE tr.user_id = $1 AND tr.status = $2
		ORDER BY tr.created_at DESC
		LIMIT $3
	`

	rows, err := t.pool.Query(ctx, query, userID, domain.TransactionCompleted, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.ProductID, &tx.Amount,
			&tx.Category, &tx.Status, &tx.CreatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// CompletedProductIDs возвращает полный набор купленных товаров пользователя.
// Набор не ограничен лимитом истории: для исключения из выдачи важна вся история.
func (t *TransactionRepo) CompletedProductIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT product_id
		FROM transactions
		WHERE user_id = $1 AND status = $2
	`

	rows, err := t.pool.Query(ctx, query, userID, domain.TransactionCompleted)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result[productID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
