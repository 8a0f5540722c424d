package tr

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/northmart/reco-backend/pkg/e"
)

// TxKey — ключ контекста, под которым usecase-слой передаёт открытую
// транзакцию репозиториям.
const TxKey = "tx"

// TxFromCtx извлекает pgx.Tx из контекста. Если транзакции нет,
// возвращает ErrTransactionNotFound — репозиторий сам решает,
// падать или работать через пул.
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(TxKey).(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
