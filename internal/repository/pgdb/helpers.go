package pgdb

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgresDuplicate опознаёт нарушение unique-ограничения (SQLSTATE 23505).
func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}
