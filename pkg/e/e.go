package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с векторами
	ErrEmptyVector        = fmt.Errorf("embedding provider returned empty vector")
	ErrVectorSizeMismatch = fmt.Errorf("vector size mismatch")

	// 404 Not Found
	ErrProductNotFound = fmt.Errorf("product not found")

	// 400 Bad Request
	ErrInvalidLimit         = fmt.Errorf("limit must be an integer")
	ErrUserIDRequired       = fmt.Errorf("user id is required")
	ErrProductIDRequired    = fmt.Errorf("product id is required")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 500 — отказ внешней зависимости (Qdrant, embedding provider, PostgreSQL)
	ErrDependencyFailure = fmt.Errorf("dependency failure")

	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapDependency помечает ошибку внешней зависимости как ErrDependencyFailure,
// сохраняя исходную ошибку в цепочке для errors.Is/As.
func WrapDependency(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependencyFailure, err)
}
