package domain

import "time"

// Статусы транзакции. К истории покупок относятся только завершённые.
const (
	TransactionCompleted = "completed"
	TransactionPending   = "pending"
	TransactionFailed    = "failed"
)

// Transaction описывает покупку пользователя.
// Category приходит join'ом из каталога и нужна для агрегации профиля.
type Transaction struct {
	ID        string
	UserID    string
	ProductID string
	Amount    int64 // сумма в копейках
	Category  string
	Status    string
	CreatedAt time.Time
}
