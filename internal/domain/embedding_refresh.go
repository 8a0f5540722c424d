package domain

import "time"

// EmbeddingRefresh — счётчик явных пересчётов эмбеддинга пользователя.
// Ведётся только для ручного refresh-эндпоинта; ленивый пересчёт на
// читающем пути реляционных записей не оставляет.
type EmbeddingRefresh struct {
	ID           int64
	UserID       string
	RefreshCount int32
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
