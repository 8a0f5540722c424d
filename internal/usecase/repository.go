package usecase

import (
	"context"

	"github.com/northmart/reco-backend/internal/domain"
)

// ProductRepository — read-only доступ к каталогу товаров.
type ProductRepository interface {
	// FindByID возвращает товар или e.ErrProductNotFound.
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// FindActiveByIDs возвращает только активные товары из переданного набора.
	FindActiveByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// TransactionRepository — read-only доступ к истории покупок.
type TransactionRepository interface {
	// CompletedTransactions возвращает до limit последних завершённых покупок
	// пользователя, новые первыми, с категорией товара из каталога.
	CompletedTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
	// CompletedProductIDs возвращает полный набор купленных товаров пользователя.
	CompletedProductIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

// VectorIndex — адаптер векторного индекса (upsert / ANN-поиск / delete).
type VectorIndex interface {
	// Upsert безусловно перезаписывает вектор по логическому ключу сущности.
	Upsert(ctx context.Context, embedding *domain.Embedding) error
	// Search возвращает topK ближайших соседей, лучшие первыми.
	// Порядок при равных скорах определяет индекс, не вызывающая сторона.
	Search(ctx context.Context, vector []float32, topK uint64, filter *domain.VectorFilter) ([]SearchHit, error)
	// Delete удаляет вектор по логическому ключу. Административная операция,
	// рекомендательный конвейер её не вызывает.
	Delete(ctx context.Context, entityKey string) error
}

// CacheRepository — кэш гидратированных товаров.
type CacheRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []string) error
}

// OutboxRepository — transactional outbox для событий пересчёта эмбеддингов.
type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
}

// EmbeddingRefreshRepository ведёт счётчик явных пересчётов эмбеддинга пользователя.
type EmbeddingRefreshRepository interface {
	Upsert(ctx context.Context, userID string) (*domain.EmbeddingRefresh, error)
}
