package usecase

import (
	"context"

	"github.com/northmart/reco-backend/internal/domain"
)

// RecommendationUC — операции рекомендательного движка, видимые delivery-слою.
type RecommendationUC interface {
	RecommendForUser(ctx context.Context, userID string, limit int) ([]ProductInfo, error)
	SimilarToProduct(ctx context.Context, productID string, limit int) ([]ProductInfo, error)
}

// EmbeddingUC — явный пересчёт эмбеддинга пользователя.
type EmbeddingUC interface {
	RefreshUserEmbedding(ctx context.Context, userID string) (*RefreshUserEmbeddingRes, error)
}

// EmbeddingManager — внутренний контракт между рекомендательным движком
// и менеджером эмбеддингов. Каждый вызов делает полный пересчёт и перезапись,
// кэширования внутри нет: идемпотентно, но не дёшево.
type EmbeddingManager interface {
	// EnsureProductEmbedding пересчитывает и перезаписывает эмбеддинг товара,
	// возвращая только что сохранённый вектор.
	EnsureProductEmbedding(ctx context.Context, product *domain.Product) ([]float32, error)
	// EnsureUserEmbedding пересчитывает эмбеддинг пользователя из последних
	// завершённых покупок. Пустая история — не ошибка: NoHistory в результате.
	EnsureUserEmbedding(ctx context.Context, userID string) (*UserEmbeddingRes, error)
}
