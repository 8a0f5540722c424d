package usecase

import (
	"context"

	"github.com/northmart/reco-backend/internal/domain"
)

// EmbeddingProvider превращает структурированную запись атрибутов в вектор
// фиксированной длины. Детерминизм по входу НЕ гарантируется: повторный вызов
// для той же сущности может вернуть другой вектор, конвейер это переживает
// за счёт безусловной перезаписи в индексе.
type EmbeddingProvider interface {
	Embed(ctx context.Context, record domain.AttributeRecord) ([]float32, error)
	Dimensions() int
}

// MessageProducer публикует сырые payload'ы outbox-событий в брокер.
type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
