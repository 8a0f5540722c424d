package usecase

import (
	"time"

	"github.com/northmart/reco-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// RECOMMENDATION USECASE

// ProductInfo — DTO с информацией о товаре для внешнего использования.
type ProductInfo struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       string // "599.99", форматируется из копеек
}

// SearchHit — один кандидат из векторного индекса.
type SearchHit struct {
	EntityKey string
	Score     float32
	Payload   domain.Payload
}

// EMBEDDING USECASE

// UserEmbeddingRes — результат пересчёта эмбеддинга пользователя.
// NoHistory — определённое пустое состояние, а не ошибка.
type UserEmbeddingRes struct {
	NoHistory bool
	Vector    []float32
	Profile   *domain.PreferenceProfile
}

// RefreshUserEmbeddingRes — результат явного refresh-запроса.
type RefreshUserEmbeddingRes struct {
	NoHistory        bool
	TransactionCount int
	RefreshCount     int32
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const UserEmbeddingRefreshed OutboxEventType = "user.embedding.refreshed"

// OutboxEvent — событие transactional outbox.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	EntityID    string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// WriteRawMessageReq — запрос на публикацию сырого payload'а в брокер.
type WriteRawMessageReq struct {
	EntityID string
	Payload  []byte
}

// MAPPERS

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       decimal.NewFromInt(p.Price).Div(decimal.NewFromInt(100)).StringFixed(2),
	}
}

func NewOutboxEvent(eventID string, eventType OutboxEventType, entityID string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		EntityID:  entityID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: time.Now().UTC(),
	}
}

func NewWriteRawMessageReq(entityID string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		EntityID: entityID,
		Payload:  payload,
	}
}
