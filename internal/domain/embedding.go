package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Виды сущностей в общей коллекции векторного индекса.
const (
	KindProduct = "product"
	KindUser    = "user"
)

// pointNamespace — фиксированный namespace для детерминированных UUIDv5 point id.
// Один и тот же логический ключ всегда даёт один и тот же point id,
// поэтому повторный upsert перезаписывает запись (last-writer-wins).
var pointNamespace = uuid.MustParse("8f2a1c64-33de-4b1a-9f5e-7d06c52b8a11")

// AttributeRecord описывает структурированный вход embedding-провайдера.
type AttributeRecord map[string]any

// Payload описывает метаданные вектора
type Payload map[string]any

// Embedding представляет эмбеддинг одной сущности (товара или пользователя).
type Embedding struct {
	EntityKey string // логический ключ в общем пространстве имён
	Vector    []float32
	Payload   Payload
}

func NewEmbedding(entityKey string, vector []float32, payload Payload) *Embedding {
	return &Embedding{
		EntityKey: entityKey,
		Vector:    vector,
		Payload:   payload,
	}
}

// ProductKey возвращает ключ товара в общем пространстве имён индекса.
func ProductKey(productID string) string {
	return productID
}

// UserKey возвращает ключ пользователя. Префикс исключает коллизии
// с идентификаторами товаров в общей коллекции.
func UserKey(userID string) string {
	return "user_" + userID
}

// PointID детерминированно выводит UUID точки Qdrant из логического ключа.
// Qdrant принимает только UUID или uint64 в качестве id точки.
func PointID(entityKey string) string {
	return uuid.NewSHA1(pointNamespace, []byte(entityKey)).String()
}

// NewProductPayload формирует метаданные вектора товара.
func NewProductPayload(p *Product) Payload {
	return Payload{
		"entity_id":  ProductKey(p.ID),
		"product_id": p.ID,
		"category":   p.Category,
		"price":      decimal.NewFromInt(p.Price).Div(decimal.NewFromInt(100)).InexactFloat64(),
		"name":       p.Name,
		"kind":       KindProduct,
		"created_at": time.Now().UTC().UnixNano(),
	}
}

// NewUserPayload формирует метаданные вектора пользователя из агрегированного профиля.
func NewUserPayload(userID string, profile *PreferenceProfile) Payload {
	categories := make([]any, 0, len(profile.CategoryCounts))
	for _, category := range profile.TopCategories() {
		categories = append(categories, category)
	}

	return Payload{
		"entity_id":         UserKey(userID),
		"user_id":           userID,
		"transaction_count": int64(profile.TransactionCount),
		"avg_amount":        profile.AvgAmount.InexactFloat64(),
		"total_amount":      profile.TotalAmount.InexactFloat64(),
		"top_categories":    categories,
		"kind":              KindUser,
		"created_at":        time.Now().UTC().UnixNano(),
	}
}
