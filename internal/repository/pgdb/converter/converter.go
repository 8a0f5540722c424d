package converter

import (
	"encoding/json"

	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/internal/usecase"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToEntity(model *ProductModel) *domain.Product
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

// EmbeddingRefreshConverter преобразует сущности EmbeddingRefresh между domain и моделью PostgreSQL.
type EmbeddingRefreshConverter interface {
	ToEntity(model *EmbeddingRefreshModel) *domain.EmbeddingRefresh
}

type productConverter struct{}

func NewProductConverter() ProductConverter {
	return &productConverter{}
}

func (c *productConverter) ToEntity(model *ProductModel) *domain.Product {
	features := map[string]any{}
	if len(model.Features) > 0 {
		// Невалидный jsonb в features оставляет пустую карту
		_ = json.Unmarshal(model.Features, &features)
	}

	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Price:       model.Price,
		Category:    model.Category,
		Features:    features,
		IsActive:    model.IsActive,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

type outboxEventConverter struct{}

func NewOutboxEventConverter() OutboxEventConverter {
	return &outboxEventConverter{}
}

func (c *outboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		EntityID:    entity.EntityID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (c *outboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		EntityID:    model.EntityID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c *outboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToEntity(model))
	}

	return result
}

type embeddingRefreshConverter struct{}

func NewEmbeddingRefreshConverter() EmbeddingRefreshConverter {
	return &embeddingRefreshConverter{}
}

func (c *embeddingRefreshConverter) ToEntity(model *EmbeddingRefreshModel) *domain.EmbeddingRefresh {
	return &domain.EmbeddingRefresh{
		ID:           model.ID,
		UserID:       model.UserID,
		RefreshCount: model.RefreshCount,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
