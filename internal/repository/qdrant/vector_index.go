package qdrant

import (
	"context"

	"github.com/jimlawless/whereami"
	"github.com/northmart/reco-backend/internal/cfg"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/internal/usecase"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/qdrant/go-client/qdrant"
)

// VectorIndexRepo реализует адаптер векторного индекса поверх Qdrant.
// Товары и пользователи живут в одной коллекции, различаясь полем kind
// и префиксованным entity_id; point id детерминированно выводится из
// логического ключа, поэтому upsert всегда перезаписывает (last-writer-wins).
type VectorIndexRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewVectorIndexRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *VectorIndexRepo {
	return &VectorIndexRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert сохраняет или перезаписывает вектор сущности в коллекции.
// Wait=true: последующий поиск в том же запросе обязан видеть эту запись.
func (q *VectorIndexRepo) Upsert(ctx context.Context, embedding *domain.Embedding) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(domain.PointID(embedding.EntityKey)),
		Vectors: qdrant.NewVectors(embedding.Vector...),
		Payload: qdrant.NewValueMap(embedding.Payload),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает topK ближайших соседей, лучшие первыми.
// Порядок при равных скорах определяется индексом.
func (q *VectorIndexRepo) Search(ctx context.Context, vector []float32, topK uint64, filter *domain.VectorFilter) ([]usecase.SearchHit, error) {
	qdrantFilter, err := buildFilter(filter)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(topK),
		Filter:         qdrantFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	hits := make([]usecase.SearchHit, 0, len(points))
	for _, point := range points {
		payload := payloadToMap(point.GetPayload())

		entityKey, ok := payload["entity_id"].(string)
		if !ok {
			// Чужая запись без entity_id не может быть кандидатом
			continue
		}

		hits = append(hits, usecase.SearchHit{
			EntityKey: entityKey,
			Score:     point.GetScore(),
			Payload:   payload,
		})
	}

	return hits, nil
}

// Delete удаляет вектор по логическому ключу сущности.
func (q *VectorIndexRepo) Delete(ctx context.Context, entityKey string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(domain.PointID(entityKey))),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
