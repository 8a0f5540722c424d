package clients

import (
	"context"
	"fmt"

	"github.com/jimlawless/whereami"
	config "github.com/northmart/reco-backend/internal/cfg"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

// EnsureCollection создаёт коллекцию с настроенной метрикой, если её нет,
// и keyword-индексы по полям метаданных, на которые опираются фильтры поиска.
func EnsureCollection(ctx context.Context, client *QdrantClient) error {
	exists, err := client.Client.CollectionExists(ctx, client.cfg.QdrantCollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: client.cfg.QdrantCollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     client.cfg.VectorSize,
				Distance: distanceFromCfg(client.cfg.Distance),
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	// Индексы идемпотентны: повторное создание по существующему полю безвредно
	for _, field := range []string{"kind", "entity_id"} {
		if _, err := client.Client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: client.cfg.QdrantCollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return fmt.Errorf("failed to create payload index on %s: %w", field, err)
		}
	}

	return nil
}

// distanceFromCfg переводит строку конфигурации в метрику Qdrant.
// Валидность значения гарантирует cfg.Load, по умолчанию — косинусная близость.
func distanceFromCfg(distance string) qdrant.Distance {
	switch distance {
	case "euclid":
		return qdrant.Distance_Euclid
	case "dot":
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}
