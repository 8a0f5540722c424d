package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/logger"
)

// RecommendationUseCase реализует рекомендательный движок: пересчёт эмбеддинга
// запрашивающей сущности, ANN-поиск с фильтром метаданных, исключение уже
// купленного и гидратация выживших кандидатов в полные записи каталога.
type RecommendationUseCase struct {
	embeddings      EmbeddingManager
	vectorIndex     VectorIndex
	productRepo     ProductRepository
	transactionRepo TransactionRepository
	cacheRepo       CacheRepository
	logger          logger.Logger
	overFetch       int
}

func NewRecommendationUC(
	embeddings EmbeddingManager,
	vectorIndex VectorIndex,
	productRepo ProductRepository,
	transactionRepo TransactionRepository,
	cacheRepo CacheRepository,
	logger logger.Logger,
	overFetch int,
) *RecommendationUseCase {
	return &RecommendationUseCase{
		embeddings:      embeddings,
		vectorIndex:     vectorIndex,
		productRepo:     productRepo,
		transactionRepo: transactionRepo,
		cacheRepo:       cacheRepo,
		logger:          logger,
		overFetch:       overFetch,
	}
}

// RecommendForUser возвращает до limit товаров, ранжированных по близости
// к свежепересчитанному эмбеддингу пользователя, без уже купленных.
// limit <= 0 и пустая история покупок дают пустой список без ошибки:
// «нет данных» и «отказ сервиса» различаются только каналом ошибки.
// Гидратация не гарантирует полноту: id без активной записи каталога
// молча выпадают из результата.
func (r *RecommendationUseCase) RecommendForUser(ctx context.Context, userID string, limit int) ([]ProductInfo, error) {
	const op = "RecommendationUseCase.RecommendForUser"

	if limit <= 0 {
		return []ProductInfo{}, nil
	}

	userRes, err := r.embeddings.EnsureUserEmbedding(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if userRes.NoHistory {
		return []ProductInfo{}, nil
	}

	// Запас в overFetch кандидатов компенсирует отсев купленного
	hits, err := r.vectorIndex.Search(
		ctx,
		userRes.Vector,
		uint64(limit+r.overFetch),
		domain.NewVectorFilter(domain.Eq("kind", domain.KindProduct)),
	)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}

	purchased, err := r.transactionRepo.CompletedProductIDs(ctx, userID)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}

	ids := make([]string, 0, limit)
	for _, hit := range hits {
		if _, bought := purchased[hit.EntityKey]; bought {
			continue
		}

		ids = append(ids, hit.EntityKey)
		if len(ids) == limit {
			break
		}
	}

	result, err := r.hydrate(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return result, nil
}

// SimilarToProduct возвращает до limit товаров, ближайших к товару productID.
// Сам товар в результат не попадает никогда. Отсутствующий товар — ошибка
// e.ErrProductNotFound, а не пустой список.
func (r *RecommendationUseCase) SimilarToProduct(ctx context.Context, productID string, limit int) ([]ProductInfo, error) {
	const op = "RecommendationUseCase.SimilarToProduct"

	if limit <= 0 {
		return []ProductInfo{}, nil
	}

	product, err := r.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, e.ErrProductNotFound) {
			return nil, e.Wrap(op, err)
		}
		return nil, e.WrapDependency(op, err)
	}

	vector, err := r.embeddings.EnsureProductEmbedding(ctx, product)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	hits, err := r.vectorIndex.Search(
		ctx,
		vector,
		uint64(limit),
		domain.NewVectorFilter(
			domain.Eq("kind", domain.KindProduct),
			domain.Ne("entity_id", domain.ProductKey(productID)),
		),
	)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.EntityKey == domain.ProductKey(productID) {
			continue // самоисключение обязательно, независимо от фильтра индекса
		}

		ids = append(ids, hit.EntityKey)
	}

	result, err := r.hydrate(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return result, nil
}

// hydrate превращает ранжированные id в записи каталога, сохраняя порядок.
// Сначала кэш, промахи добираются из БД и фоном докладываются в кэш.
// Ошибка кэша деградирует до чтения из БД. В кэше лежат только активные
// товары, деактивация становится видимой по истечении TTL.
func (r *RecommendationUseCase) hydrate(ctx context.Context, ids []string) ([]ProductInfo, error) {
	const op = "RecommendationUseCase.hydrate"

	if len(ids) == 0 {
		return []ProductInfo{}, nil
	}

	cached, err := r.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		r.logger.Warnf("product cache lookup failed, falling back to db: %v", e.Wrap(op, err))
		cached = nil
	}

	nonCacheable := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			nonCacheable = append(nonCacheable, id)
		}
	}

	dbProducts := make(map[string]ProductInfo, len(nonCacheable))
	if len(nonCacheable) > 0 {
		products, err := r.productRepo.FindActiveByIDs(ctx, nonCacheable)
		if err != nil {
			return nil, e.WrapDependency(op, err)
		}

		fromDB := make([]ProductInfo, 0, len(products))
		for i := range products {
			info := NewProductInfo(&products[i])
			dbProducts[info.ID] = info
			fromDB = append(fromDB, info)
		}

		// Фоновое добавление товаров в кэш
		if len(fromDB) > 0 {
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := r.cacheRepo.SetProducts(bgCtx, fromDB); err != nil {
					r.logger.Warnf("failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	result := make([]ProductInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := cached[id]; ok {
			result = append(result, info)
		} else if info, ok := dbProducts[id]; ok {
			result = append(result, info)
		}
		// id без активной записи каталога молча выпадает
	}

	return result, nil
}
