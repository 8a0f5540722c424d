package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecommendationUC(
	embeddings *fakeEmbeddings,
	index *fakeVectorIndex,
	products *fakeProductRepo,
	transactions *fakeTransactionRepo,
	cache *fakeCacheRepo,
) *RecommendationUseCase {
	return NewRecommendationUC(embeddings, index, products, transactions, cache, nopLogger{}, 5)
}

func activeProduct(id, name, category string, price int64) domain.Product {
	return domain.Product{ID: id, Name: name, Category: category, Price: price, IsActive: true}
}

func TestRecommendForUser_NoHistoryReturnsEmpty(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{NoHistory: true}}
	index := &fakeVectorIndex{}
	uc := newRecommendationUC(embeddings, index, &fakeProductRepo{}, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.RecommendForUser(context.Background(), "u1", 10)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	// Без истории поиск по индексу не выполняется
	assert.Zero(t, index.lastTopK)
}

func TestRecommendForUser_NonPositiveLimit(t *testing.T) {
	embeddings := &fakeEmbeddings{}
	uc := newRecommendationUC(embeddings, &fakeVectorIndex{}, &fakeProductRepo{}, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.RecommendForUser(context.Background(), "u1", 0)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, embeddings.ensuredUsers)
}

func TestRecommendForUser_ExcludesPurchased(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.1, 0.2}}}
	index := &fakeVectorIndex{hits: []SearchHit{
		{EntityKey: "p1", Score: 0.99},
		{EntityKey: "p2", Score: 0.95},
		{EntityKey: "p3", Score: 0.90},
	}}
	transactions := &fakeTransactionRepo{purchased: map[string]struct{}{"p1": {}}}
	products := &fakeProductRepo{active: []domain.Product{
		activeProduct("p2", "Книга", "books", 49900),
		activeProduct("p3", "Мышь", "electronics", 199900),
	}}
	uc := newRecommendationUC(embeddings, index, products, transactions, &fakeCacheRepo{})

	got, err := uc.RecommendForUser(context.Background(), "u1", 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p3", got[1].ID)
	for _, info := range got {
		assert.NotEqual(t, "p1", info.ID)
	}
}

func TestRecommendForUser_OverFetchAndTruncate(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{hits: []SearchHit{
		{EntityKey: "p1"}, {EntityKey: "p2"}, {EntityKey: "p3"}, {EntityKey: "p4"},
	}}
	products := &fakeProductRepo{active: []domain.Product{
		activeProduct("p1", "a", "c", 100),
		activeProduct("p2", "b", "c", 100),
		activeProduct("p3", "c", "c", 100),
		activeProduct("p4", "d", "c", 100),
	}}
	uc := newRecommendationUC(embeddings, index, products, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.RecommendForUser(context.Background(), "u1", 2)

	require.NoError(t, err)
	// Запрашивается limit + overFetch кандидатов, отдаётся не больше limit
	assert.Equal(t, uint64(7), index.lastTopK)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)
}

func TestRecommendForUser_FiltersByProductKind(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{}
	uc := newRecommendationUC(embeddings, index, &fakeProductRepo{}, &fakeTransactionRepo{}, &fakeCacheRepo{})

	_, err := uc.RecommendForUser(context.Background(), "u1", 3)

	require.NoError(t, err)
	require.NotNil(t, index.lastFilter)
	require.Len(t, index.lastFilter.Conditions, 1)
	cond := index.lastFilter.Conditions[0]
	assert.Equal(t, "kind", cond.Field)
	assert.Equal(t, domain.FilterOpEq, cond.Op)
	assert.Equal(t, domain.KindProduct, cond.Value)
}

func TestRecommendForUser_SearchFailure(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{searchErr: errors.New("qdrant unavailable")}
	uc := newRecommendationUC(embeddings, index, &fakeProductRepo{}, &fakeTransactionRepo{}, &fakeCacheRepo{})

	_, err := uc.RecommendForUser(context.Background(), "u1", 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrDependencyFailure)
}

func TestSimilarToProduct_NotFound(t *testing.T) {
	products := &fakeProductRepo{byIDErr: e.Wrap("pgdb", e.ErrProductNotFound)}
	uc := newRecommendationUC(&fakeEmbeddings{}, &fakeVectorIndex{}, products, &fakeTransactionRepo{}, &fakeCacheRepo{})

	_, err := uc.SimilarToProduct(context.Background(), "missing", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrProductNotFound)
	assert.NotErrorIs(t, err, e.ErrDependencyFailure)
}

func TestSimilarToProduct_ExcludesSelf(t *testing.T) {
	source := activeProduct("p1", "Ноутбук", "electronics", 9990000)
	embeddings := &fakeEmbeddings{productVec: []float32{0.3, 0.4}}
	index := &fakeVectorIndex{hits: []SearchHit{
		{EntityKey: "p1", Score: 1.0}, // индекс может вернуть сам товар
		{EntityKey: "p2", Score: 0.9},
	}}
	products := &fakeProductRepo{
		byID:   map[string]*domain.Product{"p1": &source},
		active: []domain.Product{activeProduct("p2", "Планшет", "electronics", 4990000)},
	}
	uc := newRecommendationUC(embeddings, index, products, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.SimilarToProduct(context.Background(), "p1", 5)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	// Исключение дублируется и в фильтре индекса
	require.NotNil(t, index.lastFilter)
	var hasNe bool
	for _, cond := range index.lastFilter.Conditions {
		if cond.Op == domain.FilterOpNe && cond.Field == "entity_id" {
			hasNe = true
			assert.Equal(t, domain.ProductKey("p1"), cond.Value)
		}
	}
	assert.True(t, hasNe)
}

func TestSimilarToProduct_NonPositiveLimit(t *testing.T) {
	products := &fakeProductRepo{byIDErr: errors.New("must not be called")}
	uc := newRecommendationUC(&fakeEmbeddings{}, &fakeVectorIndex{}, products, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.SimilarToProduct(context.Background(), "p1", 0)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHydrate_PrefersCacheAndKeepsRanking(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{hits: []SearchHit{
		{EntityKey: "p1"}, {EntityKey: "p2"}, {EntityKey: "p3"},
	}}
	cache := &fakeCacheRepo{cached: map[string]ProductInfo{
		"p2": {ID: "p2", Name: "Из кэша", Category: "books", Price: "199.00"},
	}}
	products := &fakeProductRepo{active: []domain.Product{
		activeProduct("p1", "Из базы", "books", 9900),
		activeProduct("p3", "Тоже из базы", "books", 29900),
	}}
	uc := newRecommendationUC(embeddings, index, products, &fakeTransactionRepo{}, cache)

	got, err := uc.RecommendForUser(context.Background(), "u1", 3)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "Из кэша", got[1].Name)
	assert.Equal(t, "99.00", got[0].Price)
}

func TestHydrate_CacheFailureFallsBackToDB(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{hits: []SearchHit{{EntityKey: "p1"}}}
	cache := &fakeCacheRepo{getErr: errors.New("redis down")}
	products := &fakeProductRepo{active: []domain.Product{activeProduct("p1", "a", "c", 100)}}
	uc := newRecommendationUC(embeddings, index, products, &fakeTransactionRepo{}, cache)

	got, err := uc.RecommendForUser(context.Background(), "u1", 1)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestHydrate_InactiveProductsSilentlyDropped(t *testing.T) {
	embeddings := &fakeEmbeddings{userRes: &UserEmbeddingRes{Vector: []float32{0.5}}}
	index := &fakeVectorIndex{hits: []SearchHit{{EntityKey: "p1"}, {EntityKey: "p2"}}}
	// p2 деактивирован и не возвращается из каталога
	products := &fakeProductRepo{active: []domain.Product{activeProduct("p1", "a", "c", 100)}}
	uc := newRecommendationUC(embeddings, index, products, &fakeTransactionRepo{}, &fakeCacheRepo{})

	got, err := uc.RecommendForUser(context.Background(), "u1", 5)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}
