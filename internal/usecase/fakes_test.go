package usecase

import (
	"context"
	"sync"

	"github.com/northmart/reco-backend/internal/domain"
)

// Тестовые заглушки портов. Поведение настраивается полями, вызовы записываются.

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any)            {}
func (nopLogger) Infof(format string, args ...any)             {}
func (nopLogger) Warnf(format string, args ...any)             {}
func (nopLogger) Errorf(err error, format string, args ...any) {}

type fakeEmbeddings struct {
	userRes    *UserEmbeddingRes
	userErr    error
	productVec []float32
	productErr error

	ensuredUsers    []string
	ensuredProducts []string
}

func (f *fakeEmbeddings) EnsureProductEmbedding(ctx context.Context, product *domain.Product) ([]float32, error) {
	f.ensuredProducts = append(f.ensuredProducts, product.ID)
	return f.productVec, f.productErr
}

func (f *fakeEmbeddings) EnsureUserEmbedding(ctx context.Context, userID string) (*UserEmbeddingRes, error) {
	f.ensuredUsers = append(f.ensuredUsers, userID)
	return f.userRes, f.userErr
}

type fakeVectorIndex struct {
	hits       []SearchHit
	searchErr  error
	upsertErr  error
	lastTopK   uint64
	lastFilter *domain.VectorFilter
	lastVector []float32
	upserted   []*domain.Embedding
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, embedding *domain.Embedding) error {
	f.upserted = append(f.upserted, embedding)
	return f.upsertErr
}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, topK uint64, filter *domain.VectorFilter) ([]SearchHit, error) {
	f.lastVector = vector
	f.lastTopK = topK
	f.lastFilter = filter
	return f.hits, f.searchErr
}

func (f *fakeVectorIndex) Delete(ctx context.Context, entityKey string) error {
	return nil
}

type fakeProductRepo struct {
	byID    map[string]*domain.Product
	byIDErr error
	active  []domain.Product
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID[id], nil
}

func (f *fakeProductRepo) FindActiveByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	result := make([]domain.Product, 0, len(ids))
	for _, p := range f.active {
		if _, ok := wanted[p.ID]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

type fakeTransactionRepo struct {
	transactions []domain.Transaction
	purchased    map[string]struct{}
	listErr      error
	idsErr       error
}

func (f *fakeTransactionRepo) CompletedTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.transactions) {
		return f.transactions[:limit], nil
	}
	return f.transactions, nil
}

func (f *fakeTransactionRepo) CompletedProductIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	if f.purchased == nil {
		return map[string]struct{}{}, nil
	}
	return f.purchased, nil
}

type fakeCacheRepo struct {
	mu     sync.Mutex
	cached map[string]ProductInfo
	getErr error
	stored []ProductInfo
}

func (f *fakeCacheRepo) GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	result := make(map[string]ProductInfo)
	for _, id := range ids {
		if info, ok := f.cached[id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func (f *fakeCacheRepo) SetProducts(ctx context.Context, products []ProductInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, products...)
	return nil
}

func (f *fakeCacheRepo) DeleteProducts(ctx context.Context, ids []string) error {
	return nil
}

type fakeEmbeddingProvider struct {
	vector     []float32
	err        error
	dimensions int
	records    []domain.AttributeRecord
}

func (f *fakeEmbeddingProvider) Embed(ctx context.Context, record domain.AttributeRecord) ([]float32, error) {
	f.records = append(f.records, record)
	return f.vector, f.err
}

func (f *fakeEmbeddingProvider) Dimensions() int {
	return f.dimensions
}
