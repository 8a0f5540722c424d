package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/tr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	created   []*OutboxEvent
	createErr error
}

func (f *fakeOutboxRepo) Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, event)
	return event, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	return nil
}

type fakeRefreshRepo struct {
	refresh *domain.EmbeddingRefresh
	lastCtx context.Context
}

func (f *fakeRefreshRepo) Upsert(ctx context.Context, userID string) (*domain.EmbeddingRefresh, error) {
	f.lastCtx = ctx
	return f.refresh, nil
}

// fakeTx реализует pgx.Tx, фиксируя только исход транзакции.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeTxStarter struct {
	tx *fakeTx
}

func (f *fakeTxStarter) Begin(ctx context.Context) (pgx.Tx, error) { return f.tx, nil }

func (f *fakeTxStarter) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return f.tx, nil
}

func newEmbeddingUC(
	transactions *fakeTransactionRepo,
	index *fakeVectorIndex,
	provider *fakeEmbeddingProvider,
) *EmbeddingUseCase {
	return NewEmbeddingUC(
		transactions,
		index,
		provider,
		&fakeOutboxRepo{},
		&fakeRefreshRepo{},
		nil,
		nopLogger{},
		50,
	)
}

func TestEnsureProductEmbedding_UpsertsAndReturnsVector(t *testing.T) {
	index := &fakeVectorIndex{}
	provider := &fakeEmbeddingProvider{vector: []float32{0.1, 0.2, 0.3}, dimensions: 3}
	uc := newEmbeddingUC(&fakeTransactionRepo{}, index, provider)

	product := &domain.Product{ID: "p1", Name: "Ноутбук", Category: "electronics", Price: 9990000}

	vector, err := uc.EnsureProductEmbedding(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)

	require.Len(t, index.upserted, 1)
	emb := index.upserted[0]
	assert.Equal(t, domain.ProductKey("p1"), emb.EntityKey)
	assert.Equal(t, domain.KindProduct, emb.Payload["kind"])
	assert.Equal(t, vector, emb.Vector)
}

func TestEnsureProductEmbedding_Idempotent(t *testing.T) {
	index := &fakeVectorIndex{}
	provider := &fakeEmbeddingProvider{vector: []float32{1}, dimensions: 1}
	uc := newEmbeddingUC(&fakeTransactionRepo{}, index, provider)

	product := &domain.Product{ID: "p1", Name: "Ноутбук"}

	_, err := uc.EnsureProductEmbedding(context.Background(), product)
	require.NoError(t, err)
	_, err = uc.EnsureProductEmbedding(context.Background(), product)
	require.NoError(t, err)

	// Оба раза один и тот же логический ключ: повторный upsert перезаписывает
	require.Len(t, index.upserted, 2)
	assert.Equal(t, index.upserted[0].EntityKey, index.upserted[1].EntityKey)
}

func TestEnsureUserEmbedding_NoHistory(t *testing.T) {
	index := &fakeVectorIndex{}
	provider := &fakeEmbeddingProvider{vector: []float32{1}, dimensions: 1}
	uc := newEmbeddingUC(&fakeTransactionRepo{}, index, provider)

	res, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, res.NoHistory)
	assert.Nil(t, res.Vector)
	// Ни провайдер, ни индекс не трогаются
	assert.Empty(t, provider.records)
	assert.Empty(t, index.upserted)
}

func TestEnsureUserEmbedding_BuildsProfileAndUpserts(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", UserID: "u1", ProductID: "p1", Amount: 10000, Category: "books", Status: domain.TransactionCompleted},
		{ID: "t2", UserID: "u1", ProductID: "p2", Amount: 30000, Category: "books", Status: domain.TransactionCompleted},
	}}
	index := &fakeVectorIndex{}
	provider := &fakeEmbeddingProvider{vector: []float32{0.7, 0.8}, dimensions: 2}
	uc := newEmbeddingUC(transactions, index, provider)

	res, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, res.NoHistory)
	assert.Equal(t, []float32{0.7, 0.8}, res.Vector)

	require.NotNil(t, res.Profile)
	assert.Equal(t, 2, res.Profile.TransactionCount)
	assert.Equal(t, "200.00", res.Profile.AvgAmount.StringFixed(2))

	require.Len(t, index.upserted, 1)
	emb := index.upserted[0]
	assert.Equal(t, domain.UserKey("u1"), emb.EntityKey)
	assert.Equal(t, domain.KindUser, emb.Payload["kind"])
}

func TestEnsureUserEmbedding_ProviderFailure(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", Amount: 100, Category: "books"},
	}}
	provider := &fakeEmbeddingProvider{err: errors.New("model overloaded"), dimensions: 2}
	uc := newEmbeddingUC(transactions, &fakeVectorIndex{}, provider)

	_, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrDependencyFailure)
}

func TestEnsureUserEmbedding_VectorSizeMismatch(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", Amount: 100, Category: "books"},
	}}
	index := &fakeVectorIndex{}
	provider := &fakeEmbeddingProvider{vector: []float32{1, 2, 3}, dimensions: 2}
	uc := newEmbeddingUC(transactions, index, provider)

	_, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrVectorSizeMismatch)
	assert.Empty(t, index.upserted)
}

func TestEnsureUserEmbedding_EmptyVector(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", Amount: 100, Category: "books"},
	}}
	provider := &fakeEmbeddingProvider{vector: []float32{}, dimensions: 2}
	uc := newEmbeddingUC(transactions, &fakeVectorIndex{}, provider)

	_, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrEmptyVector)
}

func TestEnsureUserEmbedding_RespectsHistoryLimit(t *testing.T) {
	transactions := make([]domain.Transaction, 60)
	for i := range transactions {
		transactions[i] = domain.Transaction{Amount: 100, Category: "books"}
	}
	repo := &fakeTransactionRepo{transactions: transactions}
	provider := &fakeEmbeddingProvider{vector: []float32{1}, dimensions: 1}
	uc := newEmbeddingUC(repo, &fakeVectorIndex{}, provider)

	res, err := uc.EnsureUserEmbedding(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 50, res.Profile.TransactionCount)
}

func TestRefreshUserEmbedding_NoHistory(t *testing.T) {
	uc := newEmbeddingUC(&fakeTransactionRepo{}, &fakeVectorIndex{}, &fakeEmbeddingProvider{vector: []float32{1}, dimensions: 1})

	res, err := uc.RefreshUserEmbedding(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, res.NoHistory)
	assert.Zero(t, res.TransactionCount)
}

func TestRefreshUserEmbedding_CommitsAuditAndOutbox(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", UserID: "u1", ProductID: "p1", Amount: 10000, Category: "books", Status: domain.TransactionCompleted},
		{ID: "t2", UserID: "u1", ProductID: "p2", Amount: 20000, Category: "books", Status: domain.TransactionCompleted},
	}}
	index := &fakeVectorIndex{}
	outbox := &fakeOutboxRepo{}
	refreshRepo := &fakeRefreshRepo{refresh: &domain.EmbeddingRefresh{ID: 1, UserID: "u1", RefreshCount: 3}}
	tx := &fakeTx{}

	uc := NewEmbeddingUC(
		transactions,
		index,
		&fakeEmbeddingProvider{vector: []float32{0.1}, dimensions: 1},
		outbox,
		refreshRepo,
		&fakeTxStarter{tx: tx},
		nopLogger{},
		50,
	)

	res, err := uc.RefreshUserEmbedding(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, res.NoHistory)
	assert.Equal(t, 2, res.TransactionCount)
	assert.Equal(t, int32(3), res.RefreshCount)

	// Вектор перезаписан, транзакция закоммичена, отката не было
	require.Len(t, index.upserted, 1)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	// Аудит-запись писалась внутри открытой транзакции
	require.NotNil(t, refreshRepo.lastCtx)
	gotTx, err := tr.TxFromCtx(refreshRepo.lastCtx)
	require.NoError(t, err)
	assert.Same(t, tx, gotTx)

	require.Len(t, outbox.created, 1)
	event := outbox.created[0]
	assert.Equal(t, UserEmbeddingRefreshed, event.EventType)
	assert.Equal(t, "u1", event.EntityID)
	assert.NotEmpty(t, event.EventID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "u1", payload["user_id"])
	assert.EqualValues(t, 2, payload["transaction_count"])
	assert.EqualValues(t, 3, payload["refresh_count"])
}

func TestRefreshUserEmbedding_RollsBackOnOutboxFailure(t *testing.T) {
	transactions := &fakeTransactionRepo{transactions: []domain.Transaction{
		{ID: "t1", UserID: "u1", ProductID: "p1", Amount: 10000, Category: "books", Status: domain.TransactionCompleted},
	}}
	outbox := &fakeOutboxRepo{createErr: errors.New("insert failed")}
	refreshRepo := &fakeRefreshRepo{refresh: &domain.EmbeddingRefresh{ID: 1, UserID: "u1", RefreshCount: 1}}
	tx := &fakeTx{}

	uc := NewEmbeddingUC(
		transactions,
		&fakeVectorIndex{},
		&fakeEmbeddingProvider{vector: []float32{0.1}, dimensions: 1},
		outbox,
		refreshRepo,
		&fakeTxStarter{tx: tx},
		nopLogger{},
		50,
	)

	_, err := uc.RefreshUserEmbedding(context.Background(), "u1")

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrDependencyFailure)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}
