package usecase

import (
	"context"
	"encoding/json"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/logger"
	"github.com/northmart/reco-backend/pkg/tr"
)

// EmbeddingUseCase реализует менеджер эмбеддингов: пересчёт и перезапись
// векторов товаров и пользователей в векторном индексе.
type EmbeddingUseCase struct {
	transactionRepo TransactionRepository
	vectorIndex     VectorIndex
	provider        EmbeddingProvider
	outboxRepo      OutboxRepository
	refreshRepo     EmbeddingRefreshRepository
	dbPool          transaction.Transactional
	logger          logger.Logger
	historyLimit    int
}

func NewEmbeddingUC(
	transactionRepo TransactionRepository,
	vectorIndex VectorIndex,
	provider EmbeddingProvider,
	outboxRepo OutboxRepository,
	refreshRepo EmbeddingRefreshRepository,
	dbPool transaction.Transactional,
	logger logger.Logger,
	historyLimit int,
) *EmbeddingUseCase {
	return &EmbeddingUseCase{
		transactionRepo: transactionRepo,
		vectorIndex:     vectorIndex,
		provider:        provider,
		outboxRepo:      outboxRepo,
		refreshRepo:     refreshRepo,
		dbPool:          dbPool,
		logger:          logger,
		historyLimit:    historyLimit,
	}
}

// EnsureProductEmbedding строит вектор из атрибутов товара и безусловно
// перезаписывает его в индексе. Возвращает только что сохранённый вектор,
// чтобы последующий поиск использовал именно его.
func (u *EmbeddingUseCase) EnsureProductEmbedding(ctx context.Context, product *domain.Product) ([]float32, error) {
	const op = "EmbeddingUseCase.EnsureProductEmbedding"

	vector, err := u.embed(ctx, product.AttributeRecord())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	embedding := domain.NewEmbedding(
		domain.ProductKey(product.ID),
		vector,
		domain.NewProductPayload(product),
	)

	if err := u.vectorIndex.Upsert(ctx, embedding); err != nil {
		return nil, e.WrapDependency(op, err)
	}

	return vector, nil
}

// EnsureUserEmbedding агрегирует профиль из последних завершённых покупок,
// строит вектор и безусловно перезаписывает его в индексе. Пустая история —
// не ошибка: возвращается NoHistory. Кэширования и dirty-tracking нет,
// каждый вызов делает полный пересчёт.
func (u *EmbeddingUseCase) EnsureUserEmbedding(ctx context.Context, userID string) (*UserEmbeddingRes, error) {
	const op = "EmbeddingUseCase.EnsureUserEmbedding"

	transactions, err := u.transactionRepo.CompletedTransactions(ctx, userID, u.historyLimit)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}

	if len(transactions) == 0 {
		return &UserEmbeddingRes{NoHistory: true}, nil
	}

	profile := domain.NewPreferenceProfile(transactions)

	vector, err := u.embed(ctx, profile.AttributeRecord())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	embedding := domain.NewEmbedding(
		domain.UserKey(userID),
		vector,
		domain.NewUserPayload(userID, profile),
	)

	if err := u.vectorIndex.Upsert(ctx, embedding); err != nil {
		return nil, e.WrapDependency(op, err)
	}

	return &UserEmbeddingRes{
		Vector:  vector,
		Profile: profile,
	}, nil
}

// RefreshUserEmbedding — явный пересчёт эмбеддинга по запросу внешнего клиента.
// Помимо перезаписи вектора в одной транзакции инкрементируется счётчик
// пересчётов и пишется outbox-событие для downstream-потребителей.
func (u *EmbeddingUseCase) RefreshUserEmbedding(ctx context.Context, userID string) (*RefreshUserEmbeddingRes, error) {
	const op = "EmbeddingUseCase.RefreshUserEmbedding"

	res, err := u.EnsureUserEmbedding(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if res.NoHistory {
		return &RefreshUserEmbeddingRes{NoHistory: true}, nil
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, u.dbPool)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, tr.TxKey, tx.Transaction())

	refresh, err := u.refreshRepo.Upsert(ctx, userID)
	if err != nil {
		return nil, e.WrapDependency(op, err)
	}

	payload, err := json.Marshal(map[string]any{
		"user_id":           userID,
		"transaction_count": res.Profile.TransactionCount,
		"refresh_count":     refresh.RefreshCount,
		"refreshed_at":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if _, err = u.outboxRepo.Create(ctx, NewOutboxEvent(
		uuid.NewString(),
		UserEmbeddingRefreshed,
		userID,
		payload,
	)); err != nil {
		return nil, e.WrapDependency(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.WrapDependency(op, err)
	}

	return &RefreshUserEmbeddingRes{
		TransactionCount: res.Profile.TransactionCount,
		RefreshCount:     refresh.RefreshCount,
	}, nil
}

// embed вызывает провайдера и проверяет контракт фиксированной размерности.
func (u *EmbeddingUseCase) embed(ctx context.Context, record domain.AttributeRecord) ([]float32, error) {
	vector, err := u.provider.Embed(ctx, record)
	if err != nil {
		return nil, e.WrapDependency("EmbeddingProvider.Embed", err)
	}

	if len(vector) == 0 {
		return nil, e.ErrEmptyVector
	}

	if len(vector) != u.provider.Dimensions() {
		return nil, e.Wrap("EmbeddingProvider.Embed", e.ErrVectorSizeMismatch)
	}

	return vector, nil
}
