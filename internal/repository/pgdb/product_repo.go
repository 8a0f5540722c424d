package pgdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/internal/repository/pgdb/converter"
	"github.com/northmart/reco-backend/pkg/e"
)

// ProductRepo реализует read-only репозиторий каталога поверх PostgreSQL.
// Каталог принадлежит внешней системе, этот сервис его никогда не мутирует.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

// FindByID возвращает товар по идентификатору или e.ErrProductNotFound.
func (p *ProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, category, features, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var model converter.ProductModel
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&model.ID, &model.Name, &model.Description, &model.Price,
		&model.Category, &model.Features, &model.IsActive,
		&model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(&model), nil
}

// FindActiveByIDs возвращает активные товары из переданного набора.
// Отсутствующие и деактивированные id просто не попадают в результат.
func (p *ProductRepo) FindActiveByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, category, features, is_active, created_at, updated_at
		FROM products
		WHERE id = ANY($1) AND is_active = TRUE
	`

	rows, err := p.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var model converter.ProductModel
		if err := rows.Scan(
			&model.ID, &model.Name, &model.Description, &model.Price,
			&model.Category, &model.Features, &model.IsActive,
			&model.CreatedAt, &model.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *p.conv.ToEntity(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
