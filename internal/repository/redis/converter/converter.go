package converter

import "github.com/northmart/reco-backend/internal/usecase"

// ProductInfoConverter преобразует DTO товара между usecase и Redis-моделью.
type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo
	ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel
}

type productInfoConverter struct{}

func NewProductInfoConverter() ProductInfoConverter {
	return &productInfoConverter{}
}

func (c *productInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: entity.Description,
		Category:    entity.Category,
		Price:       entity.Price,
	}
}

func (c *productInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Category:    model.Category,
		Price:       model.Price,
	}
}

func (c *productInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	result := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		result = append(result, *c.ToRedisModel(&entities[i]))
	}

	return result
}
