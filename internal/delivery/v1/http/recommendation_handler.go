package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/northmart/reco-backend/internal/usecase"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/logger"
)

const (
	defaultUserLimit    = 10
	defaultSimilarLimit = 5
)

type RecommendationHandler struct {
	recoUsecase      usecase.RecommendationUC
	embeddingUsecase usecase.EmbeddingUC
	logger           logger.Logger
}

func NewRecommendationHandler(
	recoUsecase usecase.RecommendationUC,
	embeddingUsecase usecase.EmbeddingUC,
	logger logger.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recoUsecase:      recoUsecase,
		embeddingUsecase: embeddingUsecase,
		logger:           logger,
	}
}

// recommendForUser
//
//	@Summary		Персональные рекомендации
//	@Description	Подбирает товары по истории завершённых покупок пользователя
//	@Tags			recommendations
//	@Produce		json
//	@Param			userId	path		string					true	"ID пользователя"
//	@Param			limit	query		int						false	"Число рекомендаций (по умолчанию 10)"
//	@Success		200		{object}	map[string]interface{}	"Рекомендации"
//	@Failure		400		{object}	ErrorResponse			"Ошибка валидации"
//	@Router			/recommendations/users/{userId} [get]
func (h *RecommendationHandler) recommendForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		WriteError(w, e.ErrUserIDRequired)
		return
	}

	limit, err := parseLimit(r, defaultUserLimit)
	if err != nil {
		h.logger.Warnf("%d invalid limit: %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	recommendations, err := h.recoUsecase.RecommendForUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Warnf("recommendations for user %s failed: %s", userID, err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"userId":          userID,
		"recommendations": productInfoList(recommendations),
		"count":           len(recommendations),
	})
}

// similarToProduct
//
//	@Summary		Похожие товары
//	@Description	Возвращает товары, близкие к заданному по векторному сходству
//	@Tags			recommendations
//	@Produce		json
//	@Param			productId	path		string					true	"ID товара"
//	@Param			limit		query		int						false	"Число результатов (по умолчанию 5)"
//	@Success		200			{object}	map[string]interface{}	"Похожие товары"
//	@Failure		400			{object}	ErrorResponse			"Ошибка валидации"
//	@Failure		404			{object}	ErrorResponse			"Товар не найден"
//	@Router			/recommendations/products/{productId}/similar [get]
func (h *RecommendationHandler) similarToProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		WriteError(w, e.ErrProductIDRequired)
		return
	}

	limit, err := parseLimit(r, defaultSimilarLimit)
	if err != nil {
		h.logger.Warnf("%d invalid limit: %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	similar, err := h.recoUsecase.SimilarToProduct(r.Context(), productID, limit)
	if err != nil {
		h.logger.Warnf("similar products for %s failed: %s", productID, err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"productId":       productID,
		"similarProducts": productInfoList(similar),
		"count":           len(similar),
	})
}

// refreshUserEmbedding
//
//	@Summary		Пересчёт эмбеддинга пользователя
//	@Description	Принудительно пересчитывает вектор предпочтений по истории покупок
//	@Tags			recommendations
//	@Produce		json
//	@Param			userId	path		string					true	"ID пользователя"
//	@Success		200		{object}	map[string]interface{}	"Эмбеддинг обновлён"
//	@Failure		400		{object}	ErrorResponse			"Нет истории покупок"
//	@Router			/recommendations/users/{userId}/embedding [post]
func (h *RecommendationHandler) refreshUserEmbedding(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		WriteError(w, e.ErrUserIDRequired)
		return
	}

	res, err := h.embeddingUsecase.RefreshUserEmbedding(r.Context(), userID)
	if err != nil {
		h.logger.Warnf("embedding refresh for user %s failed: %s", userID, err.Error())
		WriteError(w, err)
		return
	}

	if res.NoHistory {
		WriteSuccess(w, http.StatusBadRequest, map[string]interface{}{
			"error": "no transaction history for user",
		})
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"message":          "user embedding updated",
		"userId":           userID,
		"transactionCount": res.TransactionCount,
	})
}

// productInfoList гарантирует "[]" вместо "null" в ответе при пустом срезе.
func productInfoList(products []usecase.ProductInfo) []productInfoResponse {
	out := make([]productInfoResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productInfoResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
		})
	}
	return out
}

type productInfoResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
}
