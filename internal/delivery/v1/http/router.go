package http

import (
	"github.com/go-chi/chi/v5"
	_ "github.com/northmart/reco-backend/docs" // Импорт сгенерированных файлов
	"github.com/northmart/reco-backend/internal/usecase"
	"github.com/northmart/reco-backend/pkg/logger"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(recoUC usecase.RecommendationUC, embUC usecase.EmbeddingUC) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		handler := NewRecommendationHandler(recoUC, embUC, r.logger)
		registerRecommendationRoutes(v1, handler)
	})
}

func registerRecommendationRoutes(router chi.Router, handler *RecommendationHandler) {
	router.Route("/recommendations", func(rec chi.Router) {
		rec.Get("/users/{userId}", handler.recommendForUser)
		rec.Post("/users/{userId}/embedding", handler.refreshUserEmbedding)
		rec.Get("/products/{productId}/similar", handler.similarToProduct)
	})
}
