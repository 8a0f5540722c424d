package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/northmart/reco-backend/internal/cfg"
	"github.com/northmart/reco-backend/internal/domain"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/jitter"
	"github.com/northmart/reco-backend/pkg/logger"
)

// Service — клиент внешнего embedding-провайдера (OpenAI-совместимый HTTP API).
// Контракта детерминизма у провайдера нет: два вызова для одной сущности могут
// вернуть разные векторы, это переживается перезаписью в индексе.
type Service struct {
	httpClient *http.Client
	cfg        *cfg.EmbedderCfg
	logger     logger.Logger
}

func NewService(cfg *cfg.EmbedderCfg, logger logger.Logger) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Embed строит вектор для записи атрибутов с retry-логикой и экспоненциальной задержкой.
func (s *Service) Embed(ctx context.Context, record domain.AttributeRecord) ([]float32, error) {
	const (
		op         = "embedder.Embed"
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	// json.Marshal сортирует ключи карты: вход провайдера каноничен
	input, err := json.Marshal(record)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		vector, err := s.embedOnce(ctx, string(input))
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if attempt == s.cfg.MaxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		s.logger.Warnf("embedding request failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", s.cfg.MaxRetries, lastErr))
}

// Dimensions возвращает фиксированную размерность векторов провайдера.
func (s *Service) Dimensions() int {
	return s.cfg.Dimension
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (s *Service) embedOnce(ctx context.Context, input string) ([]float32, error) {
	const op = "embedder.embedOnce"

	body, err := json.Marshal(embeddingsRequest{
		Model: s.cfg.Model,
		Input: []string{input},
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.ApiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, e.Wrap(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyVector)
	}

	return parsed.Data[0].Embedding, nil
}
