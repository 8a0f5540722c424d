package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/northmart/reco-backend/internal/usecase"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/jitter"
	"github.com/northmart/reco-backend/pkg/logger"
)

// OutboxWorker перекачивает события пересчёта эмбеддингов из outbox-таблицы
// в Kafka: дренаж остатков при старте плюс LISTEN/NOTIFY на новые события.
type OutboxWorker struct {
	repo          usecase.OutboxRepository
	logger        logger.Logger
	producer      usecase.MessageProducer
	stop          chan struct{}
	wg            sync.WaitGroup
	dbConnStr     string
	backoffBase   time.Duration
	backoffMax    time.Duration
	drainAttempts int
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
) *OutboxWorker {
	return &OutboxWorker{
		repo:          repo,
		logger:        logger,
		producer:      producer,
		stop:          make(chan struct{}),
		dbConnStr:     dbConnStr,
		backoffBase:   2 * time.Second,
		backoffMax:    30 * time.Second,
		drainAttempts: 5,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Слушатель уведомлений о новых событиях
	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

func (w *OutboxWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	<-ctx.Done()
	w.logger.Infof("Worker stopped by context cancellation")
}

// drain выкачивает pending-события пачками до пустой выборки. Сбой пачки
// пережидается с экспоненциальной задержкой; после drainAttempts подряд
// неудачных попыток остаток дожидается следующего NOTIFY.
func (w *OutboxWorker) drain(ctx context.Context) {
	attempt := 0
	for {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			attempt++
			if attempt >= w.drainAttempts {
				w.logger.Warnf("drain aborted after %d attempts: %v", attempt, err)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-time.After(jitter.ExponentialBackoff(w.backoffBase, w.backoffMax, attempt-1, jitter.DefaultJitter)):
			}
			continue
		}

		attempt = 0
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn

	connect := func() error {
		c, err := pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err := c.Exec(ctx, "LISTEN outbox_pending"); err != nil {
			c.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		conn = c
		w.logger.Infof("Subscribed to 'outbox_pending' channel")
		return nil
	}

	if err := connect(); err != nil {
		w.logger.Warnf("Initial connect failed: %v", err)
		if !w.awaitReconnect(ctx, connect) {
			return
		}
	}
	defer func() {
		if conn != nil {
			conn.Close(ctx)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
			ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
			notif, err := conn.WaitForNotification(ctxWithTimeout)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
				conn.Close(ctx)
				conn = nil

				// К WaitForNotification нельзя возвращаться без живого соединения
				if !w.awaitReconnect(ctx, connect) {
					return
				}
				continue
			}

			if notif != nil && notif.Channel == "outbox_pending" {
				w.logger.Debugf("Received outbox notification, draining outbox events")
				w.drain(ctx)
			}
		}
	}
}

// awaitReconnect повторяет connect с экспоненциальной задержкой до успеха.
// Возвращает false только при отмене контекста или остановке worker'а.
func (w *OutboxWorker) awaitReconnect(ctx context.Context, connect func() error) bool {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-w.stop:
			return false
		case <-time.After(jitter.ExponentialBackoff(w.backoffBase, w.backoffMax, attempt, jitter.DefaultJitter)):
		}

		if err := connect(); err != nil {
			w.logger.Warnf("Reconnect failed: %v", err)
			continue
		}

		return true
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, 10)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			w.logger.Warnf("event %s publish failed: %v", event.EventID, err)
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	return true, nil
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	if err := w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event.EntityID, event.Payload)); err != nil {
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}
	return nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
