package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/marketbay/storefront-api/internal/metrics"
	"github.com/marketbay/storefront-api/internal/model"
	"github.com/marketbay/storefront-api/internal/service"
)

const (
	paymentQueueName    = "payments"
	dlxExchange         = "payments.dlx"
	dlqQueueName        = "payments.dlq"
	orderEventsExchange = "order.events"
	idempotencyTTL      = 24 * time.Hour
)

// PaymentWorker consumes payment confirmations from the external
// payment provider and records them on the order. The provider retries
// on its side; redis idempotency keys keep re-deliveries from
// re-stamping paid_at.
type PaymentWorker struct {
	channel      *amqp.Channel
	orderService *service.OrderService
	redisClient  *redis.Client
	log          *slog.Logger
	done         chan struct{}
}

func NewPaymentWorker(ch *amqp.Channel, orderService *service.OrderService, redisClient *redis.Client, log *slog.Logger) *PaymentWorker {
	return &PaymentWorker{
		channel:      ch,
		orderService: orderService,
		redisClient:  redisClient,
		log:          log,
		done:         make(chan struct{}),
	}
}

// SetupRabbitMQ declares the payments queue with its DLX/DLQ and the
// fanout exchange order-placed events are published to.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(orderEventsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare order events exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, paymentQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(paymentQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": paymentQueueName,
	}); err != nil {
		return fmt.Errorf("declare payment queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *PaymentWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(paymentQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("payment worker started")
	return nil
}

func (w *PaymentWorker) Stop() { close(w.done) }

func (w *PaymentWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var payment model.PaymentMessage
	if err := json.Unmarshal(msg.Body, &payment); err != nil {
		w.log.Error("unmarshal payment message", "error", err)
		metrics.PaymentMessagesTotal.WithLabelValues("malformed").Inc()
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", payment.OrderID, "provider_tx_id", payment.ProviderTxID)

	idempotencyKey := fmt.Sprintf("payment_processed:%d", payment.OrderID)
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("payment already recorded, skipping")
		metrics.PaymentMessagesTotal.WithLabelValues("duplicate").Inc()
		_ = msg.Ack(false)
		return
	}

	// Nil user: the worker acts as the system, not on behalf of a
	// customer, so the ownership rule never applies here.
	if err := w.orderService.MarkPaid(ctx, nil, payment.OrderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			log.Error("payment for unknown order")
			metrics.PaymentMessagesTotal.WithLabelValues("unknown_order").Inc()
			_ = msg.Nack(false, false) // → DLQ
			return
		}
		log.Error("record payment failed", "error", err)
		metrics.PaymentMessagesTotal.WithLabelValues("error").Inc()
		_ = msg.Nack(false, true)
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	metrics.PaymentMessagesTotal.WithLabelValues("ok").Inc()
	_ = msg.Ack(false)
	log.Info("payment recorded")
}
