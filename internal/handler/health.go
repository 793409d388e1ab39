package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

// readinessResponse reports every dependency, not just the first broken
// one, so an operator sees the whole picture in a single probe.
type readinessResponse struct {
	Detail   string `json:"detail"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
	RabbitMQ string `json:"rabbitmq"`
}

const (
	depUp   = "up"
	depDown = "down"
)

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	resp := readinessResponse{
		Detail:   "ready",
		Postgres: depUp,
		Redis:    depUp,
		RabbitMQ: depUp,
	}
	status := http.StatusOK

	if err := h.dbPool.Ping(ctx); err != nil {
		resp.Postgres = depDown
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		resp.Redis = depDown
	}
	if h.amqpConn == nil || h.amqpConn.IsClosed() {
		resp.RabbitMQ = depDown
	}

	if resp.Postgres == depDown || resp.Redis == depDown || resp.RabbitMQ == depDown {
		resp.Detail = "not ready"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
