package rest

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/nivaro/postpilot/infrastructure/valkey"
	"github.com/nivaro/postpilot/pkg/postworker"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/scheduling/domain"
)

type Health struct {
	Service      domain.ISchedulerUsecase
	ValkeyClient *valkey.Client
	Pool         *postworker.PublishWorkerPool
	startedAt    time.Time
}

func InitRestHealth(app fiber.Router, service domain.ISchedulerUsecase, vk *valkey.Client, pool *postworker.PublishWorkerPool) Health {
	handler := Health{Service: service, ValkeyClient: vk, Pool: pool, startedAt: time.Now()}

	app.Get("/health", handler.GetStatus)
	app.Get("/health/workerpool", handler.GetWorkerPoolStats)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	pending, err := h.Service.CountPendingPosts(c.UserContext())
	panicIfErr(err)

	valkeyStatus := "disabled"
	if h.ValkeyClient != nil {
		valkeyStatus = "disconnected"
		if h.ValkeyClient.IsConnected() {
			valkeyStatus = "connected"
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: fiber.Map{
			"pending_posts": pending,
			"valkey":        valkeyStatus,
			"uptime":        humanize.Time(h.startedAt),
		},
	})
}

// GetWorkerPoolStats returns real-time publish worker pool statistics.
func (h *Health) GetWorkerPoolStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Publish worker pool not initialized",
		})
	}
	return c.JSON(h.Pool.GetStats())
}
