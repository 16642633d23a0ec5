package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/scheduling/application"
	"github.com/nivaro/postpilot/scheduling/domain"
)

// Sync exposes the remote-authority side of the protocol: dashboard
// instances push snapshots here and ask this server to sweep.
type Sync struct {
	Service  domain.ISchedulerUsecase
	Executor *application.LocalExecutor
}

func InitRestSync(app fiber.Router, service domain.ISchedulerUsecase, executor *application.LocalExecutor) Sync {
	rest := Sync{Service: service, Executor: executor}
	app.Post("/sync/snapshot", rest.IngestSnapshot)
	app.Post("/sync/sweep", rest.Sweep)
	return rest
}

type snapshotPayload struct {
	ScheduledPosts []domain.ScheduledPost `json:"scheduled_posts"`
}

func (controller *Sync) IngestSnapshot(c *fiber.Ctx) error {
	var payload snapshotPayload
	err := c.BodyParser(&payload)
	utils.PanicIfNeeded(err)

	err = controller.Service.IngestSnapshot(c.UserContext(), payload.ScheduledPosts)
	panicIfErr(err)

	return c.JSON(fiber.Map{
		"message": "Snapshot accepted",
	})
}

// Sweep runs one due-post pass immediately and reports the outcome of
// every post it touched.
func (controller *Sync) Sweep(c *fiber.Ctx) error {
	swept := controller.Executor.Sweep(c.UserContext())

	results := make([]string, 0, len(swept))
	for _, r := range swept {
		line := fmt.Sprintf("%s: %s", r.PostID, r.Status)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		results = append(results, line)
	}

	return c.JSON(application.SweepOutcome{
		Success: true,
		Message: fmt.Sprintf("Sweep completed, %d post(s) processed", len(swept)),
		Results: results,
	})
}
