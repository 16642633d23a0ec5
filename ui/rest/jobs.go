package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/scheduling/application"
	"github.com/nivaro/postpilot/scheduling/domain"
)

type Jobs struct {
	Service domain.ISchedulerUsecase
	Runner  *application.JobScheduler
}

func InitRestJobs(app fiber.Router, service domain.ISchedulerUsecase, runner *application.JobScheduler) Jobs {
	rest := Jobs{Service: service, Runner: runner}
	app.Post("/jobs", rest.CreateJob)
	app.Get("/jobs", rest.ListJobs)
	app.Get("/jobs/:id", rest.GetJob)
	app.Put("/jobs/:id", rest.UpdateJob)
	app.Post("/jobs/:id/activate", rest.ActivateJob)
	app.Post("/jobs/:id/pause", rest.PauseJob)
	app.Post("/jobs/:id/run", rest.RunJobNow)
	app.Delete("/jobs/:id", rest.DeleteJob)
	return rest
}

func (controller *Jobs) CreateJob(c *fiber.Ctx) error {
	var payload createJobPayload
	err := c.BodyParser(&payload)
	utils.PanicIfNeeded(err)

	schedule, err := payload.Schedule.decode()
	utils.PanicIfNeeded(err)

	job, err := controller.Service.CreateJob(c.UserContext(), domain.CreateJobRequest{
		Name:      payload.Name,
		TargetIDs: payload.TargetIDs,
		Schedule:  schedule,
		Settings:  payload.Settings,
	})
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success create job",
		Results: toJobResponse(job),
	})
}

func (controller *Jobs) ListJobs(c *fiber.Ctx) error {
	jobs, err := controller.Service.ListJobs(c.UserContext())
	panicIfErr(err)

	responses := make([]jobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = toJobResponse(job)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch jobs",
		Results: responses,
	})
}

func (controller *Jobs) GetJob(c *fiber.Ctx) error {
	job, err := controller.Service.GetJob(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch job",
		Results: toJobResponse(job),
	})
}

func (controller *Jobs) UpdateJob(c *fiber.Ctx) error {
	var payload createJobPayload
	err := c.BodyParser(&payload)
	utils.PanicIfNeeded(err)

	schedule, err := payload.Schedule.decode()
	utils.PanicIfNeeded(err)

	job, err := controller.Service.UpdateJob(c.UserContext(), domain.UpdateJobRequest{
		ID:        c.Params("id"),
		Name:      payload.Name,
		TargetIDs: payload.TargetIDs,
		Schedule:  schedule,
		Settings:  payload.Settings,
	})
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update job",
		Results: toJobResponse(job),
	})
}

func (controller *Jobs) ActivateJob(c *fiber.Ctx) error {
	job, err := controller.Service.ActivateJob(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success activate job",
		Results: toJobResponse(job),
	})
}

func (controller *Jobs) PauseJob(c *fiber.Ctx) error {
	job, err := controller.Service.PauseJob(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success pause job",
		Results: toJobResponse(job),
	})
}

// RunJobNow fires one occurrence immediately without touching the
// schedule's next run anchor beyond the normal recompute.
func (controller *Jobs) RunJobNow(c *fiber.Ctx) error {
	job, err := controller.Service.GetJob(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	controller.Runner.RunJob(c.UserContext(), job)

	updated, err := controller.Service.GetJob(c.UserContext(), job.ID)
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Job executed",
		Results: toJobResponse(updated),
	})
}

func (controller *Jobs) DeleteJob(c *fiber.Ctx) error {
	err := controller.Service.DeleteJob(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete job",
	})
}
