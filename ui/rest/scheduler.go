package rest

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/valyala/fasthttp"
)

type Scheduler struct {
	Service   domain.ISchedulerUsecase
	MediaPath string
}

func InitRestScheduler(app fiber.Router, service domain.ISchedulerUsecase, mediaPath string) Scheduler {
	rest := Scheduler{Service: service, MediaPath: mediaPath}
	app.Post("/posts", rest.SchedulePost)
	app.Get("/posts", rest.ListPosts)
	app.Get("/posts/:id", rest.GetPost)
	app.Put("/posts/:id", rest.EditPost)
	app.Delete("/posts/:id", rest.DeletePost)
	app.Get("/targets/:target_id/posts", rest.ListPostsByTarget)
	app.Post("/media", rest.UploadMedia)
	return rest
}

func (controller *Scheduler) SchedulePost(c *fiber.Ctx) error {
	var request domain.SchedulePostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	post, err := controller.Service.SchedulePost(c.UserContext(), request)
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success schedule post",
		Results: post,
	})
}

func (controller *Scheduler) ListPosts(c *fiber.Ctx) error {
	posts, err := controller.Service.ListPosts(c.UserContext())
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch scheduled posts",
		Results: posts,
	})
}

func (controller *Scheduler) GetPost(c *fiber.Ctx) error {
	post, err := controller.Service.GetPost(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch post",
		Results: post,
	})
}

func (controller *Scheduler) EditPost(c *fiber.Ctx) error {
	var request domain.EditPostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.ID = c.Params("id")

	post, err := controller.Service.EditPost(c.UserContext(), request)
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success edit post",
		Results: post,
	})
}

func (controller *Scheduler) DeletePost(c *fiber.Ctx) error {
	err := controller.Service.DeletePost(c.UserContext(), c.Params("id"))
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete post",
	})
}

func (controller *Scheduler) ListPostsByTarget(c *fiber.Ctx) error {
	targetID := c.Params("target_id")
	if targetID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "target_id is required",
		})
	}

	posts, err := controller.Service.ListPostsByTarget(c.UserContext(), targetID)
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch posts for target",
		Results: posts,
	})
}

// UploadMedia stores an image for later attachment to a post.
func (controller *Scheduler) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "file is required",
		})
	}

	dest := fmt.Sprintf("%s/%s-%s", controller.MediaPath, uuid.NewString(), file.Filename)
	err = fasthttp.SaveMultipartFile(file, dest)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success upload media",
		Results: mediaUploadResponse{
			MediaPath: dest,
			Size:      file.Size,
			Uploaded:  time.Now().UTC(),
		},
	})
}
