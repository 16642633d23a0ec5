package rest

import (
	"github.com/gofiber/fiber/v2"
	settingsApp "github.com/nivaro/postpilot/core/settings/application"
	"github.com/nivaro/postpilot/pkg/utils"
)

type Settings struct {
	Service *settingsApp.SettingsService
}

func InitRestSettings(app fiber.Router, service *settingsApp.SettingsService) Settings {
	rest := Settings{Service: service}
	app.Get("/settings", rest.GetSettings)
	app.Put("/settings", rest.UpdateSettings)
	return rest
}

type settingsPayload struct {
	DefaultTone     *string `json:"default_tone,omitempty"`
	ContentProvider *string `json:"content_provider,omitempty"`
	ContentModel    *string `json:"content_model,omitempty"`
	MaxContentChars *int    `json:"max_content_chars,omitempty"`
}

func settingsResults(ds *settingsApp.DynamicSettings) fiber.Map {
	return fiber.Map{
		"default_tone":      ds.DefaultTone,
		"content_provider":  ds.ContentProvider,
		"content_model":     ds.ContentModel,
		"max_content_chars": ds.MaxContentChars,
	}
}

func (controller *Settings) GetSettings(c *fiber.Ctx) error {
	ds, err := controller.Service.GetDynamicSettings(c.UserContext())
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings retrieved",
		Results: settingsResults(ds),
	})
}

// UpdateSettings applies only the fields present in the payload.
func (controller *Settings) UpdateSettings(c *fiber.Ctx) error {
	var payload settingsPayload
	err := c.BodyParser(&payload)
	utils.PanicIfNeeded(err)

	ctx := c.UserContext()
	if payload.DefaultTone != nil {
		panicIfErr(controller.Service.SetDefaultTone(ctx, *payload.DefaultTone))
	}
	if payload.ContentProvider != nil {
		panicIfErr(controller.Service.SetContentProvider(ctx, *payload.ContentProvider))
	}
	if payload.ContentModel != nil {
		panicIfErr(controller.Service.SetContentModel(ctx, *payload.ContentModel))
	}
	if payload.MaxContentChars != nil {
		panicIfErr(controller.Service.SetMaxContentChars(ctx, *payload.MaxContentChars))
	}

	ds, err := controller.Service.GetDynamicSettings(ctx)
	panicIfErr(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings updated",
		Results: settingsResults(ds),
	})
}
