package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
	"github.com/postpilot-io/postpilot/pkg/utils"
)

type Post struct {
	Service domainPost.IPostUsecase
}

func InitRestPost(app fiber.Router, service domainPost.IPostUsecase) Post {
	rest := Post{Service: service}
	app.Post("/posts", rest.Schedule)
	app.Get("/posts", rest.List)
	app.Get("/posts/:id", rest.Get)
	app.Patch("/posts/:id", rest.Update)
	app.Post("/posts/:id/reschedule", rest.Reschedule)
	app.Delete("/posts/:id", rest.Delete)
	return rest
}

func (controller *Post) Schedule(c *fiber.Ctx) error {
	var request domainPost.SchedulePostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	post, err := controller.Service.Schedule(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(201).JSON(utils.ResponseData{
		Status:  201,
		Code:    "CREATED",
		Message: "Success schedule post",
		Results: post,
	})
}

func (controller *Post) Get(c *fiber.Ctx) error {
	post, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch post",
		Results: post,
	})
}

func (controller *Post) List(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "owner_id is required",
		})
	}

	var status *domainPost.Status
	if s := c.Query("status"); s != "" {
		parsed := domainPost.Status(s)
		if !parsed.Valid() {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: "unknown status " + s,
			})
		}
		status = &parsed
	}

	posts, err := controller.Service.List(c.UserContext(), ownerID, status, c.QueryInt("limit", 100))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch posts",
		Results: posts,
	})
}

func (controller *Post) Update(c *fiber.Ctx) error {
	var request domainPost.UpdatePostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	post, err := controller.Service.Update(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update post",
		Results: post,
	})
}

func (controller *Post) Reschedule(c *fiber.Ctx) error {
	var request struct {
		PublishAt time.Time `json:"publish_at"`
	}
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	if request.PublishAt.IsZero() {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "publish_at is required",
		})
	}

	post, err := controller.Service.Reschedule(c.UserContext(), c.Params("id"), request.PublishAt)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success reschedule post",
		Results: post,
	})
}

func (controller *Post) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete post",
	})
}
