package rest

import (
	"github.com/gofiber/fiber/v2"

	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	"github.com/postpilot-io/postpilot/pkg/utils"
)

type Connection struct {
	Service domainConnection.IConnectionUsecase
}

func InitRestConnection(app fiber.Router, service domainConnection.IConnectionUsecase) Connection {
	rest := Connection{Service: service}
	app.Post("/connections", rest.Create)
	app.Get("/connections", rest.List)
	app.Get("/connections/:id", rest.Get)
	app.Patch("/connections/:id", rest.Update)
	app.Delete("/connections/:id", rest.Delete)
	return rest
}

func (controller *Connection) Create(c *fiber.Ctx) error {
	var request domainConnection.CreateConnectionRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	conn, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(201).JSON(utils.ResponseData{
		Status:  201,
		Code:    "CREATED",
		Message: "Success create connection",
		Results: conn,
	})
}

func (controller *Connection) Get(c *fiber.Ctx) error {
	conn, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch connection",
		Results: conn,
	})
}

func (controller *Connection) List(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "owner_id is required",
		})
	}

	conns, err := controller.Service.List(c.UserContext(), ownerID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch connections",
		Results: conns,
	})
}

func (controller *Connection) Update(c *fiber.Ctx) error {
	var request domainConnection.UpdateConnectionRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	conn, err := controller.Service.Update(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update connection",
		Results: conn,
	})
}

func (controller *Connection) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete connection",
	})
}
