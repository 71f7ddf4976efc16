package rest

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/postpilot-io/postpilot/infrastructure/valkey"
	"github.com/postpilot-io/postpilot/pkg/utils"
)

type Health struct {
	DB        *gorm.DB
	Valkey    *valkey.Client
	Version   string
	startedAt time.Time
}

func InitRestHealth(app fiber.Router, db *gorm.DB, vk *valkey.Client, version string) Health {
	rest := Health{DB: db, Valkey: vk, Version: version, startedAt: time.Now().UTC()}
	app.Get("/health", rest.Status)
	return rest
}

func (controller *Health) Status(c *fiber.Ctx) error {
	status := 200
	dbStatus := "ok"

	if sqlDB, err := controller.DB.DB(); err != nil {
		dbStatus, status = err.Error(), 503
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus, status = err.Error(), 503
	}

	valkeyStatus := "disabled"
	if controller.Valkey != nil {
		valkeyStatus = "ok"
		if err := controller.Valkey.Ping(c.UserContext()); err != nil {
			// Valkey is an optional coordination layer, not a hard dependency.
			valkeyStatus = err.Error()
		}
	}

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: fiber.Map{
			"version":  controller.Version,
			"database": dbStatus,
			"valkey":   valkeyStatus,
			"uptime":   humanize.Time(controller.startedAt),
		},
	})
}
