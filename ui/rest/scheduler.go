package rest

import (
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/postpilot-io/postpilot/pkg/utils"
	"github.com/postpilot-io/postpilot/usecase"
)

type Scheduler struct {
	Processor *usecase.Processor
}

func InitRestScheduler(app fiber.Router, processor *usecase.Processor) Scheduler {
	rest := Scheduler{Processor: processor}
	app.Post("/scheduler/run", rest.Run)
	app.Get("/scheduler/stats", rest.Stats)
	return rest
}

// Run triggers one processing pass outside the regular tick, mostly for
// operators nudging a stuck queue. The in-flight guard still applies.
func (controller *Scheduler) Run(c *fiber.Ctx) error {
	stats, err := controller.Processor.ProcessDuePosts(c.UserContext())
	utils.PanicIfNeeded(err)

	if stats.Skipped {
		return c.Status(409).JSON(utils.ResponseData{
			Status:  409,
			Code:    "PASS_IN_PROGRESS",
			Message: "A processing pass is already running",
			Results: stats,
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Processing pass complete",
		Results: stats,
	})
}

func (controller *Scheduler) Stats(c *fiber.Ctx) error {
	runs := controller.Processor.RecentRuns()

	type runSummary struct {
		usecase.ProcessingStats
		FinishedAgo string `json:"finished_ago"`
	}

	summaries := make([]runSummary, len(runs))
	for i, run := range runs {
		summaries[i] = runSummary{
			ProcessingStats: run,
			FinishedAgo:     humanize.Time(run.FinishedAt),
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch scheduler stats",
		Results: fiber.Map{
			"running":     controller.Processor.Running(),
			"recent_runs": summaries,
		},
	})
}
