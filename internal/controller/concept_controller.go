package controller

import (
	"errors"

	"ai-concept-engine/internal/dto"
	"ai-concept-engine/internal/pkg/serverutils"
	"ai-concept-engine/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConceptController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Run(ctx *fiber.Ctx) error
	EnqueueRun(ctx *fiber.Ctx) error
	LatestRun(ctx *fiber.Ctx) error
	ShowRun(ctx *fiber.Ctx) error
}

type conceptController struct {
	service service.IConceptService
	auth    fiber.Handler
}

func NewConceptController(service service.IConceptService, auth fiber.Handler) IConceptController {
	return &conceptController{service: service, auth: auth}
}

func (c *conceptController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/concept/v1")
	h.Get("", c.GetAll)
	h.Get("runs/latest", c.LatestRun)
	h.Get("runs/:id", c.ShowRun)
	h.Post("runs", c.auth, c.Run)
	h.Post("runs/async", c.auth, c.EnqueueRun)
	h.Get(":id", c.Show)
}

func (c *conceptController) GetAll(ctx *fiber.Ctx) error {
	var query dto.ListConceptsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), &query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all concepts", res))
}

func (c *conceptController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid concept id")
	}

	res, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show concept", res))
}

func (c *conceptController) Run(ctx *fiber.Ctx) error {
	req, err := parseRunRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Run(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success run concept pipeline", res))
}

func (c *conceptController) EnqueueRun(ctx *fiber.Ctx) error {
	req, err := parseRunRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Enqueue(ctx.UserContext(), req)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Run queued", res))
}

func (c *conceptController) LatestRun(ctx *fiber.Ctx) error {
	res, err := c.service.LatestRun(ctx.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get latest run", res))
}

func (c *conceptController) ShowRun(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid run id")
	}

	res, err := c.service.ShowRun(ctx.UserContext(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show run", res))
}

func parseRunRequest(ctx *fiber.Ctx) (*dto.RunRequest, error) {
	var req dto.RunRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrConceptNotFound), errors.Is(err, service.ErrRunNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrQueueDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return err
}
