package web

import (
	"errors"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/recipients"
	"github.com/dukex/caseflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// ConflictProblem is the 409 body. It carries the state that won the race so the
// client can refresh without another read.
type ConflictProblem struct {
	*problems.Problem

	Reason     string              `json:"reason"`
	TaskStatus models.TaskStatus   `json:"taskStatus"`
	Outcome    *models.TaskOutcome `json:"outcome,omitempty"`
	AssignedTo *string             `json:"assignedTo,omitempty"`
}

// FieldsProblem is the 403 body of a contact write touching protected fields.
type FieldsProblem struct {
	*problems.Problem

	Fields []string `json:"fields"`
}

// CompileProblem is the 422 body listing every compile error.
type CompileProblem struct {
	*problems.Problem

	Errors compiler.Errors `json:"errors"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthenticated").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func problemType(err error, fallback string) string {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}

	return fallback
}

// handleServiceError maps service errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var (
		conflict    *services.ConflictError
		fieldAccess *services.FieldAccessError
	)

	switch {
	case errors.As(err, &fieldAccess):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("forbidden_fields").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(FieldsProblem{Problem: problem, Fields: fieldAccess.Fields})

	case errors.As(err, &conflict):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType(conflict.Reason).
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(ConflictProblem{
			Problem: problem,
			Reason:         conflict.Reason,
			TaskStatus:     conflict.Status,
			Outcome:        conflict.Outcome,
			AssignedTo:     conflict.AssignedTo,
		})

	case services.IsCompileError(err):
		errs, _ := compiler.AsErrors(err)

		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("compile_error").
			WithDetail(errs.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(CompileProblem{Problem: problem, Errors: errs})

	case services.IsValidationError(err), errors.Is(err, recipients.ErrInvalidSpec):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType(problemType(err, "validation_error")).
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsAuthorizationError(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("forbidden").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case services.IsNotFoundError(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType(problemType(err, "not_found")).
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsIntegrationError(err):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("integration_error").
			WithDetail("execution engine unavailable")

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}
