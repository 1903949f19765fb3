// Package web provides the HTTP handlers of the caseflow API.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/recipients"
	"github.com/dukex/caseflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Services groups the domain services the handlers delegate to.
type Services struct {
	Definitions *services.Definitions
	Executions  *services.Executions
	Tasks       *services.Tasks
	Contacts    *services.Contacts
	Recipients  *recipients.Resolver
	Access      *access.Resolver
}

type APIHandlers struct {
	services    Services
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(svc Services, p persistence.Persistence, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		services:    svc,
		persistence: p,
		validator:   validator,
	}
}

// withActor resolves the access context from the identity headers and the org in
// the path, then runs next with it.
func (h *APIHandlers) withActor(next func(fiber.Ctx, models.AccessContext) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(HeaderUserID))
		if userID == "" {
			return unauthorized(c, HeaderUserID+" header is required")
		}

		adminHint := false
		if raw := c.Get(HeaderAdminAccess); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return badRequest(c, "Invalid "+HeaderAdminAccess+" header")
			}

			adminHint = parsed
		}

		actor, err := h.services.Access.Build(c.Context(), userID, c.Params("orgId"), c.Get(HeaderOrgRole), adminHint)
		if err != nil {
			return internalError(c, err)
		}

		return next(c, actor)
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Caseflow API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Caseflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// CompileDocument compiles a raw definition document without storing it.
func (h *APIHandlers) CompileDocument(c fiber.Ctx) error {
	steps, err := h.services.Definitions.CompileDocument(c.Context(), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CompileResponse{Steps: steps})
}

func (h *APIHandlers) SaveDefinition(c fiber.Ctx, actor models.AccessContext) error {
	if !actor.HasAdminAccess {
		return handleServiceError(c, services.NewForbiddenError("SaveDefinition", "only admins may edit definitions"))
	}

	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(definition); err != nil {
		return badRequest(c, err.Error())
	}

	definition.ID = c.Params("id")

	saved, err := h.services.Definitions.Save(c.Context(), actor.OrgID, &definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx, actor models.AccessContext) error {
	definition, err := h.services.Definitions.Get(c.Context(), actor.OrgID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CompileDefinition(c fiber.Ctx, actor models.AccessContext) error {
	steps, err := h.services.Definitions.Compile(c.Context(), actor.OrgID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CompileResponse{Steps: steps})
}

func (h *APIHandlers) StartExecution(c fiber.Ctx, actor models.AccessContext) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.services.Executions.Start(c.Context(), services.StartExecutionRequest{
		OrgID:        actor.OrgID,
		DefinitionID: c.Params("id"),
		ContactID:    req.ContactID,
		TriggeredBy:  actor.UserID,
		Input:        req.Input,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetTask(c fiber.Ctx, actor models.AccessContext) error {
	result, err := h.services.Tasks.Get(c.Context(), actor, c.Params("taskId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ClaimTask(c fiber.Ctx, actor models.AccessContext) error {
	result, err := h.services.Tasks.Claim(c.Context(), actor, c.Params("taskId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) PatchTask(c fiber.Ctx, actor models.AccessContext) error {
	var req PatchTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.services.Tasks.Mutate(c.Context(), actor, c.Params("taskId"), services.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DueAt:        req.DueAt,
		AssignedTo:   req.AssignedTo,
		AssignedRole: req.AssignedRole,
		Status:       req.Status,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) SetTaskStatus(c fiber.Ctx, actor models.AccessContext) error {
	var req SetTaskStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.services.Tasks.SetStatus(c.Context(), actor, c.Params("taskId"), req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) decision(c fiber.Ctx) (DecisionRequest, bool, error) {
	var req DecisionRequest
	if len(c.Body()) == 0 {
		return req, true, nil
	}

	if err := c.Bind().JSON(&req); err != nil {
		return req, false, badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return req, false, badRequest(c, err.Error())
	}

	return req, true, nil
}

func (h *APIHandlers) ApproveTask(c fiber.Ctx, actor models.AccessContext) error {
	req, ok, err := h.decision(c)
	if !ok {
		return err
	}

	result, err := h.services.Tasks.Approve(c.Context(), actor, c.Params("taskId"), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) RejectTask(c fiber.Ctx, actor models.AccessContext) error {
	req, ok, err := h.decision(c)
	if !ok {
		return err
	}

	result, err := h.services.Tasks.Reject(c.Context(), actor, c.Params("taskId"), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ResolveRecipients(c fiber.Ctx, actor models.AccessContext) error {
	var spec models.RecipientSpec
	if err := c.Bind().JSON(&spec); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(spec); err != nil {
		return badRequest(c, err.Error())
	}

	userIDs, err := h.services.Recipients.Resolve(c.Context(), actor.OrgID, spec)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ResolveRecipientsResponse{UserIDs: userIDs})
}

func (h *APIHandlers) GetContact(c fiber.Ctx, actor models.AccessContext) error {
	record, err := h.services.Contacts.Get(c.Context(), actor, c.Params("contactId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) PatchContact(c fiber.Ctx, actor models.AccessContext) error {
	var payload map[string]any
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	record, err := h.services.Contacts.Update(c.Context(), actor, c.Params("contactId"), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}
