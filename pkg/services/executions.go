package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/engine"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/notify"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SenderValidator checks a sender address against an organization's allowlist.
type SenderValidator interface {
	Validate(ctx context.Context, orgID, from string) error
}

// StartExecutionRequest starts one execution of a stored definition.
type StartExecutionRequest struct {
	OrgID        string
	DefinitionID string
	ContactID    string
	TriggeredBy  string
	Input        map[string]any
}

// Executions is the trigger orchestrator: it compiles a definition, records the
// execution and hands it to the engine.
type Executions struct {
	persistence persistence.Persistence
	engine      engine.Client
	senders     SenderValidator
	audit       *AuditTrail
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewExecutions(
	p persistence.Persistence,
	engineClient engine.Client,
	senders SenderValidator,
	audit *AuditTrail,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Executions {
	return &Executions{
		persistence: p,
		engine:      engineClient,
		senders:     senders,
		audit:       audit,
		tracer:      tracer,
		logger:      logger.With("module", "executions"),
	}
}

// Start runs the definition. When the engine refuses the start the execution is kept
// as failed and an integration error is returned.
func (s *Executions) Start(ctx context.Context, req StartExecutionRequest) (execution *models.Execution, err error) {
	const op = "StartExecution"

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "executions.start",
		attribute.String(otelhelper.OrgIDKey, req.OrgID),
		attribute.String(otelhelper.DefinitionIDKey, req.DefinitionID),
	)
	defer endSpan(span, &err)

	if strings.TrimSpace(req.OrgID) == "" || strings.TrimSpace(req.DefinitionID) == "" {
		return nil, NewValidationError(op, "invalid_request", "organization and definition are required")
	}

	definition, err := s.persistence.Definitions().GetByID(ctx, req.OrgID, req.DefinitionID)
	if err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return nil, &ServiceError{Op: op, Code: "definition_not_found", Message: "definition " + req.DefinitionID + " not found", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to load definition %s: %w", req.DefinitionID, err)
	}

	contactID, err := s.checkContact(ctx, op, definition, req)
	if err != nil {
		return nil, err
	}

	steps, err := compiler.Compile(definition)
	if err != nil {
		return nil, &ServiceError{Op: op, Code: "compile_error", Err: errors.Join(ErrValidation, err)}
	}

	if err := s.checkSenders(ctx, op, req.OrgID, steps); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	now := time.Now().UTC()
	execution = &models.Execution{
		ID:                id.String(),
		OrgID:             req.OrgID,
		DefinitionID:      definition.ID,
		DefinitionVersion: definition.Version,
		ContactID:         contactID,
		Status:            models.ExecutionStatusPending,
		Steps:             steps,
		Input:             req.Input,
		TriggeredBy:       req.TriggeredBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.Int(otelhelper.StepCountKey, len(steps)),
	)

	runID, err := s.engine.Start(ctx, engine.StartRequest{
		OrgID:          req.OrgID,
		ExecutionID:    execution.ID,
		DefinitionID:   definition.ID,
		DefinitionName: definition.Name,
		Args:           startArgs(execution),
		Steps:          steps,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "engine refused execution", "execution_id", execution.ID, "error", err)

		if updateErr := s.persistence.Executions().UpdateStatus(ctx, req.OrgID, execution.ID, models.ExecutionStatusFailed, "", err.Error()); updateErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark execution failed", "execution_id", execution.ID, "error", updateErr)
		}

		return nil, NewIntegrationError(op, err)
	}

	if err := s.persistence.Executions().UpdateStatus(ctx, req.OrgID, execution.ID, models.ExecutionStatusRunning, runID, ""); err != nil {
		return nil, fmt.Errorf("failed to mark execution %s running: %w", execution.ID, err)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.RunID = runID

	s.audit.record(ctx, models.AccessContext{OrgID: req.OrgID, UserID: req.TriggeredBy},
		"execution", execution.ID, AuditExecutionStarted, map[string]any{
			"definitionId":      definition.ID,
			"definitionVersion": definition.Version,
			"runId":             runID,
		})

	s.logger.InfoContext(ctx, "execution started",
		"execution_id", execution.ID,
		"definition_id", definition.ID,
		"run_id", runID)

	return execution, nil
}

func (s *Executions) checkContact(ctx context.Context, op string, definition *models.WorkflowDefinition, req StartExecutionRequest) (*string, error) {
	contactID := strings.TrimSpace(req.ContactID)

	if contactID == "" {
		if definition.ContactRequired {
			return nil, NewValidationError(op, "contact_required", "definition "+definition.ID+" requires a contact")
		}

		return nil, nil
	}

	if _, err := s.persistence.Contacts().GetByID(ctx, req.OrgID, contactID); err != nil {
		if persistence.IsContactNotFound(err) {
			return nil, &ServiceError{Op: op, Code: "contact_not_found", Message: "contact " + contactID + " not found", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to load contact %s: %w", contactID, err)
	}

	return &contactID, nil
}

// checkSenders validates every literal send_email sender. Senders holding an
// interpolation token are resolved by the engine and checked on delivery.
func (s *Executions) checkSenders(ctx context.Context, op, orgID string, steps []models.RuntimeStep) error {
	if s.senders == nil {
		return nil
	}

	for _, step := range steps {
		if step.Email == nil || strings.Contains(step.Email.From, "{{") {
			continue
		}

		err := s.senders.Validate(ctx, orgID, step.Email.From)

		switch {
		case err == nil:
		case errors.Is(err, notify.ErrSenderNotAllowed), errors.Is(err, notify.ErrInvalidSender):
			return &ServiceError{Op: op, Code: "sender_not_allowed", Message: fmt.Sprintf("step %s: %v", step.ID, err), Err: ErrValidation}
		default:
			return fmt.Errorf("failed to validate sender of %s: %w", step.ID, err)
		}
	}

	return nil
}

func startArgs(execution *models.Execution) map[string]any {
	args := map[string]any{
		"executionId":  execution.ID,
		"orgId":        execution.OrgID,
		"definitionId": execution.DefinitionID,
		"triggeredBy":  execution.TriggeredBy,
	}

	if execution.ContactID != nil {
		args["contactId"] = *execution.ContactID
	}

	if len(execution.Input) > 0 {
		args["input"] = execution.Input
	}

	return args
}
