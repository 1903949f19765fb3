package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Definitions stores authored definitions and compiles them.
type Definitions struct {
	persistence persistence.Persistence
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewDefinitions(p persistence.Persistence, tracer trace.Tracer, logger *slog.Logger) *Definitions {
	return &Definitions{
		persistence: p,
		tracer:      tracer,
		logger:      logger.With("module", "definitions"),
	}
}

// Save stores a draft definition under orgID. Drafts may not compile yet; only the
// document shape is checked here.
func (s *Definitions) Save(ctx context.Context, orgID string, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if definition == nil {
		return nil, NewValidationError("SaveDefinition", "invalid_request", "definition is required")
	}

	if strings.TrimSpace(definition.Name) == "" {
		return nil, NewValidationError("SaveDefinition", "name_required", "definition name is required")
	}

	definition.OrgID = orgID

	if err := s.persistence.Definitions().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}

	s.logger.InfoContext(ctx, "definition saved", "definition_id", definition.ID, "version", definition.Version)

	return definition, nil
}

func (s *Definitions) Get(ctx context.Context, orgID, id string) (*models.WorkflowDefinition, error) {
	definition, err := s.persistence.Definitions().GetByID(ctx, orgID, id)
	if err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return nil, &ServiceError{Op: "GetDefinition", Code: "definition_not_found", Message: "definition " + id + " not found", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to load definition %s: %w", id, err)
	}

	return definition, nil
}

// Compile compiles a stored definition.
func (s *Definitions) Compile(ctx context.Context, orgID, id string) ([]models.RuntimeStep, error) {
	definition, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	return s.compile(ctx, definition)
}

// CompileDocument schema-validates and compiles a raw definition document.
func (s *Definitions) CompileDocument(ctx context.Context, raw []byte) ([]models.RuntimeStep, error) {
	definition, err := compiler.ParseDocument(raw)
	if err != nil {
		if _, ok := compiler.AsErrors(err); ok {
			return nil, err
		}

		return nil, &ServiceError{Op: "CompileDocument", Code: "invalid_document", Message: err.Error(), Err: ErrValidation}
	}

	return s.compile(ctx, definition)
}

func (s *Definitions) compile(ctx context.Context, definition *models.WorkflowDefinition) (steps []models.RuntimeStep, err error) {
	_, span := otelhelper.StartSpan(ctx, s.tracer, "definitions.compile",
		attribute.String(otelhelper.DefinitionIDKey, definition.ID),
		attribute.String(otelhelper.DefinitionNameKey, definition.Name),
	)
	defer endSpan(span, &err)

	steps, err = compiler.Compile(definition)
	if err != nil {
		var errs compiler.Errors
		if errors.As(err, &errs) {
			s.logger.DebugContext(ctx, "definition does not compile", "definition_id", definition.ID, "errors", len(errs))
		}

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.StepCountKey, len(steps)))

	return steps, nil
}
