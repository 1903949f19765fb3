package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema checks the document shape only; semantic checks happen in Compile.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "trigger", "statuses", "steps"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "contactRequired": {"type": "boolean"},
    "trigger": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["manual", "contact_status", "form_submission", "api"]},
        "statusId": {"type": "string"},
        "formId": {"type": "string"}
      }
    },
    "statuses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "order": {"type": "integer"}
        }
      }
    },
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1}
        }
      }
    },
    "settings": {
      "type": "object",
      "properties": {"requireDecisionComment": {"type": "boolean"}}
    },
    "steps": {"$ref": "#/definitions/steps"}
  },
  "definitions": {
    "steps": {
      "type": "array",
      "items": {"$ref": "#/definitions/step"}
    },
    "step": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "kind": {"enum": ["", "standard", "branch"]},
        "actions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "type"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "type": {"type": "string", "minLength": 1}
            }
          }
        },
        "advancementCondition": {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": {"enum": ["automatic", "when_task_completed"]},
            "taskActionId": {"type": "string"}
          }
        },
        "condition": {
          "type": "object",
          "required": ["variableRef", "operator"],
          "properties": {
            "variableRef": {"type": "string"},
            "operator": {"type": "string"}
          }
        },
        "tracks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "steps"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "label": {"type": "string"},
              "outcome": {"type": "string"},
              "steps": {"$ref": "#/definitions/steps"}
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(definitionSchema)

// ValidateDocument checks a raw definition document against the definition schema.
// Violations are reported as Errors.
func ValidateDocument(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate definition document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	errs := make(Errors, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, &Error{Reason: desc.String()})
	}

	return errs
}

// ParseDocument validates raw and decodes it into a definition.
func ParseDocument(raw []byte) (*models.WorkflowDefinition, error) {
	if err := ValidateDocument(raw); err != nil {
		return nil, err
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode definition document: %w", err)
	}

	return &def, nil
}
