package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dukex/caseflow/pkg/fields"
	"github.com/dukex/caseflow/pkg/models"
)

const refPrefix = "var-"

// Variable namespaces understood by the execution engine's templating.
const (
	scopeContact   = "contact"
	scopeWorkflow  = "workflow"
	scopeTrigger   = "trigger"
	scopeExecution = "execution"
	scopeTask      = "task"
	scopeOrg       = "org"
)

var (
	tokenPattern   = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
	wholeFieldRef  = regexp.MustCompile(`^var-[A-Za-z0-9_.\-]+$`)
	taskFieldPaths = []string{"id", "title", "status", "outcome", "outcomeComment", "completedBy", "assignedTo"}
)

// references rewrites authored variable references into engine tokens.
type references struct {
	def *models.WorkflowDefinition
}

// resolvePath validates a dotted path and returns its canonical form. Workflow
// variables may be named by id or by name; the canonical path uses the id.
func (r references) resolvePath(path string) (string, *models.Variable, error) {
	path = strings.TrimSpace(path)

	scope, key, ok := strings.Cut(path, ".")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("unresolvable variable reference %q", path)
	}

	switch scope {
	case scopeContact:
		if fields.IsField(key) {
			return path, nil, nil
		}
	case scopeWorkflow:
		if variable, found := r.def.VariableByKey(key); found {
			return scopeWorkflow + "." + variable.ID, &variable, nil
		}
	case scopeTrigger:
		return path, nil, nil
	case scopeExecution:
		if key == "id" {
			return path, nil, nil
		}
	case scopeTask:
		if slices.Contains(taskFieldPaths, key) {
			return path, nil, nil
		}
	case scopeOrg:
		if key == "name" {
			return path, nil, nil
		}
	}

	return "", nil, fmt.Errorf("unresolvable variable reference %q", path)
}

// rewrite turns "var-<path>" (the whole value) and "{{var-<path>}}" / "{{<path>}}"
// (inline) into "{{<path>}}". With inlineDefaults, workflow variables that declare a
// default are replaced by that default instead.
func (r references) rewrite(value string, inlineDefaults bool) (string, error) {
	trimmed := strings.TrimSpace(value)
	if wholeFieldRef.MatchString(trimmed) {
		return r.token(strings.TrimPrefix(trimmed, refPrefix), inlineDefaults)
	}

	var firstErr error

	rewritten := tokenPattern.ReplaceAllStringFunc(value, func(match string) string {
		inner := tokenPattern.FindStringSubmatch(match)[1]

		token, err := r.token(strings.TrimPrefix(inner, refPrefix), inlineDefaults)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			return match
		}

		return token
	})
	if firstErr != nil {
		return "", firstErr
	}

	return rewritten, nil
}

func (r references) token(path string, inlineDefaults bool) (string, error) {
	canonical, variable, err := r.resolvePath(path)
	if err != nil {
		return "", err
	}

	if inlineDefaults && variable != nil && variable.Default != nil {
		return fmt.Sprint(variable.Default), nil
	}

	return "{{" + canonical + "}}", nil
}

// variablePath strips reference syntax from a condition's variable, leaving the
// canonical dotted path.
func (r references) variablePath(ref string) (string, error) {
	path := strings.TrimSpace(ref)
	if m := tokenPattern.FindStringSubmatch(path); m != nil && m[0] == path {
		path = m[1]
	}

	canonical, _, err := r.resolvePath(strings.TrimPrefix(path, refPrefix))

	return canonical, err
}

// rewriteValue rewrites string compare values and passes everything else through.
func (r references) rewriteValue(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	return r.rewrite(s, false)
}
