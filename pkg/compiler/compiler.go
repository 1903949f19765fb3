// Package compiler lowers authored, branch-capable workflow definitions into the flat
// instruction list executed by the workflow engine.
//
// Layout of a compiled definition:
//
//	trigger
//	<step instructions...>
//	end
//
// A branch step becomes a condition instruction, the bodies of its tracks laid out one
// after another, and a merge instruction. The last instruction of every track jumps to
// the merge; the merge jumps to the entry of the following step, or to end.
package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/caseflow/pkg/models"
)

const (
	// TriggerID is the id of the leading trigger instruction.
	TriggerID = "trigger"
	// EndID is the id of the trailing sentinel instruction.
	EndID = "end"

	waitSuffix  = ":wait"
	mergeSuffix = ":merge"
)

var defaultOutcomes = []string{"true", "false"}

// WaitID is the id of the wait_for_task instruction emitted for a step.
func WaitID(stepID string) string {
	return stepID + waitSuffix
}

// MergeID is the id of the merge instruction emitted for a branch step.
func MergeID(stepID string) string {
	return stepID + mergeSuffix
}

type compilation struct {
	def  *models.WorkflowDefinition
	refs references
	ids  map[string]bool
	errs Errors
}

// Compile validates def and lowers it to runtime instructions. It never returns
// partial output: on failure the result is nil and the error is an Errors value
// listing every problem found.
func Compile(def *models.WorkflowDefinition) ([]models.RuntimeStep, error) {
	if def == nil {
		return nil, Errors{{Reason: "definition is required"}}
	}

	c := &compilation{
		def:  def,
		refs: references{def: def},
		ids:  map[string]bool{TriggerID: true, EndID: true},
	}

	c.validateStatuses()

	body := c.block(def.Steps, EndID)
	if len(c.errs) > 0 {
		return nil, c.errs
	}

	steps := make([]models.RuntimeStep, 0, len(body)+2)
	steps = append(steps, models.RuntimeStep{
		ID:   TriggerID,
		Type: models.RuntimeStepTrigger,
		Trigger: &models.TriggerInstruction{
			Trigger:         def.Trigger,
			ContactRequired: def.ContactRequired,
		},
	})
	steps = append(steps, body...)
	steps = append(steps, models.RuntimeStep{
		ID:    EndID,
		Type:  models.RuntimeStepTrigger,
		Label: "End",
		Trigger: &models.TriggerInstruction{
			Trigger:         def.Trigger,
			ContactRequired: def.ContactRequired,
			Sentinel:        true,
		},
	})

	return steps, nil
}

func (c *compilation) fail(stepID, actionID, format string, args ...any) {
	c.errs = append(c.errs, &Error{
		Reason:   fmt.Sprintf(format, args...),
		StepID:   stepID,
		ActionID: actionID,
	})
}

// reserve claims id in the instruction namespace.
func (c *compilation) reserve(id, stepID, actionID string) {
	switch {
	case strings.TrimSpace(id) == "":
		c.fail(stepID, actionID, "id is required")
	case c.ids[id]:
		c.fail(stepID, actionID, "duplicate id %q", id)
	default:
		c.ids[id] = true
	}
}

func (c *compilation) validateStatuses() {
	if len(c.def.Statuses) == 0 {
		c.fail("", "", "definition must declare at least one status")

		return
	}

	seen := make(map[string]bool, len(c.def.Statuses))
	for _, status := range c.def.Statuses {
		if status.ID == "" {
			c.fail("", "", "status id is required")

			continue
		}

		if seen[status.ID] {
			c.fail("", "", "duplicate status id %q", status.ID)
		}

		seen[status.ID] = true
	}
}

// block compiles a step sequence whose control continues at cont afterwards.
func (c *compilation) block(steps []models.Step, cont string) []models.RuntimeStep {
	var out []models.RuntimeStep

	for i := range steps {
		step := &steps[i]

		if step.IsBranch() {
			out = append(out, c.branch(step, entryID(steps[i+1:], cont))...)
		} else {
			out = append(out, c.standard(step)...)
		}
	}

	return out
}

// entryID is the id of the first instruction steps compile to, cont when they emit
// nothing.
func entryID(steps []models.Step, cont string) string {
	for i := range steps {
		step := &steps[i]

		if step.IsBranch() {
			return step.ID
		}

		if len(step.Actions) > 0 {
			return step.Actions[0].ID
		}
	}

	return cont
}

func (c *compilation) standard(step *models.Step) []models.RuntimeStep {
	c.reserve(step.ID, step.ID, "")

	if step.Kind != "" && step.Kind != models.StepKindStandard {
		c.fail(step.ID, "", "unknown step kind %q", step.Kind)

		return nil
	}

	out := make([]models.RuntimeStep, 0, len(step.Actions)+1)

	for i := range step.Actions {
		if instruction, ok := c.action(step, &step.Actions[i]); ok {
			out = append(out, instruction)
		}
	}

	advancement := step.AdvancementCondition
	if advancement == nil || advancement.Type == models.AdvancementAutomatic {
		return out
	}

	if advancement.Type != models.AdvancementWhenTaskCompleted {
		c.fail(step.ID, "", "unknown advancement condition %q", advancement.Type)

		return out
	}

	if !hasCreateTask(step.Actions, advancement.TaskActionID) {
		c.fail(step.ID, advancement.TaskActionID,
			"advancement condition references task action %q which is not a create_task action of this step",
			advancement.TaskActionID)

		return out
	}

	waitID := WaitID(step.ID)
	c.reserve(waitID, step.ID, "")

	return append(out, models.RuntimeStep{
		ID:           waitID,
		Type:         models.RuntimeStepWaitForTask,
		Label:        step.Name + ": Wait",
		SourceStepID: step.ID,
		Wait:         &models.WaitForTaskInstruction{TaskStepID: advancement.TaskActionID},
	})
}

func hasCreateTask(actions []models.Action, id string) bool {
	if id == "" {
		return false
	}

	return slices.ContainsFunc(actions, func(a models.Action) bool {
		return a.ID == id && a.Type == models.ActionTypeCreateTask
	})
}

func (c *compilation) branch(step *models.Step, next string) []models.RuntimeStep {
	c.reserve(step.ID, step.ID, "")

	mergeID := MergeID(step.ID)
	c.reserve(mergeID, step.ID, "")

	condition := &models.ConditionInstruction{}

	if step.Condition == nil {
		c.fail(step.ID, "", "branch step requires a condition")
	} else {
		c.condition(step, condition)
	}

	if len(step.Tracks) == 0 {
		c.fail(step.ID, "", "branch step requires at least one track")
	}

	out := []models.RuntimeStep{{
		ID:           step.ID,
		Type:         models.RuntimeStepCondition,
		Label:        step.Name,
		SourceStepID: step.ID,
		Condition:    condition,
	}}

	outcomes := make(map[string]bool, len(step.Tracks))

	for i := range step.Tracks {
		track := &step.Tracks[i]

		outcome := c.outcome(step, track, i)
		if outcome != "" && outcomes[outcome] {
			c.fail(step.ID, "", "duplicate outcome %q in track %q", outcome, track.ID)
		}

		outcomes[outcome] = true

		body := c.block(track.Steps, mergeID)

		target := mergeID
		if len(body) > 0 {
			target = body[0].ID

			// A nested merge already points at whatever follows it in this track.
			if last := &body[len(body)-1]; !last.IsMerge() {
				last.GotoStepID = mergeID
			}
		}

		condition.Branches = append(condition.Branches, models.ConditionBranch{
			Outcome:    outcome,
			TrackID:    track.ID,
			Label:      track.Label,
			GotoStepID: target,
		})

		out = append(out, body...)
	}

	return append(out, models.RuntimeStep{
		ID:           mergeID,
		Type:         models.RuntimeStepCondition,
		Label:        step.Name + ": Merge",
		GotoStepID:   next,
		SourceStepID: step.ID,
		Condition:    &models.ConditionInstruction{Merge: true},
	})
}

func (c *compilation) condition(step *models.Step, out *models.ConditionInstruction) {
	cond := step.Condition

	variable, err := c.refs.variablePath(cond.VariableRef)
	if err != nil {
		c.fail(step.ID, "", "condition: %v", err)
	}

	if !slices.Contains(models.ConditionOperators, cond.Operator) {
		c.fail(step.ID, "", "unknown condition operator %q", cond.Operator)
	}

	out.Variable = variable
	out.Operator = cond.Operator

	if cond.Operator == models.OperatorIsEmpty || cond.Operator == models.OperatorIsNotEmpty {
		return
	}

	compareValue, err := c.refs.rewriteValue(cond.CompareValue)
	if err != nil {
		c.fail(step.ID, "", "condition compare value: %v", err)
	}

	out.CompareValue = compareValue
}

func (c *compilation) outcome(step *models.Step, track *models.Track, position int) string {
	if outcome := strings.TrimSpace(track.Outcome); outcome != "" {
		return outcome
	}

	if position < len(defaultOutcomes) {
		return defaultOutcomes[position]
	}

	c.fail(step.ID, "", "track %q at position %d requires an explicit outcome", track.ID, position+1)

	return ""
}

func (c *compilation) action(step *models.Step, action *models.Action) (models.RuntimeStep, bool) {
	c.reserve(action.ID, step.ID, action.ID)

	instruction := models.RuntimeStep{
		ID:           action.ID,
		SourceStepID: step.ID,
	}

	errCount := len(c.errs)

	switch action.Type {
	case models.ActionTypeCreateTask:
		instruction.Type = models.RuntimeStepAssignTask
		instruction.Task = c.createTask(step, action)
		if instruction.Task != nil {
			instruction.Label = instruction.Task.Title
		}

	case models.ActionTypeSendEmail:
		instruction.Type = models.RuntimeStepSendEmail
		instruction.Email = c.sendEmail(step, action)
		if instruction.Email != nil {
			instruction.Label = instruction.Email.Subject
		}

	case models.ActionTypeUpdateStatus:
		instruction.Type = models.RuntimeStepUpdateStatus
		instruction.Status = c.updateStatus(step, action)
		if instruction.Status != nil {
			instruction.Label = instruction.Status.Label
		}

	default:
		c.fail(step.ID, action.ID, "unsupported action type %q", action.Type)
	}

	return instruction, len(c.errs) == errCount
}

func (c *compilation) createTask(step *models.Step, action *models.Action) *models.AssignTaskInstruction {
	cfg := action.Task
	if cfg == nil {
		c.fail(step.ID, action.ID, "create_task action requires a task payload")

		return nil
	}

	if strings.TrimSpace(cfg.Title) == "" {
		c.fail(step.ID, action.ID, "task title is required")
	}

	title, err := c.refs.rewrite(cfg.Title, true)
	if err != nil {
		c.fail(step.ID, action.ID, "task title: %v", err)
	}

	description, err := c.refs.rewrite(cfg.Description, true)
	if err != nil {
		c.fail(step.ID, action.ID, "task description: %v", err)
	}

	taskType := cfg.TaskType
	switch taskType {
	case "":
		taskType = models.TaskTypeStandard
	case models.TaskTypeStandard, models.TaskTypeApproval:
	default:
		c.fail(step.ID, action.ID, "unknown task type %q", taskType)
	}

	priority := cfg.Priority
	switch priority {
	case "":
		priority = models.PriorityMedium
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		c.fail(step.ID, action.ID, "unknown task priority %q", priority)
	}

	if cfg.DueInDays != nil && *cfg.DueInDays < 0 {
		c.fail(step.ID, action.ID, "dueInDays must not be negative")
	}

	assignTo := cfg.AssignTo
	switch assignTo.Type {
	case models.AssignToRole:
		if strings.TrimSpace(assignTo.Role) == "" {
			c.fail(step.ID, action.ID, "role assignment requires a role")
		}
	case models.AssignToUser:
		userID, err := c.refs.rewrite(assignTo.UserID, false)
		if err != nil {
			c.fail(step.ID, action.ID, "assignee: %v", err)
		} else if strings.TrimSpace(userID) == "" {
			c.fail(step.ID, action.ID, "user assignment requires a user id")
		}

		assignTo.UserID = userID
	default:
		c.fail(step.ID, action.ID, "unknown assignment type %q", assignTo.Type)
	}

	return &models.AssignTaskInstruction{
		Title:       title,
		Description: description,
		TaskType:    taskType,
		AssignTo:    assignTo,
		Priority:    priority,
		DueInDays:   cfg.DueInDays,
	}
}

func (c *compilation) sendEmail(step *models.Step, action *models.Action) *models.SendEmailInstruction {
	cfg := action.Email
	if cfg == nil {
		c.fail(step.ID, action.ID, "send_email action requires an email payload")

		return nil
	}

	if strings.TrimSpace(cfg.To) == "" {
		c.fail(step.ID, action.ID, "email recipient is required")
	}

	rewrite := func(name, value string) string {
		rewritten, err := c.refs.rewrite(value, false)
		if err != nil {
			c.fail(step.ID, action.ID, "email %s: %v", name, err)
		}

		return rewritten
	}

	return &models.SendEmailInstruction{
		To:      rewrite("to", cfg.To),
		From:    rewrite("from", cfg.From),
		Subject: rewrite("subject", cfg.Subject),
		Body:    rewrite("body", cfg.Body),
	}
}

func (c *compilation) updateStatus(step *models.Step, action *models.Action) *models.UpdateStatusInstruction {
	if action.Status == nil {
		c.fail(step.ID, action.ID, "update_status action requires a status payload")

		return nil
	}

	status, ok := c.def.StatusByID(action.Status.StatusID)
	if !ok {
		c.fail(step.ID, action.ID, "status %q is not declared", action.Status.StatusID)

		return nil
	}

	return &models.UpdateStatusInstruction{StatusID: status.ID, Label: status.Label}
}
