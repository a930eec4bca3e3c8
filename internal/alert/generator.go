package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/task-alerts/internal/civiltime"
	"github.com/nhle/task-alerts/internal/model"
)

// Repository is the persistence contract the generator depends on.
type Repository interface {
	InsertAlerts(ctx context.Context, alerts []model.TaskAlert) error
	AlertsCreatedBetween(ctx context.Context, start, end time.Time) ([]model.TaskAlert, error)
	MarkSent(ctx context.Context, id string) error
	MarkManySent(ctx context.Context, ids []string) error
	SlackIDFor(ctx context.Context, mondayUserID string) (string, bool, error)
}

// DocumentResolver finds documents related to a task.
type DocumentResolver interface {
	RelatedDocuments(ctx context.Context, task model.Task) []model.DocumentLink
}

// Generator classifies tasks into alerts, synthesizes contextual
// reminder text, deduplicates against already-issued same-day alerts,
// and persists new alerts through the repository.
type Generator struct {
	calc      *civiltime.Calculator
	repo      Repository
	docs      DocumentResolver
	templates []Template
	now       func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTemplates overrides the contextual message templates.
func WithTemplates(templates []Template) Option {
	return func(g *Generator) { g.templates = templates }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates an alert generator. docs may be nil when document
// correlation is disabled.
func NewGenerator(
	calc *civiltime.Calculator,
	repo Repository,
	docs DocumentResolver,
	opts ...Option,
) *Generator {
	g := &Generator{
		calc:      calc,
		repo:      repo,
		docs:      docs,
		templates: DefaultTemplates(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Classify returns overdue when the task's civil end-of-day has passed,
// otherwise the alert type the caller is materializing.
func (g *Generator) Classify(
	task model.Task,
	requested model.AlertType,
	now time.Time,
) model.AlertType {
	if task.DueDate != nil && g.calc.IsOverdue(now, *task.DueDate) {
		return model.AlertOverdue
	}
	return requested
}

// PriorityFor computes alert priority from due-date proximity: high for
// overdue or due within a day, medium within three days, low otherwise.
func (g *Generator) PriorityFor(
	task model.Task,
	alertType model.AlertType,
	now time.Time,
) string {
	if alertType == model.AlertOverdue {
		return model.PriorityHigh
	}
	if task.DueDate == nil {
		return model.PriorityLow
	}

	days := g.calc.DaysUntil(now, *task.DueDate)
	switch {
	case days <= 1:
		return model.PriorityHigh
	case days <= 3:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ContextMessage synthesizes the reminder text for a task. Overdue tasks
// get a days-overdue bucket message; otherwise the first matching name
// template supplies the message for the closest threshold at or above
// the remaining days, with a generic fallback.
func (g *Generator) ContextMessage(
	task model.Task,
	alertType model.AlertType,
	now time.Time,
) string {
	if task.DueDate == nil {
		return ""
	}

	days := g.calc.DaysUntil(now, *task.DueDate)
	if alertType == model.AlertOverdue {
		return overdueMessage(-days)
	}

	for i := range g.templates {
		if !g.templates[i].Matches(task.Name) {
			continue
		}
		if msg := g.templates[i].MessageFor(days); msg != "" {
			return msg
		}
	}
	return genericMessage(days)
}

// ChecklistFor returns the preparation checklist of the first template
// matching the task name, or nil.
func (g *Generator) ChecklistFor(task model.Task) []string {
	for i := range g.templates {
		if g.templates[i].Matches(task.Name) {
			return g.templates[i].Checklist
		}
	}
	return nil
}

// Generate builds alerts for the given tasks. Tasks without a due date
// are skipped. When persist is true, tasks already alerted today are
// skipped and the new alerts are bulk-inserted; insertion is idempotent
// on the alert id.
func (g *Generator) Generate(
	ctx context.Context,
	tasks []model.Task,
	requested model.AlertType,
	persist bool,
) ([]model.TaskAlert, error) {
	now := g.now()

	alreadyAlerted := map[string]bool{}
	if persist {
		existing, err := g.repo.AlertsCreatedBetween(
			ctx, g.calc.StartOfDay(now), g.calc.EndOfDay(now),
		)
		if err != nil {
			return nil, fmt.Errorf("loading today's alerts: %w", err)
		}
		for _, a := range existing {
			alreadyAlerted[a.TaskID] = true
		}
	}

	var alerts []model.TaskAlert
	for _, task := range tasks {
		if task.DueDate == nil {
			continue
		}
		if alreadyAlerted[task.ID] {
			continue
		}

		alertType := g.Classify(task, requested, now)

		var documents []model.DocumentLink
		if g.docs != nil {
			documents = g.docs.RelatedDocuments(ctx, task)
		}

		slackID := ""
		if task.AssigneeID != "" {
			id, ok, err := g.repo.SlackIDFor(ctx, task.AssigneeID)
			if err != nil {
				log.Printf("task %s: resolving slack id for %s: %v",
					task.ID, task.AssigneeID, err)
			} else if ok {
				slackID = id
			}
		}

		alerts = append(alerts, model.TaskAlert{
			ID:             uuid.New().String(),
			TaskID:         task.ID,
			TaskName:       task.Name,
			TaskURL:        task.URL,
			BoardID:        task.BoardID,
			BoardName:      task.BoardName,
			WorkspaceName:  task.WorkspaceName,
			GroupTitle:     task.GroupTitle,
			AssigneeID:     task.AssigneeID,
			AssigneeName:   task.AssigneeName,
			SlackUserID:    slackID,
			DueDate:        *task.DueDate,
			Status:         task.Status,
			Type:           alertType,
			Documents:      documents,
			ContextMessage: g.ContextMessage(task, alertType, now),
			Priority:       g.PriorityFor(task, alertType, now),
			CreatedAt:      now,
		})
	}

	if persist && len(alerts) > 0 {
		if err := g.repo.InsertAlerts(ctx, alerts); err != nil {
			return nil, fmt.Errorf("inserting alerts: %w", err)
		}
	}

	return alerts, nil
}

// MarkSent stamps a single alert as delivered.
func (g *Generator) MarkSent(ctx context.Context, id string) error {
	return g.repo.MarkSent(ctx, id)
}

// MarkManySent stamps a batch of alerts as delivered.
func (g *Generator) MarkManySent(ctx context.Context, ids []string) error {
	return g.repo.MarkManySent(ctx, ids)
}
