// Package deliver sends generated alerts and digests to Slack.
package deliver

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/nhle/task-alerts/internal/model"
)

// Deliverer sends alert content to a chat channel.
type Deliverer interface {
	// DeliverAlerts posts one message summarizing the given alerts.
	DeliverAlerts(ctx context.Context, channel string, alerts []model.TaskAlert) error

	// DeliverDigest posts a titled listing of tasks, used for ad-hoc
	// query results and weekly roundups.
	DeliverDigest(ctx context.Context, channel, title string, tasks []model.Task) error
}

// poster is the subset of the Slack client used here.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackDeliverer implements Deliverer on the Slack Web API.
type SlackDeliverer struct {
	client poster
}

// NewSlackDeliverer creates a deliverer authenticated with botToken.
func NewSlackDeliverer(botToken string) *SlackDeliverer {
	return &SlackDeliverer{client: slack.New(botToken)}
}

// newSlackDelivererWithClient is the test seam.
func newSlackDelivererWithClient(client poster) *SlackDeliverer {
	return &SlackDeliverer{client: client}
}

// DeliverAlerts posts a single message covering all alerts, grouped by
// priority. An empty batch posts nothing and returns nil.
func (d *SlackDeliverer) DeliverAlerts(
	ctx context.Context,
	channel string,
	alerts []model.TaskAlert,
) error {
	if len(alerts) == 0 {
		return nil
	}

	msg := FormatAlerts(alerts)
	_, _, err := d.client.PostMessageContext(
		ctx,
		channel,
		slack.MsgOptionText(msg, false),
		slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{
			UnfurlLinks: false,
			UnfurlMedia: false,
		}),
	)
	if err != nil {
		return fmt.Errorf("posting alerts to %s: %w", channel, err)
	}
	return nil
}

// DeliverDigest posts a titled task listing.
func (d *SlackDeliverer) DeliverDigest(
	ctx context.Context,
	channel, title string,
	tasks []model.Task,
) error {
	msg := FormatDigest(title, tasks)
	_, _, err := d.client.PostMessageContext(
		ctx,
		channel,
		slack.MsgOptionText(msg, false),
		slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{
			UnfurlLinks: false,
			UnfurlMedia: false,
		}),
	)
	if err != nil {
		return fmt.Errorf("posting digest to %s: %w", channel, err)
	}
	return nil
}

// FormatAlerts renders a batch of alerts as Slack mrkdwn, high priority
// first.
func FormatAlerts(alerts []model.TaskAlert) string {
	var b strings.Builder

	byPriority := map[string][]model.TaskAlert{}
	for _, a := range alerts {
		byPriority[a.Priority] = append(byPriority[a.Priority], a)
	}

	sections := []struct {
		priority string
		heading  string
	}{
		{model.PriorityHigh, "🚨 *High priority*"},
		{model.PriorityMedium, "⚠️ *Medium priority*"},
		{model.PriorityLow, "🔵 *Low priority*"},
	}

	first := true
	for _, sec := range sections {
		group := byPriority[sec.priority]
		if len(group) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false

		b.WriteString(sec.heading + "\n")
		for _, a := range group {
			writeAlertLine(&b, a)
		}
	}

	return b.String()
}

func writeAlertLine(b *strings.Builder, a model.TaskAlert) {
	name := a.TaskName
	if a.TaskURL != "" {
		name = fmt.Sprintf("<%s|%s>", a.TaskURL, a.TaskName)
	}

	b.WriteString(fmt.Sprintf("• %s", name))
	if a.BoardName != "" {
		b.WriteString(fmt.Sprintf(" _(%s)_", a.BoardName))
	}
	if a.SlackUserID != "" {
		b.WriteString(fmt.Sprintf(" <@%s>", a.SlackUserID))
	} else if a.AssigneeName != "" {
		b.WriteString(" " + a.AssigneeName)
	}
	b.WriteString("\n")

	if a.ContextMessage != "" {
		b.WriteString("    " + a.ContextMessage + "\n")
	}
	for _, doc := range a.Documents {
		if doc.URL != "" {
			b.WriteString(fmt.Sprintf("    📎 <%s|%s>\n", doc.URL, doc.Name))
		} else {
			b.WriteString(fmt.Sprintf("    📎 %s\n", doc.Name))
		}
	}
}

// FormatDigest renders a task listing with a bold title. Tasks without
// a due date are listed without one.
func FormatDigest(title string, tasks []model.Task) string {
	var b strings.Builder
	b.WriteString("*" + title + "*\n")

	if len(tasks) == 0 {
		b.WriteString("_No matching tasks._\n")
		return b.String()
	}

	for _, t := range tasks {
		name := t.Name
		if t.URL != "" {
			name = fmt.Sprintf("<%s|%s>", t.URL, t.Name)
		}
		b.WriteString("• " + name)
		if t.BoardName != "" {
			b.WriteString(fmt.Sprintf(" _(%s)_", t.BoardName))
		}
		if t.DueDate != nil {
			b.WriteString(" due " + t.DueDate.Format("Mon 2 Jan"))
		}
		if t.AssigneeName != "" {
			b.WriteString(" · " + t.AssigneeName)
		}
		b.WriteString("\n")
	}

	return b.String()
}
