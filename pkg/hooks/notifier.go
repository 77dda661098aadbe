package hooks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"provisioner/internal/notification"
	"provisioner/pkg/engine"
)

// Notifier delivers one message. *notification.NotificationClient satisfies it.
type Notifier interface {
	Send(msg notification.Message) error
	Close() error
}

type NotifierHookConfig struct {
	Token     string
	ChannelID string
}

// NotifierHook posts a Discord embed summarising each finished run.
type NotifierHook struct {
	Config  NotifierHookConfig
	connect func(NotifierHookConfig) (Notifier, error)
}

func NewNotifierHook(cfg NotifierHookConfig) *NotifierHook {
	return &NotifierHook{
		Config: cfg,
		connect: func(c NotifierHookConfig) (Notifier, error) {
			return notification.NewNotificationClient(c.Token, c.ChannelID)
		},
	}
}

// NewNotifierHookWith uses connect instead of opening a Discord session.
func NewNotifierHookWith(connect func(NotifierHookConfig) (Notifier, error)) *NotifierHook {
	return &NotifierHook{connect: connect}
}

func (n *NotifierHook) Name() string {
	return "notification"
}

func (n *NotifierHook) Description() string {
	return "Sends a Discord notification with the outcome of each provisioning run"
}

func (n *NotifierHook) AfterRun(ctx context.Context, result *engine.Result) error {
	client, err := n.connect(n.Config)
	if err != nil {
		return fmt.Errorf("error creating discord client: %w", err)
	}
	defer client.Close()

	if err := client.Send(BuildMessage(result)); err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	return nil
}

// BuildMessage renders a run result as a notification.
func BuildMessage(result *engine.Result) notification.Message {
	msg := notification.Message{
		Timestamp: result.FinishedAt,
		Fields: []notification.Field{
			{Name: "Plan", Value: result.Plan},
			{Name: "State", Value: string(result.State)},
			{Name: "Exit Code", Value: strconv.Itoa(result.ExitCode)},
			{Name: "Steps", Value: fmt.Sprintf("%d/%d", len(result.Steps), result.StepsTotal)},
			{Name: "Duration", Value: result.Duration().Round(time.Millisecond).String()},
		},
	}

	if result.Succeeded() {
		msg.Title = "Provisioning succeeded"
		msg.Severity = "success"
		msg.Description = fmt.Sprintf("Run `%s` completed every step.", result.RunID)
		return msg
	}

	msg.Title = "Provisioning failed"
	msg.Severity = "failure"
	msg.Description = fmt.Sprintf("Run `%s` stopped at step `%s`.", result.RunID, result.FailedStep)
	msg.Fields = append(msg.Fields, notification.Field{Name: "Failed Step", Value: result.FailedStep})
	if result.Error != "" {
		msg.Fields = append(msg.Fields, notification.Field{Name: "Error", Value: truncate(result.Error, 1024)})
	}
	return msg
}

// truncate keeps embed field values within Discord's 1024 character limit.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
