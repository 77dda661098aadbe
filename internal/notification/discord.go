package notification

import (
	"fmt"
	"time"

	perrors "provisioner/pkg/errors"

	"github.com/bwmarrin/discordgo"
)

type Field struct {
	Name  string
	Value string
}

type Message struct {
	Title       string
	Description string
	Severity    string
	Fields      []Field
	Timestamp   time.Time
}

// Sender is the subset of *discordgo.Session used for notifications.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

type NotificationClient struct {
	sg        Sender
	channelID string
}

// NewNotificationClient opens a bot session. Both token and channel are required.
func NewNotificationClient(token, channelID string) (*NotificationClient, error) {
	if token == "" || channelID == "" {
		return nil, perrors.ErrDiscordNotConfigured
	}

	sg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	if err := sg.Open(); err != nil {
		return nil, err
	}

	return &NotificationClient{sg: sg, channelID: channelID}, nil
}

// NewClientWithSender builds a client around an existing session.
func NewClientWithSender(sg Sender, channelID string) *NotificationClient {
	return &NotificationClient{sg: sg, channelID: channelID}
}

func (c *NotificationClient) getSeverityColor(severity string) int {
	switch severity {
	case "failure":
		return 0xFF0000
	case "success":
		return 0x2ECC71
	case "warning":
		return 0xFF8C00
	case "info":
		return 0x00BFFF
	default:
		return 0x808080
	}
}

func (c *NotificationClient) Send(msg Message) error {
	if c.sg == nil {
		return perrors.ErrDiscordNotConfigured
	}
	if c.channelID == "" {
		return fmt.Errorf("%w: channel id not set", perrors.ErrDiscordNotConfigured)
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       c.getSeverityColor(msg.Severity),
		Timestamp:   msg.Timestamp.Format(time.RFC3339),
	}

	if len(msg.Fields) > 0 {
		fields := make([]*discordgo.MessageEmbedField, 0, len(msg.Fields))
		for _, f := range msg.Fields {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: true,
			})
		}
		embed.Fields = fields
	}

	_, err := c.sg.ChannelMessageSendEmbed(c.channelID, embed)
	return err
}

func (c *NotificationClient) Close() error {
	if c.sg != nil {
		return c.sg.Close()
	}
	return nil
}
