// Package notify posts operational events (logins, subscriptions, backend
// outages) to a team chat channel. Slack and Discord are supported behind
// the same interface; delivery is best-effort.
package notify

import (
	"fmt"

	"github.com/ndomo/agentline/internal/config"
	"github.com/ndomo/agentline/internal/engine"
)

// New builds a notifier for the configured platform. An empty platform
// returns nil, which the engine treats as notifications disabled.
func New(cfg config.NotifyConfig) (engine.Notifier, error) {
	switch cfg.Platform {
	case "":
		return nil, nil
	case "slack":
		return NewSlack(SlackOpts{BotToken: cfg.Token, ChannelID: cfg.Channel})
	case "discord":
		return NewDiscord(DiscordOpts{BotToken: cfg.Token, ChannelID: cfg.Channel})
	default:
		return nil, fmt.Errorf("notify: unsupported platform %q", cfg.Platform)
	}
}

// severityColor maps event severities to attachment/embed colors.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return "#2eb886"
	case "warning":
		return "#f2c744"
	case "error":
		return "#d62d20"
	default:
		return "#439fe0"
	}
}
