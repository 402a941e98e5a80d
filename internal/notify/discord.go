package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/ndomo/agentline/internal/engine"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to a Discord channel over the REST API. No Gateway
// connection is opened: embeds only need HTTP.
type Discord struct {
	sess      discordSession
	channelID string
}

var _ engine.Notifier = (*Discord)(nil)

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSession
}

func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, errors.New("notify: discord bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, errors.New("notify: discord channel is required")
	}
	n := &Discord{sess: opts.Session, channelID: opts.ChannelID}
	if n.sess == nil {
		sess, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("notify: discord session: %w", err)
		}
		n.sess = sess
	}
	return n, nil
}

func (n *Discord) Notify(ctx context.Context, ev engine.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       embedColor(ev.Severity),
	}
	_, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord post: %w", err)
	}
	return nil
}

// embedColor converts the shared hex color to Discord's integer form.
func embedColor(severity string) int {
	hex := strings.TrimPrefix(severityColor(severity), "#")
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
