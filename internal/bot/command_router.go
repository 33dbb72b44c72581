package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/repost-bot/internal/platform/observability"
)

// commandHandler is a function that handles a specific bot command.
type commandHandler func(ctx context.Context, msg *tgbotapi.Message) string

// commandRegistry holds the mapping of command names to their handlers.
type commandRegistry struct {
	handlers map[string]commandHandler
	// tuning commands change dedup behavior and are limited to admins.
	tuning map[string]bool
}

// newCommandRegistry creates a new command registry for the bot.
func (b *Bot) newCommandRegistry() *commandRegistry {
	r := &commandRegistry{
		handlers: make(map[string]commandHandler),
		tuning:   make(map[string]bool),
	}

	b.registerInfoCommands(r)
	b.registerTuningCommands(r)

	return r
}

func (b *Bot) registerInfoCommands(r *commandRegistry) {
	r.handlers[CmdDedupSettings] = b.handleDedupSettings
}

func (b *Bot) registerTuningCommands(r *commandRegistry) {
	r.handlers[CmdIncreaseSensitivity] = b.handleIncreaseSensitivity
	r.handlers[CmdReduceSensitivity] = b.handleReduceSensitivity
	r.handlers[CmdSetThreshold] = b.handleSetThreshold
	r.handlers[CmdSetResolution] = b.handleSetResolution

	for cmd := range r.handlers {
		if cmd != CmdDedupSettings {
			r.tuning[cmd] = true
		}
	}
}

// route handles the command routing for a message. It returns false for
// commands the bot does not know.
func (r *commandRegistry) route(ctx context.Context, b *Bot, msg *tgbotapi.Message) bool {
	cmd := msg.Command()

	handler, ok := r.handlers[cmd]
	if !ok {
		return false
	}

	if r.tuning[cmd] && !b.cfg.IsAdmin(senderID(msg)) {
		b.logger.Warn().Int64(LogFieldUserID, senderID(msg)).Str(LogFieldCommand, cmd).Msg("Unauthorized tuning attempt")
		observability.CommandsHandled.WithLabelValues(cmd, statusUnauthorized).Inc()
		b.replyTo(msg, b.msgs.Unauthorized)

		return true
	}

	observability.CommandsHandled.WithLabelValues(cmd, handler(ctx, msg)).Inc()

	return true
}

func senderID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}

	return msg.From.ID
}
