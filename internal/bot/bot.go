package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lueurxax/repost-bot/internal/platform/config"
	"github.com/lueurxax/repost-bot/internal/platform/observability"
	"github.com/lueurxax/repost-bot/internal/process/dedup"
)

var errNotPolling = errors.New("bot is not polling for updates")

// botAPI is the subset of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Fetcher downloads media and JSON over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchJSON(ctx context.Context, url string, target any) error
}

// Transcoder converts WebM clips to MP4.
type Transcoder interface {
	WebmToMP4(ctx context.Context, webm []byte) ([]byte, error)
}

type Bot struct {
	cfg        *config.Config
	msgs       config.Messages
	engine     *dedup.Engine
	fetcher    Fetcher
	transcoder Transcoder
	api        botAPI
	username   string
	printer    *message.Printer
	commands   *commandRegistry
	polling    atomic.Bool
	now        func() time.Time
	pick       func(n int) int
	logger     *zerolog.Logger
}

func New(cfg *config.Config, msgs config.Messages, engine *dedup.Engine, fetcher Fetcher, transcoder Transcoder, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	api.Debug = cfg.BotDebug

	return newBot(cfg, msgs, engine, fetcher, transcoder, api, api.Self.UserName, logger), nil
}

func newBot(cfg *config.Config, msgs config.Messages, engine *dedup.Engine, fetcher Fetcher, transcoder Transcoder, api botAPI, username string, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	b := &Bot{
		cfg:        cfg,
		msgs:       msgs,
		engine:     engine,
		fetcher:    fetcher,
		transcoder: transcoder,
		api:        api,
		username:   username,
		printer:    message.NewPrinter(language.Make(cfg.MessageLocale)),
		now:        time.Now,
		pick:       rand.IntN,
		logger:     logger,
	}

	b.commands = b.newCommandRegistry()

	return b
}

// Ready reports whether the update loop is running.
func (b *Bot) Ready(_ context.Context) error {
	if !b.polling.Load() {
		return errNotPolling
	}

	return nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	b.polling.Store(true)
	defer b.polling.Store(false)

	b.logger.Info().Str(LogFieldUsername, b.username).Msg("Bot polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate processes one update. A panic in a handler is logged and
// counted so the loop keeps going.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			observability.HandlerPanics.Inc()
			b.logger.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("recovered from handler panic")

			if msg := update.Message; msg != nil && msg.Chat != nil {
				b.replyTo(msg, b.msgs.GenericFailure)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		observability.UpdatesReceived.WithLabelValues(updateTypeCallback).Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		observability.UpdatesReceived.WithLabelValues(updateTypeMessage).Inc()
		b.handleMessage(ctx, update.Message)
	default:
		observability.UpdatesReceived.WithLabelValues(updateTypeOther).Inc()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	switch {
	case msg.IsCommand():
		b.commands.route(ctx, b, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case b.isReplyToBot(msg):
		b.handleReplyToBot(msg)
	case b.isDirectMention(msg):
		b.handleDirectMention(ctx, msg)
	case msg.Text != "":
		if b.handleWebm(ctx, msg) {
			return
		}

		b.handleLinks(msg)
	}
}

func (b *Bot) handleCallback(_ context.Context, query *tgbotapi.CallbackQuery) {
	if query.Data != CallbackReduceSensitivity {
		return
	}

	if query.From == nil || !b.cfg.IsAdmin(query.From.ID) {
		b.answerCallback(query, b.msgs.Unauthorized)

		return
	}

	threshold := b.engine.DecreaseThreshold()
	observability.SettingsChanges.WithLabelValues("threshold").Inc()
	b.logger.Info().Int64(LogFieldUserID, query.From.ID).Float64("threshold", threshold).Msg("sensitivity reduced from button")

	b.answerCallback(query, b.msgs.ReduceSensitivityMessage)

	if query.Message != nil {
		b.sendHTML(query.Message.Chat.ID, 0, b.formatThresholdChange(b.msgs.ReduceSensitivityMessage, threshold))
	}
}

func (b *Bot) answerCallback(query *tgbotapi.CallbackQuery, text string) {
	callback := tgbotapi.NewCallback(query.ID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error().Err(err).Msg(ErrSendCallbackResp)
	}
}

func (b *Bot) isReplyToBot(msg *tgbotapi.Message) bool {
	reply := msg.ReplyToMessage

	return reply != nil && reply.From != nil && reply.From.IsBot && reply.From.UserName == b.username
}

func (b *Bot) isDirectMention(msg *tgbotapi.Message) bool {
	return b.username != "" && msg.Text == "@"+b.username
}

func (b *Bot) replyTo(msg *tgbotapi.Message, text string) {
	b.sendHTML(msg.Chat.ID, msg.MessageID, text)
}

func (b *Bot) sendHTML(chatID int64, replyTo int, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = replyTo

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Int64(LogFieldChatID, chatID).Msg("failed to send reply")
	}
}

func (b *Bot) deleteMessage(msg *tgbotapi.Message) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Warn().Err(err).Int64(LogFieldChatID, msg.Chat.ID).Int(LogFieldMessageID, msg.MessageID).Msg("failed to delete original message")
	}
}

func sightingOf(msg *tgbotapi.Message) dedup.Sighting {
	return dedup.Sighting{
		Author:    authorName(msg.From),
		SeenAt:    msg.Time(),
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}
}

func authorName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}

	if u.FirstName != "" {
		return u.FirstName
	}

	return u.UserName
}
