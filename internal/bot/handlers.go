package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/repost-bot/internal/core/links/linkextract"
	"github.com/lueurxax/repost-bot/internal/platform/observability"
	"github.com/lueurxax/repost-bot/internal/platform/settings"
	"github.com/lueurxax/repost-bot/internal/process/dedup"
)

type randomImage struct {
	URL string `json:"url"`
}

func (b *Bot) handleLinks(msg *tgbotapi.Message) {
	urls := linkextract.EntityURLs(msg.Text, toEntities(msg.Entities))
	if urls == nil {
		urls = linkextract.ExtractURLs(msg.Text)
	}

	if len(urls) == 0 {
		return
	}

	report := b.engine.CheckLinks(urls, sightingOf(msg))

	if report.Duplicate != nil {
		b.replyTo(msg, b.formatLinkDuplicate(report.Duplicate.Sighting))

		return
	}

	if !b.cfg.LinkFixEnabled || len(report.Rewrites) == 0 {
		return
	}

	for _, rw := range report.Rewrites {
		observability.LinksFixed.WithLabelValues(string(rw.Platform)).Inc()
		b.logger.Debug().Str(LogFieldURL, rw.Original).Str("fixed", rw.Fixed).Msg("rewriting link to mirror")
	}

	b.sendHTML(msg.Chat.ID, 0, b.formatRewrite(msg, report.Rewrites))
	b.deleteMessage(msg)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	// Sizes are ordered smallest first; the smallest is enough at 30×30.
	photo := msg.Photo[0]

	fileURL, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		observability.MediaFetchFailures.WithLabelValues(sourcePhoto).Inc()
		b.logger.Error().Err(err).Str("file_id", photo.FileID).Msg("failed to resolve photo URL")
		b.replyTo(msg, b.msgs.FetchFailed)

		return
	}

	data, err := b.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		observability.MediaFetchFailures.WithLabelValues(sourcePhoto).Inc()
		b.logger.Error().Err(err).Str("file_id", photo.FileID).Msg("failed to download photo")
		b.replyTo(msg, b.msgs.FetchFailed)

		return
	}

	res, err := b.engine.CheckImage(data, sightingOf(msg))
	if err != nil {
		b.logger.Warn().Err(err).Int(LogFieldMessageID, msg.MessageID).Msg("failed to check image")

		return
	}

	if !res.Duplicate {
		return
	}

	b.replyWithThumbnail(msg, res)
}

func (b *Bot) replyWithThumbnail(msg *tgbotapi.Message, res dedup.ImageResult) {
	caption := b.formatImageDuplicate(res)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.msgs.ReduceSensitivityBtn, CallbackReduceSensitivity),
		),
	)

	thumb, err := res.Thumbnail.PNG()
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to encode thumbnail, replying with text")

		reply := tgbotapi.NewMessage(msg.Chat.ID, caption)
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyToMessageID = msg.MessageID
		reply.ReplyMarkup = keyboard

		if _, err := b.api.Send(reply); err != nil {
			b.logger.Error().Err(err).Msg("failed to send duplicate notice")
		}

		return
	}

	photoMsg := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{Name: fileNameThumbnail, Bytes: thumb})
	photoMsg.Caption = caption
	photoMsg.ParseMode = tgbotapi.ModeHTML
	photoMsg.ReplyToMessageID = msg.MessageID
	photoMsg.ReplyMarkup = keyboard

	if _, err := b.api.Send(photoMsg); err != nil {
		b.logger.Error().Err(err).Msg("failed to send duplicate notice")
	}
}

func (b *Bot) handleReplyToBot(msg *tgbotapi.Message) {
	text := fmt.Sprintf("%s %s.", b.msgs.DirectReplyNoOp, html.EscapeString(authorName(msg.From)))

	if n := len(b.msgs.NoReplying); n > 0 {
		text += " " + html.EscapeString(b.msgs.NoReplying[b.pick(n)])
	}

	b.replyTo(msg, text)
}

func (b *Bot) handleDirectMention(ctx context.Context, msg *tgbotapi.Message) {
	endpoints := b.cfg.RandomImageEndpoints
	if len(endpoints) == 0 {
		return
	}

	endpoint := endpoints[b.pick(len(endpoints))]

	var img randomImage
	if err := b.fetcher.FetchJSON(ctx, endpoint, &img); err != nil || img.URL == "" {
		observability.MediaFetchFailures.WithLabelValues(sourceRandomImage).Inc()
		b.logger.Warn().Err(err).Str(LogFieldURL, endpoint).Msg("failed to fetch random image")
		b.replyTo(msg, b.msgs.FetchFailed)

		return
	}

	b.replyTo(msg, fmt.Sprintf("%s %s", b.msgs.SendingRandomImage, html.EscapeString(img.URL)))
}

// handleWebm converts a message that is only a .webm link into an mp4 video
// and replaces the original. It reports whether the message was consumed.
func (b *Bot) handleWebm(ctx context.Context, msg *tgbotapi.Message) bool {
	if !b.cfg.WebmConversionEnabled || b.transcoder == nil {
		return false
	}

	webmURL, ok := linkextract.ExclusiveWebmURL(msg.Text)
	if !ok {
		return false
	}

	start := time.Now()

	video, err := b.convertWebm(ctx, webmURL)
	if err != nil {
		observability.TranscodeDuration.WithLabelValues(statusRejected).Observe(time.Since(start).Seconds())
		b.logger.Error().Err(err).Str(LogFieldURL, webmURL).Msg("failed to convert webm")
		b.replyTo(msg, fmt.Sprintf("%s %s", b.msgs.WebmFailed, html.EscapeString(err.Error())))

		return true
	}

	observability.TranscodeDuration.WithLabelValues(statusOK).Observe(time.Since(start).Seconds())

	videoMsg := tgbotapi.NewVideo(msg.Chat.ID, tgbotapi.FileBytes{Name: fileNameVideo, Bytes: video})
	videoMsg.Caption = fmt.Sprintf("<b>%s</b> %s", html.EscapeString(authorName(msg.From)), b.msgs.WebmConverted)
	videoMsg.ParseMode = tgbotapi.ModeHTML
	videoMsg.SupportsStreaming = true

	if _, err := b.api.Send(videoMsg); err != nil {
		b.logger.Error().Err(err).Msg("failed to send converted video")
		b.replyTo(msg, fmt.Sprintf("%s %s", b.msgs.WebmFailed, html.EscapeString(err.Error())))

		return true
	}

	b.deleteMessage(msg)

	return true
}

func (b *Bot) convertWebm(ctx context.Context, webmURL string) ([]byte, error) {
	webm, err := b.fetcher.Fetch(ctx, webmURL)
	if err != nil {
		observability.MediaFetchFailures.WithLabelValues(sourceWebm).Inc()

		return nil, fmt.Errorf("download webm: %w", err)
	}

	video, err := b.transcoder.WebmToMP4(ctx, webm)
	if err != nil {
		return nil, fmt.Errorf("transcode webm: %w", err)
	}

	return video, nil
}

func (b *Bot) handleIncreaseSensitivity(_ context.Context, msg *tgbotapi.Message) string {
	threshold := b.engine.IncreaseThreshold()
	observability.SettingsChanges.WithLabelValues("threshold").Inc()

	b.replyTo(msg, b.formatThresholdChange(b.msgs.IncreaseSensitivityMessage, threshold))

	return statusOK
}

func (b *Bot) handleReduceSensitivity(_ context.Context, msg *tgbotapi.Message) string {
	threshold := b.engine.DecreaseThreshold()
	observability.SettingsChanges.WithLabelValues("threshold").Inc()

	b.replyTo(msg, b.formatThresholdChange(b.msgs.ReduceSensitivityMessage, threshold))

	return statusOK
}

func (b *Bot) handleSetThreshold(_ context.Context, msg *tgbotapi.Message) string {
	n, err := settings.ParseSimilarPixelCount(msg.CommandArguments())
	if err == nil {
		err = b.engine.SetSimilarPixelCount(n)
	}

	if err != nil {
		b.replyTo(msg, b.msgs.InvalidThreshold)

		return statusRejected
	}

	observability.SettingsChanges.WithLabelValues("similar_pixels").Inc()
	b.replyTo(msg, b.formatSettings(b.msgs.ThresholdSetMessage, b.engine.Settings().Snapshot()))

	return statusOK
}

func (b *Bot) handleSetResolution(_ context.Context, msg *tgbotapi.Message) string {
	n, err := settings.ParseResolution(msg.CommandArguments())
	if err != nil {
		b.replyTo(msg, b.msgs.InvalidResolution)

		return statusRejected
	}

	snap, err := b.engine.SetResolution(n)
	if err != nil {
		b.logger.Debug().Err(err).Int("resolution", n).Msg("resolution rejected")
		b.replyTo(msg, b.msgs.InvalidResolution)

		return statusRejected
	}

	observability.SettingsChanges.WithLabelValues("resolution").Inc()
	b.replyTo(msg, b.formatSettings(b.msgs.ResolutionSetMessage, snap))

	return statusOK
}

func (b *Bot) handleDedupSettings(_ context.Context, msg *tgbotapi.Message) string {
	b.replyTo(msg, b.formatSettings("", b.engine.Settings().Snapshot()))

	return statusOK
}

func toEntities(entities []tgbotapi.MessageEntity) []linkextract.Entity {
	out := make([]linkextract.Entity, 0, len(entities))

	for _, e := range entities {
		out = append(out, linkextract.Entity{Type: e.Type, Offset: e.Offset, Length: e.Length})
	}

	return out
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]

	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "\n")
}
