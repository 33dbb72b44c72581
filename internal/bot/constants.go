package bot

import "time"

// Command names.
const (
	CmdIncreaseSensitivity = "increase_sensitivity"
	CmdReduceSensitivity   = "reduce_sensitivity"
	CmdSetThreshold        = "set_threshold"
	CmdSetResolution       = "set_resolution"
	CmdDedupSettings       = "dedup_settings"
)

// Callback data.
const (
	CallbackReduceSensitivity = "reduce_sensitivity"
)

// Entity types.
const (
	EntityTypeBotCommand = "bot_command"
	EntityTypeURL        = "url"
)

// Log field names.
const (
	LogFieldUserID    = "user_id"
	LogFieldUsername  = "username"
	LogFieldChatID    = "chat_id"
	LogFieldMessageID = "message_id"
	LogFieldCommand   = "command"
	LogFieldURL       = "url"
)

// Update type labels for metrics.
const (
	updateTypeMessage  = "message"
	updateTypeCallback = "callback"
	updateTypeOther    = "other"
)

// Command status labels for metrics.
const (
	statusOK           = "ok"
	statusRejected     = "rejected"
	statusUnauthorized = "unauthorized"
)

// Metric source labels.
const (
	sourcePhoto       = "photo"
	sourceRandomImage = "random_image"
	sourceWebm        = "webm"
)

const (
	updatesTimeoutSeconds = 60
	fileNameThumbnail     = "thumbnail.png"
	fileNameVideo         = "video.mp4"
	// supergroupIDOffset is subtracted from supergroup chat IDs in t.me/c links.
	supergroupIDOffset = -1000000000000
	handlerTimeout     = 10 * time.Minute
)

// Error message formats.
const (
	ErrSendCallbackResp = "failed to send callback response"
)
