package bot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/repost-bot/internal/platform/config"
	"github.com/lueurxax/repost-bot/internal/process/dedup"
)

const (
	testBotUsername = "repostbot"
	testChatID      = int64(-1001234567890)
	testPhotoURL    = "https://api.telegram.org/file/photo.jpg"
	testWebmURL     = "https://cdn.example.com/clip.webm"
	testEndpoint    = "https://random.example.com/api"
)

var errFetch = errors.New("fetch failed")

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
	fileErr  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, c)

	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	if f.fileErr != nil {
		return "", f.fileErr
	}

	return testPhotoURL, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
}

func (f *fakeAPI) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent)

	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent item is %T", f.sent[len(f.sent)-1])

	return msg
}

func (f *fakeAPI) deletes() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.DeleteMessageConfig

	for _, r := range f.requests {
		if d, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}

	return out
}

type fakeFetcher struct {
	data map[string][]byte
	json map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if d, ok := f.data[url]; ok {
		return d, nil
	}

	return nil, errFetch
}

func (f *fakeFetcher) FetchJSON(_ context.Context, url string, target any) error {
	u, ok := f.json[url]
	if !ok {
		return errFetch
	}

	if img, ok := target.(*randomImage); ok {
		img.URL = u
	}

	return nil
}

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) WebmToMP4(_ context.Context, webm []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}

	return append([]byte("mp4:"), webm...), nil
}

func testConfig() *config.Config {
	return &config.Config{
		LinkFixEnabled:        true,
		WebmConversionEnabled: true,
		MessageLocale:         "en",
		RandomImageEndpoints:  []string{testEndpoint},
	}
}

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *fakeAPI) {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}

	engine, err := dedup.NewEngine(dedup.Deps{}, 50, nil)
	require.NoError(t, err)

	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	fetcher := &fakeFetcher{data: map[string][]byte{}, json: map[string]string{}}

	b := newBot(cfg, config.DefaultMessages(), engine, fetcher, &fakeTranscoder{}, api, testBotUsername, nil)
	b.pick = func(int) int { return 0 }

	return b, api
}

func textMessage(id int, author string, text string, entities ...tgbotapi.MessageEntity) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: int64(id), FirstName: author},
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Date:      int(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Unix()),
		Text:      text,
		Entities:  entities,
	}
}

func urlEntity(offset, length int) tgbotapi.MessageEntity {
	return tgbotapi.MessageEntity{Type: EntityTypeURL, Offset: offset, Length: length}
}

func commandMessage(userID int64, text, cmd string) *tgbotapi.Message {
	msg := textMessage(1, "admin", text, tgbotapi.MessageEntity{Type: EntityTypeBotCommand, Offset: 0, Length: len(cmd) + 1})
	msg.From.ID = userID

	return msg
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestHandleMessage_RewritesFirstSighting(t *testing.T) {
	b, api := newTestBot(t, nil)

	b.handleMessage(context.Background(), textMessage(10, "alice", "lol https://x.com/alice/status/123", urlEntity(4, 30)))

	reply := api.lastMessage(t)
	assert.Equal(t, "<b>alice</b> posted:\n<pre>lol</pre>\nhttps://vxtwitter.com/alice/status/123", reply.Text)
	assert.Equal(t, tgbotapi.ModeHTML, reply.ParseMode)

	deletes := api.deletes()
	require.Len(t, deletes, 1)
	assert.Equal(t, 10, deletes[0].MessageID)
}

func TestHandleMessage_ReportsRepostThroughMirror(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.now = func() time.Time { return time.Date(2024, 3, 1, 12, 3, 30, 0, time.UTC) }

	b.handleMessage(context.Background(), textMessage(10, "alice", "https://x.com/alice/status/123", urlEntity(0, 30)))
	b.handleMessage(context.Background(), textMessage(11, "bob", "https://fxtwitter.com/alice/status/123", urlEntity(0, 38)))

	reply := api.lastMessage(t)
	assert.Equal(t, 11, reply.ReplyToMessageID)
	assert.Contains(t, reply.Text, "Already posted by <b>alice</b>")
	assert.Contains(t, reply.Text, `<a href="https://t.me/c/1234567890/10">3.5 minutes ago</a>`)
	assert.Len(t, api.deletes(), 1, "the repost is not deleted")
}

func TestHandleMessage_LinkFixDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.LinkFixEnabled = false
	b, api := newTestBot(t, cfg)

	b.handleMessage(context.Background(), textMessage(10, "alice", "https://x.com/alice/status/123", urlEntity(0, 30)))

	assert.Empty(t, api.sent)
	assert.Empty(t, api.deletes())
}

func TestHandlePhoto(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.fetcher.(*fakeFetcher).data[testPhotoURL] = pngBytes(t, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	photoMsg := func(id int, author string) *tgbotapi.Message {
		msg := textMessage(id, author, "")
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}

		return msg
	}

	b.handleMessage(context.Background(), photoMsg(20, "alice"))
	assert.Empty(t, api.sent, "first sighting is silent")

	b.handleMessage(context.Background(), photoMsg(21, "bob"))

	require.Len(t, api.sent, 1)
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, 21, photo.ReplyToMessageID)
	assert.Contains(t, photo.Caption, "<b>alice</b>")
	assert.Contains(t, photo.Caption, "Similar pixels: 0/900")

	keyboard, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackReduceSensitivity, *keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestHandlePhoto_FetchFailureNotifiesAndStoresNothing(t *testing.T) {
	b, api := newTestBot(t, nil)

	msg := textMessage(20, "alice", "")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}}

	b.handleMessage(context.Background(), msg)

	require.Len(t, api.sent, 1)
	reply := api.lastMessage(t)
	assert.Equal(t, 20, reply.ReplyToMessageID)
	assert.Equal(t, b.msgs.FetchFailed, reply.Text)

	_, images := b.engine.CacheSizes()
	assert.Zero(t, images)
}

func TestHandlePhoto_ResolveFailureNotifies(t *testing.T) {
	b, api := newTestBot(t, nil)
	api.fileErr = errors.New("file not found")
	b.fetcher.(*fakeFetcher).data[testPhotoURL] = pngBytes(t, color.RGBA{R: 200, A: 255})

	msg := textMessage(22, "alice", "")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}}

	b.handleMessage(context.Background(), msg)

	assert.Equal(t, b.msgs.FetchFailed, api.lastMessage(t).Text)

	_, images := b.engine.CacheSizes()
	assert.Zero(t, images)
}

func TestHandleCallback_ReducesSensitivity(t *testing.T) {
	b, api := newTestBot(t, nil)

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 7},
		Data:    CallbackReduceSensitivity,
		Message: textMessage(30, "repostbot", ""),
	})

	assert.InDelta(t, 0.45, b.engine.Settings().Threshold(), 1e-9)
	require.Len(t, api.requests, 1)

	callback, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb1", callback.CallbackQueryID)
	assert.Contains(t, api.lastMessage(t).Text, "0.45")
}

func TestHandleCallback_UnknownDataIgnored(t *testing.T) {
	b, api := newTestBot(t, nil)

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "x", From: &tgbotapi.User{ID: 1}, Data: "other"})

	assert.Empty(t, api.requests)
	assert.InDelta(t, 0.5, b.engine.Settings().Threshold(), 1e-9)
}

func TestCommands(t *testing.T) {
	b, api := newTestBot(t, nil)
	ctx := context.Background()

	b.handleMessage(ctx, commandMessage(1, "/set_resolution 200", CmdSetResolution))
	assert.Equal(t, b.msgs.InvalidResolution, api.lastMessage(t).Text)
	assert.Equal(t, 30, b.engine.Settings().Resolution())

	b.handleMessage(ctx, commandMessage(1, "/set_resolution abc", CmdSetResolution))
	assert.Equal(t, b.msgs.InvalidResolution, api.lastMessage(t).Text)

	b.handleMessage(ctx, commandMessage(1, "/set_resolution 20", CmdSetResolution))
	assert.Contains(t, api.lastMessage(t).Text, "<code>40/400</code>")
	assert.Equal(t, 20, b.engine.Settings().Resolution())

	b.handleMessage(ctx, commandMessage(1, "/set_threshold 12", CmdSetThreshold))
	assert.Equal(t, 12, b.engine.Settings().SimilarPixelCount())

	b.handleMessage(ctx, commandMessage(1, "/set_threshold -3", CmdSetThreshold))
	assert.Equal(t, b.msgs.InvalidThreshold, api.lastMessage(t).Text)
	assert.Equal(t, 12, b.engine.Settings().SimilarPixelCount())

	b.handleMessage(ctx, commandMessage(1, "/increase_sensitivity", CmdIncreaseSensitivity))
	assert.InDelta(t, 0.55, b.engine.Settings().Threshold(), 1e-9)

	b.handleMessage(ctx, commandMessage(1, "/dedup_settings", CmdDedupSettings))
	assert.Contains(t, api.lastMessage(t).Text, "<code>0.55</code>")
}

func TestCommands_AdminOnly(t *testing.T) {
	cfg := testConfig()
	cfg.AdminIDs = []int64{99}
	b, api := newTestBot(t, cfg)

	b.handleMessage(context.Background(), commandMessage(5, "/set_resolution 20", CmdSetResolution))
	assert.Equal(t, b.msgs.Unauthorized, api.lastMessage(t).Text)
	assert.Equal(t, 30, b.engine.Settings().Resolution())

	b.handleMessage(context.Background(), commandMessage(5, "/dedup_settings", CmdDedupSettings))
	assert.Contains(t, api.lastMessage(t).Text, "Resolution:", "settings view is open to everyone")

	b.handleMessage(context.Background(), commandMessage(99, "/set_resolution 20", CmdSetResolution))
	assert.Equal(t, 20, b.engine.Settings().Resolution())
}

func TestHandleReplyToBot(t *testing.T) {
	b, api := newTestBot(t, nil)

	msg := textMessage(40, "carol", "why")
	msg.ReplyToMessage = &tgbotapi.Message{From: &tgbotapi.User{IsBot: true, UserName: testBotUsername}}

	b.handleMessage(context.Background(), msg)

	reply := api.lastMessage(t)
	assert.Equal(t, 40, reply.ReplyToMessageID)
	assert.Equal(t, "I don't do replies, carol. Not replying to that.", reply.Text)
}

func TestHandleDirectMention(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.fetcher.(*fakeFetcher).json[testEndpoint] = "https://img.example.com/cat.jpg"

	b.handleMessage(context.Background(), textMessage(50, "dave", "@"+testBotUsername))
	assert.Equal(t, "Here you go: https://img.example.com/cat.jpg", api.lastMessage(t).Text)

	delete(b.fetcher.(*fakeFetcher).json, testEndpoint)

	b.handleMessage(context.Background(), textMessage(51, "dave", "@"+testBotUsername))
	assert.Equal(t, b.msgs.FetchFailed, api.lastMessage(t).Text)
}

func TestHandleWebm(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.fetcher.(*fakeFetcher).data[testWebmURL] = []byte("webm")

	b.handleMessage(context.Background(), textMessage(60, "erin", testWebmURL, urlEntity(0, len(testWebmURL))))

	require.Len(t, api.sent, 1)
	video, ok := api.sent[0].(tgbotapi.VideoConfig)
	require.True(t, ok)
	assert.Equal(t, "<b>erin</b> shared a video (converted from webm)", video.Caption)

	file, ok := video.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, []byte("mp4:webm"), file.Bytes)

	require.Len(t, api.deletes(), 1)

	linkCount, _ := b.engine.CacheSizes()
	assert.Zero(t, linkCount, "converted webm links bypass the link cache")
}

func TestHandleWebm_Failure(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.fetcher.(*fakeFetcher).data[testWebmURL] = []byte("webm")
	b.transcoder = &fakeTranscoder{err: errors.New("ffmpeg exited 1")}

	b.handleMessage(context.Background(), textMessage(60, "erin", testWebmURL, urlEntity(0, len(testWebmURL))))

	assert.Contains(t, api.lastMessage(t).Text, "Failed to convert webm video:")
	assert.Empty(t, api.deletes())
}

func TestHandleUpdate_RecoversPanic(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.engine = nil

	assert.NotPanics(t, func() {
		b.handleUpdate(context.Background(), tgbotapi.Update{
			Message: textMessage(70, "frank", "https://x.com/a/status/1", urlEntity(0, 24)),
		})
	})

	reply := api.lastMessage(t)
	assert.Equal(t, 70, reply.ReplyToMessageID)
	assert.Equal(t, b.msgs.GenericFailure, reply.Text)
}

func TestHandleMessage_PlainTextFallback(t *testing.T) {
	b, api := newTestBot(t, nil)

	b.handleMessage(context.Background(), textMessage(90, "hank", "https://youtu.be/dQw4w9WgXcQ"))
	assert.Empty(t, api.sent, "youtube links have no mirror")

	b.handleMessage(context.Background(), textMessage(91, "ivy", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))

	reply := api.lastMessage(t)
	assert.Equal(t, 91, reply.ReplyToMessageID)
	assert.Contains(t, reply.Text, "<b>hank</b>")
}

func TestRun_ReadinessAndShutdown(t *testing.T) {
	b, api := newTestBot(t, nil)
	require.Error(t, b.Ready(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- b.Run(ctx) }()

	api.updates <- tgbotapi.Update{Message: textMessage(80, "gina", "hello")}

	require.Eventually(t, func() bool { return b.Ready(context.Background()) == nil }, time.Second, 10*time.Millisecond)

	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, api.stopped)
	assert.Error(t, b.Ready(context.Background()))
}
