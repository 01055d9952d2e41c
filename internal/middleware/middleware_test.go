package middleware

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/convert-menu-bot/internal/contextkeys"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
}

func (f *fakeNotifier) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return &models.Message{}, nil
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (f *fakeLimiter) Allow(context.Context, int64) (bool, error) {
	f.calls++
	return f.allow, f.err
}

type fakeUsers struct {
	users []types.User
	err   error
}

func (f *fakeUsers) UpsertUser(_ context.Context, u types.User) error {
	f.users = append(f.users, u)
	return f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func photoUpdate() *models.Update {
	return &models.Update{Message: &models.Message{
		From: &models.User{ID: 7, LanguageCode: "en"},
		Chat: models.Chat{ID: 70},
		Photo: []models.PhotoSize{
			{FileID: "small", FileSize: 100, Width: 90, Height: 90},
			{FileID: "big", FileSize: 900, Width: 800, Height: 800},
			{FileID: "mid", FileSize: 400, Width: 320, Height: 320},
		},
	}}
}

func documentUpdate(mime, name string) *models.Update {
	return &models.Update{Message: &models.Message{
		From:     &models.User{ID: 7},
		Chat:     models.Chat{ID: 70},
		Document: &models.Document{FileID: "doc", FileName: name, MimeType: mime, FileSize: 1234},
	}}
}

func capture(dst *context.Context) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		*dst = ctx
	}
}

func TestAnalyzeMessage_Photo(t *testing.T) {
	m := New(Config{Log: quietLogger()})
	var got context.Context
	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, photoUpdate())

	mt, _ := contextkeys.GetMessageType(got)
	assert.Equal(t, contextkeys.MessageTypePhoto, mt)
	kind, ok := contextkeys.GetMediaKind(got)
	require.True(t, ok)
	assert.Equal(t, types.MediaImage, kind)
	f, ok := contextkeys.GetFileInfo(got, 0)
	require.True(t, ok)
	assert.Equal(t, "big", f.FileID)
	assert.Equal(t, "photo.jpg", f.FileName)
}

func TestAnalyzeMessage_Documents(t *testing.T) {
	m := New(Config{Log: quietLogger()})

	var got context.Context
	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, documentUpdate("image/png", "shot.png"))
	kind, _ := contextkeys.GetMediaKind(got)
	assert.Equal(t, types.MediaImage, kind)

	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, documentUpdate("application/pdf", "a.pdf"))
	kind, _ = contextkeys.GetMediaKind(got)
	assert.Equal(t, types.MediaDocument, kind)
	f, _ := contextkeys.GetFileInfo(got, 0)
	assert.Equal(t, int64(1234), f.FileSize)
	assert.Equal(t, "a.pdf", f.FileName)
}

func TestAnalyzeMessage_CommandAndCallback(t *testing.T) {
	m := New(Config{Log: quietLogger()})
	var got context.Context

	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, &models.Update{Message: &models.Message{Text: "/start"}})
	mt, _ := contextkeys.GetMessageType(got)
	assert.Equal(t, contextkeys.MessageTypeCommand, mt)

	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, &models.Update{CallbackQuery: &models.CallbackQuery{Data: "images"}})
	mt, _ = contextkeys.GetMessageType(got)
	assert.Equal(t, contextkeys.MessageTypeClickButton, mt)
	assert.False(t, contextkeys.HasFiles(got))

	m.AnalyzeMessageMiddleware(capture(&got))(context.Background(), nil, &models.Update{CallbackQuery: &models.CallbackQuery{ID: "1"}})
	mt, _ = contextkeys.GetMessageType(got)
	assert.Equal(t, contextkeys.MessageTypeClickButton, mt)
}

func TestLangMiddleware(t *testing.T) {
	m := New(Config{DefaultLang: i18n.RU, Log: quietLogger()})
	var got context.Context

	m.LangMiddleware(capture(&got))(context.Background(), nil, photoUpdate())
	assert.Equal(t, i18n.EN, contextkeys.GetLang(got, i18n.RU))

	m.LangMiddleware(capture(&got))(context.Background(), nil, documentUpdate("", "a.pdf"))
	assert.Equal(t, i18n.RU, contextkeys.GetLang(got, i18n.EN))
}

func TestRateLimitMiddleware(t *testing.T) {
	notifier := &fakeNotifier{}
	limiter := &fakeLimiter{allow: false}
	m := New(Config{Limiter: limiter, Notifier: notifier, Log: quietLogger()})

	called := false
	next := func(context.Context, *bot.Bot, *models.Update) { called = true }
	h := Chain(next, m.AnalyzeMessageMiddleware, m.RateLimitMiddleware)

	h(context.Background(), nil, photoUpdate())
	assert.False(t, called)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(70), notifier.sent[0].ChatID)

	h(context.Background(), nil, &models.Update{Message: &models.Message{From: &models.User{ID: 7}, Text: "/start"}})
	assert.True(t, called, "commands are not limited")
	assert.Equal(t, 1, limiter.calls)

	called = false
	limiter.err = errors.New("redis down")
	h(context.Background(), nil, photoUpdate())
	assert.True(t, called, "limiter errors fail open")
}

func TestTrackUserMiddleware(t *testing.T) {
	users := &fakeUsers{err: errors.New("db down")}
	m := New(Config{Users: users, Log: quietLogger()})

	called := false
	m.TrackUserMiddleware(func(context.Context, *bot.Bot, *models.Update) { called = true })(context.Background(), nil, photoUpdate())
	assert.True(t, called)
	require.Len(t, users.users, 1)
	assert.Equal(t, int64(7), users.users[0].UserID)
	assert.Equal(t, int64(70), users.users[0].ChatID)
}

func TestRecoverMiddleware(t *testing.T) {
	m := New(Config{Log: quietLogger()})
	h := m.RecoverMiddleware(func(context.Context, *bot.Bot, *models.Update) { panic("boom") })
	assert.NotPanics(t, func() { h(context.Background(), nil, &models.Update{ID: 1}) })
}
