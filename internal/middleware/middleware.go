package middleware

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/contextkeys"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// Notifier is the part of the bot client used to answer limited users.
type Notifier interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Middlewares struct {
	users       types.UserStore
	limiter     types.RateLimiter
	notifier    Notifier
	defaultLang i18n.Lang
	log         logrus.FieldLogger
}

type Config struct {
	Users       types.UserStore
	Limiter     types.RateLimiter
	Notifier    Notifier
	DefaultLang i18n.Lang
	Log         logrus.FieldLogger
}

func New(cfg Config) *Middlewares {
	if cfg.Users == nil {
		cfg.Users = types.NopJournal{}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = i18n.RU
	}
	return &Middlewares{
		users:       cfg.Users,
		limiter:     cfg.Limiter,
		notifier:    cfg.Notifier,
		defaultLang: cfg.DefaultLang,
		log:         cfg.Log.WithField("component", "middleware"),
	}
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h bot.HandlerFunc, mws ...bot.Middleware) bot.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RecoverMiddleware keeps a panicking handler from taking the polling loop down.
func (m *Middlewares) RecoverMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			if r := recover(); r != nil {
				m.log.WithFields(logrus.Fields{
					"panic":     r,
					"update_id": update.ID,
					"stack":     string(debug.Stack()),
				}).Error("panic recovered")
			}
		}()
		next(ctx, b, update)
	}
}

// LangMiddleware stores the sender's language in ctx.
func (m *Middlewares) LangMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		code := ""
		if u := sender(update); u != nil {
			code = u.LanguageCode
		}
		next(contextkeys.WithLang(ctx, i18n.FromLanguageCode(code, m.defaultLang)), b, update)
	}
}

// TrackUserMiddleware upserts the sender into the user store. Failures are logged only.
func (m *Middlewares) TrackUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message != nil && update.Message.From != nil {
			u := update.Message.From
			err := m.users.UpsertUser(ctx, types.User{
				UserID:       u.ID,
				ChatID:       update.Message.Chat.ID,
				Username:     u.Username,
				FirstName:    u.FirstName,
				LastName:     u.LastName,
				LanguageCode: u.LanguageCode,
			})
			if err != nil {
				m.log.WithError(err).WithField("user_id", u.ID).Warn("failed to upsert user")
			}
		}
		next(ctx, b, update)
	}
}

// RateLimitMiddleware throttles uploads per user. It must run after AnalyzeMessageMiddleware.
// Commands and button presses pass through; a limiter error lets the upload through.
func (m *Middlewares) RateLimitMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if m.limiter == nil || !contextkeys.HasFiles(ctx) || update.Message == nil || update.Message.From == nil {
			next(ctx, b, update)
			return
		}

		userID := update.Message.From.ID
		ok, err := m.limiter.Allow(ctx, userID)
		if err != nil {
			m.log.WithError(err).WithField("user_id", userID).Warn("rate limiter unavailable")
			next(ctx, b, update)
			return
		}
		if ok {
			next(ctx, b, update)
			return
		}

		m.log.WithField("user_id", userID).Warn("upload rate limited")
		if m.notifier != nil {
			lang := contextkeys.GetLang(ctx, m.defaultLang)
			_, err := m.notifier.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    update.Message.Chat.ID,
				Text:      messages.ErrorRateLimited(lang),
				ParseMode: messages.ParseModeHTML,
			})
			if err != nil {
				m.log.WithError(err).Warn("failed to send rate limit notice")
			}
		}
	}
}

func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		// Callbacks without data still need an answer.
		if update.CallbackQuery != nil {
			next(contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton), b, update)
			return
		}

		if update.Message != nil && strings.HasPrefix(update.Message.Text, "/") {
			next(contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand), b, update)
			return
		}

		next(m.analyzeMessage(ctx, update), b, update)
	}
}

func sender(update *models.Update) *models.User {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	default:
		return nil
	}
}

func (m *Middlewares) analyzeMessage(ctx context.Context, update *models.Update) context.Context {
	if update.Message == nil {
		return ctx
	}

	msg := update.Message
	ctx = contextkeys.WithMessageType(ctx, determineMessageType(msg))

	var file *contextkeys.FileInfo
	switch {
	case len(msg.Photo) > 0:
		file = analyzePhoto(msg.Photo)
		ctx = contextkeys.WithMediaKind(ctx, types.MediaImage)
	case msg.Document != nil:
		file = analyzeDocument(msg.Document)
		kind := types.MediaDocument
		if strings.HasPrefix(strings.ToLower(msg.Document.MimeType), "image/") {
			kind = types.MediaImage
		}
		ctx = contextkeys.WithMediaKind(ctx, kind)
	}

	if file != nil {
		ctx = contextkeys.WithFilesInfo(ctx, &contextkeys.FilesInfo{
			TotalFiles: 1,
			Files:      []contextkeys.FileInfo{*file},
			HasFiles:   true,
		})
	}
	return ctx
}

func determineMessageType(msg *models.Message) contextkeys.MessageType {
	switch {
	case len(msg.Photo) > 0:
		return contextkeys.MessageTypePhoto
	case msg.Document != nil:
		return contextkeys.MessageTypeDocument
	case msg.Video != nil, msg.VideoNote != nil:
		return contextkeys.MessageTypeVideo
	case msg.Audio != nil:
		return contextkeys.MessageTypeAudio
	case msg.Voice != nil:
		return contextkeys.MessageTypeVoice
	case msg.Sticker != nil:
		return contextkeys.MessageTypeSticker
	case msg.Text != "" || msg.Caption != "":
		return contextkeys.MessageTypeText
	default:
		return contextkeys.MessageTypeUnknown
	}
}

// analyzePhoto picks the largest size Telegram offers.
func analyzePhoto(sizes []models.PhotoSize) *contextkeys.FileInfo {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.FileSize > best.FileSize || (p.FileSize == best.FileSize && p.Width*p.Height > best.Width*best.Height) {
			best = p
		}
	}
	return &contextkeys.FileInfo{
		FileType: contextkeys.MessageTypePhoto,
		FileID:   best.FileID,
		FileSize: int64(best.FileSize),
		Width:    best.Width,
		Height:   best.Height,
		FileName: "photo.jpg",
	}
}

func analyzeDocument(doc *models.Document) *contextkeys.FileInfo {
	return &contextkeys.FileInfo{
		FileType: contextkeys.MessageTypeDocument,
		FileID:   doc.FileID,
		FileSize: int64(doc.FileSize),
		MimeType: doc.MimeType,
		FileName: strings.TrimSpace(doc.FileName),
	}
}
