package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/contextkeys"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/internal/router"
)

// Sender is the subset of *bot.Bot the handlers talk to.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type Handlers struct {
	router      *router.Router
	sender      Sender
	downloader  Downloader
	maxUpload   int64
	defaultLang i18n.Lang
	log         logrus.FieldLogger
}

type Config struct {
	Router         *router.Router
	Sender         Sender
	Downloader     Downloader
	MaxUploadBytes int64
	DefaultLang    i18n.Lang
	Log            logrus.FieldLogger
}

func NewHandlers(cfg Config) *Handlers {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = i18n.RU
	}
	return &Handlers{
		router:      cfg.Router,
		sender:      cfg.Sender,
		downloader:  cfg.Downloader,
		maxUpload:   cfg.MaxUploadBytes,
		defaultLang: cfg.DefaultLang,
		log:         cfg.Log.WithField("component", "handlers"),
	}
}

// MainHandler dispatches an update by the message type AnalyzeMessageMiddleware put in ctx.
func (bh *Handlers) MainHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}
	messageType, _ := contextkeys.GetMessageType(ctx)
	lang := bh.lang(ctx)

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, update)
	case contextkeys.MessageTypeDocument, contextkeys.MessageTypePhoto:
		bh.HandleFile(ctx, update)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, update)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, update)
	default:
		if chatID := getChatIDFromUpdate(update); chatID != 0 {
			bh.sendText(ctx, chatID, messages.ErrorUnsupportedMessageType(lang), nil)
		}
	}
}

func (bh *Handlers) lang(ctx context.Context) i18n.Lang {
	return contextkeys.GetLang(ctx, bh.defaultLang)
}

func getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
		return update.CallbackQuery.From.ID
	}
	return 0
}

func (bh *Handlers) sendText(ctx context.Context, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := bh.sender.SendMessage(ctx, params); err != nil {
		bh.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
	}
}
