package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// HandleClickButton handles menu navigation and mode selection. The callback is always answered.
func (bh *Handlers) HandleClickButton(ctx context.Context, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	lang := bh.lang(ctx)
	userID := cq.From.ID
	data := strings.TrimSpace(cq.Data)
	log := bh.log.WithFields(logrus.Fields{"user_id": userID, "callback": data})

	switch data {
	case types.CallbackImages, types.CallbackFiles:
		menu := types.Menu(data)
		bh.router.SelectMenu(userID, menu)
		bh.showMenu(ctx, update, menuText(menu, lang), bh.subMenuKeyboard(menu, lang))
		bh.answerCallback(ctx, cq.ID, "")
		log.Debug("menu selected")
		return
	case types.CallbackBackMain:
		bh.router.ClearSession(userID)
		bh.showMenu(ctx, update, messages.MainMenuText(lang), bh.mainMenuKeyboard(lang))
		bh.answerCallback(ctx, cq.ID, "")
		return
	}

	spec, ok := formats.Lookup(types.Mode(data))
	if !ok {
		bh.answerCallback(ctx, cq.ID, messages.CallbackUnknownButton(lang))
		return
	}
	if !bh.router.Available(spec.Mode) {
		log.Info("unavailable mode pressed")
		bh.answerCallbackAlert(ctx, cq.ID, messages.ErrorModeUnavailable(lang))
		return
	}

	bh.router.SelectMode(userID, spec.Menu, spec.Mode)
	bh.showMenu(ctx, update, modePrompt(spec, lang), bh.modeKeyboard(spec.Menu, lang))
	bh.answerCallback(ctx, cq.ID, "")
	log.Debug("mode selected")
}

func modePrompt(spec formats.ModeSpec, lang i18n.Lang) string {
	if spec.Menu == types.MenuImages {
		return messages.ModeSelectedImage(lang, spec.DisplayLabel(lang))
	}
	return messages.ModeSelectedFile(lang, spec.DisplayLabel(lang))
}

// showMenu edits the message carrying the pressed button, or sends a new one if it cannot be edited.
func (bh *Handlers) showMenu(ctx context.Context, update *models.Update, text string, markup *models.InlineKeyboardMarkup) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		_, err := bh.sender.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Text:        text,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err == nil {
			return
		}
		bh.log.WithError(err).Debug("edit failed, sending a new message")
	}
	bh.sendText(ctx, getChatIDFromUpdate(update), text, markup)
}

func (bh *Handlers) answerCallback(ctx context.Context, callbackID, text string) {
	_, err := bh.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		bh.log.WithError(err).Debug("failed to answer callback")
	}
}

func (bh *Handlers) answerCallbackAlert(ctx context.Context, callbackID, text string) {
	_, err := bh.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
	if err != nil {
		bh.log.WithError(err).Debug("failed to answer callback")
	}
}
