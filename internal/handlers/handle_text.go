package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
)

// HandleText replies to free text with a hint and the menu the user is currently in.
func (bh *Handlers) HandleText(ctx context.Context, update *models.Update) {
	if update.Message == nil {
		return
	}
	lang := bh.lang(ctx)
	chatID := update.Message.Chat.ID
	bh.sendText(ctx, chatID, messages.ErrorUnsupportedMessageType(lang), nil)

	if update.Message.From != nil {
		bh.sendCurrentMenu(ctx, chatID, update.Message.From.ID, lang)
		return
	}
	bh.sendMainMenu(ctx, chatID, lang)
}
