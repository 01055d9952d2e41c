package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
)

// HandleCommand answers slash commands. /start only shows the main menu; the session is left as is.
func (bh *Handlers) HandleCommand(ctx context.Context, update *models.Update) {
	if update.Message == nil {
		return
	}
	lang := bh.lang(ctx)
	chatID := update.Message.Chat.ID

	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start", "/menu":
		bh.sendMainMenu(ctx, chatID, lang)
	case "/help":
		bh.sendText(ctx, chatID, formats.GetHelpMessage(lang, bh.router.Capabilities()), nil)
	default:
		bh.sendText(ctx, chatID, messages.ErrorUnknownCommand(lang), nil)
	}
}
