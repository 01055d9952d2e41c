package handlers

import (
	"bytes"
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/internal/router"
	"github.com/BatmanBruc/convert-menu-bot/internal/utils"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

func (bh *Handlers) mainMenuKeyboard(lang i18n.Lang) *models.InlineKeyboardMarkup {
	return utils.BuildInlineKeyboard([]formats.FormatButton{
		{Text: messages.MenuBtnImages(lang), CallbackData: types.CallbackImages},
		{Text: messages.MenuBtnFiles(lang), CallbackData: types.CallbackFiles},
	})
}

// subMenuKeyboard lists the available modes of a menu plus a back-to-main button.
func (bh *Handlers) subMenuKeyboard(menu types.Menu, lang i18n.Lang) *models.InlineKeyboardMarkup {
	buttons := formats.GetModeButtons(menu, bh.router.Capabilities(), lang)
	return utils.BuildInlineKeyboard(buttons, formats.FormatButton{
		Text:         messages.MenuBtnBack(lang),
		CallbackData: types.CallbackBackMain,
	})
}

// modeKeyboard is shown under a mode prompt; back returns to the mode's menu.
func (bh *Handlers) modeKeyboard(menu types.Menu, lang i18n.Lang) *models.InlineKeyboardMarkup {
	return utils.BuildInlineKeyboard(nil, formats.FormatButton{
		Text:         messages.MenuBtnBack(lang),
		CallbackData: string(menu),
	})
}

func (bh *Handlers) keyboard(kb router.Keyboard, lang i18n.Lang) *models.InlineKeyboardMarkup {
	switch kb {
	case router.KeyboardMain:
		return bh.mainMenuKeyboard(lang)
	case router.KeyboardImages:
		return bh.subMenuKeyboard(types.MenuImages, lang)
	case router.KeyboardFiles:
		return bh.subMenuKeyboard(types.MenuFiles, lang)
	default:
		return nil
	}
}

func menuText(menu types.Menu, lang i18n.Lang) string {
	switch menu {
	case types.MenuImages:
		return messages.ImagesMenuText(lang)
	case types.MenuFiles:
		return messages.FilesMenuText(lang)
	default:
		return messages.MainMenuText(lang)
	}
}

func (bh *Handlers) sendMainMenu(ctx context.Context, chatID int64, lang i18n.Lang) {
	bh.sendText(ctx, chatID, messages.MainMenuText(lang), bh.mainMenuKeyboard(lang))
}

// sendCurrentMenu re-presents the sub-menu of the user's session, or the main menu without one.
func (bh *Handlers) sendCurrentMenu(ctx context.Context, chatID, userID int64, lang i18n.Lang) {
	session, ok := bh.router.Session(userID)
	if !ok {
		bh.sendMainMenu(ctx, chatID, lang)
		return
	}
	bh.sendText(ctx, chatID, menuText(session.Menu, lang), bh.keyboard(router.KeyboardFor(session.Menu), lang))
}

// renderReplies sends router replies in order. A failed send is logged and the rest still go out.
func (bh *Handlers) renderReplies(ctx context.Context, chatID int64, replies []router.Reply, lang i18n.Lang) {
	for _, r := range replies {
		switch r.Kind {
		case router.ReplyDocument:
			if r.Document == nil {
				continue
			}
			params := &bot.SendDocumentParams{
				ChatID: chatID,
				Document: &models.InputFileUpload{
					Filename: r.Document.FileName,
					Data:     bytes.NewReader(r.Document.Data),
				},
				Caption:   r.Caption,
				ParseMode: messages.ParseModeHTML,
			}
			if _, err := bh.sender.SendDocument(ctx, params); err != nil {
				bh.log.WithError(err).WithField("chat_id", chatID).Error("failed to send document")
				bh.sendText(ctx, chatID, messages.ErrorDefault(lang), nil)
			}
		default:
			bh.sendText(ctx, chatID, r.Text, bh.keyboard(r.Keyboard, lang))
		}
	}
}
