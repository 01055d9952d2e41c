package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/contextkeys"
	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/internal/router"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// HandleFile passes a photo or document to the router and renders whatever it answers.
func (bh *Handlers) HandleFile(ctx context.Context, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	lang := bh.lang(ctx)
	chatID := msg.Chat.ID
	userID := msg.From.ID

	file, ok := contextkeys.GetFileInfo(ctx, 0)
	if !ok {
		bh.sendText(ctx, chatID, messages.ErrorDefault(lang), nil)
		return
	}
	kind, ok := contextkeys.GetMediaKind(ctx)
	if !ok {
		kind = types.MediaDocument
	}

	log := bh.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"file_name": file.FileName,
		"file_size": file.FileSize,
		"kind":      kind,
	})

	fileID := file.FileID
	res := bh.router.HandleUpload(ctx, router.Upload{
		UserID:    userID,
		Kind:      kind,
		FileName:  file.FileName,
		Extension: formats.ExtFromFileName(file.FileName),
		Size:      file.FileSize,
		Lang:      lang,
		Fetch: func(ctx context.Context) ([]byte, error) {
			return bh.downloader.Download(ctx, fileID, bh.maxUpload)
		},
	})
	if res.Err != nil {
		failure, _ := router.KindOf(res.Err)
		log.WithError(res.Err).WithField("failure", failure).Info("upload rejected")
	}
	bh.renderReplies(ctx, chatID, res.Replies, lang)
}
