package contextkeys

import (
	"context"

	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

type messageTypeKey struct{}
type filesInfoKey struct{}
type mediaKindKey struct{}
type langKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePhoto       MessageType = "photo"
	MessageTypeVideo       MessageType = "video"
	MessageTypeDocument    MessageType = "document"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeVoice       MessageType = "voice"
	MessageTypeSticker     MessageType = "sticker"
	MessageTypeUnknown     MessageType = "unknown"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
)

type FileInfo struct {
	FileType MessageType `json:"file_type"`
	FileID   string      `json:"file_id"`
	FileSize int64       `json:"file_size,omitempty"`
	MimeType string      `json:"mime_type,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	Width    int         `json:"width,omitempty"`
	Height   int         `json:"height,omitempty"`
}

type FilesInfo struct {
	TotalFiles int        `json:"total_files"`
	Files      []FileInfo `json:"files"`
	HasFiles   bool       `json:"has_files"`
}

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v, ok := ctx.Value(messageTypeKey{}).(MessageType)
	if !ok {
		return MessageTypeUnknown, false
	}
	return v, true
}

func WithFilesInfo(ctx context.Context, info *FilesInfo) context.Context {
	return context.WithValue(ctx, filesInfoKey{}, info)
}

func GetFilesInfo(ctx context.Context) (*FilesInfo, bool) {
	v, ok := ctx.Value(filesInfoKey{}).(*FilesInfo)
	if !ok {
		return nil, false
	}
	return v, true
}

func HasFiles(ctx context.Context) bool {
	info, ok := GetFilesInfo(ctx)
	return ok && info != nil && info.HasFiles
}

func GetFileInfo(ctx context.Context, index int) (FileInfo, bool) {
	info, ok := GetFilesInfo(ctx)
	if !ok || info == nil || index < 0 || index >= len(info.Files) {
		return FileInfo{}, false
	}
	return info.Files[index], true
}

// WithMediaKind records whether the upload arrived as a picture or as a document.
func WithMediaKind(ctx context.Context, kind types.MediaKind) context.Context {
	return context.WithValue(ctx, mediaKindKey{}, kind)
}

func GetMediaKind(ctx context.Context) (types.MediaKind, bool) {
	v, ok := ctx.Value(mediaKindKey{}).(types.MediaKind)
	return v, ok
}

func WithLang(ctx context.Context, lang i18n.Lang) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// GetLang returns the user's language, or fallback when none was stored.
func GetLang(ctx context.Context, fallback i18n.Lang) i18n.Lang {
	v, ok := ctx.Value(langKey{}).(i18n.Lang)
	if !ok || v == "" {
		return fallback
	}
	return v
}
