package router

import (
	"github.com/BatmanBruc/convert-menu-bot/internal/converter"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

type ReplyKind int

const (
	ReplyText ReplyKind = iota
	ReplyDocument
)

// Keyboard selects which inline menu is attached to a reply.
type Keyboard string

const (
	KeyboardNone   Keyboard = ""
	KeyboardMain   Keyboard = "main"
	KeyboardImages Keyboard = "images"
	KeyboardFiles  Keyboard = "files"
)

func KeyboardFor(menu types.Menu) Keyboard {
	switch menu {
	case types.MenuImages:
		return KeyboardImages
	case types.MenuFiles:
		return KeyboardFiles
	default:
		return KeyboardMain
	}
}

// Reply is one outbound message. Transport code renders it; the router never talks to the SDK.
type Reply struct {
	Kind     ReplyKind
	Text     string
	Document *converter.Artifact
	Caption  string
	Keyboard Keyboard
}

// Result is the outcome of an upload. Err is nil or a *Failure.
type Result struct {
	Artifact *converter.Artifact
	Err      error
	Replies  []Reply
}

func textReply(text string, kb Keyboard) Reply {
	return Reply{Kind: ReplyText, Text: text, Keyboard: kb}
}

func menuPrompt(lang i18n.Lang, menu types.Menu) Reply {
	switch menu {
	case types.MenuImages:
		return textReply(messages.ImagesMenuText(lang), KeyboardImages)
	case types.MenuFiles:
		return textReply(messages.FilesMenuText(lang), KeyboardFiles)
	default:
		return textReply(messages.MainMenuText(lang), KeyboardMain)
	}
}
