package messages

import (
	"fmt"
	"strings"

	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func pick(lang i18n.Lang, ru, en string) string {
	if lang == i18n.RU {
		return ru
	}
	return en
}

func MainMenuText(lang i18n.Lang) string {
	return pick(lang,
		"📁 <b>Главное меню</b>\nВыберите категорию конвертации:",
		"📁 <b>Main menu</b>\nChoose a conversion category:")
}

func ImagesMenuText(lang i18n.Lang) string {
	return pick(lang, "🖼 Выберите тип конвертации картинок:", "🖼 Choose an image conversion:")
}

func FilesMenuText(lang i18n.Lang) string {
	return pick(lang, "📁 Выберите тип конвертации файлов:", "📁 Choose a file conversion:")
}

func MenuBtnImages(lang i18n.Lang) string {
	return pick(lang, "🖼 Картинки", "🖼 Images")
}

func MenuBtnFiles(lang i18n.Lang) string {
	return pick(lang, "📁 Файлы", "📁 Files")
}

func MenuBtnBack(lang i18n.Lang) string {
	return pick(lang, "🔙 Назад", "🔙 Back")
}

func GrayscaleLabel(lang i18n.Lang) string {
	return pick(lang, "Черно-белое", "Grayscale")
}

func ModeSelectedImage(lang i18n.Lang, label string) string {
	return pick(lang,
		fmt.Sprintf("🖼 Вы выбрали: <b>%s</b>\nТеперь отправьте картинку для обработки", Escape(label)),
		fmt.Sprintf("🖼 You picked: <b>%s</b>\nNow send a picture to process", Escape(label)))
}

func ModeSelectedFile(lang i18n.Lang, label string) string {
	return pick(lang,
		fmt.Sprintf("📄 Вы выбрали: <b>%s</b>\nОтправьте файл для конвертации", Escape(label)),
		fmt.Sprintf("📄 You picked: <b>%s</b>\nSend a file to convert", Escape(label)))
}

func CaptionImageDone(lang i18n.Lang) string {
	return pick(lang, "Готово!😉😉😉", "Done!😉😉😉")
}

func CaptionDocumentDone(lang i18n.Lang, format string) string {
	format = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(format), "."))
	return pick(lang,
		fmt.Sprintf("✅ %s готов!😉😉😉", format),
		fmt.Sprintf("✅ %s is ready!😉😉😉", format))
}

func ErrorNoActiveSession(lang i18n.Lang) string {
	return pick(lang,
		"🧭 Сначала выберите режим конвертации через меню",
		"🧭 Pick a conversion mode in the menu first")
}

func ErrorChooseModeFirst(lang i18n.Lang) string {
	return pick(lang,
		"🧭 Сначала выберите тип конвертации в меню ниже",
		"🧭 Choose a conversion type below first")
}

func ErrorSendImageFormat(lang i18n.Lang, format string) string {
	format = strings.ToUpper(strings.TrimSpace(format))
	if format == "JPEG" {
		format = "JPG"
	}
	return pick(lang,
		fmt.Sprintf("🚫 Отправьте %s картинку", format),
		fmt.Sprintf("🚫 Please send a %s picture", format))
}

func ErrorSendAnyImage(lang i18n.Lang) string {
	return pick(lang, "🚫 Пожалуйста, отправьте картинку", "🚫 Please send a picture")
}

func ErrorRequiresExt(lang i18n.Lang, ext string) string {
	return pick(lang,
		fmt.Sprintf("🚫 <b>Ошибка:</b> требуется файл %s 😱😓", Escape(ext)),
		fmt.Sprintf("🚫 <b>Error:</b> a %s file is required 😱😓", Escape(ext)))
}

func ErrorImageConversion(lang i18n.Lang) string {
	return pick(lang, "🚫 Одни ошибки при обработке картинок 😱😓", "🚫 Something went wrong while processing the picture 😱😓")
}

func ErrorFileConversion(lang i18n.Lang) string {
	return pick(lang, "🚫 Одни ошибки при обработке файлов 😱😓", "🚫 Something went wrong while converting the file 😱😓")
}

func ErrorModeUnavailable(lang i18n.Lang) string {
	return pick(lang,
		"⏳ Выбранный тип конвертации временно недоступен 😱😓",
		"⏳ This conversion is temporarily unavailable 😱😓")
}

func ErrorFileTooLarge(lang i18n.Lang, limitBytes int64) string {
	return pick(lang,
		fmt.Sprintf("📦 <b>Файл слишком большой</b>\nМаксимум: %s", FormatSize(lang, limitBytes)),
		fmt.Sprintf("📦 <b>File is too large</b>\nLimit: %s", FormatSize(lang, limitBytes)))
}

// FormatSize renders a byte count in B, KB or MB with at most one decimal.
func FormatSize(lang i18n.Lang, n int64) string {
	const kib, mib = 1024, 1024 * 1024
	switch {
	case n < kib:
		return fmt.Sprintf("%d %s", n, pick(lang, "Б", "B"))
	case n < mib:
		return trimZero(float64(n)/kib) + " " + pick(lang, "КБ", "KB")
	default:
		return trimZero(float64(n)/mib) + " " + pick(lang, "МБ", "MB")
	}
}

func trimZero(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}

func ErrorRateLimited(lang i18n.Lang) string {
	return pick(lang,
		"🐢 <b>Слишком много файлов</b>\nПодождите минуту и попробуйте снова.",
		"🐢 <b>Too many files</b>\nWait a minute and try again.")
}

func ErrorDefault(lang i18n.Lang) string {
	return pick(lang, "🚫 <b>Ошибка</b>\nПопробуйте ещё раз.", "🚫 <b>Error</b>\nPlease try again.")
}

func ErrorUnsupportedMessageType(lang i18n.Lang) string {
	return pick(lang,
		"🤖 <b>Я так не умею</b>\nОтправьте картинку или файл.",
		"🤖 <b>I can't do that</b>\nSend a picture or a file.")
}

func ErrorUnknownCommand(lang i18n.Lang) string {
	return pick(lang, "❓ <b>Команда не найдена</b>", "❓ <b>Unknown command</b>")
}

func CallbackUnknownButton(lang i18n.Lang) string {
	return pick(lang, "Кнопка устарела", "This button is outdated")
}

func HelpHeader(lang i18n.Lang) string {
	return pick(lang, "ℹ️ <b>Доступные конвертации</b>\n", "ℹ️ <b>Available conversions</b>\n")
}

func HelpUsage(lang i18n.Lang) string {
	return pick(lang,
		"🧭 <b>Использование</b>\n1) /start и выберите категорию\n2) Выберите тип конвертации\n3) Отправьте картинку или файл",
		"🧭 <b>Usage</b>\n1) /start and pick a category\n2) Pick a conversion\n3) Send a picture or a file")
}
