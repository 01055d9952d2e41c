package formats

import (
	"fmt"
	"strings"

	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// Capability names an optional backend a mode depends on.
type Capability string

const (
	CapImageCodec   Capability = "image_codec"
	CapWebPEncoder  Capability = "webp_encoder"
	CapOfficeSuite  Capability = "office_suite"
	CapPDFImporter  Capability = "pdf_importer"
	CapPPTXRenderer Capability = "pptx_renderer"
)

// CapabilitySet tracks the backends present on this host and the modes switched off by configuration.
type CapabilitySet struct {
	backends map[Capability]bool
	disabled map[types.Mode]bool
}

func NewCapabilitySet(backends map[Capability]bool, disabled map[types.Mode]bool) CapabilitySet {
	b := make(map[Capability]bool, len(backends))
	for k, v := range backends {
		b[k] = v
	}
	d := make(map[types.Mode]bool, len(disabled))
	for k, v := range disabled {
		d[k] = v
	}
	return CapabilitySet{backends: b, disabled: d}
}

// AllCapabilities reports every backend as present.
func AllCapabilities() CapabilitySet {
	return NewCapabilitySet(map[Capability]bool{
		CapImageCodec:   true,
		CapWebPEncoder:  true,
		CapOfficeSuite:  true,
		CapPDFImporter:  true,
		CapPPTXRenderer: true,
	}, nil)
}

func (c CapabilitySet) Has(capability Capability) bool {
	return c.backends[capability]
}

// Allows reports whether a mode can run right now.
func (c CapabilitySet) Allows(spec ModeSpec) bool {
	return c.Has(spec.Capability) && !c.disabled[spec.Mode]
}

type ModeSpec struct {
	Mode  types.Mode
	Menu  types.Menu
	Label string
	// InputFormats: форматы, определённые по содержимому (для картинок). Пусто = любая картинка.
	InputFormats []string
	// InputExt: обязательное расширение для файлов, с точкой.
	InputExt   string
	OutputExt  string
	OutputName string
	Quality    int
	Capability Capability
}

type FormatButton struct {
	Text         string
	CallbackData string
}

var catalog = []ModeSpec{
	{Mode: types.ModePNGToJPG, Menu: types.MenuImages, Label: "PNG → JPG", InputFormats: []string{"png"}, OutputExt: "jpg", OutputName: "converted.jpg", Quality: 95, Capability: CapImageCodec},
	{Mode: types.ModeJPGToPNG, Menu: types.MenuImages, Label: "JPG → PNG", InputFormats: []string{"jpeg"}, OutputExt: "png", OutputName: "converted.png", Capability: CapImageCodec},
	{Mode: types.ModeWEBPToJPG, Menu: types.MenuImages, Label: "WEBP → JPG", InputFormats: []string{"webp"}, OutputExt: "jpg", OutputName: "converted.jpg", Quality: 95, Capability: CapImageCodec},
	{Mode: types.ModeJPGToWEBP, Menu: types.MenuImages, Label: "JPG → WEBP", InputFormats: []string{"jpeg"}, OutputExt: "webp", OutputName: "converted.webp", Quality: 90, Capability: CapWebPEncoder},
	{Mode: types.ModeGrayscale, Menu: types.MenuImages, Label: "Grayscale", OutputExt: "jpg", OutputName: "grayscale.jpg", Quality: 75, Capability: CapImageCodec},

	{Mode: types.ModeDOCXToPDF, Menu: types.MenuFiles, Label: "DOCX → PDF", InputExt: ".docx", OutputExt: "pdf", Capability: CapOfficeSuite},
	{Mode: types.ModePDFToDOCX, Menu: types.MenuFiles, Label: "PDF → DOCX", InputExt: ".pdf", OutputExt: "docx", Capability: CapPDFImporter},
	{Mode: types.ModePPTXToPDF, Menu: types.MenuFiles, Label: "PPTX → PDF", InputExt: ".pptx", OutputExt: "pdf", Capability: CapPPTXRenderer},
}

// decodable lists the sniffed formats the grayscale mode can read.
var decodable = []string{"png", "jpeg", "webp", "gif", "bmp", "tiff"}

func AllModes() []ModeSpec {
	out := make([]ModeSpec, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(mode types.Mode) (ModeSpec, bool) {
	for _, spec := range catalog {
		if spec.Mode == mode {
			return spec, true
		}
	}
	return ModeSpec{}, false
}

func IsMode(data string) bool {
	_, ok := Lookup(types.Mode(strings.TrimSpace(data)))
	return ok
}

// ModesFor returns the modes of a menu whose capability is present, in menu order.
func ModesFor(menu types.Menu, caps CapabilitySet) []ModeSpec {
	out := make([]ModeSpec, 0, len(catalog))
	for _, spec := range catalog {
		if spec.Menu != menu {
			continue
		}
		if !caps.Allows(spec) {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// AcceptsFormat reports whether a sniffed image format is valid input for an image mode.
func (s ModeSpec) AcceptsFormat(format string) bool {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return false
	}
	allowed := s.InputFormats
	if len(allowed) == 0 {
		allowed = decodable
	}
	for _, f := range allowed {
		if f == format {
			return true
		}
	}
	return false
}

// AcceptsExtension reports whether a declared extension is valid input for a file mode.
func (s ModeSpec) AcceptsExtension(ext string) bool {
	return NormalizeExt(ext) == s.InputExt
}

// DisplayLabel returns the button label; only grayscale is worded per language.
func (s ModeSpec) DisplayLabel(lang i18n.Lang) string {
	if s.Mode == types.ModeGrayscale {
		return messages.GrayscaleLabel(lang)
	}
	return s.Label
}

// ResultFileName builds the artifact name for a mode from the uploaded file name.
func (s ModeSpec) ResultFileName(originalName string) string {
	if s.OutputName != "" {
		return s.OutputName
	}
	return buildResultFileName(originalName, s.OutputExt)
}

func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ExtFromFileName returns the lowercased extension of a file name, with the dot.
func ExtFromFileName(fileName string) string {
	fileName = strings.TrimSpace(fileName)
	i := strings.LastIndex(fileName, ".")
	if i < 0 || i == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[i:])
}

func buildResultFileName(originalName string, targetExt string) string {
	targetExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(targetExt), "."))
	if targetExt == "" {
		targetExt = "bin"
	}

	originalName = strings.TrimSpace(originalName)
	if i := strings.LastIndexAny(originalName, `/\`); i >= 0 {
		originalName = originalName[i+1:]
	}
	if originalName == "" {
		return "converted." + targetExt
	}

	ext := ExtFromFileName(originalName)
	if ext == "" {
		return originalName + "." + targetExt
	}
	return originalName[:len(originalName)-len(ext)] + "." + targetExt
}

// GetModeButtons формирует кнопки режимов меню; callback data совпадает с id режима.
func GetModeButtons(menu types.Menu, caps CapabilitySet, lang i18n.Lang) []FormatButton {
	modes := ModesFor(menu, caps)
	buttons := make([]FormatButton, 0, len(modes))
	for _, spec := range modes {
		buttons = append(buttons, FormatButton{
			Text:         spec.DisplayLabel(lang),
			CallbackData: string(spec.Mode),
		})
	}
	return buttons
}

func GetHelpMessage(lang i18n.Lang, caps CapabilitySet) string {
	var msg strings.Builder
	msg.WriteString(messages.HelpHeader(lang))
	msg.WriteString("\n")

	sections := []struct {
		menu  types.Menu
		title string
	}{
		{types.MenuImages, messages.MenuBtnImages(lang)},
		{types.MenuFiles, messages.MenuBtnFiles(lang)},
	}

	for _, sec := range sections {
		modes := ModesFor(sec.menu, caps)
		if len(modes) == 0 {
			continue
		}
		labels := make([]string, 0, len(modes))
		for _, m := range modes {
			labels = append(labels, m.DisplayLabel(lang))
		}
		msg.WriteString(fmt.Sprintf("• <b>%s</b> <i>(%d)</i>\n", messages.Escape(sec.title), len(modes)))
		msg.WriteString("<code>")
		msg.WriteString(messages.Escape(strings.Join(labels, ", ")))
		msg.WriteString("</code>\n\n")
	}

	msg.WriteString(messages.HelpUsage(lang))
	return msg.String()
}
