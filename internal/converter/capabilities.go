package converter

import (
	"os/exec"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// Tools records which external programs were found on PATH. Empty fields mean absent.
type Tools struct {
	WebP        string
	ImageMagick string
	Office      string
	PDF2DOCX    string
}

func hasCommand(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func firstCommand(names ...string) string {
	for _, n := range names {
		if hasCommand(n) {
			return n
		}
	}
	return ""
}

func LookupTools() Tools {
	return Tools{
		WebP:        firstCommand("cwebp"),
		ImageMagick: firstCommand("magick", "convert"),
		Office:      firstCommand("libreoffice", "soffice"),
		PDF2DOCX:    firstCommand("pdf2docx"),
	}
}

// Capabilities maps the tools onto backend capabilities and applies the disabled modes.
func (t Tools) Capabilities(disabled map[types.Mode]bool) formats.CapabilitySet {
	return formats.NewCapabilitySet(map[formats.Capability]bool{
		formats.CapImageCodec:   true,
		formats.CapPPTXRenderer: true,
		formats.CapWebPEncoder:  t.WebP != "" || t.ImageMagick != "",
		formats.CapOfficeSuite:  t.Office != "",
		formats.CapPDFImporter:  t.PDF2DOCX != "" || t.Office != "",
	}, disabled)
}
