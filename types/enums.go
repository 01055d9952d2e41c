package types

type Menu string

const (
	MenuImages Menu = "images"
	MenuFiles  Menu = "files"
)

func (m Menu) Valid() bool {
	return m == MenuImages || m == MenuFiles
}

// Mode is the callback id of a conversion button.
type Mode string

const (
	ModeNone Mode = ""

	ModePNGToJPG  Mode = "png_to_jpg"
	ModeJPGToPNG  Mode = "jpg_to_png"
	ModeWEBPToJPG Mode = "webp_to_jpg"
	ModeJPGToWEBP Mode = "jpg_to_webp"
	ModeGrayscale Mode = "to_grayscale"

	ModeDOCXToPDF Mode = "docx_to_pdf"
	ModePDFToDOCX Mode = "pdf_to_docx"
	ModePPTXToPDF Mode = "pptx_to_pdf"
)

// MediaKind is how an upload arrived: photos and image/* documents are images.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
)

// Menu returns the menu whose modes accept this kind of upload.
func (k MediaKind) Menu() Menu {
	if k == MediaImage {
		return MenuImages
	}
	return MenuFiles
}

const (
	CallbackImages   = "images"
	CallbackFiles    = "files"
	CallbackBackMain = "back_main"
)
