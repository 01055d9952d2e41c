package router

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/convert-menu-bot/internal/converter"
	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/internal/scheduler"
	"github.com/BatmanBruc/convert-menu-bot/store"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls []types.Mode
	out   []byte
	err   error
}

func (f *fakeConverter) Convert(ctx context.Context, spec formats.ModeSpec, in converter.Input) (*converter.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, spec.Mode)
	if f.err != nil {
		return nil, f.err
	}
	out := f.out
	if out == nil {
		out = []byte("converted")
	}
	return &converter.Artifact{Data: out, FileName: spec.ResultFileName(in.FileName)}, nil
}

func (f *fakeConverter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []types.ConversionRecord
	err     error
}

func (j *fakeJournal) RecordConversion(_ context.Context, rec types.ConversionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return j.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRouter(t *testing.T, conv converter.Converter, caps formats.CapabilitySet) (*Router, *fakeJournal) {
	t.Helper()
	j := &fakeJournal{}
	r := New(Config{
		Store:     store.NewMemorySessionStore(),
		Converter: conv,
		Journal:   j,
		Caps:      caps,
		Timeout:   time.Second,
		Log:       quietLogger(),
	})
	return r, j
}

func pngData(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegData(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func imageUpload(userID int64, data []byte) Upload {
	return Upload{
		UserID:   userID,
		Kind:     types.MediaImage,
		FileName: "photo.jpg",
		Lang:     i18n.RU,
		Fetch:    func(context.Context) ([]byte, error) { return data, nil },
	}
}

func documentUpload(userID int64, name string, data []byte) Upload {
	return Upload{
		UserID:    userID,
		Kind:      types.MediaDocument,
		FileName:  name,
		Extension: formats.ExtFromFileName(name),
		Lang:      i18n.RU,
		Fetch:     func(context.Context) ([]byte, error) { return data, nil },
	}
}

func documentReplies(res Result) int {
	n := 0
	for _, r := range res.Replies {
		if r.Kind == ReplyDocument {
			n++
		}
	}
	return n
}

func lastReply(t *testing.T, res Result) Reply {
	t.Helper()
	require.NotEmpty(t, res.Replies)
	return res.Replies[len(res.Replies)-1]
}

func TestHandleUpload_NoSession(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())

	for _, up := range []Upload{imageUpload(1, pngData(t)), documentUpload(1, "a.docx", []byte("x"))} {
		res := r.HandleUpload(context.Background(), up)
		require.ErrorIs(t, res.Err, ErrNoActiveSession)
		assert.Equal(t, KeyboardMain, lastReply(t, res).Keyboard)
		assert.Equal(t, messages.MainMenuText(i18n.RU), lastReply(t, res).Text)
	}
	assert.Zero(t, conv.count())
}

func TestHandleUpload_MenuMismatchIsNoSession(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMode(1, types.MenuFiles, types.ModeDOCXToPDF)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.ErrorIs(t, res.Err, ErrNoActiveSession)
	assert.Equal(t, KeyboardMain, lastReply(t, res).Keyboard)
	assert.Zero(t, conv.count())

	s, ok := r.Session(1)
	require.True(t, ok)
	assert.Equal(t, types.ModeDOCXToPDF, s.Conversion)
}

func TestHandleUpload_MenuWithoutModeAsksForMode(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMenu(1, types.MenuImages)

	fetched := false
	up := imageUpload(1, pngData(t))
	up.Fetch = func(context.Context) ([]byte, error) {
		fetched = true
		return nil, nil
	}
	res := r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrNoActiveSession)
	assert.Equal(t, KeyboardImages, lastReply(t, res).Keyboard)
	assert.False(t, fetched)
	assert.Zero(t, conv.count())
}

func TestHandleUpload_MismatchedInputSkipsConverter(t *testing.T) {
	cases := []struct {
		name string
		menu types.Menu
		mode types.Mode
		up   func(t *testing.T) Upload
	}{
		{"jpeg for png_to_jpg", types.MenuImages, types.ModePNGToJPG, func(t *testing.T) Upload { return imageUpload(1, jpegData(t)) }},
		{"png for jpg_to_png", types.MenuImages, types.ModeJPGToPNG, func(t *testing.T) Upload { return imageUpload(1, pngData(t)) }},
		{"png for webp_to_jpg", types.MenuImages, types.ModeWEBPToJPG, func(t *testing.T) Upload { return imageUpload(1, pngData(t)) }},
		{"png for jpg_to_webp", types.MenuImages, types.ModeJPGToWEBP, func(t *testing.T) Upload { return imageUpload(1, pngData(t)) }},
		{"garbage for grayscale", types.MenuImages, types.ModeGrayscale, func(t *testing.T) Upload { return imageUpload(1, []byte("not an image")) }},
		{"pdf for docx_to_pdf", types.MenuFiles, types.ModeDOCXToPDF, func(t *testing.T) Upload { return documentUpload(1, "a.pdf", []byte("x")) }},
		{"docx for pdf_to_docx", types.MenuFiles, types.ModePDFToDOCX, func(t *testing.T) Upload { return documentUpload(1, "a.docx", []byte("x")) }},
		{"no extension for pptx_to_pdf", types.MenuFiles, types.ModePPTXToPDF, func(t *testing.T) Upload { return documentUpload(1, "slides", []byte("x")) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conv := &fakeConverter{}
			r, j := newTestRouter(t, conv, formats.AllCapabilities())
			r.SelectMode(1, tc.menu, tc.mode)

			res := r.HandleUpload(context.Background(), tc.up(t))
			require.ErrorIs(t, res.Err, ErrUnsupportedInput)
			kind, ok := KindOf(res.Err)
			require.True(t, ok)
			assert.Equal(t, KindUnsupportedInput, kind)
			assert.Zero(t, conv.count())
			assert.Equal(t, KeyboardFor(tc.menu), lastReply(t, res).Keyboard)

			s, _ := r.Session(1)
			assert.Equal(t, tc.mode, s.Conversion)

			require.Len(t, j.records, 1)
			assert.Equal(t, string(KindUnsupportedInput), j.records[0].Outcome)
		})
	}
}

func TestHandleUpload_ValidInputConvertsOnce(t *testing.T) {
	cases := []struct {
		menu types.Menu
		mode types.Mode
		up   func(t *testing.T) Upload
		name string
	}{
		{types.MenuImages, types.ModePNGToJPG, func(t *testing.T) Upload { return imageUpload(1, pngData(t)) }, "converted.jpg"},
		{types.MenuImages, types.ModeJPGToPNG, func(t *testing.T) Upload { return imageUpload(1, jpegData(t)) }, "converted.png"},
		{types.MenuImages, types.ModeGrayscale, func(t *testing.T) Upload { return imageUpload(1, pngData(t)) }, "grayscale.jpg"},
		{types.MenuFiles, types.ModeDOCXToPDF, func(t *testing.T) Upload { return documentUpload(1, "Report.DOCX", []byte("x")) }, "Report.pdf"},
		{types.MenuFiles, types.ModePDFToDOCX, func(t *testing.T) Upload { return documentUpload(1, "scan.pdf", []byte("x")) }, "scan.docx"},
		{types.MenuFiles, types.ModePPTXToPDF, func(t *testing.T) Upload { return documentUpload(1, "deck.pptx", []byte("x")) }, "deck.pdf"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			conv := &fakeConverter{}
			r, j := newTestRouter(t, conv, formats.AllCapabilities())
			r.SelectMode(1, tc.menu, tc.mode)

			res := r.HandleUpload(context.Background(), tc.up(t))
			require.NoError(t, res.Err)
			assert.Equal(t, 1, conv.count())
			assert.Equal(t, 1, documentReplies(res))
			require.Len(t, res.Replies, 2)
			assert.Equal(t, tc.name, res.Replies[0].Document.FileName)
			assert.NotEmpty(t, res.Replies[0].Caption)
			assert.Equal(t, KeyboardFor(tc.menu), res.Replies[1].Keyboard)

			s, ok := r.Session(1)
			require.True(t, ok)
			assert.Equal(t, tc.mode, s.Conversion)
			assert.Equal(t, tc.menu, s.Menu)

			require.Len(t, j.records, 1)
			assert.Equal(t, outcomeSuccess, j.records[0].Outcome)
		})
	}
}

func TestHandleUpload_ConversionFailureKeepsSession(t *testing.T) {
	conv := &fakeConverter{err: errors.New("codec exploded")}
	r, j := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMode(1, types.MenuImages, types.ModePNGToJPG)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.ErrorIs(t, res.Err, ErrConversionFailure)
	assert.Contains(t, res.Err.Error(), "codec exploded")
	assert.Equal(t, messages.ErrorImageConversion(i18n.RU), res.Replies[0].Text)
	assert.Equal(t, KeyboardImages, lastReply(t, res).Keyboard)
	assert.Zero(t, documentReplies(res))

	conv.err = nil
	res = r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.NoError(t, res.Err)
	require.Len(t, j.records, 2)
	assert.Equal(t, string(KindConversionFailure), j.records[0].Outcome)
}

func TestHandleUpload_EmptyOutputIsFailure(t *testing.T) {
	conv := &fakeConverter{out: []byte{}}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMode(1, types.MenuFiles, types.ModeDOCXToPDF)

	res := r.HandleUpload(context.Background(), documentUpload(1, "a.docx", []byte("x")))
	require.ErrorIs(t, res.Err, ErrConversionFailure)
	assert.ErrorIs(t, res.Err, converter.ErrEmptyResult)
	assert.Equal(t, messages.ErrorFileConversion(i18n.RU), res.Replies[0].Text)
}

func TestHandleUpload_FetchFailure(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMode(1, types.MenuFiles, types.ModePDFToDOCX)

	up := documentUpload(1, "a.pdf", nil)
	up.Fetch = func(context.Context) ([]byte, error) { return nil, errors.New("network down") }
	res := r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrConversionFailure)
	assert.Zero(t, conv.count())
}

func newLimitedRouter(t *testing.T, conv converter.Converter, limit int64) (*Router, *fakeJournal) {
	t.Helper()
	j := &fakeJournal{}
	r := New(Config{
		Store:          store.NewMemorySessionStore(),
		Converter:      conv,
		Journal:        j,
		Caps:           formats.AllCapabilities(),
		Timeout:        time.Second,
		MaxUploadBytes: limit,
		Log:            quietLogger(),
	})
	return r, j
}

func TestHandleUpload_OversizeChecksSessionFirst(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newLimitedRouter(t, conv, 1024)

	fetched := false
	up := documentUpload(1, "deck.pptx", []byte("x"))
	up.Size = 4096
	up.Fetch = func(context.Context) ([]byte, error) {
		fetched = true
		return nil, nil
	}

	res := r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrNoActiveSession)
	assert.Equal(t, KeyboardMain, lastReply(t, res).Keyboard)

	r.SelectMode(1, types.MenuImages, types.ModePNGToJPG)
	res = r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrNoActiveSession)
	assert.Equal(t, KeyboardMain, lastReply(t, res).Keyboard)

	r.SelectMode(1, types.MenuFiles, types.ModeDOCXToPDF)
	res = r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrUnsupportedInput)
	assert.NotErrorIs(t, res.Err, ErrUploadTooLarge, "extension is checked before size")

	assert.False(t, fetched)
	assert.Zero(t, conv.count())
}

func TestHandleUpload_OversizeRejectedBeforeFetch(t *testing.T) {
	conv := &fakeConverter{}
	r, j := newLimitedRouter(t, conv, 1024)
	r.SelectMode(1, types.MenuFiles, types.ModePPTXToPDF)

	fetched := false
	up := documentUpload(1, "deck.pptx", []byte("x"))
	up.Size = 4096
	up.Fetch = func(context.Context) ([]byte, error) {
		fetched = true
		return nil, nil
	}

	res := r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrUnsupportedInput)
	assert.ErrorIs(t, res.Err, ErrUploadTooLarge)
	assert.Equal(t, messages.ErrorFileTooLarge(i18n.RU, 1024), res.Replies[0].Text)
	assert.Equal(t, KeyboardFiles, lastReply(t, res).Keyboard)
	assert.False(t, fetched)
	assert.Zero(t, conv.count())

	require.Len(t, j.records, 1)
	assert.Equal(t, string(KindUnsupportedInput), j.records[0].Outcome)
	assert.Equal(t, int64(4096), j.records[0].InputBytes)

	s, ok := r.Session(1)
	require.True(t, ok)
	assert.Equal(t, types.ModePPTXToPDF, s.Conversion)
}

func TestHandleUpload_DownloadOverLimit(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newLimitedRouter(t, conv, 1024)
	r.SelectMode(1, types.MenuImages, types.ModeGrayscale)

	up := imageUpload(1, nil)
	up.Size = 10
	up.Fetch = func(context.Context) ([]byte, error) { return nil, ErrUploadTooLarge }

	res := r.HandleUpload(context.Background(), up)
	require.ErrorIs(t, res.Err, ErrUnsupportedInput)
	assert.Equal(t, messages.ErrorFileTooLarge(i18n.RU, 1024), res.Replies[0].Text)
	assert.Zero(t, conv.count())
}

func TestHandleUpload_NoSessionIsJournaled(t *testing.T) {
	r, j := newTestRouter(t, &fakeConverter{}, formats.AllCapabilities())

	r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	r.SelectMenu(1, types.MenuImages)
	r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))

	require.Len(t, j.records, 2)
	for _, rec := range j.records {
		assert.Equal(t, string(KindNoActiveSession), rec.Outcome)
		assert.Equal(t, types.ModeNone, rec.Mode)
		assert.Equal(t, int64(1), rec.UserID)
	}
}

func TestHandleUpload_UnavailableMode(t *testing.T) {
	conv := &fakeConverter{}
	caps := formats.NewCapabilitySet(map[formats.Capability]bool{formats.CapImageCodec: true}, nil)
	r, _ := newTestRouter(t, conv, caps)
	r.SelectMode(1, types.MenuFiles, types.ModeDOCXToPDF)

	assert.False(t, r.Available(types.ModeDOCXToPDF))
	assert.True(t, r.Available(types.ModePNGToJPG))

	res := r.HandleUpload(context.Background(), documentUpload(1, "a.docx", []byte("x")))
	require.ErrorIs(t, res.Err, ErrFeatureUnavailable)
	assert.Equal(t, messages.ErrorModeUnavailable(i18n.RU), res.Replies[0].Text)
	assert.Zero(t, conv.count())
}

func TestHandleUpload_TimeoutIsFailure(t *testing.T) {
	slow := converterFunc(func(ctx context.Context, spec formats.ModeSpec, in converter.Input) (*converter.Artifact, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := New(Config{
		Store:     store.NewMemorySessionStore(),
		Converter: slow,
		Caps:      formats.AllCapabilities(),
		Timeout:   20 * time.Millisecond,
		Log:       quietLogger(),
	})
	r.SelectMode(1, types.MenuImages, types.ModeGrayscale)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.ErrorIs(t, res.Err, ErrConversionFailure)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestHandleUpload_JournalErrorsAreIgnored(t *testing.T) {
	r, j := newTestRouter(t, &fakeConverter{}, formats.AllCapabilities())
	j.err = errors.New("db down")
	r.SelectMode(1, types.MenuImages, types.ModePNGToJPG)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.NoError(t, res.Err)
	assert.NotNil(t, res.Artifact)
}

func TestHandleUpload_RunsOnScheduler(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.Config{Workers: 1}, quietLogger())
	s.Start()
	t.Cleanup(s.Stop)

	conv := &fakeConverter{}
	r := New(Config{
		Store:     store.NewMemorySessionStore(),
		Converter: conv,
		Executor:  s,
		Caps:      formats.AllCapabilities(),
		Timeout:   time.Second,
		Log:       quietLogger(),
	})
	r.SelectMode(1, types.MenuImages, types.ModePNGToJPG)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.NoError(t, res.Err)
	assert.Equal(t, 1, conv.count())
}

func TestSelectMenuOverwritesPriorSession(t *testing.T) {
	r, _ := newTestRouter(t, &fakeConverter{}, formats.AllCapabilities())

	r.SelectMenu(1, types.MenuImages)
	r.SelectMode(1, types.MenuImages, types.ModeGrayscale)
	r.SelectMenu(1, types.MenuFiles)

	s, ok := r.Session(1)
	require.True(t, ok)
	assert.Equal(t, types.MenuFiles, s.Menu)
	assert.Equal(t, types.ModeNone, s.Conversion)
}

func TestClearSessionLeadsToNoActiveSession(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	r.SelectMode(1, types.MenuImages, types.ModePNGToJPG)
	r.ClearSession(1)
	r.ClearSession(1)

	_, ok := r.Session(1)
	assert.False(t, ok)

	res := r.HandleUpload(context.Background(), imageUpload(1, pngData(t)))
	require.ErrorIs(t, res.Err, ErrNoActiveSession)
	assert.Zero(t, conv.count())
}

func TestFailureMatchesOnlyItsSentinel(t *testing.T) {
	err := error(newFailure(KindUnsupportedInput, types.ModePNGToJPG, errors.New("detected format \"jpeg\"")))
	assert.ErrorIs(t, err, ErrUnsupportedInput)
	assert.NotErrorIs(t, err, ErrConversionFailure)
	assert.Contains(t, err.Error(), "png_to_jpg")

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestScenario_PNGToJPG(t *testing.T) {
	conv := &fakeConverter{}
	r, _ := newTestRouter(t, conv, formats.AllCapabilities())
	const user = 100

	r.SelectMenu(user, types.MenuImages)
	buttons := formats.GetModeButtons(types.MenuImages, r.Capabilities(), i18n.RU)
	assert.Len(t, buttons, 5)

	r.SelectMode(user, types.MenuImages, types.ModePNGToJPG)

	res := r.HandleUpload(context.Background(), imageUpload(user, jpegData(t)))
	require.ErrorIs(t, res.Err, ErrUnsupportedInput)
	assert.Equal(t, messages.ErrorSendImageFormat(i18n.RU, "png"), res.Replies[0].Text)
	s, _ := r.Session(user)
	assert.Equal(t, types.ModePNGToJPG, s.Conversion)

	res = r.HandleUpload(context.Background(), imageUpload(user, pngData(t)))
	require.NoError(t, res.Err)
	require.Equal(t, 1, documentReplies(res))
	assert.Equal(t, "converted.jpg", res.Replies[0].Document.FileName)
	assert.Equal(t, KeyboardImages, res.Replies[1].Keyboard)
	assert.Equal(t, messages.ImagesMenuText(i18n.RU), res.Replies[1].Text)
	assert.Equal(t, 1, conv.count())
}

type converterFunc func(ctx context.Context, spec formats.ModeSpec, in converter.Input) (*converter.Artifact, error)

func (f converterFunc) Convert(ctx context.Context, spec formats.ModeSpec, in converter.Input) (*converter.Artifact, error) {
	return f(ctx, spec, in)
}
