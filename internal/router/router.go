package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BatmanBruc/convert-menu-bot/internal/converter"
	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/internal/messages"
	"github.com/BatmanBruc/convert-menu-bot/internal/scheduler"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

const outcomeSuccess = "success"

// Executor runs conversion jobs, usually a *scheduler.Scheduler.
type Executor interface {
	Do(ctx context.Context, job scheduler.Job) error
}

// Upload is an inbound photo or document. Fetch is only called once the session accepts the upload.
type Upload struct {
	UserID    int64
	Kind      types.MediaKind
	FileName  string
	Extension string
	Size      int64
	Lang      i18n.Lang
	Fetch     func(ctx context.Context) ([]byte, error)
}

// Config wires a Router. MaxUploadBytes rejects larger uploads before they are fetched; zero disables it.
type Config struct {
	Store          types.SessionStore
	Converter      converter.Converter
	Executor       Executor
	Journal        types.Journal
	Caps           formats.CapabilitySet
	Timeout        time.Duration
	MaxUploadBytes int64
	Log            logrus.FieldLogger
}

// Router owns the per-user sessions and turns uploads into replies.
type Router struct {
	store     types.SessionStore
	converter converter.Converter
	executor  Executor
	journal   types.Journal
	caps      formats.CapabilitySet
	timeout   time.Duration
	maxUpload int64
	log       logrus.FieldLogger
	tracer    trace.Tracer
	now       func() time.Time
}

func New(cfg Config) *Router {
	if cfg.Journal == nil {
		cfg.Journal = types.NopJournal{}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Router{
		store:     cfg.Store,
		converter: cfg.Converter,
		executor:  cfg.Executor,
		journal:   cfg.Journal,
		caps:      cfg.Caps,
		timeout:   cfg.Timeout,
		maxUpload: cfg.MaxUploadBytes,
		log:       cfg.Log.WithField("component", "router"),
		tracer:    otel.Tracer("github.com/BatmanBruc/convert-menu-bot/internal/router"),
		now:       time.Now,
	}
}

func (r *Router) Capabilities() formats.CapabilitySet {
	return r.caps
}

// Available reports whether a mode is known and its backend is present.
func (r *Router) Available(mode types.Mode) bool {
	spec, ok := formats.Lookup(mode)
	return ok && r.caps.Allows(spec)
}

func (r *Router) SelectMenu(userID int64, menu types.Menu) {
	r.store.Set(types.Session{UserID: userID, Menu: menu, Conversion: types.ModeNone, UpdatedAt: r.now()})
}

func (r *Router) SelectMode(userID int64, menu types.Menu, mode types.Mode) {
	r.store.Set(types.Session{UserID: userID, Menu: menu, Conversion: mode, UpdatedAt: r.now()})
}

func (r *Router) ClearSession(userID int64) {
	r.store.Delete(userID)
}

func (r *Router) Session(userID int64) (types.Session, bool) {
	return r.store.Get(userID)
}

// HandleUpload validates an upload against the user's session and converts it.
// The session is read once and never modified here.
func (r *Router) HandleUpload(ctx context.Context, up Upload) Result {
	ctx, span := r.tracer.Start(ctx, "router.HandleUpload", trace.WithAttributes(
		attribute.Int64("user_id", up.UserID),
		attribute.String("kind", string(up.Kind)),
	))
	defer span.End()

	res := r.handleUpload(ctx, up)
	if res.Err != nil {
		kind, _ := KindOf(res.Err)
		span.SetAttributes(attribute.String("failure", string(kind)))
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

func (r *Router) handleUpload(ctx context.Context, up Upload) Result {
	lang := up.Lang
	log := r.log.WithFields(logrus.Fields{"user_id": up.UserID, "kind": up.Kind})

	session, ok := r.store.Get(up.UserID)
	if !ok || session.Menu != up.Kind.Menu() {
		r.record(ctx, up, types.ModeNone, KindNoActiveSession, 0, 0)
		return Result{
			Err: newFailure(KindNoActiveSession, types.ModeNone, nil),
			Replies: []Reply{
				textReply(messages.ErrorNoActiveSession(lang), KeyboardNone),
				menuPrompt(lang, ""),
			},
		}
	}
	if !session.HasMode() {
		r.record(ctx, up, types.ModeNone, KindNoActiveSession, 0, 0)
		return Result{
			Err: newFailure(KindNoActiveSession, types.ModeNone, nil),
			Replies: []Reply{
				textReply(messages.ErrorChooseModeFirst(lang), KeyboardNone),
				menuPrompt(lang, session.Menu),
			},
		}
	}

	mode := session.Conversion
	log = log.WithField("mode", mode)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("mode", string(mode)))

	spec, ok := formats.Lookup(mode)
	if !ok || !r.caps.Allows(spec) {
		r.record(ctx, up, mode, KindFeatureUnavailable, 0, 0)
		return r.fail(lang, session.Menu, newFailure(KindFeatureUnavailable, mode, nil), messages.ErrorModeUnavailable(lang))
	}

	if spec.Menu == types.MenuFiles && !spec.AcceptsExtension(up.Extension) {
		r.record(ctx, up, mode, KindUnsupportedInput, 0, 0)
		err := newFailure(KindUnsupportedInput, mode, fmt.Errorf("extension %q, want %s", up.Extension, spec.InputExt))
		return r.fail(lang, session.Menu, err, messages.ErrorRequiresExt(lang, spec.InputExt))
	}

	if r.maxUpload > 0 && up.Size > r.maxUpload {
		return r.tooLarge(ctx, up, session.Menu, mode, fmt.Errorf("%w: %d bytes, limit %d", ErrUploadTooLarge, up.Size, r.maxUpload))
	}

	started := r.now()
	data, err := r.fetch(ctx, up)
	if errors.Is(err, ErrUploadTooLarge) {
		return r.tooLarge(ctx, up, session.Menu, mode, err)
	}
	if err != nil {
		log.WithError(err).Error("failed to fetch upload")
		r.record(ctx, up, mode, KindConversionFailure, 0, r.now().Sub(started))
		return r.fail(lang, session.Menu, newFailure(KindConversionFailure, mode, err), conversionFailureText(lang, spec))
	}

	if spec.Menu == types.MenuImages {
		format := converter.DetectImageFormat(data)
		if !spec.AcceptsFormat(format) {
			r.record(ctx, up, mode, KindUnsupportedInput, int64(len(data)), 0)
			err := newFailure(KindUnsupportedInput, mode, fmt.Errorf("detected format %q", format))
			return r.fail(lang, session.Menu, err, unsupportedImageText(lang, spec))
		}
	}

	art, err := r.convert(ctx, spec, converter.Input{Data: data, FileName: up.FileName, Ext: up.Extension})
	elapsed := r.now().Sub(started)
	if err != nil {
		log.WithError(err).WithField("duration", elapsed).Error("conversion failed")
		r.record(ctx, up, mode, KindConversionFailure, int64(len(data)), elapsed)
		return r.fail(lang, session.Menu, newFailure(KindConversionFailure, mode, err), conversionFailureText(lang, spec))
	}

	log.WithFields(logrus.Fields{
		"duration":     elapsed,
		"input_bytes":  len(data),
		"output_bytes": len(art.Data),
	}).Info("conversion done")
	r.recordSuccess(ctx, up, mode, int64(len(data)), int64(len(art.Data)), elapsed)

	return Result{
		Artifact: art,
		Replies: []Reply{
			{Kind: ReplyDocument, Document: art, Caption: captionFor(lang, spec)},
			menuPrompt(lang, session.Menu),
		},
	}
}

func (r *Router) fetch(ctx context.Context, up Upload) ([]byte, error) {
	if up.Fetch == nil {
		return nil, errors.New("upload has no content")
	}
	data, err := up.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("upload is empty")
	}
	return data, nil
}

// convert runs the converter on the executor under the conversion timeout. Empty output is an error.
func (r *Router) convert(ctx context.Context, spec formats.ModeSpec, in converter.Input) (*converter.Artifact, error) {
	ctx, span := r.tracer.Start(ctx, "router.convert", trace.WithAttributes(attribute.String("mode", string(spec.Mode))))
	defer span.End()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var art *converter.Artifact
	job := func(ctx context.Context) error {
		out, err := r.converter.Convert(ctx, spec, in)
		if err != nil {
			return err
		}
		art = out
		return nil
	}

	var err error
	if r.executor != nil {
		err = r.executor.Do(ctx, job)
	} else {
		err = job(ctx)
	}
	if err == nil && (art == nil || len(art.Data) == 0) {
		err = converter.ErrEmptyResult
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return art, nil
}

// tooLarge covers both a declared size over the limit and a download that turned out larger.
func (r *Router) tooLarge(ctx context.Context, up Upload, menu types.Menu, mode types.Mode, err error) Result {
	r.record(ctx, up, mode, KindUnsupportedInput, up.Size, 0)
	return r.fail(up.Lang, menu, newFailure(KindUnsupportedInput, mode, err), messages.ErrorFileTooLarge(up.Lang, r.maxUpload))
}

func (r *Router) fail(lang i18n.Lang, menu types.Menu, err *Failure, text string) Result {
	return Result{
		Err: err,
		Replies: []Reply{
			textReply(text, KeyboardNone),
			menuPrompt(lang, menu),
		},
	}
}

func (r *Router) record(ctx context.Context, up Upload, mode types.Mode, kind Kind, inBytes int64, d time.Duration) {
	r.write(ctx, types.ConversionRecord{
		UserID:     up.UserID,
		Mode:       mode,
		Outcome:    string(kind),
		InputBytes: inBytes,
		Duration:   d,
	})
}

func (r *Router) recordSuccess(ctx context.Context, up Upload, mode types.Mode, inBytes, outBytes int64, d time.Duration) {
	r.write(ctx, types.ConversionRecord{
		UserID:      up.UserID,
		Mode:        mode,
		Outcome:     outcomeSuccess,
		InputBytes:  inBytes,
		OutputBytes: outBytes,
		Duration:    d,
	})
}

func (r *Router) write(ctx context.Context, rec types.ConversionRecord) {
	rec.CreatedAt = r.now()
	if err := r.journal.RecordConversion(ctx, rec); err != nil {
		r.log.WithError(err).WithField("user_id", rec.UserID).Warn("failed to record conversion")
	}
}

func captionFor(lang i18n.Lang, spec formats.ModeSpec) string {
	if spec.Menu == types.MenuImages {
		return messages.CaptionImageDone(lang)
	}
	return messages.CaptionDocumentDone(lang, spec.OutputExt)
}

func unsupportedImageText(lang i18n.Lang, spec formats.ModeSpec) string {
	if len(spec.InputFormats) == 0 {
		return messages.ErrorSendAnyImage(lang)
	}
	return messages.ErrorSendImageFormat(lang, spec.InputFormats[0])
}

func conversionFailureText(lang i18n.Lang, spec formats.ModeSpec) string {
	if spec.Menu == types.MenuImages {
		return messages.ErrorImageConversion(lang)
	}
	return messages.ErrorFileConversion(lang)
}
