package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/forPelevin/voxdub/internal/domain/script"
	"github.com/forPelevin/voxdub/internal/domain/subtitles"
	"github.com/forPelevin/voxdub/internal/dubbing"
	"github.com/forPelevin/voxdub/internal/langs"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/translation"
	"github.com/forPelevin/voxdub/internal/types"
)

func (r *run) execute(ctx context.Context) (Result, error) {
	if err := r.u.validate(&r.in); err != nil {
		return Result{}, err
	}
	translator, err := r.u.d.Translators.Get(r.in.Translator)
	if err != nil {
		return Result{}, err
	}
	r.res.Translator = translator.Name()
	r.log = r.log.With(slog.String("video", r.in.VideoPath), slog.String("target", r.in.TargetLang))
	r.log.Info("run started",
		slog.String("source", r.in.SourceLang),
		slog.String("translator", translator.Name()),
		slog.String("subtitles", string(r.in.SubtitleMode)),
		slog.Bool("dubbing", r.in.Dubbing),
	)

	paths, err := r.extract(ctx)
	if err != nil {
		return Result{}, err
	}
	tr, err := r.transcribe(ctx, paths.speech)
	if err != nil {
		return Result{}, err
	}
	lines, err := r.translate(ctx, tr, translator)
	if err != nil {
		return Result{}, err
	}
	audio, err := r.synthesize(ctx, lines, paths.passthrough)
	if err != nil {
		return Result{}, err
	}
	if err := r.mux(ctx, audio); err != nil {
		return Result{}, err
	}

	r.log.Info("run finished",
		slog.String("output", r.res.OutputVideo),
		slog.Int("lines", len(r.res.Lines)),
		slog.Int("failed", len(r.res.Failed)),
	)
	return r.res, nil
}

type extracted struct {
	passthrough string
	speech      string
}

func (r *run) extract(ctx context.Context) (extracted, error) {
	var out extracted
	if err := r.checkpoint(ctx); err != nil {
		return out, err
	}
	if err := r.emit(progress.Extract, 0, "Probing video"); err != nil {
		return out, err
	}
	dur, err := r.u.d.Video.ProbeDuration(ctx, r.in.VideoPath)
	if err != nil {
		return out, r.fail(ctx, "extract", "probe duration", err)
	}
	r.res.VideoDuration = dur

	if err := r.emit(progress.Extract, 0.2, "Extracting audio"); err != nil {
		return out, err
	}
	out.passthrough = filepath.Join(r.in.WorkDir, ExtractedAudio)
	if err := r.u.d.Video.ExtractAudio(ctx, r.in.VideoPath, out.passthrough, ports.PassthroughAudio); err != nil {
		return out, r.fail(ctx, "extract", "extract audio", err)
	}

	if err := r.emit(progress.Extract, 0.6, "Preparing speech audio"); err != nil {
		return out, err
	}
	out.speech = filepath.Join(r.in.WorkDir, SpeechAudio)
	if err := r.u.d.Video.ExtractAudio(ctx, r.in.VideoPath, out.speech, ports.SpeechAudio); err != nil {
		return out, r.fail(ctx, "extract", "extract speech audio", err)
	}
	r.log.Info("audio extracted", slog.Duration("video_duration", dur))
	return out, r.emit(progress.Extract, 1, "Audio extracted")
}

func (r *run) transcribe(ctx context.Context, speech string) (types.Transcript, error) {
	if err := r.checkpoint(ctx); err != nil {
		return types.Transcript{}, err
	}
	hint := ""
	if !langs.IsAuto(r.in.SourceLang) {
		hint = r.in.SourceLang
	}
	if err := r.emit(progress.Transcribe, 0, "Transcribing audio"); err != nil {
		return types.Transcript{}, err
	}
	tr, err := r.u.d.ASR.Transcribe(ctx, speech, hint)
	if err != nil {
		return types.Transcript{}, r.fail(ctx, "transcribe", "run transcription", err)
	}

	source := hint
	if source == "" {
		source = langs.FromName(tr.Language)
		if source == "" {
			source = langs.Fallback
			r.warn("source language not detected, assuming " + langs.Fallback)
		}
	}
	r.res.SourceLang = source
	if len(tr.Segments) == 0 {
		r.warn("no speech detected in the input")
	}

	r.res.OriginalSRT = filepath.Join(r.in.OutDir, OriginalSRT)
	if err := subtitles.WriteSRT(r.res.OriginalSRT, subtitles.FromSegments(tr.Segments)); err != nil {
		return types.Transcript{}, r.fail(ctx, "transcribe", "write original subtitles", err)
	}
	r.log.Info("transcription finished",
		slog.Int("segments", len(tr.Segments)),
		slog.String("source", source),
	)
	return tr, r.emit(progress.Transcribe, 1, fmt.Sprintf("Transcribed %d segments", len(tr.Segments)))
}

func (r *run) translate(ctx context.Context, tr types.Transcript, translator ports.Translator) ([]types.ScriptLine, error) {
	stage := translation.New(
		translation.WithLogger(r.u.d.Log.With(slog.String("component", "translation"))),
		translation.WithClock(r.u.d.Clock),
	)
	req := translation.Request{
		Segments:   tr.Segments,
		SourceLang: r.res.SourceLang,
		TargetLang: r.in.TargetLang,
		Translator: translator,
		Cancel:     &r.u.cancel,
	}

	var lines []types.ScriptLine
	for ev, err := range stage.Stream(ctx, req) {
		if err != nil {
			return nil, r.fail(ctx, "translate", "translate segments", err)
		}
		if ev.Kind == progress.KindResult {
			lines = ev.Result
			break
		}
		if err := r.emit(progress.Translate, ev.Fraction, ev.Message); err != nil {
			return nil, err
		}
	}
	if dropped := countSpeakable(tr.Segments) - len(lines); dropped > 0 {
		r.warn(fmt.Sprintf("%d segments could not be translated and were dropped", dropped))
	}
	r.res.Lines = lines

	r.res.ScriptPath = filepath.Join(r.in.OutDir, ScriptFile)
	if err := script.Save(r.res.ScriptPath, lines); err != nil {
		return nil, r.fail(ctx, "translate", "write script", err)
	}
	r.res.TranslatedSRT = filepath.Join(r.in.OutDir, TranslatedSRT)
	if err := subtitles.WriteSRT(r.res.TranslatedSRT, lines); err != nil {
		return nil, r.fail(ctx, "translate", "write translated subtitles", err)
	}
	if r.in.SubtitleMode == ports.SubtitlesHard {
		if err := subtitles.WriteASS(filepath.Join(r.in.WorkDir, TranslatedASS), lines); err != nil {
			return nil, r.fail(ctx, "translate", "write styled subtitles", err)
		}
	}
	return lines, r.emit(progress.Translate, 1, fmt.Sprintf("Translated %d segments", len(lines)))
}

func (r *run) synthesize(ctx context.Context, lines []types.ScriptLine, passthrough string) (string, error) {
	if err := r.checkpoint(ctx); err != nil {
		return "", err
	}
	if !r.in.Dubbing {
		r.res.AudioTrack = passthrough
		return passthrough, r.emit(progress.Synthesize, 1, "Dubbing disabled, keeping original audio")
	}

	req := dubbing.Request{
		Lines:          script.SortByStart(lines),
		OutputPath:     filepath.Join(r.in.WorkDir, DubbedAudio),
		Speaker:        r.in.Speaker,
		Language:       langs.Name(r.in.TargetLang),
		TargetDuration: r.res.VideoDuration,
		Cancel:         &r.u.cancel,
	}
	track, err := runSynthesis(ctx, r.u.driver(r.u.d.Log), req, func(f float64, msg string) error {
		return r.emit(progress.Synthesize, f, msg)
	})
	if err != nil {
		return "", r.fail(ctx, "synthesize", "synthesize script", err)
	}
	r.res.Placements = track.Placements
	r.res.Failed = track.Failed
	if len(track.Failed) > 0 {
		r.warn(fmt.Sprintf("%d lines failed to synthesize", len(track.Failed)))
	}
	if !track.Written {
		r.warn("no dubbed audio produced, keeping original audio")
		r.res.AudioTrack = passthrough
		return passthrough, nil
	}
	r.res.AudioTrack = track.Path
	return track.Path, nil
}

func (r *run) mux(ctx context.Context, audio string) error {
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	req := ports.MuxRequest{
		Video:  r.in.VideoPath,
		Audio:  audio,
		Output: r.in.OutputVideo,
		Mode:   r.in.SubtitleMode,
		SRT:    r.res.TranslatedSRT,
	}
	if r.in.SubtitleMode == ports.SubtitlesHard {
		req.BurnFile = filepath.Join(r.in.WorkDir, TranslatedASS)
	}
	err := encode(ctx, encodeJob{
		video:  r.u.d.Video,
		req:    req,
		total:  r.res.VideoDuration,
		cancel: &r.u.cancel,
		now:    r.u.d.Clock,
		log:    r.log,
		report: func(f float64, msg string) error { return r.emit(progress.Mux, f, msg) },
	})
	if err != nil {
		return err
	}
	r.res.OutputVideo = r.in.OutputVideo
	return nil
}

func (r *run) warn(msg string) {
	r.log.Warn(msg)
	r.res.Warnings = append(r.res.Warnings, msg)
}

// runSynthesis drives the driver stream, forwarding progress to report.
func runSynthesis(ctx context.Context, d *dubbing.Driver, req dubbing.Request, report func(float64, string) error) (dubbing.Track, error) {
	for ev, err := range d.Stream(ctx, req) {
		if err != nil {
			return dubbing.Track{}, err
		}
		if ev.Kind == progress.KindResult {
			return ev.Result, nil
		}
		if err := report(ev.Fraction, ev.Message); err != nil {
			return dubbing.Track{}, err
		}
	}
	return dubbing.Track{}, progress.ErrNoResult
}

func countSpeakable(segs []types.Segment) int {
	n := 0
	for _, s := range segs {
		if script.Speakable(types.ScriptLine{Text: s.Text}) {
			n++
		}
	}
	return n
}
