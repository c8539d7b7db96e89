// Package video provides frame compositing for stacked alpha video.
//
// This file implements the per-frame composition pipeline:
//
//	SourceFrame (W x 2H) → Split → Composite → Effects → Scale → NRGBA (W x H)
package video

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Settings configures a Pipeline for one load cycle.
type Settings struct {
	// Tint switches the compositor into monochrome recolor mode when set.
	Tint *Tint
	// Luminance selects how mask pixels become alpha.
	Luminance LuminanceMode
	// Interpolation selects the kernel used to reach the render size.
	Interpolation Interpolation
	// Effects run on each composited frame, in order.
	Effects []Effect
}

// FrameRequest is one unit of work handed to the pipeline by the decoder.
type FrameRequest struct {
	Source SourceFrame
}

// FrameResult is the pipeline's answer for one request.
// Exactly one of Frame and Err is set.
type FrameResult struct {
	Frame     *image.NRGBA
	Timestamp time.Duration
	Index     int
	Err       error
}

// ErrorHandler receives frame-level failures. It runs on the caller's
// goroutine and must not block.
type ErrorHandler func(err error)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Processed      uint64
	Failed         uint64
	SizeMismatches uint64
	Scaled         uint64
}

// pipelineState is an immutable snapshot of everything ProcessFrame reads.
type pipelineState struct {
	settings   Settings
	compositor *Compositor
	scaler     *Scaler
	effects    []Effect // fused
}

// Pipeline is the per-frame entry point invoked by the decoder/renderer.
//
// ProcessFrame may be called concurrently for different frames. Configure
// swaps the settings atomically; a call already in flight finishes with the
// settings it started with.
type Pipeline struct {
	splitter Splitter
	state    atomic.Pointer[pipelineState]
	onError  atomic.Pointer[ErrorHandler]

	processed      atomic.Uint64
	failed         atomic.Uint64
	sizeMismatches atomic.Uint64
	scaled         atomic.Uint64
}

// NewPipeline creates a pipeline with the given settings.
func NewPipeline(settings Settings) *Pipeline {
	p := &Pipeline{}
	p.Configure(settings)
	return p
}

// Configure replaces the pipeline settings.
func (p *Pipeline) Configure(settings Settings) {
	state := &pipelineState{
		settings:   settings,
		compositor: NewCompositor(settings.Luminance),
		scaler:     NewScaler(settings.Interpolation),
		effects:    fuseEffects(settings.Effects),
	}
	// Settings.Effects may be mutated by the caller later; keep our own copy.
	state.settings.Effects = append([]Effect(nil), settings.Effects...)
	p.state.Store(state)

	tintName := "none"
	if settings.Tint != nil {
		tintName = settings.Tint.String()
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Pipeline.Configure",
		"tint":          tintName,
		"luminance":     settings.Luminance.String(),
		"interpolation": settings.Interpolation.String(),
		"effects":       effectNames(state.effects),
	}).Debug("Composition pipeline configured")
}

// Settings returns the active settings.
func (p *Pipeline) Settings() Settings {
	s := p.state.Load().settings
	s.Effects = append([]Effect(nil), s.Effects...)
	return s
}

// SetErrorHandler installs the handler for frame-level failures.
// Passing nil removes it.
func (p *Pipeline) SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		p.onError.Store(nil)
		return
	}
	p.onError.Store(&handler)
}

// RenderSize returns the output size for a stacked frame whose pixel size is
// pixels and whose declared presentation size is presentation.
//
// The output keeps the full width and half the height of the presentation
// size, falling back to the pixel size when none is declared.
func (p *Pipeline) RenderSize(pixels, presentation image.Point) image.Point {
	size := presentation
	if size.X <= 0 || size.Y <= 0 {
		size = pixels
	}
	return image.Pt(size.X, size.Y/2)
}

// ProcessFrame composites one stacked source frame.
//
// Processing pipeline:
// 1. Validate that the frame splits into two equal regions
// 2. Split into color and mask views
// 3. Composite with the configured tint and luminance mode
// 4. Apply the post-composite effect chain
// 5. Scale to the render size
//
// Failures are returned in FrameResult.Err, counted, and passed to the error
// handler. The frame is not retried.
func (p *Pipeline) ProcessFrame(req FrameRequest) FrameResult {
	src := req.Source
	result := FrameResult{Timestamp: src.Timestamp, Index: src.Index}

	frame, err := p.process(src)
	if err != nil {
		result.Err = p.fail(src, err)
		return result
	}

	p.processed.Add(1)
	result.Frame = frame

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{
			"function":  "Pipeline.ProcessFrame",
			"index":     src.Index,
			"timestamp": src.Timestamp,
			"size":      frame.Bounds().Size(),
		}).Trace("Frame composited")
	}

	return result
}

func (p *Pipeline) process(src SourceFrame) (*image.NRGBA, error) {
	state := p.state.Load()

	// Step 1: Validate
	if src.Image == nil {
		return nil, processingFailed(errors.New("nil source image"))
	}
	b := src.Image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, processingFailed(fmt.Errorf("empty source bounds %v", b))
	}
	if b.Dy()%2 != 0 {
		return nil, sizeMismatch("source height %d is not two equal regions", b.Dy())
	}

	// Step 2: Split
	colorRegion, maskRegion := p.splitter.Split(src.Image)

	// Step 3: Composite
	frame, err := state.compositor.Composite(colorRegion, maskRegion, state.settings.Tint)
	if err != nil {
		return nil, err
	}

	// Step 4: Effects
	if err := applyEffects(frame, state.effects); err != nil {
		return nil, processingFailed(err)
	}

	// Step 5: Scale
	target := p.RenderSize(b.Size(), src.PresentationSize)
	if state.scaler.IsScalingRequired(frame.Bounds().Size(), target) {
		frame, err = state.scaler.Scale(frame, target.X, target.Y)
		if err != nil {
			return nil, processingFailed(err)
		}
		p.scaled.Add(1)
	}

	return frame, nil
}

// fail stamps the frame index on err, updates counters, logs and notifies.
func (p *Pipeline) fail(src SourceFrame, err error) error {
	var ce *CompositionError
	if errors.As(err, &ce) {
		ce.Frame = src.Index
	} else {
		ce = &CompositionError{Kind: ErrProcessingFailed, Frame: src.Index, Err: err}
		err = ce
	}

	p.failed.Add(1)
	if errors.Is(err, ErrSizeMismatch) {
		p.sizeMismatches.Add(1)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Pipeline.ProcessFrame",
		"index":     src.Index,
		"timestamp": src.Timestamp,
		"error":     err.Error(),
	}).Warn("Frame composition failed")

	if h := p.onError.Load(); h != nil {
		(*h)(err)
	}

	return err
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed:      p.processed.Load(),
		Failed:         p.failed.Load(),
		SizeMismatches: p.sizeMismatches.Load(),
		Scaled:         p.scaled.Load(),
	}
}
