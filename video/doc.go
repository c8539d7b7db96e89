// Package video provides frame compositing for stacked alpha video.
//
// Assets that need transparency are authored with every frame twice as tall
// as the intended output: the top half carries color and the bottom half is
// a grayscale mask. This package turns each such frame back into a true
// RGBA image at playback time.
//
// # Architecture Overview
//
// The composition pipeline runs once per decoded frame:
//
//	SourceFrame (W x 2H) → Split → Composite → Effects → Scale → NRGBA (W x H)
//
// Each stage is a standalone component that can be used on its own or
// through Pipeline.
//
// # Splitting
//
// Splitter returns two windows onto the source frame. For the standard
// library image types no pixels are copied:
//
//	colorRegion, maskRegion := video.Splitter{}.Split(frame.Image)
//
// # Compositing
//
// Compositor copies color from the top region and takes alpha from the
// mask's luminance. By default luminance is the red channel; masks that are
// not neutral gray can use BT.601 weights instead:
//
//	c := video.NewCompositor(video.LuminanceRec601)
//	out, err := c.Composite(colorRegion, maskRegion, nil)
//
// Passing a Tint replaces the color region entirely with the mask luminance
// recolored into one hue, for silhouette effects:
//
//	out, err := c.Composite(colorRegion, maskRegion, video.NewTint(0xff, 0x40, 0x00))
//
// # Pipeline
//
// Pipeline is what a decoder calls. It validates the frame, composites it
// with the configured settings, applies post effects and scales to the
// render size:
//
//	p := video.NewPipeline(video.Settings{
//	    Interpolation: video.InterpolationCatmullRom,
//	    Effects:       []video.Effect{video.Brightness(20)},
//	})
//	p.SetErrorHandler(func(err error) { log.Println(err) })
//
//	res := p.ProcessFrame(video.FrameRequest{Source: frame})
//	if res.Err != nil {
//	    // frame-level: skip it, the next frame is still processed
//	}
//
// # Errors
//
// Frame-level failures are *CompositionError values whose kind is
// ErrSizeMismatch or ErrProcessingFailed:
//
//	if errors.Is(res.Err, video.ErrSizeMismatch) {
//	    // asset does not follow the two-region layout
//	}
//
// # Thread Safety
//
// Compositor, Scaler and Pipeline are safe for concurrent use. Effects
// shared by a Pipeline must be stateless; the built-in ones are. FrameQueue is a
// Sink safe for one producer and any number of consumers.
package video
