package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/alphavideo/asset"
	"github.com/opd-ai/alphavideo/video"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var frameRate float64

	cmd := &cobra.Command{
		Use:   "probe <source>",
		Short: "Describe a stacked source and check its first frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rate := cfg.Render.FrameRate
			if cmd.Flags().Changed("fps") {
				rate = frameRate
			}

			src, err := openSource(args[0], rate)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}

			settings, err := cfg.PipelineSettings()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("Probe", probeRows(src, video.NewPipeline(settings)), false))
			return nil
		},
	}

	cmd.Flags().Float64Var(&frameRate, "fps", 0, "Source frame rate (render.frame_rate)")
	return cmd
}

func probeRows(src asset.Source, pipeline *video.Pipeline) [][2]string {
	info := asset.Describe(src)
	rows := [][2]string{
		{"Identity", info.Identity},
		{"Frames", fmt.Sprint(info.Frames)},
		{"Frame rate", fmt.Sprintf("%g fps", info.FrameRate)},
		{"Duration", info.Duration.String()},
		{"Stacked size", fmt.Sprintf("%dx%d", info.Size.X, info.Size.Y)},
		{"Render size", fmt.Sprintf("%dx%d", info.RenderSize.X, info.RenderSize.Y)},
	}
	if seq, ok := src.(*asset.Sequence); ok {
		rows = append([][2]string{{"Directory", seq.Dir()}}, rows...)
	}
	return append(rows, [2]string{"First frame", checkFirstFrame(src, pipeline)})
}

// checkFirstFrame composites frame 0 and reports the outcome.
func checkFirstFrame(src asset.Source, pipeline *video.Pipeline) string {
	frame, err := src.Frame(0)
	if err != nil {
		return fmt.Sprintf("decode failed: %v", err)
	}
	res := pipeline.ProcessFrame(video.FrameRequest{Source: frame})
	switch {
	case res.Err == nil:
		b := res.Frame.Bounds()
		return fmt.Sprintf("ok (%dx%d)", b.Dx(), b.Dy())
	case errors.Is(res.Err, video.ErrSizeMismatch):
		return fmt.Sprintf("size mismatch: %v", res.Err)
	default:
		return fmt.Sprintf("composition failed: %v", res.Err)
	}
}
