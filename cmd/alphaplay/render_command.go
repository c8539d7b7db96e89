package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/opd-ai/alphavideo/config"
)

type renderFlags struct {
	out        string
	repeat     string
	loops      int
	tint       string
	opaque     bool
	pauseAt    float64
	start      float64
	end        float64
	speed      float64
	workers    int
	frameRate  float64
	cpuProfile string
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <source>",
		Short: "Play a stacked source and write each presented frame as PNG",
		Long: `Render plays a stacked alpha source through the playback controller and
writes every presented frame to the output directory.

A source is a directory of stacked frames (png, jpeg, gif, bmp, tiff, webp),
ordered by file name, or "synthetic:WxH[xN]" for a generated gradient.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(*base, cmd.Flags())
			if err != nil {
				return err
			}

			src, err := openSource(args[0], cfg.Render.FrameRate)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}

			runCtx, stop := signal.NotifyContext(commandContextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if flags.cpuProfile != "" {
				profile, err := startCPUProfile(flags.cpuProfile)
				if err != nil {
					return err
				}
				defer profile.stop()
			}

			r := &renderer{cfg: cfg, src: src, outDir: cfg.Render.OutputDir}
			var summary renderSummary
			withRenderLabels(runCtx, src.Identity(), func(ctx context.Context) {
				summary, err = r.run(ctx)
			})
			if summary.Written > 0 || err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("Render", summaryRows(summary), false))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.out, "out", "o", "", "Output directory (render.output_dir)")
	f.StringVar(&flags.repeat, "repeat", "", "Repeat mode: once or loop (playback.repeat)")
	f.IntVar(&flags.loops, "loops", 0, "Loop restarts before stopping (playback.loops)")
	f.StringVar(&flags.tint, "tint", "", "Monochrome tint as #rrggbb (composition.tint)")
	f.BoolVar(&flags.opaque, "opaque", false, "Present frames without composition")
	f.Float64Var(&flags.pauseAt, "pause-at", 0, "Seek to this fraction of the duration, present that frame and stop (playback.pause_at)")
	f.Float64Var(&flags.start, "start", 0, "Segment start in seconds (playback.start_seconds)")
	f.Float64Var(&flags.end, "end", 0, "Segment end in seconds, 0 for the full duration (playback.end_seconds)")
	f.Float64Var(&flags.speed, "speed", 0, "Wall-clock speed factor, 0 for as fast as possible (render.speed)")
	f.IntVar(&flags.workers, "workers", 0, "PNG encoder workers (render.workers)")
	f.Float64Var(&flags.frameRate, "fps", 0, "Source frame rate (render.frame_rate)")
	f.StringVar(&flags.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	return cmd
}

// apply overlays explicitly set flags on cfg and revalidates it.
func (f renderFlags) apply(cfg config.Config, set *pflag.FlagSet) (*config.Config, error) {
	if set.Changed("out") {
		cfg.Render.OutputDir = strings.TrimSpace(f.out)
	}
	if set.Changed("repeat") {
		cfg.Playback.Repeat = strings.ToLower(strings.TrimSpace(f.repeat))
	}
	if set.Changed("loops") {
		cfg.Playback.Loops = f.loops
	}
	if set.Changed("tint") {
		cfg.Composition.Tint = strings.ToLower(strings.TrimSpace(f.tint))
	}
	if set.Changed("opaque") {
		cfg.Playback.Transparent = !f.opaque
	}
	if set.Changed("pause-at") {
		cfg.Playback.PauseAt = f.pauseAt
	}
	if set.Changed("start") {
		cfg.Playback.StartSeconds = f.start
	}
	if set.Changed("end") {
		cfg.Playback.EndSeconds = f.end
	}
	if set.Changed("speed") {
		cfg.Render.Speed = f.speed
	}
	if set.Changed("workers") {
		cfg.Render.Workers = f.workers
	}
	if set.Changed("fps") {
		cfg.Render.FrameRate = f.frameRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func commandContextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
