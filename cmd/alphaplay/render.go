package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/asset"
	"github.com/opd-ai/alphavideo/config"
	"github.com/opd-ai/alphavideo/player"
	"github.com/opd-ai/alphavideo/sim"
	"github.com/opd-ai/alphavideo/video"
)

const lockFileName = ".alphaplay.lock"

// idleInterval is how long the stepping driver sleeps while nothing plays.
const idleInterval = time.Millisecond

type renderSummary struct {
	Source       asset.Info
	OutputDir    string
	Written      uint64
	Dropped      uint64
	Composited   uint64
	FrameErrors  int
	Loops        int
	Seeks        uint64
	FinalState   player.State
	Elapsed      time.Duration
	Transparent  bool
	RealTime     bool
	RepeatMode   player.RepeatMode
	PauseAt      float64
	WriteFailure error
}

// progress collects controller notifications for the goroutine driving a
// render. Callbacks run on the controller goroutine and never block.
type progress struct {
	mu          sync.Mutex
	changed     chan struct{}
	state       player.State
	readies     int
	presented   int
	started     bool
	loops       int
	ended       bool
	frameErrors int
	failure     error
}

func newProgress() *progress {
	return &progress{changed: make(chan struct{}, 1)}
}

func (p *progress) update(fn func(p *progress)) {
	p.mu.Lock()
	fn(p)
	p.mu.Unlock()
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

func (p *progress) delegate() player.Callbacks {
	return player.Callbacks{
		Started: func() { p.update(func(p *progress) { p.started = true }) },
		Looped:  func() { p.update(func(p *progress) { p.loops++ }) },
		Ended:   func() { p.update(func(p *progress) { p.ended = true }) },
		Failed: func(err error) {
			p.update(func(p *progress) {
				// The state callback runs before OnFailure for session failures.
				if p.state == player.StateFailed {
					if p.failure == nil {
						p.failure = err
					}
					return
				}
				p.frameErrors++
				logrus.WithFields(logrus.Fields{
					"function": "render",
					"error":    err.Error(),
				}).Warn("Frame composition failed")
			})
		},
	}
}

// sink counts frames on their way to next.
func (p *progress) sink(next video.Sink) video.Sink {
	return video.SinkFunc(func(img image.Image, ts time.Duration) {
		next.Present(img, ts)
		p.update(func(p *progress) { p.presented++ })
	})
}

func (p *progress) setState(state player.State) {
	p.update(func(p *progress) {
		p.state = state
		if state == player.StateReady {
			p.readies++
		}
	})
}

// wait blocks until cond holds, the session fails, or ctx is done.
func (p *progress) wait(ctx context.Context, cond func(p *progress) bool) error {
	for {
		p.mu.Lock()
		ok, failure := cond(p), p.failure
		p.mu.Unlock()
		if failure != nil {
			return fmt.Errorf("playback failed: %w", failure)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.changed:
		}
	}
}

// renderer plays one source through the controller and writes every
// presented frame to disk.
type renderer struct {
	cfg    *config.Config
	src    asset.Source
	outDir string
}

func (r *renderer) run(ctx context.Context) (summary renderSummary, err error) {
	started := time.Now()
	summary = renderSummary{
		Source:      asset.Describe(r.src),
		OutputDir:   r.outDir,
		Transparent: r.cfg.Playback.Transparent,
		RealTime:    r.cfg.Render.Speed > 0,
		RepeatMode:  r.cfg.RepeatMode(),
		PauseAt:     r.cfg.Playback.PauseAt,
	}

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(r.outDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return summary, fmt.Errorf("another render is writing to %s", r.outDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "renderer.run",
				"error":    err.Error(),
			}).Warn("Failed to release output lock")
		}
	}()

	settings, err := r.cfg.PipelineSettings()
	if err != nil {
		return summary, err
	}
	pipeline := video.NewPipeline(settings)

	writer := newFrameWriter(r.outDir, r.cfg.Render.Workers)
	var (
		sink    video.Sink = writer
		queue   *video.FrameQueue
		forward sync.WaitGroup
	)
	if summary.RealTime {
		queue = video.NewFrameQueue(r.cfg.Render.QueueSize)
		sink = queue
		forward.Add(1)
		go func() {
			defer forward.Done()
			writer.forward(queue)
		}()
	}

	prog := newProgress()
	transport := sim.NewTransport(prog.sink(sink), sim.Options{Speed: r.cfg.Render.Speed})
	ctrl, err := player.NewController(transport, r.cfg.PlayerOptions(pipeline))
	if err == nil {
		err = ctrl.Start()
	}
	if err != nil {
		if queue != nil {
			queue.Close()
			forward.Wait()
		}
		_, _ = writer.Close()
		return summary, err
	}
	ctrl.SetDelegate(prog.delegate())
	ctrl.SetStateCallback(prog.setState)

	logrus.WithFields(logrus.Fields{
		"function":    "renderer.run",
		"source":      summary.Source.Identity,
		"output_dir":  r.outDir,
		"transparent": summary.Transparent,
		"repeat":      summary.RepeatMode.String(),
		"real_time":   summary.RealTime,
	}).Info("Render started")

	driveCtx, cancel := context.WithCancel(ctx)
	driveErr := make(chan error, 1)
	go func() { driveErr <- drive(driveCtx, transport, ctrl, summary.RealTime) }()

	err = r.play(ctx, ctrl, prog)

	cancel()
	if derr := <-driveErr; err == nil && derr != nil {
		err = derr
	}
	if snap, serr := ctrl.Snapshot(); serr == nil {
		summary.FinalState = snap.State
	}
	if uerr := ctrl.Unload(); uerr != nil && err == nil {
		err = uerr
	}
	if serr := ctrl.Stop(); serr != nil && err == nil {
		err = serr
	}

	if queue != nil {
		queue.Close()
		forward.Wait()
		summary.Dropped = queue.Stats().Dropped
	}
	summary.Written, summary.WriteFailure = writer.Close()

	prog.mu.Lock()
	summary.Loops = prog.loops
	summary.FrameErrors = prog.frameErrors
	prog.mu.Unlock()
	summary.Seeks = transport.Stats().Seeks
	summary.Composited = pipeline.Stats().Processed
	summary.Elapsed = time.Since(started)

	logrus.WithFields(logrus.Fields{
		"function": "renderer.run",
		"written":  summary.Written,
		"dropped":  summary.Dropped,
		"loops":    summary.Loops,
		"elapsed":  summary.Elapsed,
	}).Info("Render finished")

	if err == nil && summary.WriteFailure != nil {
		err = summary.WriteFailure
	}
	return summary, err
}

// play loads the source and waits for the configured stopping point. With
// pause_at set it only seeks to that point and presents the frame there.
func (r *renderer) play(ctx context.Context, ctrl *player.Controller, prog *progress) error {
	tint, err := r.cfg.Tint()
	if err != nil {
		return err
	}
	start, end := r.cfg.Segment()
	pausing := r.cfg.Playback.PauseAt >= 0
	autoPlay := !pausing && r.cfg.Playback.AutoPlay && start == 0 && end == 0

	req := player.LoadRequest{
		Asset:       r.src,
		Transparent: r.cfg.Playback.Transparent,
		Repeat:      r.cfg.RepeatMode(),
		Tint:        tint,
		AutoPlay:    autoPlay,
	}
	if err := ctrl.Load(req); err != nil {
		return err
	}

	isReady := func(p *progress) bool { return p.state == player.StateReady }
	if !autoPlay {
		if err := prog.wait(ctx, isReady); err != nil {
			return err
		}
	}

	if pausing {
		prog.mu.Lock()
		readies, presented := prog.readies, prog.presented
		prog.mu.Unlock()
		if err := ctrl.PauseAtFraction(r.cfg.Playback.PauseAt); err != nil {
			return err
		}
		// The frame at the pause point arrives with the next transport step.
		return prog.wait(ctx, func(p *progress) bool {
			return p.readies > readies && p.presented > presented
		})
	}

	if !autoPlay {
		if err := ctrl.Play(start, end); err != nil {
			return err
		}
	}
	if err := prog.wait(ctx, func(p *progress) bool { return p.started }); err != nil {
		return err
	}

	if req.Repeat == player.RepeatLoop {
		loops := r.cfg.Playback.Loops
		return prog.wait(ctx, func(p *progress) bool { return p.loops >= loops })
	}
	return prog.wait(ctx, func(p *progress) bool { return p.ended })
}

// drive advances the transport. Real-time renders use the transport clock;
// otherwise frames are stepped as fast as the controller settles them.
func drive(ctx context.Context, transport *sim.Transport, ctrl *player.Controller, realTime bool) error {
	if realTime {
		if err := transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		stepped := transport.Step()
		// Snapshot is a barrier: every event the step produced has been
		// handled before the next step.
		if _, err := ctrl.Snapshot(); err != nil {
			return err
		}
		if !stepped {
			time.Sleep(idleInterval)
		}
	}
}

func summaryRows(s renderSummary) [][2]string {
	rows := [][2]string{
		{"Source", shortIdentity(s.Source.Identity)},
		{"Render size", fmt.Sprintf("%dx%d", s.Source.RenderSize.X, s.Source.RenderSize.Y)},
		{"Output", s.OutputDir},
		{"Transparent", yesNo(s.Transparent)},
		{"Repeat", s.RepeatMode.String()},
	}
	if s.PauseAt >= 0 {
		rows = append(rows, [2]string{"Pause at", fmt.Sprintf("%.0f%%", s.PauseAt*100)})
	}
	rows = append(rows,
		[2]string{"Frames written", fmt.Sprint(s.Written)},
		[2]string{"Frames dropped", fmt.Sprint(s.Dropped)},
		[2]string{"Composited", fmt.Sprint(s.Composited)},
		[2]string{"Frame errors", fmt.Sprint(s.FrameErrors)},
		[2]string{"Loops", fmt.Sprint(s.Loops)},
		[2]string{"Seeks", fmt.Sprint(s.Seeks)},
		[2]string{"Final state", s.FinalState.String()},
		[2]string{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	)
	return rows
}

func shortIdentity(id string) string {
	const n = 12
	if len(id) <= n {
		return id
	}
	return id[:n]
}
