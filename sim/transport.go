// Package sim provides an in-process media transport that plays asset
// sources through the composition pipeline into a video sink.
//
// The transport advances one frame per Step. Run drives Step from a ticker
// for real-time playback; tests and offline renders call Step directly.
// Seek only moves the playhead: the frame at the new position is decoded
// and presented by the next Step, never on the seeking goroutine.
// Callbacks run on the goroutine whose call produced them, after the
// transport's lock is released.
package sim

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/asset"
	"github.com/opd-ai/alphavideo/player"
	"github.com/opd-ai/alphavideo/video"
)

var (
	// ErrClosed indicates the transport was closed.
	ErrClosed = errors.New("transport closed")

	// ErrNotSource indicates an item whose asset cannot produce frames.
	ErrNotSource = errors.New("asset does not provide frames")

	// ErrInvalidBoundary indicates a negative boundary time.
	ErrInvalidBoundary = errors.New("invalid boundary time")
)

// Options configures a Transport.
type Options struct {
	// Speed scales wall-clock pacing in Run. Zero means 1.
	Speed float64
	// Clock paces Run. Nil uses the system clock.
	Clock Clock
}

// Stats counts transport activity.
type Stats struct {
	Steps      uint64
	Presented  uint64
	Failed     uint64
	Seeks      uint64
	Boundaries uint64
}

type statusSub struct {
	item *player.Item
	fn   func(player.ItemStatus, error)
}

type boundarySub struct {
	at time.Duration
	fn func()
}

// Transport implements player.Transport over asset.Source values.
type Transport struct {
	sink  video.Sink
	speed float64
	clock Clock

	mu         sync.Mutex
	item       *player.Item
	src        asset.Source
	status     player.ItemStatus
	statusErr  error
	statusSubs map[uint64]statusSub
	boundaries map[uint64]boundarySub
	nextID     uint64
	position   time.Duration
	redraw     bool // the frame at position is owed to the sink
	playing    bool
	rate       float64
	failSeeks  int
	closed     bool
	stats      Stats
}

// NewTransport creates a transport presenting to sink.
func NewTransport(sink video.Sink, opts Options) *Transport {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	return &Transport{
		sink:       sink,
		speed:      speed,
		clock:      clockOrSystem(opts.Clock),
		statusSubs: make(map[uint64]statusSub),
		boundaries: make(map[uint64]boundarySub),
		rate:       1,
	}
}

// Replace swaps the current item and resolves its readiness by decoding the
// first frame.
func (t *Transport) Replace(item *player.Item) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}

	t.item = item
	t.src = nil
	t.position = 0
	t.redraw = false
	t.playing = false
	t.status = player.ItemStatusUnknown
	t.statusErr = nil

	if item == nil {
		t.mu.Unlock()
		return nil
	}

	src, ok := item.Asset.(asset.Source)
	if ok {
		t.src = src
		if _, err := src.Frame(0); err != nil {
			t.status, t.statusErr = player.ItemStatusFailed, err
		} else {
			t.status = player.ItemStatusReadyToPlay
		}
	} else {
		t.status, t.statusErr = player.ItemStatusFailed, fmt.Errorf("%w: %T", ErrNotSource, item.Asset)
	}

	pending := t.statusCallbacks(item)
	status := t.status
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":    "Transport.Replace",
		"asset":       item.Asset.Identity(),
		"transparent": item.Transparent(),
		"ready":       status == player.ItemStatusReadyToPlay,
	}).Debug("Transport item replaced")

	run(pending)
	return nil
}

// statusCallbacks returns the notifications owed to subscribers of item.
// Callers hold t.mu.
func (t *Transport) statusCallbacks(item *player.Item) []func() {
	if t.item != item || t.status == player.ItemStatusUnknown {
		return nil
	}
	status, err := t.status, t.statusErr
	var out []func()
	for _, sub := range t.statusSubs {
		if sub.item == item {
			fn := sub.fn
			out = append(out, func() { fn(status, err) })
		}
	}
	return out
}

// ObserveStatus subscribes to readiness of item. A subscription to the
// current, already resolved item is notified immediately.
func (t *Transport) ObserveStatus(item *player.Item, fn func(player.ItemStatus, error)) func() {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.statusSubs[id] = statusSub{item: item, fn: fn}

	var pending []func()
	if t.item == item && t.status != player.ItemStatusUnknown {
		status, err := t.status, t.statusErr
		pending = append(pending, func() { fn(status, err) })
	}
	t.mu.Unlock()

	run(pending)
	return func() {
		t.mu.Lock()
		delete(t.statusSubs, id)
		t.mu.Unlock()
	}
}

// FailNextSeeks makes the next n seeks report failure.
func (t *Transport) FailNextSeeks(n int) {
	t.mu.Lock()
	t.failSeeks = n
	t.mu.Unlock()
}

// Seek moves the playhead to target. The next Step presents the frame there.
func (t *Transport) Seek(target time.Duration, done func(ok bool)) {
	t.mu.Lock()
	t.stats.Seeks++
	if t.closed || t.src == nil || t.failSeeks > 0 {
		if t.failSeeks > 0 {
			t.failSeeks--
		}
		t.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Transport.Seek",
			"target":   target,
		}).Debug("Seek failed")
		done(false)
		return
	}

	target = min(max(target, 0), t.src.Duration())
	t.position = target
	t.redraw = true
	t.mu.Unlock()

	done(true)
}

// Play resumes playback at rate.
func (t *Transport) Play(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.src == nil {
		return
	}
	if rate > 0 {
		t.rate = rate
	}
	t.playing = true
}

// Pause halts playback.
func (t *Transport) Pause() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

// AddBoundaryObserver calls fn whenever a Step moves the playhead from
// before at to at or beyond.
func (t *Transport) AddBoundaryObserver(at time.Duration, fn func()) (func(), error) {
	if at < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoundary, at)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	t.nextID++
	id := t.nextID
	t.boundaries[id] = boundarySub{at: at, fn: fn}

	return func() {
		t.mu.Lock()
		delete(t.boundaries, id)
		t.mu.Unlock()
	}, nil
}

// Close detaches the item and drops every subscription.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.playing = false
	t.item = nil
	t.src = nil
	clear(t.statusSubs)
	clear(t.boundaries)
	return nil
}

// Step advances playback by one frame interval scaled by the play rate and
// presents the new frame. After a seek it first presents the frame at the
// new position without advancing. It returns false when there was nothing
// to present.
func (t *Transport) Step() bool {
	t.mu.Lock()
	if t.redraw && t.src != nil {
		t.redraw = false
		src, item, at := t.src, t.item, t.position
		t.mu.Unlock()

		t.render(item, src, asset.FrameIndex(src, at))
		return true
	}
	if !t.playing || t.src == nil {
		t.mu.Unlock()
		return false
	}

	src, item := t.src, t.item
	duration := src.Duration()
	prev := t.position
	next := prev + time.Duration(float64(time.Second)/src.FrameRate()*t.rate)
	if next >= duration {
		next = duration
		// The player stops at the end of the item until told otherwise.
		t.playing = false
	}
	t.position = next
	t.stats.Steps++

	var crossed []func()
	for _, b := range t.boundaries {
		if prev < b.at && b.at <= next {
			crossed = append(crossed, b.fn)
		}
	}
	t.stats.Boundaries += uint64(len(crossed))
	t.mu.Unlock()

	t.render(item, src, asset.FrameIndex(src, next))
	run(crossed)
	return true
}

// render decodes frame index and presents it, through the item's
// composition when it has one.
func (t *Transport) render(item *player.Item, src asset.Source, index int) {
	frame, err := src.Frame(index)
	if err != nil {
		t.countFailure()
		logrus.WithFields(logrus.Fields{
			"function": "Transport.render",
			"index":    index,
			"error":    err.Error(),
		}).Warn("Failed to decode frame")
		return
	}

	if !item.Transparent() {
		t.present(frame.Image, frame.Timestamp)
		return
	}

	res := item.Composition.ProcessFrame(video.FrameRequest{Source: frame})
	if res.Err != nil {
		// The pipeline reports the failure; the next frame is still rendered.
		t.countFailure()
		return
	}
	t.present(res.Frame, res.Timestamp)
}

func (t *Transport) present(img image.Image, ts time.Duration) {
	t.mu.Lock()
	t.stats.Presented++
	t.mu.Unlock()
	if t.sink != nil {
		t.sink.Present(img, ts)
	}
}

func (t *Transport) countFailure() {
	t.mu.Lock()
	t.stats.Failed++
	t.mu.Unlock()
}

// Run steps playback at the source frame rate divided by the speed until
// ctx is done.
func (t *Transport) Run(ctx context.Context) error {
	interval := t.interval()
	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	started := t.clock.Now()
	logrus.WithFields(logrus.Fields{
		"function": "Transport.Run",
		"interval": interval,
		"speed":    t.speed,
	}).Debug("Transport clock started")

	for {
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"function": "Transport.Run",
				"elapsed":  t.clock.Now().Sub(started),
				"steps":    t.Stats().Steps,
			}).Debug("Transport clock stopped")
			return ctx.Err()
		case <-ticker.C():
			t.Step()
			if next := t.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// defaultInterval paces Run while no item is attached.
const defaultInterval = time.Second / 30

func (t *Transport) interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := defaultInterval
	if t.src != nil {
		d = time.Duration(float64(time.Second) / t.src.FrameRate())
	}
	d = time.Duration(float64(d) / t.speed)
	return max(d, time.Microsecond)
}

// Position returns the playhead.
func (t *Transport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Playing reports whether Step would advance.
func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && t.src != nil
}

// Stats returns a copy of the counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
