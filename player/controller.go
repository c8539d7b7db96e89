package player

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/video"
)

// pauseTimescale is the grid, in steps per second, that pause targets snap to.
const pauseTimescale = 30

// Controller drives a Transport through load, seek, play and pause, and
// turns its readiness and boundary signals into Delegate notifications.
//
// All session state is owned by a single goroutine started by Start. Public
// methods enqueue work onto that goroutine and wait for the result; transport
// callbacks are enqueued without waiting. Every queued event carries the
// generation it was created for, so events from a torn down session are
// ignored.
type Controller struct {
	transport Transport
	pipeline  *video.Pipeline
	rate      float64
	maxRetry  int

	// Serializes Start and Stop
	lifecycle sync.Mutex

	// Lifecycle and callbacks, guarded by mu
	mu            sync.RWMutex
	running       bool
	done          chan struct{}
	delegate      Delegate
	stateCallback func(State)

	inbox *mailbox
	wg    sync.WaitGroup

	// Owned by the controller goroutine
	halted     bool // set by Stop; later commands are refused
	session    *Session
	generation uint64
	seekSeq    uint64
	boundSeq   uint64
}

// NewController creates a controller for transport. The controller must be
// started before use.
func NewController(transport Transport, opts Options) (*Controller, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewController",
	}).Info("Creating playback controller")

	if transport == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewController",
			"error":    ErrNilTransport.Error(),
		}).Error("Transport validation failed")
		return nil, ErrNilTransport
	}

	rate := opts.Rate
	if rate == 0 {
		rate = 1.0
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = video.NewPipeline(video.Settings{})
	}

	c := &Controller{
		transport: transport,
		pipeline:  pipeline,
		rate:      rate,
		maxRetry:  opts.MaxSeekRetries,
		delegate:  NopDelegate{},
		inbox:     newMailbox(),
	}

	logrus.WithFields(logrus.Fields{
		"function":         "NewController",
		"rate":             rate,
		"max_seek_retries": opts.MaxSeekRetries,
	}).Debug("Playback controller configured")

	return c, nil
}

// Pipeline returns the composition pipeline bound to transparent items.
func (c *Controller) Pipeline() *video.Pipeline {
	return c.pipeline
}

// SetDelegate registers the notification receiver. Nil restores the no-op
// delegate.
func (c *Controller) SetDelegate(d Delegate) {
	if d == nil {
		d = NopDelegate{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate = d
}

// SetStateCallback registers a function invoked on every state change, or
// nil to unregister.
func (c *Controller) SetStateCallback(callback func(State)) {
	logrus.WithFields(logrus.Fields{
		"function":        "SetStateCallback",
		"callback_is_nil": callback == nil,
	}).Debug("Registering state change callback")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateCallback = callback
}

// Start launches the controller goroutine.
func (c *Controller) Start() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		logrus.WithFields(logrus.Fields{
			"function": "Start",
			"error":    "already running",
		}).Error("Playback controller is already running")
		return ErrControllerAlreadyRunning
	}

	c.running = true
	c.done = make(chan struct{})
	c.halted = false
	c.wg.Add(1)
	go c.loop(c.done)

	logrus.WithFields(logrus.Fields{
		"function": "Start",
	}).Info("Playback controller started")
	return nil
}

// Stop unloads the current asset, stops the controller goroutine and closes
// the transport. Stopping a stopped controller is a no-op.
func (c *Controller) Stop() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Stop",
		}).Debug("Playback controller already stopped")
		return nil
	}
	c.running = false
	done := c.done
	c.mu.Unlock()

	// Commands that saw the controller running may still be queued behind
	// this one; halted makes them fail instead of opening a new session.
	c.send(done, func() error {
		c.teardown("stop")
		c.halted = true
		return nil
	})
	close(done)
	c.wg.Wait()

	if err := c.transport.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Stop",
			"error":    err.Error(),
		}).Error("Failed to close transport")
		return fmt.Errorf("close transport: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Playback controller stopped")
	return nil
}

// IsRunning returns whether the controller goroutine is running.
func (c *Controller) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Controller) loop(done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-c.inbox.notify:
			for _, fn := range c.inbox.drain() {
				fn()
			}
		}
	}
}

// call runs fn on the controller goroutine and returns its error.
func (c *Controller) call(fn func() error) error {
	c.mu.RLock()
	running, done := c.running, c.done
	c.mu.RUnlock()
	if !running {
		return ErrControllerNotRunning
	}
	return c.send(done, fn)
}

func (c *Controller) send(done <-chan struct{}, fn func() error) error {
	reply := make(chan error, 1)
	c.inbox.post(func() {
		if c.halted || isClosed(done) {
			reply <- ErrControllerNotRunning
			return
		}
		reply <- fn()
	})
	select {
	case err := <-reply:
		return err
	case <-done:
		return ErrControllerNotRunning
	}
}

func isClosed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Load starts a new load cycle. Loading the asset that is already loading,
// ready or playing is a no-op.
func (c *Controller) Load(req LoadRequest) error {
	if req.Asset == nil {
		return ErrNilAsset
	}
	return c.call(func() error { return c.load(req) })
}

// Play plays [start, end) of the loaded asset. An end of zero or less means
// the asset duration. A request made while a seek is outstanding is dropped
// with ErrSeekInProgress.
func (c *Controller) Play(start, end time.Duration) error {
	return c.call(func() error {
		s := c.session
		if s == nil {
			return ErrNotLoaded
		}
		return c.play(s, start, end)
	})
}

// PauseAtFraction seeks to p of the asset duration, snapped to a 1/30 s grid,
// and pauses there.
func (c *Controller) PauseAtFraction(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFraction, p)
	}
	return c.call(func() error { return c.pauseAt(p) })
}

// Unload detaches the asset and discards the session. It is valid in any
// state and idempotent.
func (c *Controller) Unload() error {
	return c.call(func() error {
		c.teardown("unload")
		return nil
	})
}

// Snapshot returns the session state after every previously queued event
// has been applied.
func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.call(func() error {
		if c.session == nil {
			snap = Snapshot{Generation: c.generation, State: StateUnloaded, Boundary: -1}
			return nil
		}
		snap = c.session.snapshot()
		return nil
	})
	return snap, err
}

func (c *Controller) load(req LoadRequest) error {
	identity := req.Asset.Identity()

	if s := c.session; s != nil && s.Asset.Identity() == identity {
		switch s.State {
		case StateLoading, StateReady, StatePlaying:
			logrus.WithFields(logrus.Fields{
				"function": "load",
				"asset":    identity,
				"state":    s.State,
			}).Debug("Asset already loaded, ignoring load")
			return nil
		}
	}

	c.teardown("reload")

	c.generation++
	gen := c.generation
	s := &Session{
		ID:          uuid.New(),
		Generation:  gen,
		Asset:       req.Asset,
		Transparent: req.Transparent,
		Repeat:      req.Repeat,
		Tint:        req.Tint,
		AutoPlay:    req.AutoPlay,
		End:         req.Asset.Duration(),
		State:       StateUnloaded,
	}
	c.session = s

	item := &Item{Asset: req.Asset}
	if req.Transparent {
		settings := c.pipeline.Settings()
		settings.Tint = req.Tint
		c.pipeline.Configure(settings)
		c.pipeline.SetErrorHandler(func(err error) {
			c.inbox.post(func() { c.handleFrameError(gen, err) })
		})
		item.Composition = c.pipeline
	}

	logrus.WithFields(logrus.Fields{
		"function":    "load",
		"asset":       identity,
		"session_id":  s.ID,
		"generation":  gen,
		"transparent": req.Transparent,
		"repeat":      req.Repeat,
		"auto_play":   req.AutoPlay,
	}).Info("Loading asset")

	c.updateState(s, StateLoading)

	s.cancelStatus = c.transport.ObserveStatus(item, func(status ItemStatus, err error) {
		c.inbox.post(func() { c.handleStatus(gen, status, err) })
	})

	if err := c.transport.Replace(item); err != nil {
		assetErr := &AssetError{Identity: identity, Err: err}
		c.fail(s, assetErr)
		return assetErr
	}
	return nil
}

func (c *Controller) play(s *Session, start, end time.Duration) error {
	if s.seeking {
		logrus.WithFields(logrus.Fields{
			"function":   "play",
			"session_id": s.ID,
		}).Warn("Dropping play request while seek is in progress")
		return ErrSeekInProgress
	}
	switch s.State {
	case StateReady:
	case StatePlaying:
		return ErrAlreadyPlaying
	default:
		return fmt.Errorf("%w: state %s", ErrNotReady, s.State)
	}

	duration := s.Asset.Duration()
	if end <= 0 {
		end = duration
	}
	if start < 0 || end > duration || start >= end {
		return fmt.Errorf("%w: [%v, %v) of %v", ErrInvalidRange, start, end, duration)
	}

	s.Start, s.End = start, end
	c.seekTo(s, start, seekForPlay)
	return nil
}

func (c *Controller) pauseAt(p float64) error {
	s := c.session
	if s == nil {
		return ErrNotLoaded
	}
	if s.seeking {
		logrus.WithFields(logrus.Fields{
			"function":   "pauseAt",
			"session_id": s.ID,
		}).Warn("Dropping pause request while seek is in progress")
		return ErrSeekInProgress
	}
	if s.State != StateReady && s.State != StatePlaying {
		return fmt.Errorf("%w: state %s", ErrNotReady, s.State)
	}

	c.cancelBoundary(s)
	c.seekTo(s, snapToGrid(time.Duration(float64(s.Asset.Duration())*p)), seekForPause)
	return nil
}

// snapToGrid rounds d to the nearest 1/pauseTimescale of a second.
func snapToGrid(d time.Duration) time.Duration {
	steps := math.Round(d.Seconds() * pauseTimescale)
	return time.Duration(steps * float64(time.Second) / pauseTimescale)
}

// seekTo starts an exclusive seek whose completion performs action.
func (c *Controller) seekTo(s *Session, target time.Duration, action seekAction) {
	s.seeking = true
	s.seekTarget = target
	s.seekAction = action
	s.seekRetries = 0
	c.issueSeek(s)
}

func (c *Controller) issueSeek(s *Session) {
	c.seekSeq++
	id, gen := c.seekSeq, s.Generation
	s.seekID = id

	logrus.WithFields(logrus.Fields{
		"function": "issueSeek",
		"target":   s.seekTarget,
		"action":   s.seekAction,
		"attempt":  s.seekRetries + 1,
	}).Debug("Seeking")

	c.transport.Seek(s.seekTarget, func(ok bool) {
		c.inbox.post(func() { c.handleSeekDone(gen, id, ok) })
	})
}

// current returns the session if gen still identifies it.
func (c *Controller) current(gen uint64, event string) *Session {
	s := c.session
	if s == nil || s.Generation != gen {
		logrus.WithFields(logrus.Fields{
			"function":   "current",
			"event":      event,
			"generation": gen,
		}).Debug("Ignoring stale event")
		return nil
	}
	return s
}

func (c *Controller) handleStatus(gen uint64, status ItemStatus, err error) {
	s := c.current(gen, "status")
	if s == nil {
		return
	}

	switch status {
	case ItemStatusReadyToPlay:
		if s.State != StateLoading {
			return
		}
		c.updateState(s, StateReady)
		if s.AutoPlay {
			if err := c.play(s, 0, 0); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "handleStatus",
					"error":    err.Error(),
				}).Warn("Auto-play failed")
			}
		}
	case ItemStatusFailed:
		if s.State == StateFailed {
			return
		}
		if err == nil {
			err = ErrAssetUnavailable
		}
		c.fail(s, &AssetError{Identity: s.Asset.Identity(), Err: err})
	}
}

func (c *Controller) handleSeekDone(gen, id uint64, ok bool) {
	s := c.current(gen, "seek")
	if s == nil {
		return
	}
	if !s.seeking || s.seekID != id {
		return
	}

	if !ok {
		s.seekRetries++
		if c.maxRetry > 0 && s.seekRetries > c.maxRetry {
			s.seeking = false
			c.fail(s, fmt.Errorf("%w: target %v after %d attempts", ErrSeekFailed, s.seekTarget, s.seekRetries))
			return
		}
		logrus.WithFields(logrus.Fields{
			"function": "handleSeekDone",
			"target":   s.seekTarget,
			"retry":    s.seekRetries,
		}).Warn("Seek did not complete, retrying")
		c.issueSeek(s)
		return
	}

	s.seeking = false
	switch s.seekAction {
	case seekForPlay:
		if err := c.installBoundary(s); err != nil {
			c.fail(s, err)
			return
		}
		c.transport.Play(c.rate)
		c.updateState(s, StatePlaying)
		c.notify(func(d Delegate) { d.OnPlaybackStarted() })
	case seekForLoop:
		c.transport.Play(c.rate)
		c.updateState(s, StatePlaying)
		c.notify(func(d Delegate) { d.OnLoop() })
	case seekForPause:
		c.transport.Pause()
		c.updateState(s, StateReady)
	}
}

func (c *Controller) handleBoundary(gen, id uint64) {
	s := c.current(gen, "boundary")
	if s == nil {
		return
	}
	if s.boundary == nil || s.boundary.ID != id {
		return
	}
	if s.State != StatePlaying || s.seeking {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "handleBoundary",
		"at":       s.boundary.At,
		"repeat":   s.Repeat,
	}).Debug("Boundary reached")

	if s.Repeat == RepeatLoop {
		c.seekTo(s, s.Start, seekForLoop)
		return
	}

	c.cancelBoundary(s)
	c.transport.Pause()
	c.updateState(s, StateEnded)
	c.notify(func(d Delegate) { d.OnPlaybackEnded() })
}

func (c *Controller) handleFrameError(gen uint64, err error) {
	if c.current(gen, "frame") == nil {
		return
	}
	c.notify(func(d Delegate) { d.OnFailure(err) })
}

func (c *Controller) installBoundary(s *Session) error {
	c.cancelBoundary(s)

	c.boundSeq++
	id, gen := c.boundSeq, s.Generation
	cancel, err := c.transport.AddBoundaryObserver(s.End, func() {
		c.inbox.post(func() { c.handleBoundary(gen, id) })
	})
	if err != nil {
		return fmt.Errorf("register boundary at %v: %w", s.End, err)
	}
	s.boundary = &BoundaryToken{ID: id, At: s.End, cancel: cancel}
	return nil
}

func (c *Controller) cancelBoundary(s *Session) {
	if s.boundary == nil {
		return
	}
	if s.boundary.cancel != nil {
		s.boundary.cancel()
	}
	s.boundary = nil
}

// fail moves s to Failed and reports err once.
func (c *Controller) fail(s *Session, err error) {
	c.cancelBoundary(s)
	s.seeking = false
	c.transport.Pause()

	logrus.WithFields(logrus.Fields{
		"function":   "fail",
		"session_id": s.ID,
		"error":      err.Error(),
	}).Error("Playback session failed")

	c.updateState(s, StateFailed)
	c.notify(func(d Delegate) { d.OnFailure(err) })
}

// teardown releases every subscription of the current session and detaches
// the transport. Events queued for the session become stale.
func (c *Controller) teardown(reason string) {
	s := c.session
	if s == nil {
		return
	}

	if s.cancelStatus != nil {
		s.cancelStatus()
		s.cancelStatus = nil
	}
	c.cancelBoundary(s)
	s.seeking = false
	if s.Transparent {
		c.pipeline.SetErrorHandler(nil)
	}

	c.transport.Pause()
	if err := c.transport.Replace(nil); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "teardown",
			"error":    err.Error(),
		}).Warn("Failed to detach transport item")
	}

	c.generation++
	c.session = nil

	logrus.WithFields(logrus.Fields{
		"function":   "teardown",
		"reason":     reason,
		"session_id": s.ID,
	}).Info("Playback session discarded")

	c.invokeStateCallback(StateUnloaded)
}

// updateState sets the session state and invokes the state callback.
// It must be called on the controller goroutine.
func (c *Controller) updateState(s *Session, state State) {
	prev := s.State
	s.State = state

	logrus.WithFields(logrus.Fields{
		"function":   "updateState",
		"session_id": s.ID,
		"from":       prev,
		"to":         state,
	}).Debug("Playback state changed")

	c.invokeStateCallback(state)
}

func (c *Controller) invokeStateCallback(state State) {
	c.mu.RLock()
	callback := c.stateCallback
	c.mu.RUnlock()
	if callback != nil {
		callback(state)
	}
}

func (c *Controller) notify(fn func(Delegate)) {
	c.mu.RLock()
	d := c.delegate
	c.mu.RUnlock()
	fn(d)
}
