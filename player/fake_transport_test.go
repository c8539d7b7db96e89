package player

import (
	"sync"
	"time"
)

// fakeTransport records controller calls and lets tests fire transport
// callbacks by hand.
type fakeTransport struct {
	mu sync.Mutex

	replaced      []*Item
	replaceErr    error
	statusFns     []func(ItemStatus, error)
	statusCancels int
	seeks         []pendingSeek
	seekTargets   []time.Duration
	plays         int
	pauses        int
	boundaries    []*fakeBoundary
	boundaryErr   error
	closed        bool
}

type pendingSeek struct {
	target time.Duration
	done   func(bool)
}

type fakeBoundary struct {
	at        time.Duration
	fn        func()
	cancelled bool
}

type testAsset struct {
	id  string
	dur time.Duration
}

func (a testAsset) Identity() string        { return a.id }
func (a testAsset) Duration() time.Duration { return a.dur }

func (f *fakeTransport) Replace(item *Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item != nil && f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = append(f.replaced, item)
	return nil
}

func (f *fakeTransport) ObserveStatus(_ *Item, fn func(ItemStatus, error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusFns = append(f.statusFns, fn)
	return func() {
		f.mu.Lock()
		f.statusCancels++
		f.mu.Unlock()
	}
}

func (f *fakeTransport) Seek(target time.Duration, done func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pendingSeek{target: target, done: done})
	f.seekTargets = append(f.seekTargets, target)
}

func (f *fakeTransport) Play(float64) {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeTransport) AddBoundaryObserver(at time.Duration, fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boundaryErr != nil {
		return nil, f.boundaryErr
	}
	b := &fakeBoundary{at: at, fn: fn}
	f.boundaries = append(f.boundaries, b)
	return func() {
		f.mu.Lock()
		b.cancelled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// signal fires the latest status subscription, even if it was cancelled.
func (f *fakeTransport) signal(status ItemStatus, err error) {
	f.mu.Lock()
	fn := f.statusFns[len(f.statusFns)-1]
	f.mu.Unlock()
	fn(status, err)
}

// resolveSeek completes the oldest pending seek.
func (f *fakeTransport) resolveSeek(ok bool) {
	f.mu.Lock()
	s := f.seeks[0]
	f.seeks = f.seeks[1:]
	f.mu.Unlock()
	s.done(ok)
}

// cross fires the latest boundary observer, even if it was cancelled.
func (f *fakeTransport) cross() {
	f.mu.Lock()
	b := f.boundaries[len(f.boundaries)-1]
	f.mu.Unlock()
	b.fn()
}

func (f *fakeTransport) pendingSeeks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seeks)
}

func (f *fakeTransport) lastBoundary() *fakeBoundary {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.boundaries) == 0 {
		return nil
	}
	b := *f.boundaries[len(f.boundaries)-1]
	return &b
}

func (f *fakeTransport) counts() (replaced, plays, pauses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaced), f.plays, f.pauses
}

// recorder collects delegate notifications in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *recorder) delegate() Delegate {
	return Callbacks{
		Started: func() { r.add("started", nil) },
		Looped:  func() { r.add("looped", nil) },
		Ended:   func() { r.add("ended", nil) },
		Failed:  func(err error) { r.add("failed", err) },
	}
}

func (r *recorder) add(event string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]error(nil), r.errs...)
}
