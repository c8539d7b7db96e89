package player

import "time"

// Transport is the external player the controller drives.
//
// Callbacks may run on any goroutine; the controller marshals them onto its
// own goroutine. Implementations must tolerate callbacks firing after their
// subscription was cancelled, since the controller ignores stale events.
type Transport interface {
	// Replace swaps the current item. A nil item detaches the player.
	Replace(item *Item) error

	// ObserveStatus subscribes to readiness changes of item.
	ObserveStatus(item *Item, fn func(status ItemStatus, err error)) (cancel func())

	// Seek moves the playhead to target with zero tolerance and reports
	// whether the seek completed.
	Seek(target time.Duration, done func(ok bool))

	// Play starts or resumes playback at rate.
	Play(rate float64)

	// Pause halts playback at the current position.
	Pause()

	// AddBoundaryObserver calls fn each time playback crosses at.
	AddBoundaryObserver(at time.Duration, fn func()) (cancel func(), err error)

	// Close releases the player.
	Close() error
}
