// Package player implements the playback controller for stacked alpha video.
//
// A Controller owns one playback session at a time and drives an external
// Transport through it. The session moves through these states:
//
//	Unloaded -> Loading -> Ready -> Playing -> Ended | Failed
//
// with Playing -> Playing on every loop restart. Load always starts a fresh
// cycle unless the same asset is already loading, ready or playing.
//
// # Concurrency
//
// Session state is mutated only on the controller goroutine. Transport
// callbacks (readiness, seek completion, boundary crossings) and per-frame
// composition errors are posted to an unbounded FIFO mailbox and applied in
// arrival order. Each event is tagged with the session generation that
// produced it; Unload and Load bump the generation so late callbacks from a
// discarded session change nothing and notify no one.
//
// Only one seek may be outstanding. Play and PauseAtFraction requests that
// arrive while a seek is in flight are dropped with ErrSeekInProgress. Seeks
// the transport reports as incomplete are retried with the same target.
//
// # Notifications
//
// Delegate methods run on the controller goroutine:
//
//	ctrl.SetDelegate(player.Callbacks{
//	    Started: func() { log.Println("started") },
//	    Looped:  func() { log.Println("looped") },
//	    Ended:   func() { log.Println("ended") },
//	    Failed:  func(err error) { log.Println(err) },
//	})
//
// A delegate must not call Controller methods synchronously; hand the work
// to another goroutine instead.
//
// # Errors
//
// Asset failures end the load cycle and are reported once as *AssetError.
// Composition failures of single frames are reported through OnFailure
// while playback continues.
package player
