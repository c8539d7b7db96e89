package player

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/alphavideo/video"
)

// State represents the lifecycle position of the current playback session.
type State uint32

const (
	// StateUnloaded indicates no asset is attached
	StateUnloaded State = iota
	// StateLoading indicates an asset was handed to the transport and
	// readiness has not been reported yet
	StateLoading
	// StateReady indicates the asset can be played
	StateReady
	// StatePlaying indicates playback of a segment is in progress
	StatePlaying
	// StateEnded indicates a RepeatOnce segment reached its boundary
	StateEnded
	// StateFailed indicates the load cycle failed
	StateFailed
)

// String returns a lower-case name for the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// RepeatMode governs what happens when playback reaches the segment end.
type RepeatMode uint8

const (
	// RepeatOnce stops at the segment end and reports ended
	RepeatOnce RepeatMode = iota
	// RepeatLoop seeks back to the segment start and reports looped
	RepeatLoop
)

// String returns the configuration name of the mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOnce:
		return "once"
	case RepeatLoop:
		return "loop"
	default:
		return fmt.Sprintf("RepeatMode(%d)", uint8(r))
	}
}

// ParseRepeatMode maps a configuration name to a RepeatMode.
func ParseRepeatMode(name string) (RepeatMode, error) {
	switch name {
	case "", "once":
		return RepeatOnce, nil
	case "loop":
		return RepeatLoop, nil
	default:
		return RepeatOnce, fmt.Errorf("unknown repeat mode %q", name)
	}
}

// ItemStatus is the readiness reported by the transport for an item.
type ItemStatus uint8

const (
	// ItemStatusUnknown means the transport has not resolved the item yet
	ItemStatusUnknown ItemStatus = iota
	// ItemStatusReadyToPlay means the item is decodable
	ItemStatusReadyToPlay
	// ItemStatusFailed means the item cannot be played
	ItemStatusFailed
)

// Asset is the minimal view of a media source the controller needs.
// Two assets with the same Identity are treated as the same asset.
type Asset interface {
	Identity() string
	Duration() time.Duration
}

// Item is what the controller hands to the transport. When Composition is
// set every decoded frame must pass through it before presentation.
type Item struct {
	Asset       Asset
	Composition *video.Pipeline
}

// Transparent reports whether the item carries a composition pipeline.
func (i *Item) Transparent() bool {
	return i != nil && i.Composition != nil
}

// LoadRequest describes one load cycle.
type LoadRequest struct {
	Asset       Asset
	Transparent bool
	Repeat      RepeatMode
	Tint        *video.Tint
	AutoPlay    bool
}

// Options configures a Controller.
type Options struct {
	// Rate is the playback rate passed to the transport. Zero means 1.0.
	Rate float64

	// MaxSeekRetries caps automatic retries of a failed seek. Zero retries
	// until the seek succeeds or the session is torn down.
	MaxSeekRetries int

	// Pipeline is bound to transparent items. When nil a pipeline with
	// default settings is created.
	Pipeline *video.Pipeline
}

// BoundaryToken identifies the single live boundary subscription of a session.
type BoundaryToken struct {
	ID     uint64
	At     time.Duration
	cancel func()
}

type seekAction uint8

const (
	seekForPlay seekAction = iota
	seekForLoop
	seekForPause
)

func (a seekAction) String() string {
	switch a {
	case seekForPlay:
		return "play"
	case seekForLoop:
		return "loop"
	case seekForPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Session holds the state of one load cycle. It is owned by the controller
// goroutine; callers observe it through Snapshot.
type Session struct {
	ID          uuid.UUID
	Generation  uint64
	Asset       Asset
	Transparent bool
	Repeat      RepeatMode
	Tint        *video.Tint
	AutoPlay    bool
	Start       time.Duration
	End         time.Duration
	State       State

	seeking     bool
	seekID      uint64
	seekTarget  time.Duration
	seekAction  seekAction
	seekRetries int

	cancelStatus func()
	boundary     *BoundaryToken
}

// Snapshot is a point-in-time copy of the controller's session.
type Snapshot struct {
	SessionID   uuid.UUID
	Generation  uint64
	State       State
	Asset       string
	Transparent bool
	Repeat      RepeatMode
	Start       time.Duration
	End         time.Duration
	Seeking     bool
	// Boundary is the time of the live boundary subscription, or -1.
	Boundary time.Duration
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:   s.ID,
		Generation:  s.Generation,
		State:       s.State,
		Asset:       s.Asset.Identity(),
		Transparent: s.Transparent,
		Repeat:      s.Repeat,
		Start:       s.Start,
		End:         s.End,
		Seeking:     s.seeking,
		Boundary:    -1,
	}
	if s.boundary != nil {
		snap.Boundary = s.boundary.At
	}
	return snap
}
