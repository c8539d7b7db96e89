package player

import (
	"errors"
	"fmt"
)

// Sentinel errors for player package operations.
// These errors enable reliable error classification using errors.Is().

// Load errors.
var (
	// ErrNilAsset indicates a load request without an asset.
	ErrNilAsset = errors.New("asset cannot be nil")

	// ErrAssetUnavailable indicates the transport could not make the asset playable.
	ErrAssetUnavailable = errors.New("asset unavailable")
)

// Playback control errors.
var (
	// ErrNotLoaded indicates no asset is loaded.
	ErrNotLoaded = errors.New("no asset loaded")

	// ErrNotReady indicates the session is not in a state that accepts the request.
	ErrNotReady = errors.New("playback session not ready")

	// ErrAlreadyPlaying indicates play was requested while playing.
	ErrAlreadyPlaying = errors.New("playback already in progress")

	// ErrSeekInProgress indicates a seek is outstanding; the request was dropped.
	ErrSeekInProgress = errors.New("seek in progress")

	// ErrSeekFailed indicates a seek kept failing past the retry limit.
	ErrSeekFailed = errors.New("seek failed")

	// ErrInvalidRange indicates a play segment outside the asset.
	ErrInvalidRange = errors.New("invalid playback range")

	// ErrInvalidFraction indicates a pause fraction outside [0, 1].
	ErrInvalidFraction = errors.New("pause fraction must be within [0, 1]")
)

// Controller state errors.
var (
	// ErrControllerNotRunning indicates the controller has not been started.
	ErrControllerNotRunning = errors.New("controller is not running")

	// ErrControllerAlreadyRunning indicates the controller is already running.
	ErrControllerAlreadyRunning = errors.New("controller is already running")

	// ErrNilTransport indicates NewController was given no transport.
	ErrNilTransport = errors.New("transport cannot be nil")
)

// AssetError reports that an asset failed at the transport level. It ends
// the load cycle.
type AssetError struct {
	Identity string
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Identity, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}
