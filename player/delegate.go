package player

// Delegate receives lifecycle notifications. Methods run on the controller
// goroutine and must not call Controller methods synchronously.
type Delegate interface {
	OnPlaybackStarted()
	OnLoop()
	OnPlaybackEnded()
	OnFailure(err error)
}

// NopDelegate ignores every notification. Embed it to implement a subset.
type NopDelegate struct{}

func (NopDelegate) OnPlaybackStarted() {}
func (NopDelegate) OnLoop()            {}
func (NopDelegate) OnPlaybackEnded()   {}
func (NopDelegate) OnFailure(error)    {}

// Callbacks adapts optional functions to the Delegate interface.
// Nil fields are skipped.
type Callbacks struct {
	Started func()
	Looped  func()
	Ended   func()
	Failed  func(err error)
}

func (c Callbacks) OnPlaybackStarted() {
	if c.Started != nil {
		c.Started()
	}
}

func (c Callbacks) OnLoop() {
	if c.Looped != nil {
		c.Looped()
	}
}

func (c Callbacks) OnPlaybackEnded() {
	if c.Ended != nil {
		c.Ended()
	}
}

func (c Callbacks) OnFailure(err error) {
	if c.Failed != nil {
		c.Failed(err)
	}
}
