// Package event sketches the cancellable-event surface a plugin layer
// would hook into. Nothing dispatches these yet; the types pin down the
// contract before handlers exist.
package event

// Event is anything a handler can veto before the server applies it.
type Event interface {
	// SetCancelled marks the event as vetoed.
	SetCancelled(cancelled bool)
	// Cancelled reports whether a handler vetoed the event.
	Cancelled() bool
}

// Click distinguishes the two interaction buttons.
type Click bool

const (
	RightClick Click = false
	LeftClick  Click = true
)

// UserInteract fires when a player clicks in the world.
type UserInteract struct {
	cancelled bool
	click     Click
}

// NewUserInteract builds the event for one click.
func NewUserInteract(click Click) *UserInteract {
	return &UserInteract{click: click}
}

// Click returns which button the player used.
func (e *UserInteract) Click() Click { return e.click }

func (e *UserInteract) SetCancelled(cancelled bool) { e.cancelled = cancelled }

func (e *UserInteract) Cancelled() bool { return e.cancelled }
