// Package supervisor implements the mode state machine that arbitrates
// between the bridge and clone loops: three button edges drive
// transitions, read by the long-running loops at their own iteration
// boundaries. Variables are written by the button handlers (and done also
// by the clone loop through SetDone) and read by the loops, so each is
// backed by an atomic of narrow width rather than a lock.
package supervisor

import (
	"log"
	"os"
	"sync/atomic"
)

// MainMenu selects which long-running loop owns the controller.
type MainMenu int32

const (
	Bridge MainMenu = iota
	Clone
)

func (m MainMenu) String() string {
	if m == Clone {
		return "CLONE"
	}
	return "BRIDGE"
}

// Submode selects the clone engine's current pass kind.
type Submode int32

const (
	Read Submode = iota
	Write
)

func (s Submode) String() string {
	if s == Write {
		return "WRITE"
	}
	return "READ"
}

// Supervisor holds the shared mode state and dispatches button edges per
// the transition table: B_MENU always enters CLONE/READ; B_OK advances
// CLONE/READ to CLONE/WRITE once a read pass has completed, or otherwise
// returns to BRIDGE; B_PROFILE triggers a dump without changing mode.
type Supervisor struct {
	mainMenu atomic.Int32
	submode  atomic.Int32
	done     atomic.Bool

	// Dump is invoked synchronously by OnProfile. A nil Dump is a no-op.
	Dump func()

	Logger *log.Logger
}

// New constructs a Supervisor in BRIDGE mode.
func New(dump func()) *Supervisor {
	return &Supervisor{
		Dump:   dump,
		Logger: log.New(os.Stderr, "[supervisor] ", log.LstdFlags),
	}
}

// MainMenu returns the current top-level mode.
func (s *Supervisor) MainMenu() MainMenu {
	return MainMenu(s.mainMenu.Load())
}

// Submode returns the current clone submode. Meaningful only while
// MainMenu() == Clone.
func (s *Supervisor) Submode() Submode {
	return Submode(s.submode.Load())
}

// Done reports whether the active (or most recent) read pass captured
// every block.
func (s *Supervisor) Done() bool {
	return s.done.Load()
}

// SetDone latches the clone engine's completion result. The clone loop
// calls this after a read pass returns.
func (s *Supervisor) SetDone(done bool) {
	s.done.Store(done)
}

// OnMenu handles a B_MENU rising edge: unconditionally enters
// CLONE/READ, starting a fresh read pass (clearing any stale done latch
// from a previous cycle).
func (s *Supervisor) OnMenu() {
	s.mainMenu.Store(int32(Clone))
	s.submode.Store(int32(Read))
	s.done.Store(false)
	s.Logger.Printf("-> CLONE/READ")
}

// OnOK handles a B_OK rising edge: advances a completed read to WRITE,
// otherwise returns to BRIDGE.
func (s *Supervisor) OnOK() {
	if s.MainMenu() == Clone && s.Submode() == Read && s.Done() {
		s.submode.Store(int32(Write))
		s.Logger.Printf("-> CLONE/WRITE")
		return
	}
	s.mainMenu.Store(int32(Bridge))
	s.Logger.Printf("-> BRIDGE")
}

// OnProfile handles a B_PROFILE rising edge: fires Dump without
// otherwise touching the mode state.
func (s *Supervisor) OnProfile() {
	if s.Dump != nil {
		s.Dump()
	}
}
