// Package auto selects and drives the robot's autonomous routine.
//
// An autonomous routine is a Mode, a named sequence whose steps are usually
// Dispatch actions handing work to subsystems. The Controller holds one
// selected Mode at a time, chosen by index from a Selector, and advances it
// once per loop tick while the robot is in autonomous.
package auto

import (
	"strings"
	"sync/atomic"

	"github.com/xero1425/xerobot/action"
)

// Mode is a named autonomous routine.
type Mode struct {
	*action.Sequence
}

// NewMode creates a routine that runs children in order.
func NewMode(env *action.Env, name string, children ...action.Action) *Mode {
	return &Mode{Sequence: action.NewSequence(env, name, children...)}
}

// Describe renders the routine with its steps.
func (m *Mode) Describe(indent int) string {
	return strings.Replace(m.Sequence.Describe(indent), "Sequence", "AutoMode", 1)
}

// Builder constructs a fresh instance of a routine. Build is called again
// every time the routine is selected, so each run starts from new actions.
type Builder struct {
	Name  string
	Build func(env *action.Env) (*Mode, error)
}

// Selector reports the routine the drive team picked. Negative values
// select the test routine.
type Selector interface {
	AutoModeIndex() int
}

// StaticSelector is a Selector whose value is set programmatically, from a
// config file or the diagnostics server.
type StaticSelector struct {
	index atomic.Int64
}

// NewStaticSelector returns a selector preset to index.
func NewStaticSelector(index int) *StaticSelector {
	s := &StaticSelector{}
	s.Set(index)
	return s
}

// Set changes the selected index. It is safe to call from any goroutine.
func (s *StaticSelector) Set(index int) {
	s.index.Store(int64(index))
}

// AutoModeIndex implements Selector.
func (s *StaticSelector) AutoModeIndex() int {
	return int(s.index.Load())
}
