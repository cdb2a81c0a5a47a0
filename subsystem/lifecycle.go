package subsystem

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/xero1425/xerobot/action"
)

// ComputeState reads hardware state for the whole subtree, children before
// their parent.
func (s *Subsystem) ComputeState() {
	for _, c := range s.children {
		c.ComputeState()
	}
	if s.stateFn != nil {
		_ = s.contain("compute_state", nil, s.stateFn)
	}
}

// Run advances this subsystem's action, then each child's.
func (s *Subsystem) Run() {
	s.runAction()
	for _, c := range s.children {
		c.Run()
	}
}

// Init is called for the whole tree on each mode transition.
func (s *Subsystem) Init(mode Mode) {
	if s.initFn != nil {
		_ = s.contain("init", nil, func() error { return s.initFn(mode) })
	}
	for _, c := range s.children {
		c.Init(mode)
	}
}

// Reset hard-stops every action in the subtree and re-arms the defaults so
// they start on the next Run.
func (s *Subsystem) Reset() {
	s.stopOwn()
	s.defaultFinished = false
	if s.resetFn != nil {
		_ = s.contain("reset", nil, func() error {
			s.resetFn()
			return nil
		})
	}
	for _, c := range s.children {
		c.Reset()
	}
}

// contain runs fn and stops any error or panic it raises at this
// subsystem. A failing action is canceled and cleared from the slot.
func (s *Subsystem) contain(phase string, act action.Action, fn func() error) (err error) {
	var stack []byte
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			stack = debug.Stack()
		}
		if err == nil {
			return
		}

		attrs := []any{"phase", phase, "error", err}
		if act != nil {
			attrs = append(attrs, "action", firstLine(act.Describe(0)), "action_id", act.ID())
			if s.action == act {
				s.action = nil
			}
			if act == s.defaultAction {
				// A broken default is not retried every tick.
				s.defaultFinished = true
			}
			s.safeCancel(act)
		}
		if stack != nil {
			attrs = append(attrs, "stack", string(stack))
		}
		s.logger.Error("subsystem failure contained", attrs...)
		if o := s.root().observer; o != nil {
			o.SubsystemFailure(s.name, phase)
		}
	}()
	return fn()
}

func (s *Subsystem) safeCancel(act action.Action) {
	if act == nil || act.IsDone() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action cancel panicked",
				"action", firstLine(act.Describe(0)),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	act.Cancel()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
