package subsystem

import (
	"fmt"

	"github.com/xero1425/xerobot/action"
)

// Action returns the current action, which may be the default action, or
// nil when idle.
func (s *Subsystem) Action() action.Action {
	return s.action
}

// DefaultAction returns the default action, or nil.
func (s *Subsystem) DefaultAction() action.Action {
	return s.defaultAction
}

// IsBusy reports whether the subsystem is running an action that is neither
// done nor its default action.
func (s *Subsystem) IsBusy() bool {
	return s.action != nil && !s.action.IsDone() && s.action != s.defaultAction
}

// IsAnyParentBusy reports whether any ancestor is busy.
func (s *Subsystem) IsAnyParentBusy() bool {
	for p := s.parent; p != nil; p = p.parent {
		if p.IsBusy() {
			return true
		}
	}
	return false
}

// IsRunningDefault reports whether the default action is the active action.
func (s *Subsystem) IsRunningDefault() bool {
	return s.action != nil && s.action == s.defaultAction && !s.action.IsDone()
}

// SetAction replaces the current action with a. Assigning nil clears the
// slot. The current action and every action below this subsystem are
// canceled first, without restarting any defaults.
//
// The call is rejected, with no change of state, when a is the default
// action, or when an ancestor is busy and parentBusyOK is false. If a fails
// inside Start the failure is contained and reported as ErrActionFailed.
func (s *Subsystem) SetAction(a action.Action, parentBusyOK bool) error {
	if a != nil && a == s.defaultAction {
		return fmt.Errorf("subsystem %q: %w", s.name, ErrDefaultAction)
	}
	if !parentBusyOK && s.IsAnyParentBusy() {
		s.logger.Debug("action rejected, parent busy", "action", describe(a))
		return fmt.Errorf("subsystem %q: %w", s.name, ErrParentBusy)
	}

	s.stopAll()
	s.defaultFinished = false
	s.action = a
	if a == nil {
		return nil
	}

	s.logger.Debug("action assigned", "action", describe(a))
	if err := s.contain("start", a, a.Start); err != nil {
		return fmt.Errorf("subsystem %q: %w: %w", s.name, ErrActionFailed, err)
	}
	return nil
}

// SetDefaultAction installs a new default action. An outgoing default that
// is running is canceled; the new default starts at once if the subsystem
// is idle.
func (s *Subsystem) SetDefaultAction(a action.Action) {
	if s.action != nil && s.action == s.defaultAction {
		old := s.action
		s.action = nil
		s.safeCancel(old)
	}
	s.defaultAction = a
	s.defaultFinished = false
	if s.action == nil && a != nil {
		s.startDefault(false)
	}
}

// CancelAction cancels the current action and, if there is a default,
// starts it immediately.
func (s *Subsystem) CancelAction() {
	if s.action != nil {
		old := s.action
		s.action = nil
		s.safeCancel(old)
		s.logger.Debug("action canceled", "action", describe(old))
	}
	if s.defaultAction != nil {
		s.defaultFinished = false
		s.startDefault(false)
	}
}

// runAction is the control step for this subsystem's own slot.
func (s *Subsystem) runAction() {
	if act := s.action; act != nil {
		if !act.IsDone() {
			if err := s.contain("run", act, act.Run); err != nil {
				return
			}
			if act.IsDone() && s.action == act {
				s.finish(act)
			}
			// The default resumes on the next tick, not the one in
			// which the assigned action finished.
			return
		}
		// Finished before this tick, inside its own Start or by cancel.
		s.finish(act)
	}

	if s.action == nil && s.defaultAction != nil && !s.defaultFinished {
		s.startDefault(true)
	}
}

func (s *Subsystem) finish(act action.Action) {
	if act == s.defaultAction {
		s.defaultFinished = true
	}
	s.action = nil
	s.logger.Debug("action finished", "action", describe(act), "canceled", act.IsCanceled())
}

// startDefault makes the default action current and starts it. When
// stopChildren is set, leftover child actions are hard-stopped first.
func (s *Subsystem) startDefault(stopChildren bool) {
	if stopChildren {
		for _, c := range s.children {
			c.stopAll()
		}
	}
	def := s.defaultAction
	s.action = def
	if err := s.contain("start", def, def.Start); err != nil {
		return
	}
	if def.IsDone() {
		s.defaultFinished = true
		s.action = nil
	}
}

// stopAll cancels this subsystem's action and every descendant's, leaving
// all of them idle. Defaults are not restarted.
func (s *Subsystem) stopAll() {
	s.stopOwn()
	for _, c := range s.children {
		c.stopAll()
	}
}

func (s *Subsystem) stopOwn() {
	if s.action == nil {
		return
	}
	old := s.action
	s.action = nil
	s.safeCancel(old)
}

func describe(a action.Action) string {
	if a == nil {
		return "<none>"
	}
	return a.Describe(0)
}
