package subsystem

import "github.com/xero1425/xerobot/action"

// Status is an immutable view of one subsystem, taken on the loop thread
// and safe to hand to other goroutines.
type Status struct {
	Name           string   `json:"name"`
	Path           string   `json:"path"`
	Role           string   `json:"role,omitempty"`
	Busy           bool     `json:"busy"`
	RunningDefault bool     `json:"running_default"`
	Action         string   `json:"action,omitempty"`
	DefaultAction  string   `json:"default_action,omitempty"`
	Children       []Status `json:"children,omitempty"`
}

// Snapshot captures the status of s and its descendants. It must be called
// from the loop goroutine.
func (s *Subsystem) Snapshot() Status {
	st := Status{
		Name:           s.name,
		Path:           s.Path(),
		Role:           s.role.String(),
		Busy:           s.IsBusy(),
		RunningDefault: s.IsRunningDefault(),
	}
	st.Action = s.actionText.text(s.action, false)
	st.DefaultAction = s.defaultText.text(s.defaultAction, true)
	for _, c := range s.children {
		st.Children = append(st.Children, c.Snapshot())
	}
	return st
}

// describeCache holds the rendered description of one action instance.
// An action's tree is fixed once it is built, so the text only has to be
// rendered again when the slot holds a different action.
type describeCache struct {
	act  action.Action
	desc string
}

func (c *describeCache) text(a action.Action, headOnly bool) string {
	if a == nil {
		return ""
	}
	if a != c.act {
		c.act = a
		c.desc = a.Describe(0)
		if headOnly {
			c.desc = firstLine(c.desc)
		}
	}
	return c.desc
}

// Find returns the status at path (same form as Subsystem.Path), or nil.
func (st *Status) Find(path string) *Status {
	if st.Path == path {
		return st
	}
	for i := range st.Children {
		if found := st.Children[i].Find(path); found != nil {
			return found
		}
	}
	return nil
}
