// Package automodes builds the simulated robot: its subsystem tree, its
// autonomous routines and a scripted teleop driver.
//
// The tree is
//
//	robot
//	├── drivebase
//	└── manipulator
//	    ├── arm
//	    └── grabber
//
// Every mechanism holds position as its default action.
package automodes

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/motor"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

//go:embed defaults.yaml
var defaultSettings []byte

// DefaultSettings returns the settings the simulated robot ships with.
func DefaultSettings() (*settings.Settings, error) {
	return settings.Parse(defaultSettings)
}

// Tree is the simulated robot's subsystem tree.
type Tree struct {
	Root        *subsystem.Subsystem
	DriveBase   *motor.Motor
	Manipulator *subsystem.Subsystem
	Arm         *motor.Motor
	Grabber     *motor.Motor

	settings *settings.Settings
}

// NewTree builds the tree from s. Every mechanism needs its
// "subsystems.<name>" block.
func NewTree(env *action.Env, s *settings.Settings) (*Tree, error) {
	t := &Tree{
		Root:        subsystem.New(env, "robot"),
		Manipulator: subsystem.New(env, "manipulator"),
		settings:    s,
	}

	var err error
	if t.DriveBase, err = newMechanism(env, s, "drivebase", subsystem.WithRole(subsystem.RoleDriveBase)); err != nil {
		return nil, err
	}
	if t.Arm, err = newMechanism(env, s, "arm"); err != nil {
		return nil, err
	}
	if t.Grabber, err = newMechanism(env, s, "grabber"); err != nil {
		return nil, err
	}

	for _, link := range []struct{ parent, child *subsystem.Subsystem }{
		{t.Root, t.DriveBase.Subsystem},
		{t.Root, t.Manipulator},
		{t.Manipulator, t.Arm.Subsystem},
		{t.Manipulator, t.Grabber.Subsystem},
	} {
		if err := link.parent.AddChild(link.child); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newMechanism(env *action.Env, s *settings.Settings, name string, opts ...subsystem.Option) (*motor.Motor, error) {
	cfg, err := motor.ConfigFromSettings(s, name)
	if err != nil {
		return nil, fmt.Errorf("subsystem %s: %w", name, err)
	}
	m := motor.New(env, name, cfg, s, opts...)
	m.SetDefaultAction(motor.NewHold(m))
	return m, nil
}

// seconds reads a duration stored in seconds.
func (t *Tree) seconds(key string) (time.Duration, error) {
	v, err := t.settings.Double(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

// gotos builds a named move for each position, in order.
func gotos(m *motor.Motor, positions ...string) ([]*motor.GotoAction, error) {
	out := make([]*motor.GotoAction, 0, len(positions))
	for _, p := range positions {
		g, err := motor.NewGotoNamed(m, p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
