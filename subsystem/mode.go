package subsystem

// Mode is the robot operating mode.
type Mode int

const (
	// Disabled is the state between matches and before enable.
	Disabled Mode = iota
	// Autonomous is the pre-programmed period at the start of a match.
	Autonomous
	// Teleop is the driver-controlled period.
	Teleop
	// Test is the pit test mode.
	Test
)

// String returns a human-readable representation of the Mode
func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case Autonomous:
		return "autonomous"
	case Teleop:
		return "teleop"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name back to a Mode.
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{Disabled, Autonomous, Teleop, Test} {
		if m.String() == s {
			return m, true
		}
	}
	return Disabled, false
}

// Role marks a subsystem that the rest of the robot needs to find directly.
type Role int

const (
	// RoleNone is an ordinary subsystem.
	RoleNone Role = iota
	// RoleDriveBase marks the single drivebase.
	RoleDriveBase
	// RoleOI marks the single operator interface subsystem.
	RoleOI
)

// String returns a human-readable representation of the Role
func (r Role) String() string {
	switch r {
	case RoleNone:
		return ""
	case RoleDriveBase:
		return "drivebase"
	case RoleOI:
		return "oi"
	default:
		return "unknown"
	}
}
