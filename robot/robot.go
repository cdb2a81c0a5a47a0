// Package robot drives the subsystem tree from a fixed-period control loop.
//
// Every tick reads hardware state for the whole tree, runs the controller
// for the current mode, then runs every subsystem's action. Mode changes
// cancel the previous controller and reset the tree. The loop is
// single-threaded; other goroutines observe it through SnapshotStore and
// request mode changes with RequestMode.
package robot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/history"
	"github.com/xero1425/xerobot/subsystem"
)

// DefaultPeriod is the control loop period.
const DefaultPeriod = 20 * time.Millisecond

const noRequest = -1

// Controller drives the robot while it is enabled in one mode.
type Controller interface {
	Run()
	Cancel()
}

// Instruments receives loop measurements. *metrics.Robot implements it.
type Instruments interface {
	ObserveTick(cycle time.Duration, overrun bool)
	SetMode(mode fmt.Stringer)
	AutoModeSelected(name string)
	SubsystemFailure(subsystem, phase string)
}

// Robot owns the subsystem tree and the controllers that command it.
type Robot struct {
	env         *action.Env
	logger      *slog.Logger
	root        *subsystem.Subsystem
	auto        *auto.Controller
	selector    auto.Selector
	teleop      Controller
	period      time.Duration
	now         func() time.Time
	snapshots   *SnapshotStore
	instruments Instruments
	history     history.Store

	requested atomic.Int32

	mode      subsystem.Mode
	modeSet   bool
	tick      uint64
	overruns  uint64
	lastCycle time.Duration
	current   history.Period

	selectFailed bool
	failedIndex  int
}

// Option configures a Robot.
type Option func(*Robot)

// WithPeriod sets the control loop period.
func WithPeriod(d time.Duration) Option {
	return func(r *Robot) {
		if d > 0 {
			r.period = d
		}
	}
}

// WithSelector sets where the autonomous routine index is read from while
// the robot is disabled.
func WithSelector(s auto.Selector) Option {
	return func(r *Robot) {
		r.selector = s
	}
}

// WithTeleop sets the controller run during Teleop.
func WithTeleop(c Controller) Option {
	return func(r *Robot) {
		r.teleop = c
	}
}

// WithInstruments reports loop measurements to i.
func WithInstruments(i Instruments) Option {
	return func(r *Robot) {
		r.instruments = i
	}
}

// WithHistory records every finished mode period in s.
func WithHistory(s history.Store) Option {
	return func(r *Robot) {
		r.history = s
	}
}

// WithWallClock replaces time.Now for period records and snapshot stamps.
func WithWallClock(now func() time.Time) Option {
	return func(r *Robot) {
		r.now = now
	}
}

// New creates a robot around root. The robot installs itself as the tree's
// failure observer.
func New(env *action.Env, root *subsystem.Subsystem, autoController *auto.Controller, opts ...Option) *Robot {
	r := &Robot{
		env:       env,
		logger:    env.Logger.With("component", "robot"),
		root:      root,
		auto:      autoController,
		period:    DefaultPeriod,
		now:       time.Now,
		snapshots: NewSnapshotStore(),
	}
	r.requested.Store(noRequest)
	for _, opt := range opts {
		opt(r)
	}
	root.SetFailureObserver(r)
	return r
}

// Root returns the top of the subsystem tree.
func (r *Robot) Root() *subsystem.Subsystem {
	return r.root
}

// Period returns the control loop period.
func (r *Robot) Period() time.Duration {
	return r.period
}

// Snapshots returns the store the loop publishes to.
func (r *Robot) Snapshots() *SnapshotStore {
	return r.snapshots
}

// AutoModes lists the autonomous routines. Safe from any goroutine.
func (r *Robot) AutoModes() []auto.ModeInfo {
	if r.auto == nil {
		return nil
	}
	return r.auto.Available()
}

// Mode returns the current mode. Loop goroutine only.
func (r *Robot) Mode() subsystem.Mode {
	return r.mode
}

// Ticks returns the number of ticks run so far. Loop goroutine only.
func (r *Robot) Ticks() uint64 {
	return r.tick
}

// RequestMode asks the loop to switch to mode at the start of its next
// tick. Safe from any goroutine; the latest request wins.
func (r *Robot) RequestMode(mode subsystem.Mode) {
	r.requested.Store(int32(mode))
}

// SetMode switches modes immediately. The previous controller is canceled,
// then the tree is reset and initialized for the new mode. Setting the
// current mode again does nothing. Loop goroutine only.
func (r *Robot) SetMode(mode subsystem.Mode) {
	if r.modeSet && mode == r.mode {
		return
	}
	if r.modeSet {
		if c := r.controller(); c != nil {
			c.Cancel()
		}
	}
	r.closePeriod()

	prev := r.mode
	r.mode, r.modeSet = mode, true
	r.root.Reset()
	r.root.Init(mode)

	switch mode {
	case subsystem.Autonomous:
		r.pollSelector()
	case subsystem.Test:
		r.selectAuto(auto.TestModeIndex)
	}

	r.current = history.Period{Mode: mode.String(), StartedAt: r.now()}
	r.logger.Info("mode change", "from", prev, "to", mode)
	if r.instruments != nil {
		r.instruments.SetMode(mode)
	}
}

// Tick runs one control loop iteration and publishes a snapshot.
func (r *Robot) Tick() {
	r.step()
	r.publish()
}

func (r *Robot) step() {
	if m := r.requested.Swap(noRequest); m != noRequest {
		r.SetMode(subsystem.Mode(m))
	}
	if !r.modeSet {
		r.SetMode(subsystem.Disabled)
	}

	r.tick++
	r.current.Ticks++

	if r.mode == subsystem.Disabled {
		r.pollSelector()
	}

	r.root.ComputeState()
	if c := r.controller(); c != nil {
		c.Run()
	}
	r.root.Run()
}

// Execute runs the loop every period until ctx is done, then shuts down.
// Iterations slower than the period log a warning; slower than twice the
// period log an error and count as an overrun.
func (r *Robot) Execute(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("control loop started", "period", r.period)
	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			r.logger.Info("control loop stopped", "ticks", r.tick, "overruns", r.overruns)
			return nil
		case <-ticker.C:
			start := time.Now()
			r.step()
			r.recordCycle(time.Since(start))
			r.publish()
		}
	}
}

// Shutdown cancels the active controller, stops every action and records
// the final period. Loop goroutine only.
func (r *Robot) Shutdown() {
	if !r.modeSet {
		return
	}
	if c := r.controller(); c != nil {
		c.Cancel()
	}
	r.root.Reset()
	r.closePeriod()
	r.current = history.Period{}
	r.publish()
}

// SubsystemFailure implements subsystem.FailureObserver.
func (r *Robot) SubsystemFailure(name, phase string) {
	r.current.Failures = append(r.current.Failures, history.Failure{
		Subsystem: name,
		Phase:     phase,
		Tick:      r.tick,
	})
	if r.instruments != nil {
		r.instruments.SubsystemFailure(name, phase)
	}
}

func (r *Robot) recordCycle(cycle time.Duration) {
	r.lastCycle = cycle
	overrun := cycle > 2*r.period
	if cycle > r.period {
		r.logger.Warn("control loop cycle time exceeds period", "cycle", cycle, "period", r.period)
		if overrun {
			r.logger.Error("control loop cycle time exceeds twice the period", "cycle", cycle, "period", r.period)
			r.overruns++
			r.current.Overruns++
		}
	}
	if r.instruments != nil {
		r.instruments.ObserveTick(cycle, overrun)
	}
}

func (r *Robot) controller() Controller {
	switch r.mode {
	case subsystem.Autonomous, subsystem.Test:
		if r.auto != nil {
			return r.auto
		}
	case subsystem.Teleop:
		return r.teleop
	}
	return nil
}

func (r *Robot) pollSelector() {
	if r.selector == nil {
		return
	}
	r.selectAuto(r.selector.AutoModeIndex())
}

// selectAuto logs a failed selection once per index, not once per tick.
func (r *Robot) selectAuto(index int) {
	if r.auto == nil {
		return
	}
	before := r.auto.Current()
	if err := r.auto.Select(index); err != nil {
		if !r.selectFailed || r.failedIndex != index {
			r.logger.Warn("auto mode selection failed", "index", index, "error", err)
		}
		r.selectFailed, r.failedIndex = true, index
		return
	}
	r.selectFailed = false
	if m := r.auto.Current(); m != before && m != nil && r.instruments != nil {
		r.instruments.AutoModeSelected(m.Name())
	}
}

func (r *Robot) closePeriod() {
	if r.current.StartedAt.IsZero() {
		return
	}
	r.current.EndedAt = r.now()
	if r.auto != nil && (r.mode == subsystem.Autonomous || r.mode == subsystem.Test) {
		if m := r.auto.Current(); m != nil {
			r.current.AutoMode = m.Name()
		}
	}
	if r.history == nil {
		return
	}
	if err := r.history.Save(r.current); err != nil {
		r.logger.Warn("failed to record mode period", "mode", r.current.Mode, "error", err)
	}
}

func (r *Robot) publish() {
	snap := Snapshot{
		Tick:       r.tick,
		Mode:       r.mode.String(),
		CycleTime:  r.lastCycle,
		Overruns:   r.overruns,
		Subsystems: r.root.Snapshot(),
		UpdatedAt:  r.now(),
	}
	if r.auto != nil {
		if m := r.auto.Current(); m != nil {
			snap.AutoMode = m.Name()
			if index, ok := r.auto.Selected(); ok {
				snap.AutoIndex = &index
			}
		}
		snap.AutoActive = r.auto.IsRunning()
	}
	r.snapshots.Set(snap)
}
