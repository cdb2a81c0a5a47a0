package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xero1425/xerobot/action"
)

// Robot holds the control loop instruments. It implements action.Observer
// and subsystem.FailureObserver.
type Robot struct {
	ticks        Counter
	overruns     Counter
	cycleSeconds Gauge
	cycleHist    Histogram
	mode         GaugeVec
	actionEvents CounterVec
	failures     CounterVec
	autoModes    CounterVec

	modes []string
}

// NewRobot registers the robot instruments with reg.
func NewRobot(reg Registry, modes []string) (*Robot, error) {
	var (
		r   = &Robot{modes: modes}
		err error
	)

	if r.ticks, err = reg.NewCounter(prometheus.CounterOpts{
		Name: "loop_ticks_total",
		Help: "Control loop iterations",
	}); err != nil {
		return nil, err
	}
	if r.overruns, err = reg.NewCounter(prometheus.CounterOpts{
		Name: "loop_overruns_total",
		Help: "Control loop iterations that took more than twice the period",
	}); err != nil {
		return nil, err
	}
	if r.cycleSeconds, err = reg.NewGauge(prometheus.GaugeOpts{
		Name: "loop_cycle_seconds",
		Help: "Duration of the last control loop iteration",
	}); err != nil {
		return nil, err
	}
	if r.cycleHist, err = reg.NewHistogram(prometheus.HistogramOpts{
		Name:    "loop_cycle_duration_seconds",
		Help:    "Distribution of control loop iteration durations",
		Buckets: []float64{.001, .0025, .005, .01, .015, .02, .03, .04, .08},
	}); err != nil {
		return nil, err
	}
	if r.mode, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "robot_mode",
		Help: "1 for the robot's current mode, 0 for the others",
	}, []string{"mode"}); err != nil {
		return nil, err
	}
	if r.actionEvents, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "action_events_total",
		Help: "Action lifecycle transitions by action kind",
	}, []string{"kind", "event"}); err != nil {
		return nil, err
	}
	if r.failures, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "subsystem_failures_total",
		Help: "Failures contained at a subsystem boundary",
	}, []string{"subsystem", "phase"}); err != nil {
		return nil, err
	}
	if r.autoModes, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_mode_selections_total",
		Help: "Autonomous routine selections by name",
	}, []string{"mode"}); err != nil {
		return nil, err
	}

	return r, nil
}

// ObserveTick records one loop iteration.
func (r *Robot) ObserveTick(cycle time.Duration, overrun bool) {
	r.ticks.Inc()
	r.cycleSeconds.Set(cycle.Seconds())
	r.cycleHist.Observe(cycle.Seconds())
	if overrun {
		r.overruns.Inc()
	}
}

// SetMode marks mode as current.
func (r *Robot) SetMode(mode fmt.Stringer) {
	current := mode.String()
	for _, m := range r.modes {
		v := 0.0
		if m == current {
			v = 1
		}
		r.mode.With(prometheus.Labels{"mode": m}).Set(v)
	}
}

// AutoModeSelected counts a routine selection.
func (r *Robot) AutoModeSelected(name string) {
	r.autoModes.With(prometheus.Labels{"mode": name}).Inc()
}

// ActionEvent implements action.Observer.
func (r *Robot) ActionEvent(kind string, event action.Event) {
	r.actionEvents.With(prometheus.Labels{"kind": kind, "event": event.String()}).Inc()
}

// SubsystemFailure implements subsystem.FailureObserver.
func (r *Robot) SubsystemFailure(subsystem, phase string) {
	r.failures.With(prometheus.Labels{"subsystem": subsystem, "phase": phase}).Inc()
}
