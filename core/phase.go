package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/skekre98/workbench/reporter"
)

// Phase names a lifecycle hook run across contributions.
type Phase string

const (
	PhaseInitialize  Phase = "initialize"
	PhaseOnStart     Phase = "onStart"
	PhaseOnDidStart  Phase = "onDidStart"
	PhaseOnWillStop  Phase = "onWillStop"
	PhaseOnStop      Phase = "onStop"
	PhaseOnReconnect Phase = "onReconnect"
)

// PhaseResult is the outcome of one contribution in a phase run.
type PhaseResult struct {
	Contribution string
	Phase        Phase
	Skipped      bool
	Duration     time.Duration
	Err          error
}

// PhaseError attributes a failure to its phase and contribution.
type PhaseError struct {
	Phase        Phase
	Contribution string
	Err          error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("contribution %s#%s: %v", e.Contribution, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

type phaseFunc func(ctx context.Context, app *App) error

func lookupPhase(c Contribution, p Phase) (phaseFunc, bool) {
	switch p {
	case PhaseInitialize:
		if v, ok := c.(Initializer); ok {
			return v.Initialize, true
		}
	case PhaseOnStart:
		if v, ok := c.(Starter); ok {
			return v.OnStart, true
		}
	case PhaseOnDidStart:
		if v, ok := c.(DidStarter); ok {
			return v.OnDidStart, true
		}
	case PhaseOnStop:
		if v, ok := c.(Stopper); ok {
			return v.OnStop, true
		}
	case PhaseOnReconnect:
		if v, ok := c.(Reconnector); ok {
			return v.OnReconnect, true
		}
	}
	return nil, false
}

// call runs fn and turns a panic into an error.
func call(ctx context.Context, app *App, fn phaseFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, app)
}

// RunPhase invokes phase on every contribution that implements it, all at once,
// and waits for every invocation to settle.
//
// The result slice lines up with contributions:
//   - Skipped is set for contributions without the phase hook
//   - Err holds a *PhaseError for a hook that failed or panicked
//   - Duration is set for a hook that succeeded
//
// Failures are logged under "Could not run contribution#<phase>" and never
// abort siblings; RunPhase itself never fails. Successful invocations are timed
// with the registered reporter under "<contribution>.<phase>".
//
// Example:
//
//	for _, res := range app.RunPhase(ctx, app.Contributions(), core.PhaseOnStart) {
//	    if res.Err != nil {
//	        failed = append(failed, res.Contribution)
//	    }
//	}
func (a *App) RunPhase(ctx context.Context, contributions []Contribution, phase Phase) []PhaseResult {
	results := make([]PhaseResult, len(contributions))
	var wg sync.WaitGroup

	for i, c := range contributions {
		name := ContributionName(c)
		results[i] = PhaseResult{Contribution: name, Phase: phase}

		fn, ok := lookupPhase(c, phase)
		if !ok {
			results[i].Skipped = true
			continue
		}

		wg.Add(1)
		go func(res *PhaseResult) {
			defer wg.Done()
			timer := a.reporter().Time(reporter.Measure)
			if err := call(ctx, a, fn); err != nil {
				res.Err = &PhaseError{Phase: phase, Contribution: name, Err: err}
				a.log().Error("Could not run contribution#"+string(phase), "contribution", name, "error", err)
				return
			}
			res.Duration = timer.TimeEnd(name + "." + string(phase))
		}(&results[i])
	}

	wg.Wait()
	return results
}
