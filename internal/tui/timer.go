package tui

import "time"

// timerState tracks the current state of the timer.
type timerState int

const (
	timerStopped timerState = iota
	timerRunning
	timerPaused
)

// timerModel is a pausable stopwatch. It measures time spent in a ritual and
// counts down the current step.
type timerModel struct {
	now func() time.Time

	state     timerState
	startTime time.Time
	pausedAt  time.Time
	pauseGap  time.Duration

	// step countdown
	stepStart    time.Time
	stepGap      time.Duration
	stepDuration time.Duration
}

func newTimerModel() timerModel {
	return timerModel{now: time.Now, state: timerStopped}
}

func (t *timerModel) start(step time.Duration) {
	now := t.now()
	t.state = timerRunning
	t.startTime = now
	t.pauseGap = 0
	t.resetStep(step)
}

// resetStep restarts the countdown for a new step.
func (t *timerModel) resetStep(step time.Duration) {
	now := t.now()
	if t.state == timerPaused {
		t.pauseGap += now.Sub(t.pausedAt)
		t.pausedAt = now
	}
	t.stepStart = now
	t.stepGap = 0
	t.stepDuration = step
}

func (t *timerModel) stop() time.Duration {
	if t.state == timerStopped {
		return 0
	}
	d := t.currentElapsed()
	t.state = timerStopped
	return d
}

func (t *timerModel) pause() {
	if t.state != timerRunning {
		return
	}
	t.state = timerPaused
	t.pausedAt = t.now()
}

func (t *timerModel) resume() {
	if t.state != timerPaused {
		return
	}
	gap := t.now().Sub(t.pausedAt)
	t.pauseGap += gap
	t.stepGap += gap
	t.state = timerRunning
}

func (t *timerModel) toggle() {
	switch t.state {
	case timerRunning:
		t.pause()
	case timerPaused:
		t.resume()
	}
}

func (t timerModel) running() bool {
	return t.state != timerStopped
}

func (t timerModel) paused() bool {
	return t.state == timerPaused
}

func (t timerModel) currentElapsed() time.Duration {
	switch t.state {
	case timerStopped:
		return 0
	case timerPaused:
		return t.pausedAt.Sub(t.startTime) - t.pauseGap
	}
	return t.now().Sub(t.startTime) - t.pauseGap
}

// stepRemaining is what is left of the current step's countdown.
func (t timerModel) stepRemaining() time.Duration {
	if t.state == timerStopped {
		return 0
	}
	end := t.now()
	if t.state == timerPaused {
		end = t.pausedAt
	}
	left := t.stepDuration - (end.Sub(t.stepStart) - t.stepGap)
	if left < 0 {
		return 0
	}
	return left
}
