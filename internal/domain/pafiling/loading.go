package pafiling

import (
	"context"
	"time"
)

// LoadingStep is one stage of the pre-form loading screen.
type LoadingStep struct {
	Label    string        `json:"label"`
	Duration time.Duration `json:"-"`
}

// LoadingSteps are shown in order before the form opens.
var LoadingSteps = []LoadingStep{
	{"Fetching patient information...", 1500 * time.Millisecond},
	{"Fetching provider information...", 1200 * time.Millisecond},
	{"Fetching diagnosis information...", 1300 * time.Millisecond},
	{"Fetching procedures information...", 1400 * time.Millisecond},
	{"Fetching attachment information...", 1200 * time.Millisecond},
	{"Preparing authorization form...", 800 * time.Millisecond},
}

// SettleDelay elapses after the last step before the form opens.
const SettleDelay = 300 * time.Millisecond

// Progress reports the loading screen position.
type Progress struct {
	Steps     []string `json:"steps"`
	Current   int      `json:"current"`
	Completed int      `json:"completed"`
}

func newProgress() Progress {
	labels := make([]string, len(LoadingSteps))
	for i, s := range LoadingSteps {
		labels[i] = s.Label
	}
	return Progress{Steps: labels}
}

func scaled(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}

// runLoading walks the loading steps, calling onStep as each one starts
// and completes. It returns ctx.Err() if cancelled before the settle delay
// elapses.
func runLoading(ctx context.Context, scale float64, onStep func(current, completed int)) error {
	for i, step := range LoadingSteps {
		onStep(i, i)
		if err := sleep(ctx, scaled(step.Duration, scale)); err != nil {
			return err
		}
	}
	onStep(len(LoadingSteps)-1, len(LoadingSteps))
	return sleep(ctx, scaled(SettleDelay, scale))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
