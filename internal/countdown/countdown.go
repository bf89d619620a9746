// Package countdown runs the synchronized count that closes a ready check.
package countdown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/platform"
	"github.com/DoyleJ11/ready-check/internal/render"
)

const GoText = "GO!"

type Runner struct {
	messenger platform.Messenger
	clock     clockwork.Clock
	from      int
	tick      time.Duration
	log       *zap.Logger
}

func NewRunner(messenger platform.Messenger, clock clockwork.Clock, from int, tick time.Duration, log *zap.Logger) *Runner {
	if from < 1 {
		from = 1
	}
	return &Runner{
		messenger: messenger,
		clock:     clock,
		from:      from,
		tick:      tick,
		log:       log,
	}
}

// Run counts down on one message in channelID, then posts completion to the
// channel history.
func (r *Runner) Run(ctx context.Context, channelID, completion string) error {
	msg, err := r.messenger.Send(ctx, channelID, render.Text(strconv.Itoa(r.from)))
	if err != nil {
		return fmt.Errorf("send countdown: %w", err)
	}

	for n := r.from - 1; n >= 0; n-- {
		if err := Sleep(ctx, r.clock, r.tick); err != nil {
			return err
		}
		text := strconv.Itoa(n)
		if n == 0 {
			text = GoText
		}
		if _, err := r.messenger.Edit(ctx, channelID, msg.ID, render.Text(text)); err != nil {
			return fmt.Errorf("edit countdown: %w", err)
		}
	}

	if _, err := r.messenger.Send(ctx, channelID, render.History(completion, render.ThemeComplete)); err != nil {
		return fmt.Errorf("send countdown completion: %w", err)
	}

	r.log.Info("countdown completed",
		zap.String("channel_id", channelID),
		zap.Int("from", r.from))
	return nil
}

// Sleep waits d on clock, returning early with the context's error.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
