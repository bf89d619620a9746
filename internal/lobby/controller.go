package lobby

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/countdown"
	"github.com/DoyleJ11/ready-check/internal/engine"
	"github.com/DoyleJ11/ready-check/internal/events"
	"github.com/DoyleJ11/ready-check/internal/render"
)

const (
	alertText      = "Ready up! Still waiting on: "
	hereWeGoText   = "Here we go! "
	completionText = "The countdown successfully completed for:\n"
)

func (l *Lobby) initialize(ctx context.Context, initiatorID string) error {
	desc := fmt.Sprintf("A ready check lobby was initiated by %s.", render.Mention(initiatorID))
	if others := l.state.IDs()[1:]; len(others) > 0 {
		desc += "\n\nOther participants: " + render.Mentions(others)
	}
	if err := l.announce(ctx, desc, render.ThemeInitiate); err != nil {
		return err
	}
	if err := countdown.Sleep(ctx, l.deps.Clock, l.deps.SettleDelay); err != nil {
		return err
	}
	if err := l.showView(ctx); err != nil {
		return err
	}
	l.log.Info("lobby opened", zap.Strings("participants", l.state.IDs()))
	l.publish(events.TypeOpened, initiatorID, "")
	return nil
}

// apply runs cmd through the engine and keeps the new table on success.
func (l *Lobby) apply(cmd engine.Command) ([]engine.Event, error) {
	evts, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		return nil, err
	}
	l.state = next
	return evts, nil
}

func (l *Lobby) applyReady(ctx context.Context, actorID string) error {
	evts, err := l.apply(engine.Command{Type: engine.CmdReady, ActorID: actorID})
	if err != nil {
		return l.retract(ctx, l.viewID, KindReady.Emoji(), actorID)
	}
	if err := l.retract(ctx, l.viewID, KindPreparing.Emoji(), actorID); err != nil {
		return err
	}
	if err := l.rerender(ctx); err != nil {
		return err
	}
	if engine.ContainsEvent(evts, engine.EvtAllReady) {
		return l.triggerCountdown(ctx, actorID)
	}
	return nil
}

func (l *Lobby) applyPreparing(ctx context.Context, actorID string) error {
	if _, err := l.apply(engine.Command{Type: engine.CmdPreparing, ActorID: actorID}); err != nil {
		return l.retract(ctx, l.viewID, KindPreparing.Emoji(), actorID)
	}
	if err := l.retract(ctx, l.viewID, KindReady.Emoji(), actorID); err != nil {
		return err
	}
	return l.rerender(ctx)
}

// applyWithdraw handles a participant taking back their own ready or
// preparing marker.
func (l *Lobby) applyWithdraw(ctx context.Context, actorID string, marker engine.ParticipantState) error {
	evts, err := l.apply(engine.Command{Type: engine.CmdWithdraw, ActorID: actorID, Marker: marker})
	if err != nil || len(evts) == 0 {
		return nil
	}
	return l.rerender(ctx)
}

func (l *Lobby) applyLeave(ctx context.Context, actorID string) error {
	evts, err := l.apply(engine.Command{Type: engine.CmdLeave, ActorID: actorID})
	if err != nil {
		return l.retract(ctx, l.viewID, KindLeave.Emoji(), actorID)
	}

	switch {
	case engine.ContainsEvent(evts, engine.EvtLobbyEmptied):
		if err := l.teardown(ctx, true); err != nil {
			return err
		}
		if err := l.announce(ctx, "The ready check was cancelled because everyone left the lobby.", render.ThemeEmpty); err != nil {
			return err
		}
		return l.end(eventCancel, events.TypeCancelled, actorID, "empty")

	case engine.ContainsEvent(evts, engine.EvtAllReady):
		return l.triggerCountdown(ctx, actorID)
	}

	for _, k := range []Kind{KindReady, KindPreparing, KindLeave} {
		if err := l.retract(ctx, l.viewID, k.Emoji(), actorID); err != nil {
			return err
		}
	}
	return l.rerender(ctx)
}

// applyRestart starts a new epoch: fresh view, everyone inactive. Pending
// join requests survive the restart.
func (l *Lobby) applyRestart(ctx context.Context, actorID string) error {
	if _, err := l.apply(engine.Command{Type: engine.CmdRestart, ActorID: actorID}); err != nil {
		return l.retract(ctx, l.viewID, KindRestart.Emoji(), actorID)
	}
	if err := l.teardown(ctx, false); err != nil {
		return err
	}
	if err := l.announce(ctx, fmt.Sprintf("The lobby was restarted by %s.", render.Mention(actorID)), render.ThemeRestart); err != nil {
		return err
	}
	if err := countdown.Sleep(ctx, l.deps.Clock, l.deps.SettleDelay); err != nil {
		return err
	}
	l.epoch++
	if err := l.showView(ctx); err != nil {
		return err
	}
	l.log.Info("lobby restarted", zap.String("actor_id", actorID), zap.Int("epoch", l.epoch))
	l.publish(events.TypeRestarted, actorID, "")
	return nil
}

// applyOverride is only open to participants who are already ready.
func (l *Lobby) applyOverride(ctx context.Context, actorID string) error {
	if _, err := l.apply(engine.Command{Type: engine.CmdOverride, ActorID: actorID}); err != nil {
		return l.retract(ctx, l.viewID, KindOverride.Emoji(), actorID)
	}
	if err := l.announce(ctx, fmt.Sprintf("An emergency override was triggered by %s!", render.Mention(actorID)), render.ThemeOverride); err != nil {
		return err
	}
	return l.triggerCountdown(ctx, actorID)
}

func (l *Lobby) applyCancel(ctx context.Context, actorID string) error {
	if _, err := l.apply(engine.Command{Type: engine.CmdCancel, ActorID: actorID}); err != nil {
		return l.retract(ctx, l.viewID, KindCancel.Emoji(), actorID)
	}
	if err := l.teardown(ctx, true); err != nil {
		return err
	}
	if err := l.announce(ctx, fmt.Sprintf("The ready check was cancelled by %s.", render.Mention(actorID)), render.ThemeCancel); err != nil {
		return err
	}
	return l.end(eventCancel, events.TypeCancelled, actorID, "cancelled")
}

func (l *Lobby) applyAlertRequest(ctx context.Context, actorID string) error {
	evts, err := l.apply(engine.Command{Type: engine.CmdAlert, ActorID: actorID})
	if err != nil {
		return l.retract(ctx, l.viewID, KindAlert.Emoji(), actorID)
	}
	if targets := evts[0].Targets; len(targets) > 0 {
		msg, err := l.deps.Messenger.Send(ctx, l.channelID, render.Text(alertText+render.Mentions(targets)))
		if err != nil {
			return fmt.Errorf("send alert: %w", err)
		}
		l.alerts = append(l.alerts, msg.ID)
	}
	return l.retract(ctx, l.viewID, KindAlert.Emoji(), actorID)
}

func (l *Lobby) triggerCountdown(ctx context.Context, actorID string) error {
	members := render.Mentions(l.state.IDs())
	if err := l.teardown(ctx, true); err != nil {
		return err
	}

	goMsg, err := l.deps.Messenger.Send(ctx, l.channelID, render.Text(hereWeGoText+members))
	if err != nil {
		return fmt.Errorf("send here we go: %w", err)
	}
	if err := countdown.Sleep(ctx, l.deps.Clock, l.deps.GoDelay); err != nil {
		return err
	}
	if err := l.deps.Messenger.Delete(ctx, l.channelID, goMsg.ID); err != nil {
		return fmt.Errorf("delete here we go: %w", err)
	}

	if err := l.deps.Countdown.Run(ctx, l.channelID, completionText+members); err != nil {
		return fmt.Errorf("run countdown: %w", err)
	}
	return l.end(eventComplete, events.TypeCompleted, actorID, "")
}

// end moves the lifecycle to a terminal state; the actor exits after the
// current message.
func (l *Lobby) end(lifecycleEvent, eventType, actorID, reason string) error {
	if err := l.lifecycle.Event(l.ctx, lifecycleEvent); err != nil {
		return fmt.Errorf("lifecycle %s: %w", lifecycleEvent, err)
	}
	l.log.Info("lobby ended",
		zap.String("lifecycle", l.lifecycle.Current()),
		zap.String("actor_id", actorID),
		zap.String("reason", reason))
	l.publish(eventType, actorID, reason)
	return nil
}

// teardown deletes the view and every pending alert. With prompts set, open
// join prompts are deleted and their requests dropped too.
func (l *Lobby) teardown(ctx context.Context, prompts bool) error {
	var err error
	if l.viewID != "" {
		l.deps.Registry.Unbind(l.viewID)
		if derr := l.deps.Messenger.Delete(ctx, l.channelID, l.viewID); derr != nil {
			err = multierr.Append(err, fmt.Errorf("delete view: %w", derr))
		}
		l.viewID = ""
	}

	purge := slices.Clone(l.alerts)
	l.alerts = nil
	if prompts {
		for promptID, ap := range l.prompts {
			l.forget(ap)
			purge = append(purge, promptID)
		}
	}
	if len(purge) > 0 {
		if derr := l.deps.Messenger.BulkDelete(ctx, l.channelID, purge); derr != nil {
			err = multierr.Append(err, fmt.Errorf("purge messages: %w", derr))
		}
	}
	return err
}

// showView posts the lobby view for the current epoch and attaches the menu.
func (l *Lobby) showView(ctx context.Context) error {
	msg, err := l.deps.Messenger.Send(ctx, l.channelID, render.Lobby(l.state.Participants))
	if err != nil {
		return fmt.Errorf("send view: %w", err)
	}
	l.viewID = msg.ID
	l.deps.Registry.Bind(msg.ID, l)

	for _, k := range LobbyMenu {
		if err := l.deps.Messenger.React(ctx, l.channelID, msg.ID, k.Emoji()); err != nil {
			return fmt.Errorf("attach %s: %w", k.Emoji(), err)
		}
	}
	return nil
}

func (l *Lobby) rerender(ctx context.Context) error {
	if _, err := l.deps.Messenger.Edit(ctx, l.channelID, l.viewID, render.Lobby(l.state.Participants)); err != nil {
		return fmt.Errorf("render view: %w", err)
	}
	return nil
}

func (l *Lobby) announce(ctx context.Context, description string, theme render.Theme) error {
	if _, err := l.deps.Messenger.Send(ctx, l.channelID, render.History(description, theme)); err != nil {
		return fmt.Errorf("announce %s: %w", theme, err)
	}
	return nil
}

// retract removes userID's emoji from messageID.
func (l *Lobby) retract(ctx context.Context, messageID, emoji, userID string) error {
	if messageID == "" {
		return nil
	}
	if err := l.deps.Messenger.RemoveReaction(ctx, l.channelID, messageID, emoji, userID); err != nil {
		return fmt.Errorf("retract %s: %w", emoji, err)
	}
	return nil
}
