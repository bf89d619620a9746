package lobby

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/engine"
	"github.com/DoyleJ11/ready-check/internal/render"
)

// approval is one pending join request. It is bound to a single requester
// and resolves at most once.
type approval struct {
	requesterID string
	promptID    string
	// epoch of the view the requester's join marker sits on.
	epoch int
}

func (l *Lobby) requestJoin(ctx context.Context, requesterID string) error {
	if l.state.Has(requesterID) {
		return l.retract(ctx, l.viewID, KindJoin.Emoji(), requesterID)
	}
	if ap, pending := l.joins[requesterID]; pending {
		// A marker placed on a view posted by a restart is the one to clear
		// once the request resolves.
		ap.epoch = l.epoch
		return nil
	}

	text := fmt.Sprintf("Attention: %s\n\n%s has requested to be added to the lobby.",
		render.Mentions(l.state.IDs()), render.Mention(requesterID))
	prompt, err := l.deps.Messenger.Send(ctx, l.channelID, render.Text(text))
	if err != nil {
		return fmt.Errorf("send join prompt: %w", err)
	}

	ap := &approval{requesterID: requesterID, promptID: prompt.ID, epoch: l.epoch}
	l.joins[requesterID] = ap
	l.prompts[prompt.ID] = ap
	l.deps.Registry.Bind(prompt.ID, l)

	for _, k := range PromptMenu {
		if err := l.deps.Messenger.React(ctx, l.channelID, prompt.ID, k.Emoji()); err != nil {
			return fmt.Errorf("attach %s: %w", k.Emoji(), err)
		}
	}
	l.log.Info("join requested", zap.String("actor_id", requesterID))
	return nil
}

// vote resolves ap with the first legal decision. Anything else on the
// prompt is retracted.
func (l *Lobby) vote(ctx context.Context, ap *approval, voterID, emoji string) error {
	kind := KindOf(emoji)
	if !kind.in(PromptMenu) || !l.state.Has(voterID) || voterID == ap.requesterID {
		return l.retract(ctx, ap.promptID, emoji, voterID)
	}

	l.forget(ap)
	if err := l.retractJoinMarker(ctx, ap); err != nil {
		return err
	}

	if kind == KindApprove {
		if _, err := l.apply(engine.Command{Type: engine.CmdAdmit, ActorID: ap.requesterID}); err != nil {
			l.log.Warn("admit rejected", zap.String("actor_id", ap.requesterID), zap.Error(err))
		} else if err := l.rerender(ctx); err != nil {
			return err
		}
		l.log.Info("join approved", zap.String("actor_id", ap.requesterID), zap.String("voter_id", voterID))
	} else {
		notice := fmt.Sprintf("I'm sorry, %s has denied your request to join the ready check lobby.", render.Mention(voterID))
		if _, err := l.deps.Messenger.SendDirect(ctx, ap.requesterID, render.Text(notice)); err != nil {
			return fmt.Errorf("notify denied requester: %w", err)
		}
		l.log.Info("join denied", zap.String("actor_id", ap.requesterID), zap.String("voter_id", voterID))
	}

	return l.deletePrompt(ctx, ap)
}

// withdrawJoin drops a request whose requester took back their join marker.
func (l *Lobby) withdrawJoin(ctx context.Context, ap *approval) error {
	l.forget(ap)
	l.log.Info("join withdrawn", zap.String("actor_id", ap.requesterID))
	return l.deletePrompt(ctx, ap)
}

// forget removes ap from the lobby before any further I/O, so later votes
// on its prompt no longer route.
func (l *Lobby) forget(ap *approval) {
	delete(l.joins, ap.requesterID)
	delete(l.prompts, ap.promptID)
	l.deps.Registry.Unbind(ap.promptID)
}

// retractJoinMarker is skipped once a restart has replaced the view the
// marker was placed on.
func (l *Lobby) retractJoinMarker(ctx context.Context, ap *approval) error {
	if ap.epoch != l.epoch {
		return nil
	}
	return l.retract(ctx, l.viewID, KindJoin.Emoji(), ap.requesterID)
}

func (l *Lobby) deletePrompt(ctx context.Context, ap *approval) error {
	if err := l.deps.Messenger.Delete(ctx, l.channelID, ap.promptID); err != nil {
		return fmt.Errorf("delete join prompt: %w", err)
	}
	return nil
}
