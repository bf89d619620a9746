package lobby

import (
	"context"

	"github.com/DoyleJ11/ready-check/internal/engine"
)

// route classifies the target message of in and dispatches it. Messages the
// lobby does not own are ignored.
func (l *Lobby) route(ctx context.Context, in Interaction) error {
	if in.ActorID == l.deps.SelfID || !l.active() {
		return nil
	}

	switch {
	case in.MessageID != "" && in.MessageID == l.viewID:
		if in.Removed {
			return l.routeViewRemoval(ctx, in)
		}
		return l.routeView(ctx, in)

	case l.prompts[in.MessageID] != nil:
		if in.Removed {
			return nil
		}
		return l.vote(ctx, l.prompts[in.MessageID], in.ActorID, in.Emoji)
	}
	return nil
}

func (l *Lobby) routeView(ctx context.Context, in Interaction) error {
	kind := KindOf(in.Emoji)
	if kind == KindJoin {
		return l.requestJoin(ctx, in.ActorID)
	}
	if !l.state.Has(in.ActorID) || !kind.in(LobbyMenu) {
		return l.retract(ctx, in.MessageID, in.Emoji, in.ActorID)
	}

	switch kind {
	case KindReady:
		return l.applyReady(ctx, in.ActorID)
	case KindPreparing:
		return l.applyPreparing(ctx, in.ActorID)
	case KindAlert:
		return l.applyAlertRequest(ctx, in.ActorID)
	case KindRestart:
		return l.applyRestart(ctx, in.ActorID)
	case KindLeave:
		return l.applyLeave(ctx, in.ActorID)
	case KindOverride:
		return l.applyOverride(ctx, in.ActorID)
	case KindCancel:
		return l.applyCancel(ctx, in.ActorID)
	}
	return nil
}

// routeViewRemoval handles withdrawals. Only the join, ready and preparing
// markers mean anything when removed.
func (l *Lobby) routeViewRemoval(ctx context.Context, in Interaction) error {
	switch KindOf(in.Emoji) {
	case KindJoin:
		if ap := l.joins[in.ActorID]; ap != nil {
			return l.withdrawJoin(ctx, ap)
		}
	case KindReady:
		return l.applyWithdraw(ctx, in.ActorID, engine.StateReady)
	case KindPreparing:
		return l.applyWithdraw(ctx, in.ActorID, engine.StatePreparing)
	}
	return nil
}
