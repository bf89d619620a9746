package lobby

import "strings"

// Kind is an interaction kind, independent of the emoji that carries it.
type Kind int

const (
	KindUnknown Kind = iota
	KindReady
	KindPreparing
	KindAlert
	KindRestart
	KindLeave
	KindOverride
	KindJoin
	KindCancel
	KindApprove
	KindDeny
)

var kindEmoji = map[Kind]string{
	KindReady:     "🆗",
	KindPreparing: "*️⃣",
	KindAlert:     "🔔",
	KindRestart:   "🔄",
	KindLeave:     "❌",
	KindOverride:  "▶️",
	KindJoin:      "➕",
	KindCancel:    "🛑",
	KindApprove:   "✔️",
	KindDeny:      "✖️",
}

var emojiKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindEmoji))
	for k, e := range kindEmoji {
		m[normalize(e)] = k
	}
	return m
}()

// LobbyMenu is attached to every lobby view, in this order.
var LobbyMenu = []Kind{KindReady, KindPreparing, KindAlert, KindRestart, KindLeave, KindOverride, KindJoin, KindCancel}

// PromptMenu is attached to every join prompt.
var PromptMenu = []Kind{KindApprove, KindDeny}

func (k Kind) Emoji() string { return kindEmoji[k] }

func (k Kind) in(menu []Kind) bool {
	for _, m := range menu {
		if m == k {
			return true
		}
	}
	return false
}

// KindOf maps an emoji to its kind; clients differ on whether they send the
// variation selector, so it is ignored.
func KindOf(emoji string) Kind {
	return emojiKind[normalize(emoji)]
}

func normalize(emoji string) string {
	return strings.ReplaceAll(emoji, "\ufe0f", "")
}
