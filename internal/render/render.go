// Package render projects lobby state into platform payloads. Nothing here
// reads or writes lobby state; callers pass in what should be shown.
package render

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/ready-check/internal/engine"
	"github.com/DoyleJ11/ready-check/internal/platform"
)

type Theme string

const (
	ThemeInitiate Theme = "initiate"
	ThemeRestart  Theme = "restart"
	ThemeOverride Theme = "override"
	ThemeCancel   Theme = "cancel"
	ThemeEmpty    Theme = "empty"
	ThemeComplete Theme = "complete"
)

const (
	ColorDefault    = 0x3498DB
	ColorDarkRed    = 0x992D22
	ColorDarkOrange = 0xA84300
	ColorGreen      = 0x2ECC71
)

type themeStyle struct {
	color     int
	thumbnail string
}

var themes = map[Theme]themeStyle{
	ThemeInitiate: {ColorDefault, "https://cdn.readycheck.app/thumbnails/initiate.png"},
	ThemeRestart:  {ColorDarkOrange, "https://cdn.readycheck.app/thumbnails/restart.png"},
	ThemeOverride: {ColorDarkOrange, "https://cdn.readycheck.app/thumbnails/override.png"},
	ThemeCancel:   {ColorDarkRed, "https://cdn.readycheck.app/thumbnails/cancel.png"},
	ThemeEmpty:    {ColorDarkRed, "https://cdn.readycheck.app/thumbnails/empty.png"},
	ThemeComplete: {ColorGreen, "https://cdn.readycheck.app/thumbnails/complete.png"},
}

var badges = map[engine.ParticipantState]string{
	engine.StateInactive:  "❌ Not ready",
	engine.StatePreparing: "⏳ Preparing",
	engine.StateReady:     "✅ Ready",
}

// Legend describes the lobby menu, in menu order.
const Legend = "🆗 ready · *️⃣ preparing · 🔔 alert · 🔄 restart · ❌ leave · ▶️ override · ➕ join · 🛑 cancel"

func Mention(userID string) string {
	return fmt.Sprintf("<@!%s>", userID)
}

func Mentions(userIDs []string) string {
	mentions := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		mentions = append(mentions, Mention(id))
	}
	return strings.Join(mentions, ", ")
}

// Lobby renders the participant table in display order.
func Lobby(participants []engine.Participant) platform.Payload {
	var b strings.Builder
	ready := 0
	for _, p := range participants {
		if p.State == engine.StateReady {
			ready++
		}
		fmt.Fprintf(&b, "%s %s\n", badges[p.State], Mention(p.ID))
	}

	return platform.Payload{Embed: &platform.Embed{
		Title:       "Ready Check Lobby",
		Description: strings.TrimSuffix(b.String(), "\n"),
		Color:       ColorDefault,
		Fields: []platform.Field{
			{Name: "Ready", Value: fmt.Sprintf("%d/%d", ready, len(participants)), Inline: true},
		},
		Footer: Legend,
	}}
}

// History renders an announcement for the channel's history log.
func History(description string, theme Theme) platform.Payload {
	style, ok := themes[theme]
	if !ok {
		style = themes[ThemeInitiate]
	}
	return platform.Payload{Embed: &platform.Embed{
		Description: description,
		Color:       style.color,
		Thumbnail:   style.thumbnail,
	}}
}

func Text(content string) platform.Payload {
	return platform.Payload{Content: content}
}
