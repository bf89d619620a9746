package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/platform"
	"github.com/DoyleJ11/ready-check/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 5 * time.Minute
)

// Platform is what a websocket user can see and do.
type Platform interface {
	Subscribe() (<-chan platform.Event, func())
	Post(ctx context.Context, channelID, authorID, content string) (platform.Message, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji, userID string) error
	RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error
}

// Handler connects one user to one channel: they receive the channel's
// events and their own direct messages, and may post and react.
func Handler(p Platform, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := r.URL.Query().Get("channel")
		userID := r.URL.Query().Get("user")
		if channelID == "" || userID == "" {
			http.Error(w, "missing channel or user", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		log := log.With(zap.String("channel_id", channelID), zap.String("user_id", userID))
		log.Debug("websocket connected")

		evts, unsubscribe := p.Subscribe()
		defer unsubscribe()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case evt, ok := <-evts:
					if !ok {
						return
					}
					if !Visible(evt, channelID, userID) {
						continue
					}
					if err := write(writeCtx, conn, types.ServerMessage{Type: types.ServerEvent, Event: &evt}); err != nil {
						log.Debug("websocket write", zap.Error(err))
						writeCancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(writeCtx, conn, types.ServerMessage{Type: types.ServerError, Error: "bad json"})
				continue
			}
			if err := apply(writeCtx, p, channelID, userID, cm); err != nil {
				_ = write(writeCtx, conn, types.ServerMessage{Type: types.ServerError, Error: err.Error()})
			}
		}
	}
}

var errUnknownType = errors.New("unknown type")

func apply(ctx context.Context, p Platform, channelID, userID string, cm types.ClientMessage) error {
	switch cm.Type {
	case types.ClientPost:
		_, err := p.Post(ctx, channelID, userID, cm.Content)
		return err
	case types.ClientReact:
		return p.AddReaction(ctx, channelID, cm.MessageID, cm.Emoji, userID)
	case types.ClientUnreact:
		return p.RemoveReaction(ctx, channelID, cm.MessageID, cm.Emoji, userID)
	default:
		return errUnknownType
	}
}

// Visible reports whether userID, connected to channelID, should see evt.
func Visible(evt platform.Event, channelID, userID string) bool {
	if evt.Type == platform.EventDirectMessage {
		return evt.RecipientID == userID
	}
	return evt.ChannelID == channelID
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
