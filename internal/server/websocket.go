package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"volleysim/internal/game/volleyball"
	"volleysim/internal/session"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage = session.Message

type joinPayload struct {
	SpectatorID string `json:"spectatorId"`
}

type statePayload struct {
	Match   session.Info        `json:"match"`
	Summary *volleyball.Summary `json:"summary,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.manager.Get(id)
	if !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket-accept-failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()

	// First message must be a join
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendWSError(ctx, conn, "first message must be a join")
		return
	}
	var join joinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.SpectatorID == "" {
		sendWSError(ctx, conn, "invalid join payload")
		return
	}

	spectatorID := join.SpectatorID
	if err := sess.AddSpectator(spectatorID); err != nil {
		sendWSError(ctx, conn, err.Error())
		return
	}
	defer sess.RemoveSpectator(spectatorID)
	send := sess.GetSpectator(spectatorID).Send
	log.Info().Str("match", id).Str("spectator", spectatorID).Msg("spectator-joined")

	sendWSMsg(send, "state", stateOf(sess))

	// Writer goroutine: drains until RemoveSpectator closes the channel
	go func() {
		for msg := range send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: "invalid message"})
			continue
		}
		s.handleMessage(sess, send, msg)
	}

	log.Info().Str("match", id).Str("spectator", spectatorID).Msg("spectator-left")
}

func (s *Server) handleMessage(sess *session.Session, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "start":
		if err := s.manager.Start(sess); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		s.broadcastState(sess)

	case "state":
		sendWSMsg(send, "state", stateOf(sess))

	default:
		sendWSMsg(send, "error", errorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func stateOf(sess *session.Session) statePayload {
	sp := statePayload{Match: sess.Info()}
	if sum, ok := sess.Summary(); ok {
		sp.Summary = &sum
	}
	return sp
}

func (s *Server) broadcastState(sess *session.Session) {
	sess.Broadcast(session.Encode("state", stateOf(sess)))
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	select {
	case send <- session.Encode(msgType, payload):
	default:
	}
}

func sendWSError(ctx context.Context, conn *websocket.Conn, message string) {
	conn.Write(ctx, websocket.MessageText, session.Encode("error", errorPayload{Message: message}))
}
