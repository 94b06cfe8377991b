package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/safar/storefront/internal/chat"
	"go.uber.org/zap"
)

const (
	chatChannelHTTP      = "http"
	chatChannelWebsocket = "websocket"

	maxChatFrameBytes = 4096
	chatWriteTimeout  = 10 * time.Second
)

// chatMessage answers one chat message posted as a form or JSON body.
func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	values, err := requestValues(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply := s.chat.Resolve(r.Context(), values["message"])
	s.metrics.ObserveChatReply(chatChannelHTTP, reply.Intent)

	respondJSON(w, http.StatusOK, map[string]string{"reply": reply.Message})
}

// chatSocket serves the interactive chat. Each inbound {"message": ...} frame
// gets exactly one bot reply; a frame that is not a JSON object is taken as
// the message text itself.
func (s *Server) chatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.WebsocketOpened()
	defer s.metrics.WebsocketClosed()

	conn.SetReadLimit(maxChatFrameBytes)
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return
	}
	ctx := r.Context()

	if err := s.writeReply(conn, chat.Connected()); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("websocket read", zap.Error(err))
			}
			return
		}

		reply := s.chat.Resolve(ctx, frameText(data))
		s.metrics.ObserveChatReply(chatChannelWebsocket, reply.Intent)

		if err := s.writeReply(conn, reply); err != nil {
			return
		}
	}
}

// frameText extracts the message from a websocket frame. A JSON object yields
// its "message" field, any other JSON value its own text, and a frame that is
// not JSON is the message itself.
func frameText(data []byte) string {
	var frame any
	if err := json.Unmarshal(data, &frame); err != nil {
		return string(data)
	}
	if obj, ok := frame.(map[string]any); ok {
		frame = obj["message"]
	}

	switch v := frame.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (s *Server) writeReply(conn *websocket.Conn, reply chat.Reply) error {
	if err := conn.SetWriteDeadline(time.Now().Add(chatWriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Debug("websocket write", zap.Error(err))
		return err
	}
	return nil
}
