package assistant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsReplyTimeout = 60 * time.Second

type wsInbound struct {
	Message string `json:"message"`
}

type wsOutbound struct {
	Status string   `json:"status"`
	Data   *Message `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// HandleWebsocket runs a chat conversation over a websocket. Each inbound
// frame is one user turn; the reply comes back on the same connection.
// GET /api/assistant/ws
func (h *Handlers) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conversationID, err := h.sessions.ConversationID(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}
	symbols := h.callerSymbols(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	for {
		var in wsInbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			h.log.Debug().Err(err).Msg("Websocket read failed")
			return
		}

		replyCtx, cancel := context.WithTimeout(ctx, wsReplyTimeout)
		reply, err := h.service.Reply(replyCtx, conversationID, in.Message, symbols)
		cancel()

		out := wsOutbound{Status: "success", Data: &reply}
		if err != nil {
			out = wsOutbound{Status: "error", Error: wsErrorMessage(err)}
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			h.log.Debug().Err(err).Msg("Websocket write failed")
			return
		}
	}
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "message is required"
	case errors.Is(err, ErrNotAvailable):
		return "the assistant is not available right now"
	default:
		return "the assistant could not answer"
	}
}
