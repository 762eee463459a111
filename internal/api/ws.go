package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// chatSocket serves one chat session over a WebSocket. Each text frame
// carries a chatPayload; each reply is a Response or a socketError frame.
func (h *handler) chatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.origins),
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	if err := wsjson.Write(ctx, conn, h.core.Welcome()); err != nil {
		return
	}
	messages := 0
	defer func() { annotate(w, "messages", messages) }()
	for {
		err := h.serveSocketMessage(ctx, conn)
		if err == nil {
			messages++
			continue
		}
		if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			h.logger.Debug("websocket closed by client", "status", status)
			return
		}
		if !errors.Is(err, context.Canceled) {
			h.logger.Warn("websocket session ended", "err", err)
		}
		return
	}
}

func (h *handler) serveSocketMessage(ctx context.Context, conn *websocket.Conn) error {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	if typ != websocket.MessageText {
		return wsjson.Write(ctx, conn, socketError{
			Error:     "expected a text frame",
			ErrorCode: string(cryptochat.ErrCodeParse),
		})
	}
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return wsjson.Write(ctx, conn, socketError{
			Error:     "invalid message body",
			ErrorCode: string(cryptochat.ErrCodeParse),
		})
	}
	resp, err := h.core.Process(ctx, payload.Text)
	if err != nil {
		frame := socketError{Error: err.Error()}
		var cErr *cryptochat.Error
		if errors.As(err, &cErr) {
			frame.Error = cErr.Message
			frame.ErrorCode = string(cErr.Code)
		}
		return wsjson.Write(ctx, conn, frame)
	}
	return wsjson.Write(ctx, conn, resp)
}

// originPatterns turns the CORS origin list into host patterns for the
// socket's origin check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
