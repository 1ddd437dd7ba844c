package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/logging"
)

const (
	wsRequestTimeout = 10 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsMaxRequest     = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// completeWS streams a completion over a WebSocket. The client sends a single
// completion request; each chunk is sent as its own message and the server
// closes normally at the end. Closing the socket early cancels the upstream.
func (a *API) completeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		a.logger.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxRequest)
	_ = conn.SetReadDeadline(time.Now().Add(wsRequestTimeout))

	var body completeRequest
	if err := conn.ReadJSON(&body); err != nil {
		wsFail(conn, models.CodeValidation, "invalid completion request: "+err.Error())
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := logging.WithVideo("http.ws", body.VideoID)

	// Nothing else is expected from the client; any read result means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	stream, err := a.completer.Complete(ctx, body.toModel())
	if err != nil {
		wsFail(conn, models.Code(err), err.Error())
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			wsClose(conn, websocket.CloseNormalClosure, "")
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Int("chunks", stream.Chunks()).Msg("WebSocket client disconnected")
				return
			}
			logger.Warn().Err(err).Int("chunks", stream.Chunks()).Msg("Completion stream aborted")
			wsFail(conn, models.Code(err), err.Error())
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(models.StreamMessage{Chunk: chunk}); err != nil {
			logger.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func wsFail(conn *websocket.Conn, code, msg string) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(models.StreamMessage{Error: msg, Code: code})
	wsClose(conn, websocket.CloseInternalServerErr, code)
}

func wsClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsWriteTimeout))
}
