package channel

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// WSHandler serves the realtime status stream over websockets. Clients
// connect to /?runId=<id>&token=<jwt>; each event is one JSON message.
type WSHandler struct {
	bus    Bus
	issuer *TokenIssuer
	logger *zap.Logger
}

// NewWSHandler creates the websocket subscribe handler.
func NewWSHandler(bus Bus, issuer *TokenIssuer, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		bus:    bus,
		issuer: issuer,
		logger: logger.With(zap.String("component", "status_ws")),
	}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	tokenStr := r.URL.Query().Get("token")
	if runID == "" || tokenStr == "" {
		http.Error(w, "runId and token are required", http.StatusBadRequest)
		return
	}
	if err := h.issuer.Verify(tokenStr, runID); err != nil {
		http.Error(w, "invalid channel token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel, err := h.bus.Subscribe(r.Context(), runID)
	if err != nil {
		h.logger.Warn("subscribe failed", zap.String("run_id", runID), zap.Error(err))
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				h.logger.Debug("subscriber gone", zap.String("run_id", runID), zap.Error(err))
				return
			}
		}
	}
}
