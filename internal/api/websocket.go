package api

import (
	"net/http"

	"github.com/npezzotti/taskpulse/internal/auth"
	"github.com/npezzotti/taskpulse/internal/server"
	"github.com/npezzotti/taskpulse/internal/stats"
	"go.uber.org/zap"
)

// serveWs authenticates the handshake before upgrading. A rejected
// handshake never reaches the hub.
func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	connId, err := server.NewConnectionId()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		s.stats.Incr(stats.HandshakesRejected)
		s.log.Warn("websocket handshake rejected",
			zap.String("conn_id", connId),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading connection", zap.String("conn_id", connId), zap.Error(err))
		return
	}

	client := server.NewClient(connId, user, conn, s.hub, s.log.Named("client"))
	if err := s.hub.Register(client); err != nil {
		s.log.Warn("rejecting connection", zap.String("conn_id", connId), zap.Error(err))
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
