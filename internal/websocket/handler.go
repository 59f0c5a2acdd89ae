package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client. The
// optional tables query parameter narrows the subscription.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, unknown := ParseTables(r.URL.Query().Get("tables"))
		if len(unknown) > 0 {
			http.Error(w, "unknown table", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // household LAN, any origin
		})
		if err != nil {
			logger.Error("accept websocket", "error", err)
			return
		}

		logger.Debug("change feed client connected", "tables", tables)
		NewClient(hub, conn, tables).Run(r.Context())
	}
}
