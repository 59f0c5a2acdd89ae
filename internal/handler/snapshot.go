package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/sokone/internal/snapshot"
	"github.com/dukerupert/sokone/internal/websocket"
)

type SnapshotHandler struct {
	manager *snapshot.Manager
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewSnapshotHandler(m *snapshot.Manager, hub *websocket.Hub, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{manager: m, hub: hub, logger: logger}
}

// broadcastAll tells subscribers every table changed.
func (h *SnapshotHandler) broadcastAll(action string) {
	if h.hub == nil {
		return
	}
	for _, table := range websocket.Tables {
		h.hub.Broadcast(websocket.NewMessage(table, action, 0, nil))
	}
}

func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	blob, err := h.manager.Export()
	if err != nil {
		h.logger.Error("export snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export snapshot")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="sokone-snapshot.json"`)
	writeJSON(w, http.StatusOK, blob)
}

// Import loads a browser-storage document. replace=1 empties the tables
// first; otherwise rows are appended.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	blob, err := snapshot.Decode(http.MaxBytesReader(w, r.Body, snapshot.MaxSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot")
		return
	}

	replace := r.URL.Query().Get("replace") == "1"
	res, err := h.manager.Import(r.Context(), blob, replace)
	if err != nil {
		h.logger.Error("import snapshot", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.broadcastAll("imported")
	writeJSON(w, http.StatusOK, res)
}

func (h *SnapshotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *SnapshotHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key, err := h.manager.Upload(r.Context())
	if errors.Is(err, snapshot.ErrDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload snapshot", "error", err)
		writeError(w, http.StatusBadGateway, "failed to upload snapshot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

type restoreRequest struct {
	Key string `json:"key"`
}

func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	res, err := h.manager.Restore(r.Context(), req.Key)
	switch {
	case errors.Is(err, snapshot.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, snapshot.ErrWrongPassphrase):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, snapshot.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		h.logger.Error("restore snapshot", "key", req.Key, "error", err)
		writeError(w, http.StatusBadGateway, "failed to restore snapshot")
		return
	}

	h.broadcastAll("restored")
	writeJSON(w, http.StatusOK, res)
}
