package notify

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// WatchHandler - websocket entry point and the hub's inspection endpoints.
type WatchHandler struct {
	hub *Hub
}

func NewWatchHandler(hub *Hub) *WatchHandler {
	return &WatchHandler{hub: hub}
}

// RegisterRoutes - push transport and hub introspection.
func (h *WatchHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.hub.HandleWebSocket)
	r.HandleFunc("/watch/{batchId}", h.GetGroupInfo).Methods("GET")
	r.HandleFunc("/metrics", h.GetMetrics).Methods("GET")
	r.HandleFunc("/admin/cleanup", h.ForceCleanup).Methods("POST")
	log.Println("✅ Watch routes registered: /ws, /watch/{batchId}, /metrics, /admin/cleanup")
}

// GetGroupInfo - who is watching one batch.
func (h *WatchHandler) GetGroupInfo(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchId"]

	snapshot := h.hub.GroupSnapshot(batchID)
	if snapshot == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "No watchers for this batch",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// GetMetrics - hub counters and per-group details.
func (h *WatchHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.Snapshot())
}

// ForceCleanup - run both cleanup passes immediately.
func (h *WatchHandler) ForceCleanup(w http.ResponseWriter, r *http.Request) {
	cleaned := h.hub.CleanupNow()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "Cleanup completed",
		"cleaned": cleaned,
	})
}
