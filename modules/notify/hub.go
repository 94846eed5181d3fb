package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Dev setting - allow every origin. Lock down per domain in production.
		return true
	},
}

// Client - one connected watcher.
type Client struct {
	conn      *websocket.Conn
	batchID   string
	watcherID string
	send      chan []byte
}

// watchGroup - the watchers of one batch id.
type watchGroup struct {
	id           string
	clients      map[string]*Client
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// Metrics - hub counters for the metrics endpoint.
type Metrics struct {
	TotalGroups      int       `json:"totalGroups"`
	ActiveGroups     int       `json:"activeGroups"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
	mutex            sync.RWMutex
}

// Hub - fan-out of job status changes to websocket watchers, grouped by
// batch id. Implements the orchestrator's Notifier; jobs without a batch id
// have nobody watching and are skipped.
type Hub struct {
	groups  map[string]*watchGroup
	mutex   sync.RWMutex
	metrics *Metrics
}

// Update - the payload pushed on every job status change. Field names match
// the job records served by the REST endpoints.
type Update struct {
	Type        string `json:"type"`
	JobID       string `json:"job_id"`
	BatchID     string `json:"batch_id,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	OutputName  string `json:"output_name,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]*watchGroup),
		metrics: &Metrics{
			StartTime: time.Now(),
		},
	}
}

// Publish - broadcast one job's current state to its batch watchers.
func (h *Hub) Publish(j *model.Job) {
	if j == nil || j.BatchID == "" {
		return
	}

	h.mutex.RLock()
	group, exists := h.groups[j.BatchID]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	update := Update{
		Type:        "job_update",
		JobID:       j.JobID,
		BatchID:     j.BatchID,
		Status:      j.JobStatus,
		ArtifactURL: j.ArtifactURL,
		OutputName:  j.OutputName,
	}
	if j.ErrorMessage != nil {
		update.Error = *j.ErrorMessage
	}
	group.broadcast(update)
}

func (h *Hub) getOrCreateGroup(batchID string) *watchGroup {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	group, exists := h.groups[batchID]
	if !exists {
		now := time.Now()
		group = &watchGroup{
			id:           batchID,
			clients:      make(map[string]*Client),
			createdAt:    now,
			lastActivity: now,
		}
		h.groups[batchID] = group

		h.metrics.mutex.Lock()
		h.metrics.TotalGroups++
		h.metrics.ActiveGroups++
		h.metrics.mutex.Unlock()

		log.Printf("✅ Created watch group for batch %s (Total: %d, Active: %d)",
			batchID, h.metrics.TotalGroups, h.metrics.ActiveGroups)
	}

	// lastActivity is refreshed by addWatcher under the group mutex.
	return group
}

func (h *Hub) addWatcher(group *watchGroup, client *Client) {
	group.mutex.Lock()
	group.clients[client.watcherID] = client
	group.lastActivity = time.Now()
	watcherCount := len(group.clients)
	group.mutex.Unlock()

	h.metrics.mutex.Lock()
	h.metrics.TotalConnections++
	total := h.metrics.TotalConnections
	h.metrics.mutex.Unlock()

	log.Printf("👤 Watcher %s joined batch %s (Watchers: %d, Total Connections: %d)",
		client.watcherID, group.id, watcherCount, total)
}

func (g *watchGroup) removeWatcher(watcherID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if client, exists := g.clients[watcherID]; exists {
		close(client.send)
		delete(g.clients, watcherID)
		g.lastActivity = time.Now()

		log.Printf("👋 Watcher %s left batch %s (Remaining: %d)", watcherID, g.id, len(g.clients))
	}
}

// broadcast - send to every watcher in the group. A watcher whose buffer is
// full is dropped rather than allowed to stall the rest.
func (g *watchGroup) broadcast(update Update) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	messageBytes, err := json.Marshal(update)
	if err != nil {
		log.Printf("Error marshaling update: %v", err)
		return
	}

	for watcherID, client := range g.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(g.clients, watcherID)
			log.Printf("🔌 Dropped slow watcher %s from batch %s", watcherID, g.id)
		}
	}
}

// cleanupEmptyGroups - drop groups with no watchers left.
func (h *Hub) cleanupEmptyGroups() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for batchID, group := range h.groups {
		group.mutex.RLock()
		isEmpty := len(group.clients) == 0
		group.mutex.RUnlock()

		if isEmpty {
			delete(h.groups, batchID)
			cleaned++

			h.metrics.mutex.Lock()
			h.metrics.ActiveGroups--
			h.metrics.mutex.Unlock()

			log.Printf("🧹 Cleaned up empty watch group: %s", batchID)
		}
	}

	if cleaned > 0 {
		log.Printf("🗑️  Cleaned up %d empty watch groups (Active: %d)", cleaned, h.metrics.ActiveGroups)
	}
	return cleaned
}

// cleanupExpiredGroups - disconnect and drop groups older than 24h, plus
// watcherless groups idle for more than 2h.
func (h *Hub) cleanupExpiredGroups() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := time.Now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	cleaned := 0
	for batchID, group := range h.groups {
		group.mutex.RLock()
		isExpired := now.Sub(group.createdAt) > expiredThreshold
		isInactive := now.Sub(group.lastActivity) > inactiveThreshold && len(group.clients) == 0
		group.mutex.RUnlock()

		if isExpired || isInactive {
			group.mutex.Lock()
			for watcherID, client := range group.clients {
				close(client.send)
				delete(group.clients, watcherID)
				log.Printf("🔌 Disconnecting watcher %s from expired batch %s", watcherID, batchID)
			}
			group.mutex.Unlock()

			delete(h.groups, batchID)
			cleaned++

			h.metrics.mutex.Lock()
			h.metrics.ActiveGroups--
			h.metrics.mutex.Unlock()

			reason := "expired"
			if isInactive {
				reason = "inactive"
			}
			log.Printf("⏰ Cleaned up %s watch group: %s (Age: %v, Inactive: %v)",
				reason, batchID, now.Sub(group.createdAt), now.Sub(group.lastActivity))
		}
	}

	if cleaned > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive watch groups (Active: %d)", cleaned, h.metrics.ActiveGroups)
	}
	return cleaned
}

// StartCleanupRoutine - periodic group cleanup in the background.
func (h *Hub) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupEmptyGroups()
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupExpiredGroups()
		}
	}()

	log.Printf("🔄 Started watch group cleanup routines (Empty: 5min, Expired: 30min)")
}

// CleanupNow - immediate cleanup pass, for the admin endpoint.
func (h *Hub) CleanupNow() int {
	return h.cleanupEmptyGroups() + h.cleanupExpiredGroups()
}

// GroupSnapshot - watcher details for one batch, nil when nobody ever
// watched it.
func (h *Hub) GroupSnapshot(batchID string) map[string]interface{} {
	h.mutex.RLock()
	group, exists := h.groups[batchID]
	h.mutex.RUnlock()
	if !exists {
		return nil
	}

	group.mutex.RLock()
	watcherIDs := make([]string, 0, len(group.clients))
	for watcherID := range group.clients {
		watcherIDs = append(watcherIDs, watcherID)
	}
	watcherCount := len(group.clients)
	createdAt := group.createdAt
	lastActivity := group.lastActivity
	group.mutex.RUnlock()

	return map[string]interface{}{
		"batchId":      batchID,
		"watcherCount": watcherCount,
		"watchers":     watcherIDs,
		"createdAt":    createdAt,
		"lastActivity": lastActivity,
		"age":          time.Since(createdAt).String(),
		"inactive":     time.Since(lastActivity).String(),
	}
}

// Snapshot - server counters plus per-group details, for the metrics
// endpoint.
func (h *Hub) Snapshot() map[string]interface{} {
	h.metrics.mutex.RLock()
	startTime := h.metrics.StartTime
	totalGroups := h.metrics.TotalGroups
	activeGroups := h.metrics.ActiveGroups
	totalConnections := h.metrics.TotalConnections
	h.metrics.mutex.RUnlock()

	h.mutex.RLock()
	groupDetails := make([]map[string]interface{}, 0, len(h.groups))
	totalWatchers := 0

	for batchID, group := range h.groups {
		group.mutex.RLock()
		watcherCount := len(group.clients)
		totalWatchers += watcherCount

		groupDetails = append(groupDetails, map[string]interface{}{
			"batchId":      batchID,
			"watcherCount": watcherCount,
			"createdAt":    group.createdAt,
			"lastActivity": group.lastActivity,
			"age":          time.Since(group.createdAt).String(),
			"inactive":     time.Since(group.lastActivity).String(),
		})
		group.mutex.RUnlock()
	}
	h.mutex.RUnlock()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           time.Since(startTime).String(),
			"startTime":        startTime,
			"totalGroups":      totalGroups,
			"activeGroups":     activeGroups,
			"totalConnections": totalConnections,
			"currentWatchers":  totalWatchers,
		},
		"groups": groupDetails,
	}
}

// HandleWebSocket - GET /ws?batch=<batchId>&watcher=<watcherId>. The
// connection stays open until the watcher leaves; every job update in the
// batch is pushed as it happens.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	batchID := r.URL.Query().Get("batch")
	watcherID := r.URL.Query().Get("watcher")
	if batchID == "" || watcherID == "" {
		log.Printf("Missing batch or watcher parameter")
		conn.Close()
		return
	}

	client := &Client{
		conn:      conn,
		batchID:   batchID,
		watcherID: watcherID,
		send:      make(chan []byte, 256),
	}

	log.Printf("🔍 New WebSocket connection - Batch: %s, Watcher: %s", batchID, watcherID)

	group := h.getOrCreateGroup(batchID)
	h.addWatcher(group, client)

	go client.writePump()
	go client.readPump(group)
}

// readPump - watchers only listen; inbound frames are drained and ignored
// until the connection drops.
func (c *Client) readPump(group *watchGroup) {
	defer func() {
		group.removeWatcher(c.watcherID)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
