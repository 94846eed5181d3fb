package worker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
	redisclient "github.com/art-solutions/nanobana-gen/modules/common/redis"
	"github.com/art-solutions/nanobana-gen/modules/job"
)

// EnqueueHandler - pushes pending job ids onto the Redis queue for the
// background worker to pick up.
type EnqueueHandler struct {
	rdb  *redis.Client
	jobs *job.Service
}

// EnqueueRequest - enqueue payload.
type EnqueueRequest struct {
	JobID string `json:"job_id"`
}

// EnqueueResponse - enqueue result.
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewEnqueueHandler - handler over an established Redis connection.
func NewEnqueueHandler(rdb *redis.Client, jobs *job.Service) *EnqueueHandler {
	if rdb == nil {
		log.Println("⚠️ [Enqueue] No Redis connection, enqueue endpoint disabled")
		return nil
	}

	log.Println("✅ [Enqueue] Handler initialized with Redis connection")
	return &EnqueueHandler{rdb: rdb, jobs: jobs}
}

// RegisterRoutes - legacy path kept alongside the /api one.
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	log.Println("✅ Enqueue routes registered: /enqueue, /api/enqueue")
}

// HandleEnqueue - POST /enqueue. Only pending jobs may enter the queue;
// anything terminal or already claimed is rejected here rather than popped
// and dropped by the worker later.
func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.JobID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "job_id is required",
		})
		return
	}

	log.Printf("📥 [Enqueue] Received job_id: %s", req.JobID)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	j, err := h.jobs.GetJob(ctx, req.JobID)
	if err != nil {
		log.Printf("❌ [Enqueue] Job lookup failed: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(EnqueueResponse{Success: false, Error: err.Error()})
		return
	}
	if j.JobStatus != model.StatusPending {
		log.Printf("⚠️ [Enqueue] Job %s is %s, refusing to enqueue", j.JobID, j.JobStatus)
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "only pending jobs can be enqueued",
			JobID:   j.JobID,
		})
		return
	}

	if _, err := h.rdb.LPush(ctx, redisclient.QueueKey, req.JobID).Result(); err != nil {
		log.Printf("❌ [Enqueue] Redis LPUSH failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	queueLen, _ := h.rdb.LLen(ctx, redisclient.QueueKey).Result()

	log.Printf("✅ [Enqueue] Job %s enqueued successfully (position: %d)", req.JobID, queueLen)

	json.NewEncoder(w).Encode(EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		JobID:         req.JobID,
		Queue:         redisclient.QueueKey,
		QueuePosition: queueLen,
	})
}
