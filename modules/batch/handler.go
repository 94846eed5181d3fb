package batch

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
)

type BatchHandler struct {
	service *Service
}

func NewBatchHandler(service *Service) *BatchHandler {
	return &BatchHandler{service: service}
}

// RegisterRoutes - batch endpoints.
func (h *BatchHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/batches", h.SubmitBatch).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/batches/{batchId}/process", h.ProcessBatch).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/batches/{batchId}/summary", h.GetSummary).Methods("GET", "OPTIONS")
	log.Println("✅ Batch routes registered: /api/batches, /api/batches/{batchId}/process, /api/batches/{batchId}/summary")
}

// SubmitBatch - create one pending job per source URL under a new batch id.
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse batch request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Invalid request format",
		})
		return
	}

	batchID, jobIDs, err := h.service.SubmitBatch(r.Context(), req)
	if err != nil {
		log.Printf("❌ Failed to submit batch: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SubmitBatchResponse{Success: true, BatchID: batchID, JobIDs: jobIDs})
}

// ProcessBatch - run the batch's pending jobs to a terminal status. The call
// reports success as long as the batch ran; per-job outcomes are in results.
func (h *BatchHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	batchID := mux.Vars(r)["batchId"]

	results, err := h.service.ProcessBatch(r.Context(), batchID)
	if err != nil {
		log.Printf("❌ Failed to process batch %s: %v", batchID, err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ProcessBatchResponse{Success: true, BatchID: batchID, Results: results})
}

// GetSummary - status counts and token total for one batch.
func (h *BatchHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	batchID := mux.Vars(r)["batchId"]

	summary, err := h.service.Summarize(r.Context(), batchID)
	if err != nil {
		log.Printf("❌ Failed to summarize batch %s: %v", batchID, err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SummaryResponse{Success: true, Summary: *summary})
}
