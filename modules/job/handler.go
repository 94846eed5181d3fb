package job

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/fallback"
)

type JobHandler struct {
	service *Service
}

func NewJobHandler(service *Service) *JobHandler {
	return &JobHandler{service: service}
}

// RegisterRoutes - job submission and query endpoints.
func (h *JobHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs", h.CreateJob).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/jobs", h.ListJobs).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/jobs/{jobId}", h.GetJob).Methods("GET", "OPTIONS")
	log.Println("✅ Job routes registered: /api/jobs, /api/jobs/{jobId}")
}

// CreateJob - submit a single localization job.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse job request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Invalid request format",
		})
		return
	}

	j, err := h.service.CreateJob(r.Context(), req)
	if err != nil {
		log.Printf("❌ Failed to create job: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CreateJobResponse{Success: true, JobID: j.JobID, Job: j})
}

// GetJob - full job record by id.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	j, err := h.service.GetJob(r.Context(), vars["jobId"])
	if err != nil {
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(j)
}

// ListJobs - filtered page; ?status= and ?batch= narrow, ?limit= and
// ?offset= page.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	q := r.URL.Query()
	f := Filter{
		Status:  q.Get("status"),
		BatchID: q.Get("batch"),
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit = fallback.SafeLimit(limit, 50, 200)
	offset = fallback.SafeOffset(offset)

	items, total, err := h.service.ListJobs(r.Context(), f, limit, offset)
	if err != nil {
		log.Printf("❌ Failed to list jobs: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ListJobsResponse{Items: items, Total: total})
}
