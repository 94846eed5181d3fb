package preset

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
)

type PresetHandler struct {
	service *Service
}

func NewPresetHandler(service *Service) *PresetHandler {
	return &PresetHandler{service: service}
}

// RegisterRoutes - preset CRUD endpoints. The static check-name route is
// registered before the {name} routes so mux never treats it as a name.
func (h *PresetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/presets/check-name", h.CheckName).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/presets/id/{presetId}", h.GetPresetByID).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/presets", h.CreatePreset).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/presets", h.ListPresets).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/presets/{name}", h.GetPreset).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/presets/{name}", h.UpdatePreset).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/presets/{name}", h.DeletePreset).Methods("DELETE", "OPTIONS")
	log.Println("✅ Preset routes registered: /api/presets, /api/presets/{name}, /api/presets/check-name")
}

// CreatePreset - register a new named locale config.
func (h *PresetHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req CreatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse preset request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Invalid request format",
		})
		return
	}

	p, err := h.service.CreatePreset(r.Context(), req)
	if err != nil {
		log.Printf("❌ Failed to create preset: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PresetResponse{Success: true, Preset: p})
}

// ListPresets - summaries of all presets.
func (h *PresetHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	summaries, err := h.service.ListPresets(r.Context())
	if err != nil {
		log.Printf("❌ Failed to list presets: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ListPresetsResponse{Presets: summaries, Total: len(summaries)})
}

// GetPreset - full preset by name.
func (h *PresetHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	p, err := h.service.GetPreset(r.Context(), vars["name"])
	if err != nil {
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// GetPresetByID - full preset by id, for clients holding a job's snapshot
// provenance.
func (h *PresetHandler) GetPresetByID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	p, err := h.service.GetPresetByID(r.Context(), vars["presetId"])
	if err != nil {
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// UpdatePreset - replace the stored config for a name.
func (h *PresetHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req UpdatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Failed to parse preset update: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Invalid request format",
		})
		return
	}

	vars := mux.Vars(r)
	p, err := h.service.UpdatePreset(r.Context(), vars["name"], req.Config)
	if err != nil {
		log.Printf("❌ Failed to update preset: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PresetResponse{Success: true, Preset: p})
}

// DeletePreset - remove a preset by name.
func (h *PresetHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	name := vars["name"]
	if err := h.service.DeletePreset(r.Context(), name); err != nil {
		log.Printf("❌ Failed to delete preset: %v", err)
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(DeletePresetResponse{
		Success: true,
		Message: "Preset " + name + " deleted",
	})
}

// CheckName - advisory availability probe for the create form.
func (h *PresetHandler) CheckName(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	name := r.URL.Query().Get("name")
	available, err := h.service.IsNameAvailable(r.Context(), name)
	if err != nil {
		w.WriteHeader(apperr.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CheckNameResponse{Name: name, Available: available})
}
