package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"canvaslab/internal/models"
	"canvaslab/internal/repository"
	"canvaslab/internal/services/collaboration"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests.
type Handler struct {
	labRepo      LabRepository
	commitLog    CommitLog
	shapeHistory ShapeHistory
	wsHandler    *collaboration.WebSocketHandler
}

func NewHandler(
	labRepo LabRepository, // Accept interface
	commitLog CommitLog,
	shapeHistory ShapeHistory,
	wsHandler *collaboration.WebSocketHandler,
) *Handler {
	return &Handler{
		labRepo:      labRepo,
		commitLog:    commitLog,
		shapeHistory: shapeHistory,
		wsHandler:    wsHandler,
	}
}

// Lab handlers

func (h *Handler) CreateLab(w http.ResponseWriter, r *http.Request) {
	var in models.LabCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	created, err := h.labRepo.Create(r.Context(), &in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListLabs(w http.ResponseWriter, r *http.Request) {
	limit := 50 // default
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	labs, err := h.labRepo.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"labs":   labs,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetLab(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	lab, err := h.labRepo.Get(r.Context(), id)
	if errors.Is(err, repository.ErrLabNotFound) {
		http.Error(w, "lab not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, lab)
}

func (h *Handler) DeleteLab(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.labRepo.Delete(r.Context(), id)
	if errors.Is(err, repository.ErrLabNotFound) {
		http.Error(w, "lab not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLabCommits returns the lab's persisted commit history. Same data a
// joining socket receives as catch-up, exposed over REST for tooling.
func (h *Handler) GetLabCommits(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	commits, err := h.commitLog.Replay(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lab_id":  id,
		"commits": commits,
	})
}

// GetShapeCommits returns the commits that touched one shape, newest
// first, using the commit log's shape-id index.
func (h *Handler) GetShapeCommits(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	labID := vars["id"]
	shapeID := vars["shapeId"]

	records, err := h.shapeHistory.ListByShape(r.Context(), labID, shapeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lab_id":   labID,
		"shape_id": shapeID,
		"commits":  records,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"persist_queue": h.commitLog.QueueLength(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
