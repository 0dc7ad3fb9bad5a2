package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/submit"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// JobHandler handles job submission and status endpoints
// ⭐ SSOT: 잡 API는 이 구조체에서만
type JobHandler struct {
	jobs      contracts.JobRepository
	runs      contracts.RunRepository
	submitter *submit.Submitter
	configID  string
	logger    *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs contracts.JobRepository, runs contracts.RunRepository, submitter *submit.Submitter, configID string, log *logger.Logger) *JobHandler {
	return &JobHandler{
		jobs:      jobs,
		runs:      runs,
		submitter: submitter,
		configID:  configID,
		logger:    log,
	}
}

// SubmitRequest represents a job submission request
type SubmitRequest struct {
	JobType    string `json:"job_type"`            // full, evaluate, state, score, review (or stage alias)
	AsOfDate   string `json:"as_of_date"`          // YYYY-MM-DD, default today
	UniverseID string `json:"universe_id"`
	ConfigID   string `json:"config_id,omitempty"` // default: server's active config
}

// Submit creates a job row and enqueues its message
// POST /api/jobs
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	jobType, err := contracts.ParseJobType(req.JobType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.UniverseID == "" {
		respondError(w, http.StatusBadRequest, "universe_id is required")
		return
	}

	asOf := time.Now()
	if req.AsOfDate != "" {
		asOf, err = time.Parse("2006-01-02", req.AsOfDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "as_of_date must be YYYY-MM-DD")
			return
		}
	}

	configID := req.ConfigID
	if configID == "" {
		configID = h.configID
	}

	job, err := h.submitter.Submit(ctx, jobType, asOf, req.UniverseID, configID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to submit job")
		respondError(w, http.StatusInternalServerError, "Failed to submit job")
		return
	}

	respondJSON(w, http.StatusCreated, job)
}

// JobStatusResponse bundles a job with its execution attempts
type JobStatusResponse struct {
	Job  *contracts.Job           `json:"job"`
	Runs []*contracts.PipelineRun `json:"runs"`
}

// GetJob returns a job and its audit runs
// GET /api/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := mux.Vars(r)["id"]

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	runs, err := h.runs.ListByJob(ctx, jobID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query job runs")
		respondError(w, http.StatusInternalServerError, "Failed to query job runs")
		return
	}

	respondJSON(w, http.StatusOK, JobStatusResponse{Job: job, Runs: runs})
}
