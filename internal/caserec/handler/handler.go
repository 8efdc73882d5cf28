// Package handler exposes the case-processing API: citizen submission,
// employee review, HITL resolution, audit retrieval, exports, and the live
// log stream.
package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"meldeamt/internal/audit"
	"meldeamt/internal/broadcast"
	"meldeamt/internal/caserec/models"
	"meldeamt/internal/caserec/store"
	"meldeamt/internal/intake"
	"meldeamt/internal/pipeline"
	id "meldeamt/pkg/domain"
	dErrors "meldeamt/pkg/domain-errors"
	"meldeamt/pkg/platform/httputil"
	"meldeamt/pkg/platform/sentinel"
)

// Handler wires the case API onto a chi router.
type Handler struct {
	intake   *intake.Service
	docs     *intake.DocumentIntake
	cases    store.CaseStore
	recorder *audit.Recorder
	runner   *pipeline.Runner
	hub      *broadcast.Hub
	logger   *slog.Logger
}

func New(intakeSvc *intake.Service, docs *intake.DocumentIntake, cases store.CaseStore, recorder *audit.Recorder, runner *pipeline.Runner, hub *broadcast.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		intake:   intakeSvc,
		docs:     docs,
		cases:    cases,
		recorder: recorder,
		runner:   runner,
		hub:      hub,
		logger:   logger,
	}
}

// Routes registers the public routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/submit-case", h.SubmitCase)
	r.Post("/submit-documents", h.SubmitDocuments)
}

// AdminRoutes registers the routes behind employee authentication.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/cases/{caseID}", h.GetCase)
	r.Get("/cases/{caseID}/audit", h.GetAuditLog)
	r.Get("/admin/pending-cases", h.ListPendingCases)
	r.Get("/admin/completed-cases", h.ListCompletedCases)
	r.Get("/admin/hitl-cases", h.ListHITLCases)
	r.Post("/admin/approve-case/{caseID}", h.ApproveCase)
	r.Post("/admin/resolve-hitl/{caseID}", h.ResolveHITL)
	r.Post("/address-change/run", h.RunPipeline)
	r.Get("/admin/export.csv", h.ExportCSV)
}

type submitRequest struct {
	CitizenName  string `json:"citizen_name"`
	DOB          string `json:"dob"`
	Email        string `json:"email"`
	OldAddress   string `json:"old_address"`
	NewAddress   string `json:"new_address"`
	MoveInDate   string `json:"move_in_date"`
	LandlordName string `json:"landlord_name"`
}

type submitResponse struct {
	CaseID string        `json:"case_id"`
	Status models.Status `json:"status"`
}

// SubmitCase accepts a new address-change request from the citizen portal.
func (h *Handler) SubmitCase(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	c, err := h.intake.Submit(r.Context(), intake.Submission{
		CitizenName:  req.CitizenName,
		DOB:          req.DOB,
		Email:        req.Email,
		OldAddress:   req.OldAddress,
		NewAddress:   req.NewAddress,
		MoveInDate:   req.MoveInDate,
		LandlordName: req.LandlordName,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, submitResponse{CaseID: string(c.ID), Status: c.Status})
}

type documentRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type submitDocumentsRequest struct {
	Documents []documentRequest `json:"documents"`
}

// SubmitDocuments creates a case from uploaded document texts.
func (h *Handler) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	var req submitDocumentsRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	docs := make([]intake.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, intake.Document{Filename: d.Filename, Text: d.Text})
	}
	c, err := h.docs.Submit(r.Context(), docs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, submitResponse{CaseID: string(c.ID), Status: c.Status})
}

// GetCase returns one case.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := h.caseIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	c, err := h.cases.Get(r.Context(), caseID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// GetAuditLog returns the full chronological audit trail of a case.
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	caseID, err := h.caseIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.cases.Get(r.Context(), caseID); err != nil {
		h.respondError(w, r, err)
		return
	}
	entries, err := h.recorder.List(r.Context(), caseID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"case_id": string(caseID),
		"entries": entries,
	})
}

func (h *Handler) ListPendingCases(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.StatusPendingReview, models.StatusPendingApproval)
}

func (h *Handler) ListCompletedCases(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.StatusClosed)
}

func (h *Handler) ListHITLCases(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.StatusWaitingForHuman)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request, statuses ...models.Status) {
	cases, err := h.cases.ListByStatus(r.Context(), statuses...)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if cases == nil {
		cases = []*models.Case{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

// ApproveCase moves a pending case into processing and starts the pipeline.
func (h *Handler) ApproveCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := h.caseIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.intake.Approve(r.Context(), caseID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"case_id": string(caseID),
		"status":  models.StatusProcessing,
	})
}

type resolveRequest struct {
	CorrectedAddress string `json:"corrected_address"`
}

// ResolveHITL applies a human correction to a paused case. Preconditions are
// checked synchronously; the pipeline resumes in the background.
func (h *Handler) ResolveHITL(w http.ResponseWriter, r *http.Request) {
	caseID, err := h.caseIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.intake.ResolveHITL(r.Context(), caseID, strings.TrimSpace(req.CorrectedAddress)); err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"case_id": string(caseID),
		"status":  models.StatusQualityOK,
	})
}

type runRequest struct {
	CaseID string `json:"case_id"`
}

// RunPipeline re-triggers the pipeline for a case already in processing.
// Duplicate triggers lose the ingest swap and change nothing.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	caseID := id.NormalizeCaseID(req.CaseID)
	if caseID.IsZero() {
		h.respondError(w, r, dErrors.New(dErrors.CodeBadRequest, "case_id is required"))
		return
	}
	if _, err := h.cases.Get(r.Context(), caseID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.runner.Start(caseID)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"case_id": string(caseID)})
}

// ExportCSV streams all cases as a CSV document.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	cases, err := h.cases.ListAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cases.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"case_id", "citizen_name", "email", "new_address_raw",
		"canonical_address", "move_in_date", "status", "created_at",
	})
	for _, c := range cases {
		_ = cw.Write([]string{
			string(c.ID), c.CitizenName, c.Email, c.NewAddressRaw,
			c.CanonicalAddress, c.MoveInDateRaw, string(c.Status),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
}

// StreamLogs pushes live audit events as server-sent events.
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, r, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.hub.Subscribe()
	defer h.hub.Unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *Handler) caseIDParam(r *http.Request) (id.CaseID, error) {
	caseID := id.NormalizeCaseID(chi.URLParam(r, "caseID"))
	if caseID.IsZero() {
		return "", dErrors.New(dErrors.CodeBadRequest, "case id is required")
	}
	return caseID, nil
}

// respondError translates bare store sentinels into coded errors before
// rendering. Errors the services already coded pass through untouched.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			err = dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			err = dErrors.Wrap(err, dErrors.CodeConflict, "case is in a conflicting state")
		default:
			h.logger.ErrorContext(r.Context(), "unhandled error",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
		}
	}
	httputil.WriteError(w, err)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
