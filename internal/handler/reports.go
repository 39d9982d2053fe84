package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

// ReportsHandler serves the community sign-report CRUD surface. Every
// mutation triggers onChange so the override index is rebuilt from
// scratch rather than patched.
type ReportsHandler struct {
	store    *store.ReportStore
	validate *validator.Validate
	onChange func()
	logger   *slog.Logger
}

func NewReportsHandler(reportStore *store.ReportStore, onChange func(), logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{
		store:    reportStore,
		validate: validator.New(),
		onChange: onChange,
		logger:   logger.With("handler", "reports"),
	}
}

type ReportsResponse struct {
	Reports    []*domain.Report `json:"reports"`
	Count      int              `json:"count"`
	ServerTime time.Time        `json:"serverTime"`
}

func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports := h.store.List()
	respondJSON(w, http.StatusOK, ReportsResponse{
		Reports:    reports,
		Count:      len(reports),
		ServerTime: time.Now(),
	})
}

func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	report, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type CreateReportRequest struct {
	Street     string                  `json:"street" validate:"required,min=2"`
	SegmentIDs []string                `json:"segmentIds,omitempty" validate:"omitempty,dive,required"`
	Note       string                  `json:"note,omitempty" validate:"max=500"`
	PhotoRef   string                  `json:"photoRef,omitempty" validate:"omitempty,max=200"`
	Decoded    *domain.DecodedSchedule `json:"decoded,omitempty"`
}

func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.logger.Debug("report validation failed", "error", err)
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if req.Decoded != nil {
		if err := validateDecoded(req.Decoded); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := time.Now()
	report := &domain.Report{
		ID:          uuid.New().String(),
		Street:      req.Street,
		SegmentIDs:  req.SegmentIDs,
		Status:      domain.ReportPending,
		Decoded:     req.Decoded,
		Note:        req.Note,
		PhotoRef:    req.PhotoRef,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	h.store.Put(report)
	h.changed()

	h.logger.Info("report created", "report_id", report.ID, "street", report.Street)
	respondJSON(w, http.StatusCreated, report)
}

type UpdateReportRequest struct {
	Status  domain.ReportStatus     `json:"status" validate:"required,oneof=pending decoded rejected"`
	Decoded *domain.DecodedSchedule `json:"decoded,omitempty"`
}

func (h *ReportsHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if req.Status == domain.ReportDecoded {
		if req.Decoded == nil {
			respondError(w, http.StatusBadRequest, "decoded status requires a decoded schedule")
			return
		}
		if err := validateDecoded(req.Decoded); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	report, err := h.store.UpdateStatus(id, req.Status, req.Decoded)
	if errors.Is(err, store.ErrReportNotFound) {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.changed()

	h.logger.Info("report updated", "report_id", id, "status", req.Status)
	respondJSON(w, http.StatusOK, report)
}

func (h *ReportsHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Get(id); !ok {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}
	h.store.Delete(id)
	h.changed()

	h.logger.Info("report deleted", "report_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReportsHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

func validateDecoded(d *domain.DecodedSchedule) error {
	for _, list := range [][]domain.Interval{d.SunThu, d.Friday, d.Saturday} {
		for _, iv := range list {
			if iv.Start < 0 || iv.Start >= 24 || iv.End < 0 || iv.End > 24 {
				return errors.New("decoded interval hours must be within 0-24")
			}
		}
	}
	return nil
}
