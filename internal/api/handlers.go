package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

const dateLayout = "2006-01-02"

type cowRequest struct {
	TagNumber       string           `json:"tag_number"`
	FreshenDate     string           `json:"freshen_date"`
	PurchasePrice   decimal.Decimal  `json:"purchase_price"`
	SalvageValue    *decimal.Decimal `json:"salvage_value,omitempty"`
	AcquisitionType string           `json:"acquisition_type"`
}

func (s *Server) handleRegisterCow(w http.ResponseWriter, r *http.Request) {
	var req cowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	freshen, err := time.ParseInLocation(dateLayout, req.FreshenDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "freshen_date must be YYYY-MM-DD")
		return
	}
	cow := &herd.Cow{
		TenantID:        tenantFrom(r),
		TagNumber:       req.TagNumber,
		FreshenDate:     freshen,
		PurchasePrice:   req.PurchasePrice,
		AcquisitionType: herd.AcquisitionType(req.AcquisitionType),
	}
	if req.SalvageValue != nil {
		cow.SalvageValue = *req.SalvageValue
	}
	stored, err := s.engine.RegisterCow(r.Context(), cow)
	if err != nil {
		if engine.IsInvariant(err) {
			writeEngineError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleListCows(w http.ResponseWriter, r *http.Request) {
	status := herd.CowStatus(r.URL.Query().Get("status"))
	cows, err := s.cows.ListCows(r.Context(), tenantFrom(r), status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cows == nil {
		cows = []herd.Cow{}
	}
	writeJSON(w, http.StatusOK, cows)
}

func (s *Server) handleGetCow(w http.ResponseWriter, r *http.Request) {
	cow, err := s.cows.GetCow(r.Context(), chi.URLParam(r, "cowID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cow.TenantID != tenantFrom(r) {
		writeError(w, http.StatusNotFound, herd.ErrCowNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, cow)
}

func (s *Server) handlePostAcquisition(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.PostAcquisition(r.Context(), chi.URLParam(r, "cowID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCatchUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThroughDate string `json:"through_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	through, err := time.ParseInLocation(dateLayout, req.ThroughDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "through_date must be YYYY-MM-DD")
		return
	}
	res, err := s.engine.CatchUpCow(r.Context(), chi.URLParam(r, "cowID"), through)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type dispositionRequest struct {
	CowID           string          `json:"cow_id"`
	DispositionDate string          `json:"disposition_date"`
	DispositionType string          `json:"disposition_type"`
	SaleAmount      decimal.Decimal `json:"sale_amount"`
	Post            bool            `json:"post"`
}

func (s *Server) handleRecordDisposition(w http.ResponseWriter, r *http.Request) {
	var req dispositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, err := time.ParseInLocation(dateLayout, req.DispositionDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "disposition_date must be YYYY-MM-DD")
		return
	}
	d := &herd.Disposition{
		TenantID:        tenantFrom(r),
		CowID:           req.CowID,
		DispositionDate: day,
		DispositionType: herd.DispositionType(req.DispositionType),
		SaleAmount:      req.SaleAmount,
	}
	stored, err := s.engine.RecordDisposition(r.Context(), d)
	if err != nil {
		if engine.IsInvariant(err) {
			writeEngineError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Post {
		res, err := s.engine.PostDisposition(r.Context(), stored.ID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetDisposition(w http.ResponseWriter, r *http.Request) {
	d, err := s.cows.GetDisposition(r.Context(), chi.URLParam(r, "dispositionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if d.TenantID != tenantFrom(r) {
		writeError(w, http.StatusNotFound, herd.ErrDispositionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePostDisposition(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.PostDisposition(r.Context(), chi.URLParam(r, "dispositionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReinstateDisposition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	res, err := s.engine.ReinstateDisposition(r.Context(), chi.URLParam(r, "dispositionID"), req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type monthlyRequest struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Mode  string `json:"mode,omitempty"`
	Force bool   `json:"force_recreate,omitempty"`
}

func (s *Server) handlePostMonthly(w http.ResponseWriter, r *http.Request) {
	var req monthlyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 1900 {
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year plausible")
		return
	}
	mode := settings.ProcessingMode(req.Mode)
	if mode != "" && !mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be historical or production")
		return
	}
	res, err := s.engine.PostMonthlyDepreciation(r.Context(), tenantFrom(r),
		ledger.Period{Year: req.Year, Month: time.Month(req.Month)}, mode, req.Force)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.journal.GetEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if entry.TenantID != tenantFrom(r) {
		writeError(w, http.StatusNotFound, ledger.ErrEntryNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleReverseEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	entryID := chi.URLParam(r, "entryID")
	entry, err := s.journal.GetEntry(r.Context(), entryID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if entry.TenantID != tenantFrom(r) {
		writeError(w, http.StatusNotFound, ledger.ErrEntryNotFound.Error())
		return
	}
	res, err := s.engine.ReverseEntry(r.Context(), entryID, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProcessingLog(w http.ResponseWriter, r *http.Request) {
	logs, err := s.journal.ListProcessingLogs(r.Context(), tenantFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if logs == nil {
		logs = []ledger.ProcessingLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleProcessHistorical(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartYear int `json:"start_year,omitempty"`
		EndYear   int `json:"end_year,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.ProcessHistorical(r.Context(), tenantFrom(r), req.StartYear, req.EndYear)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProcessMissing(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ProcessMissingJournals(r.Context(), tenantFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.DashboardStats(r.Context(), tenantFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year query parameter is required")
		return
	}
	adjust := r.URL.Query().Get("adjust") == "true"
	rec, err := s.reports.MonthlyReconciliation(r.Context(), tenantFrom(r), year, adjust)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.settings.Get(r.Context(), tenantFrom(r))
	if errors.Is(err, settings.ErrSettingsNotFound) {
		writeJSON(w, http.StatusOK, settings.Default(tenantFrom(r)))
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var set settings.DepreciationSettings
	if !decodeJSON(w, r, &set) {
		return
	}
	set.TenantID = tenantFrom(r)
	if set.Method == "" {
		set.Method = "straight-line"
	}
	if err := set.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.settings.Upsert(r.Context(), &set); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	overrides, err := s.settings.AccountOverrides(r.Context(), tenantFrom(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	chart := ledger.NewChart(overrides)
	resolved := make(map[ledger.AccountRole]ledger.Account, len(ledger.Roles()))
	for _, role := range ledger.Roles() {
		resolved[role] = chart.Resolve(role)
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) handlePutAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	role := ledger.AccountRole(req.Role)
	if !ledger.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "unknown account role")
		return
	}
	err := s.settings.UpsertAccountOverride(r.Context(), tenantFrom(r), role, ledger.Account{Code: req.Code, Name: req.Name})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": req.Role, "code": req.Code, "name": req.Name})
}
