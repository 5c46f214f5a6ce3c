// Package engine provides the HTTP handlers and business logic for
// solving rates, evaluating TVM closed forms, and generating
// amortization schedules.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The float64 solver core sits behind this boundary; amounts convert on
// the way in and results convert back on the way out.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ratecore/rate-engine/internal/amort"
	"github.com/ratecore/rate-engine/internal/limits"
	"github.com/ratecore/rate-engine/internal/metrics"
	"github.com/ratecore/rate-engine/internal/model"
	"github.com/ratecore/rate-engine/internal/solver"
	"github.com/ratecore/rate-engine/internal/store"
	"github.com/ratecore/rate-engine/internal/tvm"
)

// Service handles solver and schedule operations. Handlers are
// stateless; every solve appends an immutable analysis record, so no
// request serialization is needed.
type Service struct {
	store     store.Store
	guard     *limits.RequestGuard
	sched     *amort.Engine
	guess     float64
	tolerance float64
	wsHub     *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new engine service. Zero guess and tolerance fall
// back to the solver defaults. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, guard *limits.RequestGuard, sched *amort.Engine, hub *WSHub, guess, tolerance float64) *Service {
	if guess == 0 {
		guess = solver.DefaultGuess
	}
	if tolerance <= 0 {
		tolerance = solver.DefaultTolerance
	}
	return &Service{
		store:     st,
		guard:     guard,
		sched:     sched,
		guess:     guess,
		tolerance: tolerance,
		wsHub:     hub,
	}
}

// --- Request/Response types ---

// SolveRequest is the JSON body for POST /solve/irr and /solve/xirr.
type SolveRequest struct {
	Amounts     []decimal.Decimal `json:"amounts"`
	Dates       []string          `json:"dates,omitempty"` // YYYY-MM-DD, xirr only
	Guess       *float64          `json:"guess,omitempty"`
	Tolerance   *float64          `json:"tolerance,omitempty"`
	RequestedBy string            `json:"requested_by,omitempty"`
}

// SolveResponse is the JSON body returned from the solve endpoints.
type SolveResponse struct {
	AnalysisID string   `json:"analysis_id"`
	Kind       string   `json:"kind"`
	Rate       *float64 `json:"rate"` // null when the solve did not converge
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
	Residual   *float64 `json:"residual,omitempty"` // null when not finite
}

// NPVRequest is the JSON body for POST /npv and /xnpv.
type NPVRequest struct {
	Rate    float64           `json:"rate"`
	Amounts []decimal.Decimal `json:"amounts"`
	Dates   []string          `json:"dates,omitempty"` // YYYY-MM-DD, xnpv only
}

// NPVResponse is the JSON body returned from the discounting endpoints.
type NPVResponse struct {
	Value decimal.Decimal `json:"value"`
}

// TVMRequest is the JSON body for POST /tvm/{function}. Fields are read
// per function; unused ones are ignored.
type TVMRequest struct {
	Rate         float64           `json:"rate"`
	Nper         int               `json:"nper,omitempty"`
	Per          int               `json:"per,omitempty"` // ipmt/ppmt period, 1-based
	Pmt          decimal.Decimal   `json:"pmt,omitempty"`
	PV           decimal.Decimal   `json:"pv,omitempty"`
	FV           decimal.Decimal   `json:"fv,omitempty"`
	When         string            `json:"when,omitempty"`          // "end" (default) or "begin"
	Values       []decimal.Decimal `json:"values,omitempty"`        // mirr
	FinanceRate  float64           `json:"finance_rate,omitempty"`  // mirr
	ReinvestRate float64           `json:"reinvest_rate,omitempty"` // mirr
}

// TVMResponse is the JSON body returned from POST /tvm/{function}.
type TVMResponse struct {
	Function string          `json:"function"`
	Value    decimal.Decimal `json:"value"`
}

// ScheduleRequest is the JSON body for POST /amortization.
type ScheduleRequest struct {
	Principal       decimal.Decimal `json:"principal"`
	AnnualRate      float64         `json:"annual_rate"` // nominal, e.g. 0.06
	PaymentsPerYear int             `json:"payments_per_year"`
	Periods         int             `json:"periods"`
	FirstDueDate    string          `json:"first_due_date,omitempty"` // YYYY-MM-DD
}

// --- HTTP Handlers ---

// SolveIRR handles POST /api/v1/solve/irr
// Solves the periodic internal rate of return for an ordered series.
func (s *Service) SolveIRR(w http.ResponseWriter, r *http.Request) {
	s.solve(w, r, "irr")
}

// SolveXIRR handles POST /api/v1/solve/xirr
// Solves the dated internal rate of return on actual/365 offsets.
func (s *Service) SolveXIRR(w http.ResponseWriter, r *http.Request) {
	s.solve(w, r, "xirr")
}

// solve runs one Newton solve, records the analysis, and broadcasts the
// outcome. Non-convergence is a result (converged=false, rate=null), not
// an error status.
func (s *Service) solve(w http.ResponseWriter, r *http.Request, kind string) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.guard.CheckSeries(req.Amounts); err != nil {
		metrics.LimitRejections.Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	guess, tolerance := s.guess, s.tolerance
	if req.Guess != nil {
		if *req.Guess <= -1 {
			writeError(w, "guess must be greater than -1", http.StatusBadRequest)
			return
		}
		guess = *req.Guess
	}
	if req.Tolerance != nil {
		if *req.Tolerance <= 0 {
			writeError(w, "tolerance must be positive", http.StatusBadRequest)
			return
		}
		tolerance = *req.Tolerance
	}

	amounts := toFloats(req.Amounts)

	var (
		res   solver.Result
		dates []time.Time
		err   error
	)

	start := time.Now()
	if kind == "xirr" {
		dates, err = parseDates(req.Dates)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err = solver.XIRR(amounts, dates, guess, tolerance)
	} else {
		res, err = solver.IRR(amounts, guess, tolerance)
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.SolveDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	outcome := "diverged"
	rateStr := ""
	if res.Converged {
		outcome = "converged"
		rateStr = strconv.FormatFloat(*res.Rate, 'f', -1, 64)
	}
	metrics.SolvesTotal.WithLabelValues(kind, outcome).Inc()
	metrics.SolverIterations.WithLabelValues(kind).Observe(float64(res.Iterations))

	analysis := &model.Analysis{
		ID:          uuid.New().String(),
		Kind:        kind,
		Amounts:     req.Amounts,
		Dates:       dates,
		Guess:       guess,
		Tolerance:   tolerance,
		Rate:        res.Rate,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Residual:    finitePtr(res.Residual),
		RequestedBy: req.RequestedBy,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.InsertAnalysis(r.Context(), analysis); err != nil {
		writeError(w, "failed to record analysis", http.StatusInternalServerError)
		return
	}

	slog.Info("solve completed",
		"analysis_id", analysis.ID,
		"kind", kind,
		"converged", res.Converged,
		"iterations", res.Iterations,
		"rate", rateStr,
	)

	// Broadcast the outcome via WebSocket.
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:       "analysis_completed",
			AnalysisID: analysis.ID,
			Kind:       kind,
			Rate:       rateStr,
			Iterations: res.Iterations,
			Converged:  res.Converged,
		})
	}

	resp := SolveResponse{
		AnalysisID: analysis.ID,
		Kind:       kind,
		Rate:       res.Rate,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Residual:   analysis.Residual,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ComputeNPV handles POST /api/v1/npv
// Discounts a periodic series at a fixed rate; the first amount is not
// discounted.
func (s *Service) ComputeNPV(w http.ResponseWriter, r *http.Request) {
	var req NPVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Amounts) == 0 {
		writeError(w, "amounts must not be empty", http.StatusBadRequest)
		return
	}
	if err := s.guard.CheckSeries(req.Amounts); err != nil {
		metrics.LimitRejections.Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rate == -1 {
		writeError(w, "rate must not be -1", http.StatusBadRequest)
		return
	}

	v := tvm.NPV(req.Rate, toFloats(req.Amounts))
	writeValue(w, v)
}

// ComputeXNPV handles POST /api/v1/xnpv
// Discounts a dated series at a fixed rate on actual/365 offsets.
func (s *Service) ComputeXNPV(w http.ResponseWriter, r *http.Request) {
	var req NPVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.guard.CheckSeries(req.Amounts); err != nil {
		metrics.LimitRejections.Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rate <= -1 {
		writeError(w, "rate must be greater than -1", http.StatusBadRequest)
		return
	}

	dates, err := parseDates(req.Dates)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := tvm.XNPV(req.Rate, toFloats(req.Amounts), dates)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeValue(w, v)
}

// ComputeTVM handles POST /api/v1/tvm/{function}
// Evaluates one closed-form function: fv, pv, pmt, nper, ipmt, ppmt, or
// mirr.
func (s *Service) ComputeTVM(w http.ResponseWriter, r *http.Request) {
	fn := chi.URLParam(r, "function")

	var req TVMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	when, ok := parseWhen(req.When)
	if !ok {
		writeError(w, `when must be "end" or "begin"`, http.StatusBadRequest)
		return
	}

	var v float64
	switch fn {
	case "fv":
		v = tvm.FV(req.Rate, req.Nper, req.Pmt.InexactFloat64(), req.PV.InexactFloat64(), when)
	case "pv":
		v = tvm.PV(req.Rate, req.Nper, req.Pmt.InexactFloat64(), req.FV.InexactFloat64(), when)
	case "pmt":
		if req.Nper < 1 {
			writeError(w, "nper must be at least 1", http.StatusBadRequest)
			return
		}
		v = tvm.Pmt(req.Rate, req.Nper, req.PV.InexactFloat64(), req.FV.InexactFloat64(), when)
	case "nper":
		v = tvm.Nper(req.Rate, req.Pmt.InexactFloat64(), req.PV.InexactFloat64(), req.FV.InexactFloat64(), when)
	case "ipmt", "ppmt":
		if req.Nper < 1 {
			writeError(w, "nper must be at least 1", http.StatusBadRequest)
			return
		}
		if req.Per < 1 || req.Per > req.Nper {
			writeError(w, "per must be between 1 and nper", http.StatusBadRequest)
			return
		}
		if fn == "ipmt" {
			v = tvm.IPmt(req.Rate, req.Per, req.Nper, req.PV.InexactFloat64(), req.FV.InexactFloat64(), when)
		} else {
			v = tvm.PPmt(req.Rate, req.Per, req.Nper, req.PV.InexactFloat64(), req.FV.InexactFloat64(), when)
		}
	case "mirr":
		if err := s.guard.CheckSeries(req.Values); err != nil {
			metrics.LimitRejections.Inc()
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Values) < 2 {
			writeError(w, "values must have at least 2 entries", http.StatusBadRequest)
			return
		}
		v = tvm.MIRR(toFloats(req.Values), req.FinanceRate, req.ReinvestRate)
	default:
		writeError(w, "unknown tvm function: "+fn, http.StatusNotFound)
		return
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		writeError(w, "result is not finite", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TVMResponse{Function: fn, Value: decimal.NewFromFloat(v)})
}

// BuildSchedule handles POST /api/v1/amortization
// Generates a fully amortizing loan schedule.
func (s *Service) BuildSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.guard.CheckTerm(req.Periods); err != nil {
		metrics.LimitRejections.Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan := amort.Loan{
		Principal:       req.Principal,
		AnnualRate:      req.AnnualRate,
		PaymentsPerYear: req.PaymentsPerYear,
		Periods:         req.Periods,
	}
	if req.FirstDueDate != "" {
		due, err := time.Parse(time.DateOnly, req.FirstDueDate)
		if err != nil {
			writeError(w, "first_due_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		loan.FirstDueDate = due
	}

	schedule, err := s.sched.Build(loan)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics.SchedulesTotal.Inc()
	slog.Info("schedule generated",
		"periods", req.Periods,
		"payment", schedule.Payment.String(),
		"total_interest", schedule.TotalInterest.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schedule)
}

// ListAnalyses handles GET /api/v1/analyses
// Returns recent analyses, newest first, capped by ?limit=N (default 50).
func (s *Service) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	analyses, err := s.store.ListAnalyses(r.Context(), limit)
	if err != nil {
		writeError(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyses)
}

// ListRequesterAnalyses handles GET /api/v1/requesters/{requester}/analyses
// Returns every analysis recorded for one requester, newest first.
func (s *Service) ListRequesterAnalyses(w http.ResponseWriter, r *http.Request) {
	requester := chi.URLParam(r, "requester")

	analyses, err := s.store.ListAnalysesByRequester(r.Context(), requester)
	if err != nil {
		writeError(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyses)
}

// GetAnalysis handles GET /api/v1/analyses/{analysisID}
func (s *Service) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "analysisID")

	analysis, err := s.store.GetAnalysis(r.Context(), analysisID)
	if err != nil {
		writeError(w, "analysis not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis)
}

// GetStats handles GET /api/v1/analyses/stats
// Returns solve-outcome aggregates across stored analyses.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		writeError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// --- Helpers ---

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeValue writes a computed float as a decimal JSON value, rejecting
// non-finite results.
func writeValue(w http.ResponseWriter, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		writeError(w, "result is not finite", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NPVResponse{Value: decimal.NewFromFloat(v)})
}

// toFloats converts decimal amounts for the float64 solver core.
func toFloats(amounts []decimal.Decimal) []float64 {
	out := make([]float64, len(amounts))
	for i, a := range amounts {
		out[i] = a.InexactFloat64()
	}
	return out
}

// parseDates parses YYYY-MM-DD date strings.
func parseDates(raw []string) ([]time.Time, error) {
	dates := make([]time.Time, len(raw))
	for i, s := range raw {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("dates[%d] must be YYYY-MM-DD", i)
		}
		dates[i] = d
	}
	return dates, nil
}

// parseWhen maps the JSON timing flag onto the TVM constant.
func parseWhen(raw string) (tvm.When, bool) {
	switch raw {
	case "", "end":
		return tvm.End, true
	case "begin":
		return tvm.Begin, true
	}
	return tvm.End, false
}

// finitePtr returns a pointer to v, or nil when v is NaN or infinite so
// the value can cross a JSON boundary.
func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
