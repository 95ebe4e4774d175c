package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/pipeline"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"go.uber.org/zap"
)

// Paging limits for /swaps
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Analyzer produces a fresh analysis of the configured input
type Analyzer interface {
	Analyze(ctx context.Context) (*pipeline.Result, error)
}

// Handlers serves the current analysis. Reload replaces it under the write
// lock; readers never see a partial result.
type Handlers struct {
	analyzer Analyzer
	input    string
	version  string
	logger   *zap.Logger

	mu         sync.RWMutex
	current    *pipeline.Result
	analyzedAt time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(analyzer Analyzer, input, version string, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		analyzer: analyzer,
		input:    input,
		version:  version,
		logger:   logger,
	}
}

// Load runs the analyzer and publishes its result
func (h *Handlers) Load(ctx context.Context) error {
	res, err := h.analyzer.Analyze(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.current = res
	h.analyzedAt = time.Now().UTC()
	h.mu.Unlock()
	return nil
}

// Current returns the published result, or nil before the first load
func (h *Handlers) Current() *pipeline.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Handlers) analysis(w http.ResponseWriter) *interfaces.Analysis {
	res := h.Current()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no analysis loaded")
		return nil
	}
	return res.Analysis
}

// GetStatus reports what is loaded
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	res, at := h.current, h.analyzedAt
	h.mu.RUnlock()

	status := &interfaces.StatusResponse{
		Status:  "loading",
		Version: h.version,
		Input:   h.input,
	}
	if res != nil {
		s := res.Analysis.Summary
		status.Status = "ready"
		status.AnalyzedAt = at
		status.Swaps = s.TotalSwaps
		status.Triples = s.TotalTriples()
		status.Victims = s.Victims
	}
	writeJSON(w, http.StatusOK, status)
}

// GetSummary returns the analysis summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	a := h.analysis(w)
	if a == nil {
		return
	}
	writeJSON(w, http.StatusOK, a.Summary)
}

// GetSwaps lists records filtered by direction and role
func (h *Handlers) GetSwaps(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseSwapFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	a := h.analysis(w)
	if a == nil {
		return
	}

	matched := make([]types.IndicatorRecord, 0)
	for i := range a.Records {
		rec := &a.Records[i]
		if filter.Direction != "" && rec.Swap.Direction != filter.Direction {
			continue
		}
		if filter.Role != types.AdjacencyNone && !rec.Roles.Has(filter.Role) {
			continue
		}
		matched = append(matched, *rec)
	}

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)

	writeJSON(w, http.StatusOK, &interfaces.SwapListResponse{
		Swaps:  matched[start:end],
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetSwap returns one record by query id
func (h *Handlers) GetSwap(w http.ResponseWriter, r *http.Request) {
	queryID := mux.Vars(r)["query_id"]
	a := h.analysis(w)
	if a == nil {
		return
	}
	rec, ok := a.Record(queryID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "swap "+queryID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetTriples lists sandwich candidates, optionally by confidence
func (h *Handlers) GetTriples(w http.ResponseWriter, r *http.Request) {
	confidence := types.Confidence(r.URL.Query().Get("confidence"))
	if confidence != "" && !validConfidence(confidence) {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown confidence "+string(confidence))
		return
	}
	a := h.analysis(w)
	if a == nil {
		return
	}

	views := make([]interfaces.TripleView, 0, len(a.Triples))
	for _, t := range a.Triples {
		if confidence != "" && t.Confidence != confidence {
			continue
		}
		views = append(views, interfaces.TripleView{
			Triple:       t,
			FrontRecord:  a.Records[t.Front],
			VictimRecord: a.Records[t.Victim],
			BackRecord:   a.Records[t.Back],
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// GetPairs lists the candidates of one pair scan
func (h *Handlers) GetPairs(w http.ResponseWriter, r *http.Request) {
	kind := types.PairKind(mux.Vars(r)["kind"])
	if !validPairKind(kind) {
		writeError(w, http.StatusNotFound, "not_found", "unknown pair kind "+string(kind))
		return
	}
	a := h.analysis(w)
	if a == nil {
		return
	}

	pairs := a.Pairs[kind]
	if pairs == nil {
		pairs = []types.Pair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}

// Reload re-runs the analysis on the input file
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Load(r.Context()); err != nil {
		h.logger.Error("reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	h.GetStatus(w, r)
}

// Helper functions

func parseSwapFilter(r *http.Request) (*interfaces.SwapFilter, string) {
	q := r.URL.Query()
	filter := &interfaces.SwapFilter{Limit: DefaultPageLimit}

	if d := q.Get("direction"); d != "" {
		filter.Direction = types.ParseDirection(d)
		if !filter.Direction.Valid() {
			return nil, "unknown direction " + d
		}
	}
	if role := q.Get("role"); role != "" {
		parsed, err := types.ParseAdjacencyRole(role)
		if err != nil {
			return nil, err.Error()
		}
		filter.Role = parsed
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return nil, "limit must be a positive integer"
		}
		filter.Limit = min(n, MaxPageLimit)
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return nil, "offset must be a non-negative integer"
		}
		filter.Offset = n
	}
	return filter, ""
}

func validConfidence(c types.Confidence) bool {
	for _, known := range types.Confidences {
		if c == known {
			return true
		}
	}
	return false
}

func validPairKind(k types.PairKind) bool {
	for _, known := range types.PairKinds {
		if k == known {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &interfaces.ErrorResponse{Error: code, Message: message, Code: status})
}
