package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"holder-rewards/internal/domain"
)

const (
	defaultListLimit = 50
	defaultActor     = "admin"
)

type holderResponse struct {
	Address            string `json:"address"`
	RawBalance         uint64 `json:"raw_balance"`
	Decimals           uint8  `json:"decimals"`
	UnitPriceUSD       string `json:"unit_price_usd"`
	USDValue           string `json:"usd_value"`
	Tier               string `json:"tier"`
	Multiplier         int64  `json:"multiplier"`
	MembershipBaseline int64  `json:"membership_baseline"`
	BaseEntries        int64  `json:"base_entries"`
	FinalEntries       int64  `json:"final_entries"`
	DrawEntries        int64  `json:"draw_entries"`
	IsEligible         bool   `json:"is_eligible"`
	Excluded           bool   `json:"excluded"`
	ExclusionReason    string `json:"exclusion_reason,omitempty"`
	ExcludedBy         string `json:"excluded_by,omitempty"`
	SnapshotAt         string `json:"snapshot_at"`
}

func toHolderResponses(records []*domain.HolderRecord) []holderResponse {
	out := make([]holderResponse, 0, len(records))
	for _, r := range records {
		out = append(out, holderResponse{
			Address:            r.Address,
			RawBalance:         r.RawBalance,
			Decimals:           r.Decimals,
			UnitPriceUSD:       r.UnitPriceUSD.String(),
			USDValue:           r.USDValue.String(),
			Tier:               string(r.Tier),
			Multiplier:         r.Multiplier,
			MembershipBaseline: r.MembershipBaseline,
			BaseEntries:        r.BaseEntries,
			FinalEntries:       r.FinalEntries,
			DrawEntries:        r.DrawEntries(),
			IsEligible:         r.IsEligible,
			Excluded:           r.Excluded,
			ExclusionReason:    r.ExclusionReason,
			ExcludedBy:         r.ExcludedBy,
			SnapshotAt:         r.SnapshotAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

type exclusionResponse struct {
	ID        string     `json:"id"`
	Address   string     `json:"address"`
	Reason    string     `json:"reason"`
	AppliedBy string     `json:"applied_by"`
	AppliedAt time.Time  `json:"applied_at"`
	Active    bool       `json:"active"`
	LiftedBy  *string    `json:"lifted_by,omitempty"`
	LiftedAt  *time.Time `json:"lifted_at,omitempty"`
}

func toExclusionResponse(e *domain.ExclusionRecord) exclusionResponse {
	return exclusionResponse{
		ID:        e.ID,
		Address:   e.Address,
		Reason:    e.Reason,
		AppliedBy: e.AppliedBy,
		AppliedAt: e.AppliedAt,
		Active:    e.Active,
		LiftedBy:  e.LiftedBy,
		LiftedAt:  e.LiftedAt,
	}
}

func toExclusionResponses(list []*domain.ExclusionRecord) []exclusionResponse {
	out := make([]exclusionResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toExclusionResponse(e))
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.PrepareDraw(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEligible(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListEligible(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolderResponses(records))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListLedger(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolderResponses(records))
}

func (s *Server) handleListExclusions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Exclusions(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExclusionResponses(list))
}

type excludeRequest struct {
	Address   string `json:"address"`
	Reason    string `json:"reason"`
	AppliedBy string `json:"applied_by"`
}

func (s *Server) handleExclude(w http.ResponseWriter, r *http.Request) {
	var req excludeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	actor, err := adminActor(req.AppliedBy)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	rec, err := s.svc.Exclude(r.Context(), req.Address, req.Reason, actor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExclusionResponse(rec))
}

func (s *Server) handleInclude(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	actor, err := adminActor(r.URL.Query().Get("requested_by"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.svc.Include(r.Context(), address, actor); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExclusionHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ExclusionHistory(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExclusionResponses(list))
}

type drawRequest struct {
	PrizeAmount uint64 `json:"prize_amount"`
}

func (s *Server) handleRunDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := s.svc.RunDraw(r.Context(), req.PrizeAmount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDraws(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Draws(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*domain.DrawResult{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Distributions(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []*domain.Distribution{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStartMonitor(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StartMonitor(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleStopMonitor(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.StopMonitor(); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// adminActor resolves the acting admin. The system actor is reserved for
// reconciliation and cannot be claimed over HTTP.
func adminActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return defaultActor, nil
	}
	if strings.EqualFold(actor, domain.SystemActor) {
		return "", fmt.Errorf("%w: actor %q is reserved", domain.ErrForbidden, domain.SystemActor)
	}
	return actor, nil
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
