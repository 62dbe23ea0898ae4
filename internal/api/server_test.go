package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/draw"
	"holder-rewards/internal/exclusion"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/rewards"
	"holder-rewards/internal/storage/memory"
)

var t0 = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

type staticSnapshot struct {
	snap *domain.Snapshot
}

func (s staticSnapshot) Fetch(context.Context) (*domain.Snapshot, error) {
	c := *s.snap
	return &c, nil
}

func addrs(n int) []string {
	out := make([]string, n)
	for i := range out {
		b := make([]byte, 32)
		b[0] = byte(i + 1)
		b[31] = byte(i + 1)
		out[i] = base58.Encode(b)
	}
	sort.Strings(out)
	return out
}

type testEnv struct {
	srv     *httptest.Server
	holders []string // A, B, C (C is a system address)
}

func newTestEnv(t *testing.T, token string, winning ...int64) *testEnv {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	clock := clockwork.NewFakeClockAt(t0)

	a := addrs(3)
	snap := &domain.Snapshot{
		Mint:         "Mint",
		Decimals:     6,
		UnitPriceUSD: decimal.NewFromInt(1),
		Holdings: []domain.RawHolding{
			{Address: a[0], RawBalance: 300_000_000},
			{Address: a[1], RawBalance: 100_000_000},
			{Address: a[2], RawBalance: 500_000_000},
		},
		TakenAt: t0,
	}

	builder, err := ledger.NewBuilder(ledger.DefaultConfig())
	require.NoError(t, err)

	svc, err := rewards.NewService(rewards.Options{
		Snapshot: staticSnapshot{snap: snap},
		Builder:  builder,
		Exclusions: exclusion.NewManager(exclusion.ManagerOptions{
			Store:  memory.NewExclusionStore(),
			Clock:  clock,
			Logger: logger,
		}),
		Engine:          draw.NewEngine(draw.EngineOptions{Random: draw.NewFixedSource(winning...), Clock: clock, Logger: logger}),
		Holders:         memory.NewHolderStore(),
		Draws:           memory.NewDrawResultStore(),
		Distributions:   memory.NewDistributionStore(),
		SystemAddresses: []exclusion.SystemAddress{{Address: a[2], Reason: "treasury"}},
		Clock:           clock,
		Logger:          logger,
	})
	require.NoError(t, err)

	server := NewServer(Options{Service: svc, AdminToken: token, Logger: logger})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: ts, holders: a}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestAdminToken(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp := env.do(t, http.MethodGet, "/api/eligible", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodGet, "/api/eligible", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/eligible", "secret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrepareAndDraw(t *testing.T) {
	env := newTestEnv(t, "", 35)

	resp := env.do(t, http.MethodPost, "/api/prepare", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[domain.SyncStats](t, resp)
	assert.Equal(t, 3, stats.TotalHolders)
	assert.Equal(t, 2, stats.EligibleHolders)
	assert.Equal(t, int64(40), stats.TotalEntries)

	resp = env.do(t, http.MethodGet, "/api/eligible", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	eligible := decode[[]holderResponse](t, resp)
	require.Len(t, eligible, 2)
	assert.Equal(t, env.holders[0], eligible[0].Address)
	assert.Equal(t, int64(30), eligible[0].DrawEntries)
	assert.Equal(t, "300", eligible[0].USDValue)
	assert.Equal(t, "bronze", eligible[0].Tier)

	resp = env.do(t, http.MethodGet, "/api/ledger", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	full := decode[[]holderResponse](t, resp)
	require.Len(t, full, 3)
	assert.True(t, full[2].Excluded)
	assert.Equal(t, int64(0), full[2].DrawEntries)
	assert.Equal(t, domain.SystemActor, full[2].ExcludedBy)

	resp = env.do(t, http.MethodPost, "/api/draws", "", drawRequest{PrizeAmount: 500})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decode[domain.DrawResult](t, resp)
	assert.Equal(t, int64(35), result.WinningNumber)
	assert.Equal(t, env.holders[1], result.WinnerAddress)
	assert.Equal(t, uint64(500), result.PrizeAmount)

	resp = env.do(t, http.MethodGet, "/api/draws?limit=10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draws := decode[[]domain.DrawResult](t, resp)
	require.Len(t, draws, 1)
	assert.Equal(t, result.ID, draws[0].ID)
}

func TestRunDraw_EmptyLedger(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/draws", "", drawRequest{PrizeAmount: 1})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "no_eligible_entries", decode[errorResponse](t, resp).Error)
}

func TestExclusions(t *testing.T) {
	env := newTestEnv(t, "")
	holderA, holderC := env.holders[0], env.holders[2]

	resp := env.do(t, http.MethodPost, "/api/exclusions", "", excludeRequest{Address: holderA, Reason: "team wallet", AppliedBy: "ops"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rec := decode[exclusionResponse](t, resp)
	assert.Equal(t, holderA, rec.Address)
	assert.Equal(t, "ops", rec.AppliedBy)
	assert.True(t, rec.Active)

	resp = env.do(t, http.MethodPost, "/api/exclusions", "", excludeRequest{Address: holderA, Reason: "again"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodPost, "/api/exclusions", "", excludeRequest{Address: "not-base58!", Reason: "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodPost, "/api/exclusions", "", excludeRequest{Address: holderC, Reason: "x", AppliedBy: "system"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/exclusions", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]exclusionResponse](t, resp), 1)

	resp = env.do(t, http.MethodDelete, "/api/exclusions/"+holderA+"?requested_by=ops", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/exclusions/"+holderA, "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/exclusions/"+holderA+"/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]exclusionResponse](t, resp)
	require.Len(t, history, 1)
	assert.False(t, history[0].Active)
	require.NotNil(t, history[0].LiftedBy)
	assert.Equal(t, "ops", *history[0].LiftedBy)
}

func TestSystemExclusionCannotBeLiftedByAdmin(t *testing.T) {
	env := newTestEnv(t, "")
	holderC := env.holders[2]

	resp := env.do(t, http.MethodPost, "/api/prepare", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/exclusions/"+holderC+"?requested_by=ops", "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodDelete, "/api/exclusions/"+holderC+"?requested_by=SYSTEM", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, "")

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/draws", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodGet, "/api/distributions?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/distributions", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]domain.Distribution](t, resp))
}

func TestMonitorNotConfigured(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/monitor/start", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "configuration", decode[errorResponse](t, resp).Error)

	resp = env.do(t, http.MethodGet, "/api/monitor/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[rewards.Status](t, resp)
	assert.False(t, st.IsMonitoring)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.ErrConfiguration, http.StatusServiceUnavailable, "configuration"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrNoEligibleEntries, http.StatusUnprocessableEntity, "no_eligible_entries"},
		{domain.ErrLimitExceeded, http.StatusUnprocessableEntity, "limit_exceeded"},
		{domain.ErrDrawInProgress, http.StatusConflict, "draw_in_progress"},
		{domain.ErrInvariantViolation, http.StatusInternalServerError, "invariant_violation"},
		{io.EOF, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, kind := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.kind)
		assert.Equal(t, tt.kind, kind)
	}
}
