package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/pipeline"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snap  *Snapshot
	err   error
	calls int
}

func (s *staticSource) Load(context.Context) (*Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func testAnalysis() *interfaces.Analysis {
	rec := func(id string, dir types.Direction, lt uint64) types.IndicatorRecord {
		return types.IndicatorRecord{
			Swap: types.SwapEvent{
				QueryID:   id,
				Direction: dir,
				LT:        types.LogicalTime(lt),
				Block:     &types.BlockRef{Workchain: 0, Shard: "8000000000000000", Seqno: 42},
			},
			ScaledRate: decimal.NewNullDecimal(decimal.NewFromInt(3200)),
			HitPct:     decimal.NewNullDecimal(decimal.RequireFromString("99.5")),
		}
	}
	return &interfaces.Analysis{
		Records: []types.IndicatorRecord{
			rec("101", types.DirectionTONToUSDT, 1),
			rec("102", types.DirectionUSDTToTON, 2),
			rec("103", types.DirectionTONToUSDT, 3),
		},
		Triples: []types.Triple{{
			Front: 0, Victim: 1, Back: 2,
			FrontQueryID: "101", VictimQueryID: "102", BackQueryID: "103",
			Lane:           "0:8000000000000000",
			Confidence:     types.ConfidenceHigh,
			Baseline:       decimal.NewFromInt(3210),
			BaselineSource: types.BaselinePrevious,
			Impact:         decimal.RequireFromString("0.003115"),
		}},
		Summary: &interfaces.Summary{
			TotalSwaps:          3,
			Victims:             1,
			TriplesByConfidence: map[types.Confidence]int{types.ConfidenceHigh: 1},
			TopHits: []interfaces.HitEntry{
				{QueryID: "102", Direction: types.DirectionUSDTToTON, HitPct: 99.5, LT: 2},
				{QueryID: "101", Direction: types.DirectionTONToUSDT, HitPct: 97.25, LT: 1},
			},
		},
	}
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot(testAnalysis())

	require.Len(t, snap.Triples, 1)
	assert.Equal(t, "101", snap.Triples[0].FrontRecord.Swap.QueryID)
	assert.Equal(t, "102", snap.Triples[0].VictimRecord.Swap.QueryID)
	assert.Equal(t, "103", snap.Triples[0].BackRecord.Swap.QueryID)
	assert.Equal(t, 3, snap.Summary.TotalSwaps)
}

func TestInspectorModel(t *testing.T) {
	source := &staticSource{snap: NewSnapshot(testAnalysis())}

	t.Run("initial model creation", func(t *testing.T) {
		model := initialModel(Config{}, source)

		assert.True(t, model.loading)
		assert.Nil(t, model.snapshot)
		assert.NotEmpty(t, model.config.Title)
	})

	t.Run("init loads the source", func(t *testing.T) {
		model := initialModel(Config{}, source)
		cmd := model.Init()
		require.NotNil(t, cmd)
	})

	t.Run("no tick without refresh rate", func(t *testing.T) {
		assert.Nil(t, tickCmd(0))
		assert.NotNil(t, tickCmd(time.Second))
	})
}

func TestInspectorUpdate(t *testing.T) {
	source := &staticSource{snap: NewSnapshot(testAnalysis())}
	model := initialModel(Config{RefreshRate: time.Second}, source)

	t.Run("window size message", func(t *testing.T) {
		newModel, cmd := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		updated := newModel.(Model)
		assert.Equal(t, 100, updated.width)
		assert.Equal(t, 40, updated.height)
		assert.Nil(t, cmd)
	})

	t.Run("quit key message", func(t *testing.T) {
		_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("reload key runs the source", func(t *testing.T) {
		newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
		require.NotNil(t, cmd)
		assert.True(t, newModel.(Model).loading)

		before := source.calls
		msg := cmd()
		assert.Equal(t, before+1, source.calls)
		assert.IsType(t, snapshotMsg(nil), msg)
	})

	t.Run("snapshot message", func(t *testing.T) {
		newModel, cmd := model.Update(snapshotMsg(source.snap))
		updated := newModel.(Model)

		assert.Equal(t, source.snap, updated.snapshot)
		assert.False(t, updated.loading)
		assert.Nil(t, updated.error)
		assert.False(t, updated.lastUpdate.IsZero())
		assert.Nil(t, cmd)
	})

	t.Run("error message", func(t *testing.T) {
		newModel, cmd := model.Update(errorMsg(assert.AnError))
		updated := newModel.(Model)

		assert.Equal(t, assert.AnError, updated.error)
		assert.False(t, updated.loading)
		assert.Nil(t, cmd)
	})

	t.Run("tick message", func(t *testing.T) {
		_, cmd := model.Update(tickMsg(time.Now()))
		assert.NotNil(t, cmd)
	})
}

func TestInspectorNavigation(t *testing.T) {
	source := &staticSource{snap: NewSnapshot(testAnalysis())}
	var m tea.Model = initialModel(Config{}, source)
	m, _ = m.Update(snapshotMsg(source.snap))

	press := func(key string) {
		var msg tea.KeyMsg
		switch key {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		m, _ = m.Update(msg)
	}

	// one triple: the cursor cannot move
	press("down")
	assert.Equal(t, 0, m.(Model).cursor)

	press("tab")
	assert.Equal(t, tabHits, m.(Model).tab)

	press("j")
	assert.Equal(t, 1, m.(Model).cursor)
	press("down")
	assert.Equal(t, 1, m.(Model).cursor, "clamped at the last hit")
	press("k")
	assert.Equal(t, 0, m.(Model).cursor)
	press("up")
	assert.Equal(t, 0, m.(Model).cursor)

	press("j")
	press("tab")
	assert.Equal(t, tabTriples, m.(Model).tab)
	assert.Equal(t, 0, m.(Model).cursor, "switching tabs resets the cursor")
}

func TestInspectorView(t *testing.T) {
	source := &staticSource{snap: NewSnapshot(testAnalysis())}
	model := initialModel(Config{}, source)

	t.Run("before window size", func(t *testing.T) {
		assert.Equal(t, "Loading...", model.View())
	})

	model.width = 120
	model.height = 40

	t.Run("view with no data", func(t *testing.T) {
		view := model.View()
		assert.Contains(t, view, "Loading analysis...")
		assert.Contains(t, view, "sandwich inspector")
	})

	t.Run("triples view", func(t *testing.T) {
		m := model
		m.snapshot = source.snap
		m.loading = false

		view := m.View()
		assert.Contains(t, view, "Triples: 1")
		assert.Contains(t, view, "victim 102")
		assert.Contains(t, view, "0.003115")
		assert.Contains(t, view, "baseline 3210.0000 (previous)")
		assert.Contains(t, view, "(0,8000000000000000,42)")
	})

	t.Run("hits view", func(t *testing.T) {
		m := model
		m.snapshot = source.snap
		m.tab = tabHits

		view := m.View()
		assert.Contains(t, view, "99.5000%")
		assert.Contains(t, view, "97.2500%")
	})

	t.Run("empty triples", func(t *testing.T) {
		m := model
		m.snapshot = &Snapshot{Summary: &interfaces.Summary{}}

		assert.Contains(t, m.View(), "No sandwich candidates.")
	})

	t.Run("view with error", func(t *testing.T) {
		m := model
		m.error = errors.New("connection refused")

		assert.Contains(t, m.View(), "Error: connection refused")
	})
}

func TestLocalSource(t *testing.T) {
	src := &LocalSource{Analyzer: analyzerFunc(func(context.Context) (*pipeline.Result, error) {
		return &pipeline.Result{Analysis: testAnalysis()}, nil
	})}

	snap, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Triples, 1)

	failing := &LocalSource{Analyzer: analyzerFunc(func(context.Context) (*pipeline.Result, error) {
		return nil, assert.AnError
	})}
	_, err = failing.Load(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

type analyzerFunc func(context.Context) (*pipeline.Result, error)

func (f analyzerFunc) Analyze(ctx context.Context) (*pipeline.Result, error) { return f(ctx) }

func TestRemoteSource(t *testing.T) {
	snap := NewSnapshot(testAnalysis())

	t.Run("loads summary and triples", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/v1/summary":
				_ = json.NewEncoder(w).Encode(snap.Summary)
			case "/api/v1/triples":
				_ = json.NewEncoder(w).Encode(snap.Triples)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		got, err := NewRemoteSource(server.URL + "/").Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, got.Summary.TotalSwaps)
		require.Len(t, got.Triples, 1)
		assert.Equal(t, "102", got.Triples[0].VictimRecord.Swap.QueryID)
	})

	t.Run("server not ready", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(interfaces.ErrorResponse{Error: "not_ready", Message: "no analysis loaded", Code: 503})
		}))
		defer server.Close()

		_, err := NewRemoteSource(server.URL).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no analysis loaded")
	})

	t.Run("server offline", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewRemoteSource(url).Load(context.Background())
		assert.Error(t, err)
	})
}
