package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/pipeline"
)

// Snapshot is what the inspector displays
type Snapshot struct {
	Summary *interfaces.Summary
	Triples []interfaces.TripleView
}

// Source produces snapshots for the inspector
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Analyzer runs the analysis in process
type Analyzer interface {
	Analyze(ctx context.Context) (*pipeline.Result, error)
}

// NewSnapshot inlines the records of every triple
func NewSnapshot(a *interfaces.Analysis) *Snapshot {
	views := make([]interfaces.TripleView, 0, len(a.Triples))
	for _, t := range a.Triples {
		views = append(views, interfaces.TripleView{
			Triple:       t,
			FrontRecord:  a.Records[t.Front],
			VictimRecord: a.Records[t.Victim],
			BackRecord:   a.Records[t.Back],
		})
	}
	return &Snapshot{Summary: a.Summary, Triples: views}
}

// LocalSource re-runs the analysis on every load
type LocalSource struct {
	Analyzer Analyzer
}

func (s *LocalSource) Load(ctx context.Context) (*Snapshot, error) {
	res, err := s.Analyzer.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(res.Analysis), nil
}

// RemoteSource polls a running serve instance
type RemoteSource struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteSource creates a source for the server at baseURL
func NewRemoteSource(baseURL string) *RemoteSource {
	return &RemoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *RemoteSource) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Summary: &interfaces.Summary{}}
	if err := s.get(ctx, "/api/v1/summary", snap.Summary); err != nil {
		return nil, err
	}
	if err := s.get(ctx, "/api/v1/triples", &snap.Triples); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *RemoteSource) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr interfaces.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("GET %s: %s", path, apiErr.Message)
		}
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
