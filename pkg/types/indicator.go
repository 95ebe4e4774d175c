package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AdjacencyRole is the set of FR/BR roles a swap was tagged with
type AdjacencyRole uint8

const (
	AdjacencyVictim AdjacencyRole = 1 << iota
	AdjacencyFrontRunner
	AdjacencyBackRunner
)

// AdjacencyNone is the empty role set
const AdjacencyNone AdjacencyRole = 0

var adjacencyNames = []struct {
	role AdjacencyRole
	name string
}{
	{AdjacencyVictim, "victim"},
	{AdjacencyFrontRunner, "front_runner"},
	{AdjacencyBackRunner, "back_runner"},
}

// Has reports whether every bit of flag is set
func (r AdjacencyRole) Has(flag AdjacencyRole) bool {
	return flag != AdjacencyNone && r&flag == flag
}

// Names returns the role names, or ["none"] for the empty set
func (r AdjacencyRole) Names() []string {
	var names []string
	for _, n := range adjacencyNames {
		if r.Has(n.role) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return []string{"none"}
	}
	return names
}

func (r AdjacencyRole) String() string {
	return strings.Join(r.Names(), ",")
}

// MarshalJSON writes the role names as an array
func (r AdjacencyRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Names())
}

// UnmarshalJSON reads the array written by MarshalJSON
func (r *AdjacencyRole) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*r = AdjacencyNone
	for _, name := range names {
		role, err := ParseAdjacencyRole(name)
		if err != nil {
			return err
		}
		*r |= role
	}
	return nil
}

// ParseAdjacencyRole parses a single role name
func ParseAdjacencyRole(name string) (AdjacencyRole, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "none" || name == "" {
		return AdjacencyNone, nil
	}
	for _, n := range adjacencyNames {
		if n.name == name || strings.ReplaceAll(n.name, "_", "-") == name {
			return n.role, nil
		}
	}
	return AdjacencyNone, fmt.Errorf("unknown adjacency role %q", name)
}

// InvalidReason explains why a record is excluded from rate statistics
type InvalidReason string

const (
	InvalidZeroInput   InvalidReason = "zero_input"
	InvalidZeroOutput  InvalidReason = "zero_output"
	InvalidSanityRange InvalidReason = "sanity_range"
	InvalidDirection   InvalidReason = "unknown_direction"
)

// IndicatorRecord is a swap annotated with its slippage and adjacency indicators
type IndicatorRecord struct {
	Swap          SwapEvent           `json:"swap"`
	ScaledRate    decimal.NullDecimal `json:"scaled_rate"`
	HitPct        decimal.NullDecimal `json:"hit_pct"`
	RateDeviation decimal.NullDecimal `json:"rate_deviation"`
	Roles         AdjacencyRole       `json:"roles"`
	Invalid       InvalidReason       `json:"invalid,omitempty"`
}

// RateValid reports whether the record takes part in rate statistics and scans
func (r *IndicatorRecord) RateValid() bool {
	return r.ScaledRate.Valid && r.Invalid == ""
}

// Confidence grades a triple by the number of blocks it spans
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidences lists the grades in report order
var Confidences = []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// ConfidenceForSpan maps a block span to its grade
func ConfidenceForSpan(span uint64) Confidence {
	switch {
	case span == 0:
		return ConfidenceHigh
	case span == 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// BaselineSource names the swap a victim's rate was compared against
type BaselineSource string

const (
	BaselinePrevious BaselineSource = "previous"
	BaselineFront    BaselineSource = "front"
)

// Triple is a front-runner, victim, back-runner candidate. Indexes point into
// the analysed record slice.
type Triple struct {
	Front          int             `json:"front"`
	Victim         int             `json:"victim"`
	Back           int             `json:"back"`
	FrontQueryID   string          `json:"front_query_id"`
	VictimQueryID  string          `json:"victim_query_id"`
	BackQueryID    string          `json:"back_query_id"`
	Lane           string          `json:"lane"`
	Span           uint64          `json:"span"`
	Confidence     Confidence      `json:"confidence"`
	Baseline       decimal.Decimal `json:"baseline"`
	BaselineSource BaselineSource  `json:"baseline_source"`
	Impact         decimal.Decimal `json:"impact"`
}

// PairKind names a two-swap adjacency scan
type PairKind string

const (
	PairAdjacentFrontrun  PairKind = "adjacent_frontrun"
	PairAdjacentBackrun   PairKind = "adjacent_backrun"
	PairSameBlockFrontrun PairKind = "same_block_frontrun"
	PairSameBlockBackrun  PairKind = "same_block_backrun"
	PairCrossBlockBackrun PairKind = "cross_block_backrun"
)

// PairKinds lists every scan in report order
var PairKinds = []PairKind{
	PairAdjacentFrontrun,
	PairAdjacentBackrun,
	PairSameBlockFrontrun,
	PairSameBlockBackrun,
	PairCrossBlockBackrun,
}

// Pair is a two-swap candidate: First precedes Second
type Pair struct {
	Kind          PairKind `json:"kind"`
	First         int      `json:"first"`
	Second        int      `json:"second"`
	FirstQueryID  string   `json:"first_query_id"`
	SecondQueryID string   `json:"second_query_id"`
	Lane          string   `json:"lane,omitempty"`
	SeqGap        uint64   `json:"seq_gap"`
}
