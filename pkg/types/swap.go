package types

import "github.com/shopspring/decimal"

// Direction is the trade direction of a TON/USDT swap
type Direction string

const (
	DirectionTONToUSDT Direction = "TON_TO_USDT"
	DirectionUSDTToTON Direction = "USDT_TO_TON"
	DirectionUnknown   Direction = "UNKNOWN"
)

// Directions lists the known directions in report order
var Directions = []Direction{DirectionTONToUSDT, DirectionUSDTToTON}

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionTONToUSDT || d == DirectionUSDTToTON
}

// Opposite returns the reverse direction; UNKNOWN stays UNKNOWN
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionTONToUSDT:
		return DirectionUSDTToTON
	case DirectionUSDTToTON:
		return DirectionTONToUSDT
	default:
		return DirectionUnknown
	}
}

// ParseDirection accepts the canonical names and the arrow forms used in reports
func ParseDirection(s string) Direction {
	switch s {
	case string(DirectionTONToUSDT), "TON->USDT", "ton_to_usdt":
		return DirectionTONToUSDT
	case string(DirectionUSDTToTON), "USDT->TON", "usdt_to_ton":
		return DirectionUSDTToTON
	default:
		return DirectionUnknown
	}
}

// SwapEvent is a reconstructed router swap
type SwapEvent struct {
	QueryID        string              `json:"query_id"`
	Direction      Direction           `json:"direction"`
	InAmount       decimal.Decimal     `json:"in_amount"`
	OutAmount      decimal.Decimal     `json:"out_amount"`
	MinOut         decimal.NullDecimal `json:"min_out"`
	LT             LogicalTime         `json:"lt"`
	Utime          UnixTime            `json:"utime"`
	Block          *BlockRef           `json:"block,omitempty"`
	NotifyTxHash   string              `json:"notify_tx_hash"`
	TransferTxHash string              `json:"transfer_tx_hash,omitempty"`
	DirectionRule  int                 `json:"direction_rule"`
}

// HasBlock reports whether block metadata is attached
func (s *SwapEvent) HasBlock() bool {
	return s.Block != nil && s.Block.Shard != ""
}
