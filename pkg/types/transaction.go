package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LogicalTime is a TON logical time. tonapi encodes it as a JSON number,
// older exports as a decimal string.
type LogicalTime uint64

// UnmarshalJSON accepts numbers, decimal strings and null
func (lt *LogicalTime) UnmarshalJSON(data []byte) error {
	v, err := parseJSONUint(data)
	if err != nil {
		return fmt.Errorf("logical time: %w", err)
	}
	*lt = LogicalTime(v)
	return nil
}

// UnixTime is a wall-clock timestamp in seconds
type UnixTime int64

// UnmarshalJSON accepts numbers, decimal strings and null
func (ut *UnixTime) UnmarshalJSON(data []byte) error {
	v, err := parseJSONUint(data)
	if err != nil {
		return fmt.Errorf("unix time: %w", err)
	}
	*ut = UnixTime(v)
	return nil
}

func parseJSONUint(data []byte) (uint64, error) {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	return strconv.ParseUint(s, 10, 64)
}

// BlockRef identifies a TON shard block
type BlockRef struct {
	Workchain int32  `json:"workchain"`
	Shard     string `json:"shard"`
	Seqno     uint64 `json:"seqno"`
}

// ParseBlockRef parses the tonapi form "(wc,shard,seqno)"
func ParseBlockRef(s string) (*BlockRef, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")

	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid block id %q", s)
	}

	wc, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid workchain in block id %q: %w", s, err)
	}

	seqno, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seqno in block id %q: %w", s, err)
	}

	shard := normalizeShard(parts[1])
	if shard == "" {
		return nil, fmt.Errorf("missing shard in block id %q", s)
	}

	return &BlockRef{Workchain: int32(wc), Shard: shard, Seqno: seqno}, nil
}

func normalizeShard(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "0x")
}

// Lane returns the workchain:shard key blocks of the same shard chain share
func (b *BlockRef) Lane() string {
	return fmt.Sprintf("%d:%s", b.Workchain, b.Shard)
}

// String returns the tonapi block id form
func (b *BlockRef) String() string {
	return fmt.Sprintf("(%d,%s,%d)", b.Workchain, b.Shard, b.Seqno)
}

// SameLane reports whether both blocks belong to the same shard chain
func (b *BlockRef) SameLane(other *BlockRef) bool {
	if b == nil || other == nil {
		return false
	}
	return b.Workchain == other.Workchain && b.Shard == other.Shard
}

// MarshalJSON writes the tonapi string form so records round-trip
func (b BlockRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts "(wc,shard,seqno)" and {"workchain":..,"shard":..,"seqno":..}
func (b *BlockRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := ParseBlockRef(s)
		if err != nil {
			return err
		}
		*b = *ref
		return nil
	}

	var raw struct {
		Workchain int32       `json:"workchain"`
		Shard     string      `json:"shard"`
		Seqno     LogicalTime `json:"seqno"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid block object: %w", err)
	}
	b.Workchain = raw.Workchain
	b.Shard = normalizeShard(raw.Shard)
	b.Seqno = uint64(raw.Seqno)
	return nil
}

// AccountAddress is the tonapi account reference attached to messages
type AccountAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Message is an inbound or outbound message of a transaction
type Message struct {
	MsgType       string          `json:"msg_type,omitempty"`
	OpCode        string          `json:"op_code,omitempty"`
	DecodedOpName string          `json:"decoded_op_name,omitempty"`
	CreatedLT     LogicalTime     `json:"created_lt,omitempty"`
	CreatedAt     UnixTime        `json:"created_at,omitempty"`
	Source        *AccountAddress `json:"source,omitempty"`
	Destination   *AccountAddress `json:"destination,omitempty"`
	DecodedBody   Body            `json:"decoded_body,omitempty"`
}

// SourceAddress returns the sender address or ""
func (m *Message) SourceAddress() string {
	if m.Source == nil {
		return ""
	}
	return m.Source.Address
}

// DestinationAddress returns the receiver address or ""
func (m *Message) DestinationAddress() string {
	if m.Destination == nil {
		return ""
	}
	return m.Destination.Address
}

// Transaction is one router transaction as returned by tonapi
type Transaction struct {
	Hash    string      `json:"hash"`
	LT      LogicalTime `json:"lt"`
	Utime   UnixTime    `json:"utime"`
	Block   *BlockRef   `json:"block,omitempty"`
	Success bool        `json:"success"`
	Aborted bool        `json:"aborted,omitempty"`
	InMsg   *Message    `json:"in_msg,omitempty"`
	OutMsgs []Message   `json:"out_msgs,omitempty"`
}
