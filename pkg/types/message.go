package types

import "fmt"

// MessageRole is the part a message plays in a router swap
type MessageRole string

const (
	RoleNone     MessageRole = ""
	RoleNotify   MessageRole = "notify"
	RoleSwap     MessageRole = "swap"
	RolePay      MessageRole = "pay"
	RoleTransfer MessageRole = "transfer"
)

// SwapRoles lists the four roles a complete swap carries
var SwapRoles = []MessageRole{RoleNotify, RoleSwap, RolePay, RoleTransfer}

// Opcode is the 32-bit operation code prefixing a message body
type Opcode uint32

func (o Opcode) String() string {
	return fmt.Sprintf("0x%08x", uint32(o))
}

// RawMessageEvent is one message as reported by the indexer, flattened out of
// its transaction
type RawMessageEvent struct {
	TxHash      string      `json:"tx_hash"`
	LT          LogicalTime `json:"lt"`
	Utime       UnixTime    `json:"utime"`
	Block       *BlockRef   `json:"block,omitempty"`
	Opcode      Opcode      `json:"opcode"`
	OpName      string      `json:"op_name,omitempty"`
	Inbound     bool        `json:"inbound"`
	Role        MessageRole `json:"role"`
	QueryID     string      `json:"query_id"`
	Source      string      `json:"source,omitempty"`
	Destination string      `json:"destination,omitempty"`
	Body        Body        `json:"body,omitempty"`

	// Seq is the position in the parsed input, used as the last tie-breaker
	Seq int `json:"-"`
}

// Before orders events by logical time, then tx hash, then input position
func (e *RawMessageEvent) Before(other *RawMessageEvent) bool {
	if e.LT != other.LT {
		return e.LT < other.LT
	}
	if e.TxHash != other.TxHash {
		return e.TxHash < other.TxHash
	}
	return e.Seq < other.Seq
}
