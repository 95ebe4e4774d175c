package events

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// STON.fi router v2 opcodes
const (
	OpJettonNotify   types.Opcode = 0x7362d09c
	OpStonfiPayToV2  types.Opcode = 0x657b54f5
	OpStonfiSwapV2   types.Opcode = 0x6664de2a
	OpJettonTransfer types.Opcode = 0x0f8a7ea5
)

// Other router opcodes seen on the same accounts. They are only named, never
// assigned a swap role.
const (
	OpDedustSwapExternal   types.Opcode = 0x61ee542d
	OpDedustPayoutFromPool types.Opcode = 0xad4eb6f5
	OpDedustSwap           types.Opcode = 0x9c610de3
	OpToncoPoolV3Swap      types.Opcode = 0xa7fb58f8
	OpToncoPayTo           types.Opcode = 0xa1daa96d
	OpExcesses             types.Opcode = 0xd53276db
)

var opcodeNames = map[types.Opcode]string{
	OpJettonNotify:         "jetton_notify",
	OpStonfiPayToV2:        "stonfi_pay_to_v2",
	OpStonfiSwapV2:         "stonfi_swap_v2",
	OpJettonTransfer:       "jetton_transfer",
	OpDedustSwapExternal:   "dedust_swap_external",
	OpDedustPayoutFromPool: "dedust_payout_from_pool",
	OpDedustSwap:           "dedust_swap",
	OpToncoPoolV3Swap:      "tonco_pool_v3_swap",
	OpToncoPayTo:           "tonco_pay_to",
	OpExcesses:             "excess",
}

// OpcodeName returns the known name of op, or its hex form
func OpcodeName(op types.Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return op.String()
}

// DefaultOpcodes returns the STON.fi router v2 opcode set
func DefaultOpcodes() interfaces.OpcodeSet {
	return interfaces.OpcodeSet{
		Notify:   OpJettonNotify,
		Swap:     OpStonfiSwapV2,
		Pay:      OpStonfiPayToV2,
		Transfer: OpJettonTransfer,
	}
}

// NewOpcodeSet parses the four opcodes from their hex strings
func NewOpcodeSet(notify, swap, pay, transfer string) (interfaces.OpcodeSet, error) {
	var set interfaces.OpcodeSet
	fields := []struct {
		name  string
		value string
		dst   *types.Opcode
	}{
		{"notify", notify, &set.Notify},
		{"swap", swap, &set.Swap},
		{"pay", pay, &set.Pay},
		{"transfer", transfer, &set.Transfer},
	}

	for _, f := range fields {
		op, err := ParseOpcode(f.value)
		if err != nil {
			return interfaces.OpcodeSet{}, fmt.Errorf("%s opcode: %w", f.name, err)
		}
		*f.dst = op
	}
	return set, nil
}

// ParseOpcode decodes a hex opcode such as "0x0f8a7ea5". Short forms are
// left-padded to 32 bits.
func ParseOpcode(s string) (types.Opcode, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if digits == "" {
		return 0, fmt.Errorf("empty opcode")
	}
	if len(digits) > 8 {
		return 0, fmt.Errorf("opcode %q wider than 32 bits", s)
	}
	digits = strings.Repeat("0", 8-len(digits)) + digits

	raw, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return 0, fmt.Errorf("invalid opcode %q: %w", s, err)
	}
	return types.Opcode(binary.BigEndian.Uint32(raw)), nil
}

// roleFor assigns the swap role of a message: notify and pay arrive at the
// router, swap and transfer leave it
func roleFor(set interfaces.OpcodeSet, op types.Opcode, inbound bool) types.MessageRole {
	if inbound {
		switch op {
		case set.Notify:
			return types.RoleNotify
		case set.Pay:
			return types.RolePay
		}
		return types.RoleNone
	}

	switch op {
	case set.Swap:
		return types.RoleSwap
	case set.Transfer:
		return types.RoleTransfer
	}
	return types.RoleNone
}
