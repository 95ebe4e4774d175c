package interfaces

import (
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// MessageParser flattens router transactions into role-tagged message events
type MessageParser interface {
	Parse(tx *types.Transaction) []types.RawMessageEvent
	ParseAll(txs []*types.Transaction) []types.RawMessageEvent
	GetOpcodes() OpcodeSet
}

// OpcodeSet holds the four router opcodes a swap is made of
type OpcodeSet struct {
	Notify   types.Opcode
	Swap     types.Opcode
	Pay      types.Opcode
	Transfer types.Opcode
}

// Reconstructor groups message events into swaps
type Reconstructor interface {
	Reconstruct(events []types.RawMessageEvent) *ReconstructionResult
	GetConfiguration() *ReconstructConfig
}

// ReconstructConfig contains the pool description used to classify swaps
type ReconstructConfig struct {
	USDTWallet       string
	PTONWallet       string
	SuccessExitCode  uint64
	RequirePoolMatch bool
}

// ReconstructionResult is the ordered swap sequence plus its drop tallies
type ReconstructionResult struct {
	Swaps []types.SwapEvent
	Tally ReconstructionTally
}

// ReconstructionTally counts what happened to the input during reconstruction
type ReconstructionTally struct {
	Events           int `json:"events"`
	Groups           int `json:"groups"`
	Complete         int `json:"complete"`
	Incomplete       int `json:"incomplete"`
	DuplicateRoles   int `json:"duplicate_roles"`
	UnknownDirection int `json:"unknown_direction"`
	Failed           int `json:"failed"`
	PoolMismatch     int `json:"pool_mismatch"`
	Emitted          int `json:"emitted"`
}
