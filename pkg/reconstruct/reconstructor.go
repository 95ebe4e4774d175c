package reconstruct

import (
	"sort"
	"strconv"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
	"github.com/shopspring/decimal"
)

// Router jetton wallets of the STON.fi v2 USDT/pTON pool
const (
	DefaultUSDTWallet = "0:922d627d7d8edbd00e4e23bdb0c54a76ee5e1f46573a1af4417857fa3e23e91f"
	DefaultPTONWallet = "0:9220c181a6cfeacd11b7b8f62138df1bb9cc82b6ed2661d2f5faee204b3efb20"

	// DefaultSuccessExitCode is the pay exit code of a filled swap (swap_ok)
	DefaultSuccessExitCode uint64 = 3326308581
)

// reconstructor implements the Reconstructor interface
type reconstructor struct {
	config  *interfaces.ReconstructConfig
	wallets Wallets
}

// NewReconstructor creates a reconstructor with the given configuration
func NewReconstructor(config *interfaces.ReconstructConfig) interfaces.Reconstructor {
	if config == nil {
		config = &interfaces.ReconstructConfig{
			USDTWallet:      DefaultUSDTWallet,
			PTONWallet:      DefaultPTONWallet,
			SuccessExitCode: DefaultSuccessExitCode,
		}
	}
	return &reconstructor{
		config:  config,
		wallets: Wallets{USDT: config.USDTWallet, PTON: config.PTONWallet},
	}
}

// GetConfiguration returns the current reconstructor configuration
func (r *reconstructor) GetConfiguration() *interfaces.ReconstructConfig {
	return r.config
}

// group collects the messages sharing one query id
type group struct {
	queryID    string
	roles      map[types.MessageRole]*types.RawMessageEvent
	duplicates int
}

// add keeps the earliest event per role
func (g *group) add(ev *types.RawMessageEvent) {
	cur, ok := g.roles[ev.Role]
	if !ok {
		g.roles[ev.Role] = ev
		return
	}
	g.duplicates++
	if ev.Before(cur) {
		g.roles[ev.Role] = ev
	}
}

func (g *group) complete() bool {
	for _, role := range types.SwapRoles {
		if _, ok := g.roles[role]; !ok {
			return false
		}
	}
	return true
}

type dropReason int

const (
	keep dropReason = iota
	dropFailed
	dropPoolMismatch
	dropUnknownDirection
)

// Reconstruct groups events by query id and emits one swap per complete group,
// ordered by notify logical time. The input is not modified and its order does
// not affect the output.
func (r *reconstructor) Reconstruct(events []types.RawMessageEvent) *interfaces.ReconstructionResult {
	result := &interfaces.ReconstructionResult{}
	result.Tally.Events = len(events)

	groups := make(map[string]*group)
	for i := range events {
		ev := &events[i]
		if ev.Role == types.RoleNone || ev.QueryID == "" {
			continue
		}
		g, ok := groups[ev.QueryID]
		if !ok {
			g = &group{queryID: ev.QueryID, roles: make(map[types.MessageRole]*types.RawMessageEvent, 4)}
			groups[ev.QueryID] = g
		}
		g.add(ev)
	}
	result.Tally.Groups = len(groups)

	for _, g := range groups {
		result.Tally.DuplicateRoles += g.duplicates

		if !g.complete() {
			result.Tally.Incomplete++
			continue
		}
		result.Tally.Complete++

		swap, reason := r.buildSwap(g)
		switch reason {
		case dropFailed:
			result.Tally.Failed++
		case dropPoolMismatch:
			result.Tally.PoolMismatch++
		case dropUnknownDirection:
			result.Tally.UnknownDirection++
		default:
			result.Swaps = append(result.Swaps, swap)
		}
	}

	sort.Slice(result.Swaps, func(i, j int) bool {
		a, b := result.Swaps[i], result.Swaps[j]
		if a.LT != b.LT {
			return a.LT < b.LT
		}
		return a.QueryID < b.QueryID
	})
	result.Tally.Emitted = len(result.Swaps)

	return result
}

func (r *reconstructor) buildSwap(g *group) (types.SwapEvent, dropReason) {
	notify := g.roles[types.RoleNotify]
	swapMsg := g.roles[types.RoleSwap]
	pay := g.roles[types.RolePay]
	transfer := g.roles[types.RoleTransfer]

	if r.failed(pay) {
		return types.SwapEvent{}, dropFailed
	}
	if r.config.RequirePoolMatch && !r.poolMatches(pay) {
		return types.SwapEvent{}, dropPoolMismatch
	}

	direction, rule := InferDirection(g.roles, r.wallets)
	if direction == types.DirectionUnknown {
		return types.SwapEvent{}, dropUnknownDirection
	}

	in, _ := notify.Body.Decimal("amount")
	out, _ := transfer.Body.Decimal("amount")

	return types.SwapEvent{
		QueryID:        g.queryID,
		Direction:      direction,
		InAmount:       in,
		OutAmount:      out,
		MinOut:         minOut(swapMsg, notify),
		LT:             notify.LT,
		Utime:          notify.Utime,
		Block:          notify.Block,
		NotifyTxHash:   notify.TxHash,
		TransferTxHash: transfer.TxHash,
		DirectionRule:  rule,
	}, keep
}

// minOut reads the declared floor from the swap payload, else from the
// cross-swap payload forwarded with the notify
func minOut(swapMsg, notify *types.RawMessageEvent) decimal.NullDecimal {
	if v, ok := swapMsg.Body.Decimal("dex_payload", "swap_body", "min_out"); ok {
		return decimal.NewNullDecimal(v)
	}
	if v, ok := notify.Body.Decimal("forward_payload", "value", "value", "cross_swap_body", "min_out"); ok {
		return decimal.NewNullDecimal(v)
	}
	return decimal.NullDecimal{}
}

// failed reports a pay message whose exit code is present and not the success code
func (r *reconstructor) failed(pay *types.RawMessageEvent) bool {
	if r.config.SuccessExitCode == 0 {
		return false
	}
	code, ok := pay.Body.String("exit_code")
	if !ok {
		return false
	}
	return code != strconv.FormatUint(r.config.SuccessExitCode, 10)
}

// poolMatches checks the pay's pool tokens are exactly the USDT and pTON wallets
func (r *reconstructor) poolMatches(pay *types.RawMessageEvent) bool {
	token0, ok0 := pay.Body.String("additional_info", "token0_address")
	token1, ok1 := pay.Body.String("additional_info", "token1_address")
	if !ok0 || !ok1 {
		return false
	}

	t0, t1 := normalizeAddress(token0), normalizeAddress(token1)
	usdt, pton := normalizeAddress(r.wallets.USDT), normalizeAddress(r.wallets.PTON)
	return (t0 == usdt && t1 == pton) || (t0 == pton && t1 == usdt)
}
