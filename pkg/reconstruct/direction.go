package reconstruct

import (
	"strings"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// Wallets are the router's jetton wallets for the two pool tokens
type Wallets struct {
	USDT string
	PTON string
}

// directionRule maps a body field onto a direction by which wallet it names
type directionRule struct {
	role   types.MessageRole
	path   []string
	onUSDT types.Direction
	onPTON types.Direction
}

// directionRules are evaluated in order; the first definitive match wins
var directionRules = []directionRule{
	{
		role:   types.RoleTransfer,
		path:   []string{"destination"},
		onUSDT: types.DirectionTONToUSDT,
		onPTON: types.DirectionUSDTToTON,
	},
	{
		role:   types.RoleNotify,
		path:   []string{"sender"},
		onUSDT: types.DirectionUSDTToTON,
		onPTON: types.DirectionTONToUSDT,
	},
	{
		role:   types.RoleSwap,
		path:   []string{"dex_payload", "token_wallet1"},
		onUSDT: types.DirectionTONToUSDT,
		onPTON: types.DirectionUSDTToTON,
	},
}

// InferDirection classifies a complete group. It returns the direction and the
// 1-based index of the rule that matched, or UNKNOWN and 0.
//
// A missing field never matches, even against an empty configured wallet. A
// present field naming neither wallet falls through to the next rule.
func InferDirection(roles map[types.MessageRole]*types.RawMessageEvent, wallets Wallets) (types.Direction, int) {
	usdt := normalizeAddress(wallets.USDT)
	pton := normalizeAddress(wallets.PTON)

	for i, rule := range directionRules {
		ev, ok := roles[rule.role]
		if !ok || ev == nil {
			continue
		}

		value, ok := ev.Body.String(rule.path...)
		if !ok {
			continue
		}

		addr := normalizeAddress(value)
		switch {
		case usdt != "" && addr == usdt:
			return rule.onUSDT, i + 1
		case pton != "" && addr == pton:
			return rule.onPTON, i + 1
		}
	}

	return types.DirectionUnknown, 0
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
