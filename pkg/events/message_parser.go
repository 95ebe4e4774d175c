package events

import (
	"strings"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// MessageParserImpl implements the MessageParser interface
type MessageParserImpl struct {
	opcodes interfaces.OpcodeSet
}

// NewMessageParser creates a parser for the given opcode set
func NewMessageParser(opcodes interfaces.OpcodeSet) *MessageParserImpl {
	return &MessageParserImpl{opcodes: opcodes}
}

// GetOpcodes returns the opcode set roles are assigned from
func (p *MessageParserImpl) GetOpcodes() interfaces.OpcodeSet {
	return p.opcodes
}

// ParseAll flattens transactions in input order
func (p *MessageParserImpl) ParseAll(txs []*types.Transaction) []types.RawMessageEvent {
	var out []types.RawMessageEvent
	for _, tx := range txs {
		for _, ev := range p.Parse(tx) {
			ev.Seq = len(out)
			out = append(out, ev)
		}
	}
	return out
}

// Parse returns the role-tagged messages of one transaction. Messages without a
// swap role or without a query id are skipped.
func (p *MessageParserImpl) Parse(tx *types.Transaction) []types.RawMessageEvent {
	if tx == nil {
		return nil
	}

	fallbackQID := transactionQueryID(tx)

	var events []types.RawMessageEvent
	if tx.InMsg != nil {
		if ev, ok := p.parseMessage(tx, tx.InMsg, true, fallbackQID); ok {
			events = append(events, ev)
		}
	}
	for i := range tx.OutMsgs {
		if ev, ok := p.parseMessage(tx, &tx.OutMsgs[i], false, fallbackQID); ok {
			events = append(events, ev)
		}
	}

	for i := range events {
		events[i].Seq = i
	}
	return events
}

func (p *MessageParserImpl) parseMessage(tx *types.Transaction, msg *types.Message, inbound bool, fallbackQID string) (types.RawMessageEvent, bool) {
	if msg.OpCode == "" {
		return types.RawMessageEvent{}, false
	}

	op, err := ParseOpcode(msg.OpCode)
	if err != nil {
		return types.RawMessageEvent{}, false
	}

	role := roleFor(p.opcodes, op, inbound)
	if role == types.RoleNone {
		return types.RawMessageEvent{}, false
	}

	qid := QueryID(msg.DecodedBody)
	if qid == "" {
		qid = fallbackQID
	}
	if qid == "" {
		return types.RawMessageEvent{}, false
	}

	lt := msg.CreatedLT
	if lt == 0 {
		lt = tx.LT
	}
	utime := msg.CreatedAt
	if utime == 0 {
		utime = tx.Utime
	}

	name := msg.DecodedOpName
	if name == "" {
		name = OpcodeName(op)
	}

	return types.RawMessageEvent{
		TxHash:      tx.Hash,
		LT:          lt,
		Utime:       utime,
		Block:       tx.Block,
		Opcode:      op,
		OpName:      name,
		Inbound:     inbound,
		Role:        role,
		QueryID:     qid,
		Source:      msg.SourceAddress(),
		Destination: msg.DestinationAddress(),
		Body:        msg.DecodedBody,
	}, true
}

// QueryID returns the body's query id, or "" when absent or zero
func QueryID(body types.Body) string {
	qid, ok := body.String("query_id")
	if !ok {
		return ""
	}
	qid = strings.TrimSpace(qid)
	if qid == "0" {
		return ""
	}
	return qid
}

// transactionQueryID is the id used for messages that carry none of their own:
// the inbound message's, else the first outbound one's
func transactionQueryID(tx *types.Transaction) string {
	if tx.InMsg != nil {
		if qid := QueryID(tx.InMsg.DecodedBody); qid != "" {
			return qid
		}
	}
	for i := range tx.OutMsgs {
		if qid := QueryID(tx.OutMsgs[i].DecodedBody); qid != "" {
			return qid
		}
	}
	return ""
}
