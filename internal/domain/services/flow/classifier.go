package flow

import "github.com/yield-service/yield_service/internal/domain/entities"

// Classification is the direction of a transfer relative to the tracked protocols
type Classification struct {
	Direction entities.FlowDirection
	Kind      entities.TransferKind
	Protocol  string
}

// IsInflow reports value entering a protocol (mint or deposit)
func (c Classification) IsInflow() bool { return c.Direction == entities.DirectionInflow }

// IsOutflow reports value leaving a protocol (burn or withdraw)
func (c Classification) IsOutflow() bool { return c.Direction == entities.DirectionOutflow }

// IsFlow reports whether the transfer counts toward inflow or outflow
func (c Classification) IsFlow() bool { return c.IsInflow() || c.IsOutflow() }

// Classify determines the direction of a transfer. Rules apply in order:
// mint, burn, deposit into a protocol, withdraw from a protocol, otherwise neutral.
// A transfer between two protocol contracts is neutral.
func Classify(t entities.Transfer, table *ProtocolTable) Classification {
	if IsZeroAddress(t.From) {
		return Classification{Direction: entities.DirectionInflow, Kind: entities.KindMint}
	}
	if IsZeroAddress(t.To) {
		return Classification{Direction: entities.DirectionOutflow, Kind: entities.KindBurn}
	}

	toEntry, toKnown := table.Lookup(t.To)
	fromEntry, fromKnown := table.Lookup(t.From)

	switch {
	case toKnown && !fromKnown:
		return Classification{Direction: entities.DirectionInflow, Kind: entities.KindDeposit, Protocol: toEntry.Protocol}
	case fromKnown && !toKnown:
		return Classification{Direction: entities.DirectionOutflow, Kind: entities.KindWithdraw, Protocol: fromEntry.Protocol}
	case fromKnown && toKnown:
		return Classification{Direction: entities.DirectionNeutral, Kind: entities.KindInternal, Protocol: fromEntry.Protocol}
	default:
		return Classification{Direction: entities.DirectionNeutral, Kind: entities.KindTransfer}
	}
}
