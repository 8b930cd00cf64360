package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the mint/burn counterparty
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ProtocolAddress is one configured protocol contract
type ProtocolAddress struct {
	Address  string
	Protocol string
	Label    string
}

// ProtocolEntry is what the table knows about an address
type ProtocolEntry struct {
	Protocol string
	Label    string
}

// ProtocolTable maps lower-case contract addresses to their protocol.
// It is immutable after construction and safe for concurrent use.
type ProtocolTable struct {
	entries map[string]ProtocolEntry
}

// NewProtocolTable builds a table, rejecting malformed or duplicate addresses
func NewProtocolTable(addresses []ProtocolAddress) (*ProtocolTable, error) {
	entries := make(map[string]ProtocolEntry, len(addresses))
	for _, a := range addresses {
		if !common.IsHexAddress(a.Address) {
			return nil, fmt.Errorf("invalid protocol address %q", a.Address)
		}
		key := NormalizeAddress(a.Address)
		if key == ZeroAddress {
			return nil, fmt.Errorf("zero address cannot be a protocol contract")
		}
		if existing, ok := entries[key]; ok && existing.Protocol != a.Protocol {
			return nil, fmt.Errorf("address %s listed for both %s and %s", key, existing.Protocol, a.Protocol)
		}
		entries[key] = ProtocolEntry{Protocol: strings.ToLower(a.Protocol), Label: a.Label}
	}
	return &ProtocolTable{entries: entries}, nil
}

// Lookup returns the entry for an address in any case
func (t *ProtocolTable) Lookup(address string) (ProtocolEntry, bool) {
	if t == nil {
		return ProtocolEntry{}, false
	}
	e, ok := t.entries[NormalizeAddress(address)]
	return e, ok
}

// Len returns the number of known contracts
func (t *ProtocolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Protocols returns the distinct protocol names, sorted
func (t *ProtocolTable) Protocols() []string {
	seen := map[string]struct{}{}
	if t != nil {
		for _, e := range t.entries {
			seen[e.Protocol] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NormalizeAddress lower-cases hex addresses. Anything that is not a valid
// address is trimmed and lower-cased as-is so it never matches the table.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return strings.ToLower(common.HexToAddress(address).Hex())
	}
	return strings.ToLower(address)
}

// IsZeroAddress reports whether address is empty or the zero address
func IsZeroAddress(address string) bool {
	n := NormalizeAddress(address)
	return n == "" || n == ZeroAddress || n == "0x" || n == "0x0"
}

// AbbreviateAddress renders 0x1234...abcd
func AbbreviateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func isHexAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}
