package sim

import (
	"fmt"
	"strings"
)

// SymbolKind classifies a decoded bus event
type SymbolKind uint8

const (
	SymStart SymbolKind = iota
	SymRestart
	SymStop
	SymByte
)

// Symbol is one decoded bus event. Value and Ack are only meaningful for
// SymByte; Ack is true when the receiver pulled SDA low on the ninth clock.
type Symbol struct {
	Kind  SymbolKind
	Value byte
	Ack   bool
}

func (s Symbol) String() string {
	switch s.Kind {
	case SymStart:
		return "S"
	case SymRestart:
		return "Sr"
	case SymStop:
		return "P"
	}
	if s.Ack {
		return fmt.Sprintf("%02X+", s.Value)
	}
	return fmt.Sprintf("%02X-", s.Value)
}

// Analyzer decodes start, restart, stop and acknowledged bytes from line
// edges, like a logic analyzer protocol decoder.
type Analyzer struct {
	symbols []Symbol
	active  bool // Between a start and a stop
	bits    int
	shift   byte
}

// NewAnalyzer creates an analyzer with no history
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Pulls implements Device; the analyzer never drives the bus
func (a *Analyzer) Pulls(Line) bool {
	return false
}

// Edge implements Device
func (a *Analyzer) Edge(line Line, sda, scl bool) {
	switch {
	case line == SDA && scl && !sda:
		kind := SymStart
		if a.active {
			kind = SymRestart
		}
		a.symbols = append(a.symbols, Symbol{Kind: kind})
		a.active = true
		a.bits, a.shift = 0, 0
	case line == SDA && scl && sda:
		if a.active {
			a.symbols = append(a.symbols, Symbol{Kind: SymStop})
		}
		a.active = false
		a.bits, a.shift = 0, 0
	case line == SCL && scl && a.active:
		if a.bits < 8 {
			a.shift <<= 1
			if sda {
				a.shift |= 1
			}
			a.bits++
			return
		}
		a.symbols = append(a.symbols, Symbol{Kind: SymByte, Value: a.shift, Ack: !sda})
		a.bits, a.shift = 0, 0
	}
}

// Symbols returns everything decoded since the last Reset
func (a *Analyzer) Symbols() []Symbol {
	return a.symbols
}

// Count returns how many symbols of a kind were decoded
func (a *Analyzer) Count(kind SymbolKind) int {
	n := 0
	for _, s := range a.symbols {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Bytes returns the decoded byte symbols in order
func (a *Analyzer) Bytes() []Symbol {
	var out []Symbol
	for _, s := range a.symbols {
		if s.Kind == SymByte {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears decoded history; an open transaction stays open
func (a *Analyzer) Reset() {
	a.symbols = a.symbols[:0]
}

// String renders the decoded symbols, e.g. "S A0+ AA+ 55+ P"
func (a *Analyzer) String() string {
	parts := make([]string, len(a.symbols))
	for i, s := range a.symbols {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
