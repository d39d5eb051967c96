package parser

import "fmt"

// NumericLabels tracks every definition of each bare numeric local
// label ("1:", "2:", ...) in source order, so that directional
// references ("1f", "1b") can be resolved to the correct occurrence.
// Per §4.2, such labels "are rewritten uniquely per file during
// parsing" rather than colliding as duplicate symbols.
type NumericLabels struct {
	occurrences map[string][]occurrence
}

type occurrence struct {
	qualified string
	stmtIndex int
}

func NewNumericLabels() *NumericLabels {
	return &NumericLabels{occurrences: make(map[string][]occurrence)}
}

// Record registers a new definition of the bare numeric label name at
// stmtIndex and returns the qualified symbol name to store it under
// in the symbol table.
func (n *NumericLabels) Record(name string, stmtIndex int) string {
	qualified := fmt.Sprintf("%s@%d", name, len(n.occurrences[name]))
	n.occurrences[name] = append(n.occurrences[name], occurrence{qualified: qualified, stmtIndex: stmtIndex})
	return qualified
}

// Resolve translates a directional reference (digits, forward) made
// from statement atIndex into the qualified symbol name of the
// occurrence it refers to: the nearest definition after atIndex when
// forward, or at-or-before atIndex when backward.
func (n *NumericLabels) Resolve(name string, forward bool, atIndex int) (string, bool) {
	occs := n.occurrences[name]
	if forward {
		for _, o := range occs {
			if o.stmtIndex > atIndex {
				return o.qualified, true
			}
		}
		return "", false
	}
	qualified := ""
	found := false
	for _, o := range occs {
		if o.stmtIndex <= atIndex {
			qualified = o.qualified
			found = true
		}
	}
	return qualified, found
}
