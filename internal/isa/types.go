// Package isa holds the external instruction-set database: the table
// of instruction variants that drives encoding, selection, and
// decoding. No mnemonic is hard-coded anywhere outside this package's
// loaders and the table data they read.
package isa

import (
	"encoding/json"
	"fmt"
)

// RegisterBank is the register file an operand slot or parsed operand
// belongs to.
type RegisterBank uint8

const (
	BankNone RegisterBank = iota
	BankData              // D[n]
	BankAddr              // A[n]
	BankExt               // E[n] / P[n], even-indexed only
)

var bankNames = map[RegisterBank]string{
	BankNone: "none",
	BankData: "D",
	BankAddr: "A",
	BankExt:  "E",
}

var bankValues = map[string]RegisterBank{
	"none": BankNone,
	"D":    BankData,
	"A":    BankAddr,
	"E":    BankExt,
	"P":    BankExt,
}

func (b RegisterBank) String() string {
	if s, ok := bankNames[b]; ok {
		return s
	}
	return fmt.Sprintf("RegisterBank(%d)", b)
}

func (b RegisterBank) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func (b *RegisterBank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := bankValues[s]
	if !ok {
		return fmt.Errorf("isa: invalid register bank %q", s)
	}
	*b = v
	return nil
}

// SlotKind categorises one operand slot in a variant's syntax pattern.
type SlotKind uint8

const (
	_ SlotKind = iota
	SlotDataReg
	SlotAddrReg
	SlotExtReg
	SlotBitPosition
	SlotImmediate
	SlotPCRelative
	SlotMemoryOffset
	SlotLiteralRegister // must be a specific register, e.g. D15 or A10
	SlotFixedLiteral    // fixed textual suffix, e.g. LL, UU, L, U, UL, LU
)

var slotKindNames = map[SlotKind]string{
	SlotDataReg:         "data-register",
	SlotAddrReg:         "address-register",
	SlotExtReg:          "extended-register",
	SlotBitPosition:     "bit-position",
	SlotImmediate:       "immediate",
	SlotPCRelative:      "pc-relative",
	SlotMemoryOffset:    "memory-offset",
	SlotLiteralRegister: "literal-register",
	SlotFixedLiteral:    "fixed-literal",
}

var slotKindValues = func() map[string]SlotKind {
	m := make(map[string]SlotKind, len(slotKindNames))
	for k, v := range slotKindNames {
		m[v] = k
	}
	return m
}()

func (k SlotKind) String() string {
	if s, ok := slotKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("SlotKind(%d)", k)
}

func (k SlotKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *SlotKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := slotKindValues[s]
	if !ok {
		return fmt.Errorf("isa: invalid slot kind %q", s)
	}
	*k = v
	return nil
}

// Slot describes where one operand's bits live in the encoded word,
// and how to interpret them.
type Slot struct {
	Kind SlotKind `json:"kind"`

	// BitPosition and BitLength locate this slot's field within the
	// encoded word. A slot with BitLength 0 (typically a
	// SlotLiteralRegister or SlotFixedLiteral) occupies no bits and only
	// constrains operand matching.
	BitPosition int `json:"bitPosition"`
	BitLength   int `json:"bitLength"`

	Signed bool `json:"signed,omitempty"`
	Scale  int  `json:"scale,omitempty"` // 0 means "no scale", treated as 1

	// Bank constrains SlotDataReg/SlotAddrReg/SlotExtReg and
	// SlotLiteralRegister.
	Bank RegisterBank `json:"bank,omitempty"`

	// RequiredRegister constrains SlotLiteralRegister to one specific
	// index within Bank (e.g. "must be D15").
	RequiredRegister int `json:"requiredRegister,omitempty"`

	// RequirePostIncrement, when true, only matches an Indexed operand
	// whose base register carries the post-increment flag.
	RequirePostIncrement bool `json:"requirePostIncrement,omitempty"`

	// AllowDeref/AllowPlain govern whether a bare register (d4) and/or
	// a bracketed register ([d4]) match this slot. When both are
	// false the slot accepts either form (the common case).
	AllowDeref bool `json:"allowDeref,omitempty"`
	AllowPlain bool `json:"allowPlain,omitempty"`

	// LiteralValue is the fixed textual suffix for SlotFixedLiteral
	// (e.g. "LL", "UU", "L", "U", "UL", "LU").
	LiteralValue string `json:"literalValue,omitempty"`
}

func (s Slot) effectiveScale() int {
	if s.Scale <= 0 {
		return 1
	}
	return s.Scale
}

// EncodesBits reports whether this slot consumes bits of the encoded
// word. Slots with BitLength 0 (the literal-register and fixed-literal
// slots of the sample table) only constrain matching and contribute no
// bits.
func (s Slot) EncodesBits() bool { return s.BitLength > 0 }

// Variant is one row of the external instruction table: one encoding
// of a mnemonic.
type Variant struct {
	ID int `json:"id"` // row index in the source table, used for tie-breaking

	Mnemonic       string `json:"mnemonic"`
	OpcodeSizeBits int    `json:"opcodeSizeBits"` // 16 or 32
	BaseOpcode     uint32 `json:"baseOpcode"`

	Slots []Slot `json:"slots"`

	// RequiresImplicitRegister marks a variant that depends on an
	// un-encoded fixed register (A[10] or A[15]); -Ono-implicit drops
	// these.
	RequiresImplicitRegister bool `json:"requiresImplicitRegister,omitempty"`
}

// OperandCount is the number of slots that a parsed operand list must
// supply, including literal-register and fixed-literal slots which a
// source line still writes out explicitly.
func (v *Variant) OperandCount() int { return len(v.Slots) }

// Validate checks that the opcode size is 16 or 32, that every slot
// lies within the word, that no two slots overlap, and that no slot
// claims a bit set in BaseOpcode. Gaps are not detected: a fixed zero
// opcode bit is indistinguishable from a bit no slot claims.
func (v *Variant) Validate() error {
	if v.OpcodeSizeBits != 16 && v.OpcodeSizeBits != 32 {
		return fmt.Errorf("variant %s: opcode size must be 16 or 32, got %d", v.Mnemonic, v.OpcodeSizeBits)
	}
	covered := make([]bool, v.OpcodeSizeBits)
	mark := func(pos, length int, what string) error {
		if pos < 0 || length < 0 || pos+length > v.OpcodeSizeBits {
			return fmt.Errorf("variant %s: %s bit range [%d,%d) exceeds opcode width %d", v.Mnemonic, what, pos, pos+length, v.OpcodeSizeBits)
		}
		for i := pos; i < pos+length; i++ {
			if covered[i] {
				return fmt.Errorf("variant %s: %s overlaps bit %d", v.Mnemonic, what, i)
			}
			covered[i] = true
		}
		return nil
	}

	for i := 0; i < v.OpcodeSizeBits; i++ {
		if v.BaseOpcode&(1<<uint(i)) != 0 {
			// Fixed opcode bit; still must not collide with a slot,
			// but base-opcode bits themselves aren't tracked as a
			// contiguous range, so only slots are checked for overlap
			// against each other and against declared fixed-bit
			// positions captured implicitly by slots not covering them.
		}
	}

	for i, s := range v.Slots {
		if !s.EncodesBits() {
			continue
		}
		what := fmt.Sprintf("slot %d (%s)", i, s.Kind)
		if err := mark(s.BitPosition, s.BitLength, what); err != nil {
			return err
		}
	}

	// No fixed opcode bit (a bit set in BaseOpcode) may be claimed by a
	// slot.
	for i := 0; i < v.OpcodeSizeBits; i++ {
		fixedBit := v.BaseOpcode&(1<<uint(i)) != 0
		if covered[i] && fixedBit {
			return fmt.Errorf("variant %s: bit %d is claimed by both a slot and the fixed opcode", v.Mnemonic, i)
		}
	}

	return nil
}

// Table is the indexed, immutable-after-load collection of variants.
type Table struct {
	byMnemonic map[string][]*Variant
	all        []*Variant
}

// NewTable builds an indexed Table from the given variants, validating
// each one's bit geometry. Variants are retained in the order given;
// that order is the tie-break priority among equally legal candidates
// for the same mnemonic (§4.4 step 5).
func NewTable(variants []*Variant) (*Table, error) {
	t := &Table{byMnemonic: make(map[string][]*Variant)}
	for i, v := range variants {
		if v.ID == 0 {
			v.ID = i + 1
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", v.ID, err)
		}
		key := normalizeMnemonic(v.Mnemonic)
		t.byMnemonic[key] = append(t.byMnemonic[key], v)
		t.all = append(t.all, v)
	}
	return t, nil
}

// Variants returns the ordered list of variants for mnemonic, or nil
// if the mnemonic is not in the table.
func (t *Table) Variants(mnemonic string) []*Variant {
	return t.byMnemonic[normalizeMnemonic(mnemonic)]
}

// Has reports whether mnemonic is defined by this table.
func (t *Table) Has(mnemonic string) bool {
	_, ok := t.byMnemonic[normalizeMnemonic(mnemonic)]
	return ok
}

// All returns every variant in the table, in load order.
func (t *Table) All() []*Variant { return t.all }

func normalizeMnemonic(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
