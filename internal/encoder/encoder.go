// Package encoder implements the §4.4 variant selector, fit-checker,
// and bit-field encoder. It sits between the ast/isa representations
// (which cannot depend on each other beyond isa.RegisterBank) and the
// linker, which drives the selector once per fixpoint iteration.
package encoder

import (
	"fmt"
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/isa"
)

// Resolver evaluates an expression to an address or constant value.
// atStmtIndex disambiguates numeric-local "Nf"/"Nb" references.
type Resolver interface {
	Resolve(e ast.Expr, atStmtIndex int) (int64, bool)
}

// Rejection records why one candidate variant was eliminated, for the
// "no candidate survives" diagnostic required by §4.4 step 6.
type Rejection struct {
	VariantID int
	Reason    string
}

// Result is the outcome of a successful selection.
type Result struct {
	Variant *isa.Variant
	Bits    uint32
	Size    int // bytes

	// Provisional marks a pass-1 safety-margin pick made before every
	// label in its operands had an address; its Bits are meaningless
	// and must not be emitted, only its Size is trustworthy.
	Provisional bool
}

// Options carries the optimisation-flag filter and fixpoint-phase
// mode of §4.4 step 3 and §4.5.
type Options struct {
	ForceWidth  int  // 0, 16, or 32; nonzero drops the other width's candidates
	NoImplicit  bool // drop variants requiring an implicit A[10]/A[15]
	Optimistic  bool // pass-1 mode: treat unresolved displacements per the safety margin
}

// Select runs the deterministic selection algorithm of §4.4 against
// mnemonic's candidate variants for the operand list parsed at pc,
// using resolver to evaluate immediate and label expressions.
func Select(table *isa.Table, mnemonic string, operands []ast.Operand, pc int64, resolver Resolver, stmtIndex int, opts Options) (*Result, []Rejection) {
	candidates := table.Variants(mnemonic)
	var rejections []Rejection

	type shaped struct {
		v          *isa.Variant
		unresolved bool
	}
	var shapeOK []shaped

	for _, v := range candidates {
		if v.OperandCount() != len(operands) {
			rejections = append(rejections, Rejection{v.ID, fmt.Sprintf("arity: wants %d operands, got %d", v.OperandCount(), len(operands))})
			continue
		}
		if opts.ForceWidth != 0 && v.OpcodeSizeBits != opts.ForceWidth {
			rejections = append(rejections, Rejection{v.ID, fmt.Sprintf("dropped: width forced to %d", opts.ForceWidth)})
			continue
		}
		if opts.NoImplicit && v.RequiresImplicitRegister {
			rejections = append(rejections, Rejection{v.ID, "dropped: implicit-register variant disabled"})
			continue
		}

		ok, unresolved, reason := shapeMatches(v, operands, resolver, stmtIndex)
		if !ok {
			rejections = append(rejections, Rejection{v.ID, reason})
			continue
		}
		shapeOK = append(shapeOK, shaped{v, unresolved})
	}

	if len(shapeOK) == 0 {
		return nil, rejections
	}

	// Among shape-compatible candidates whose operands fully resolve,
	// check fit and prefer the smallest that fits (§4.4 step 4-5).
	var bestFit *isa.Variant
	var bestFitBits uint32
	anyUnresolved := false
	for _, s := range shapeOK {
		if s.unresolved {
			anyUnresolved = true
			continue
		}
		bits, ok := encodeBits(s.v, operands, pc, resolver, stmtIndex)
		if !ok {
			rejections = append(rejections, Rejection{s.v.ID, "operand out of range for slot width"})
			continue
		}
		if bestFit == nil || s.v.OpcodeSizeBits < bestFit.OpcodeSizeBits {
			bestFit = s.v
			bestFitBits = bits
		}
	}
	if bestFit != nil {
		return &Result{Variant: bestFit, Bits: bestFitBits, Size: bestFit.OpcodeSizeBits / 8}, rejections
	}

	if !opts.Optimistic || !anyUnresolved {
		// Past pass 1, every label must already carry a provisional
		// address; and when every candidate resolved but none fit, the
		// operands are out of range. Either way this is a real fit
		// failure, not a forward reference.
		return nil, rejections
	}

	// Safety margin (§4.5): nothing resolves yet, so assume the
	// largest shape-compatible variant rather than underestimate.
	var largest *isa.Variant
	for _, s := range shapeOK {
		if largest == nil || s.v.OpcodeSizeBits > largest.OpcodeSizeBits {
			largest = s.v
		}
	}
	return &Result{Variant: largest, Size: largest.OpcodeSizeBits / 8, Provisional: true}, rejections
}

// shapeMatches checks arity-independent operand compatibility (§4.4
// step 2) without requiring displacement values to be resolvable yet.
func shapeMatches(v *isa.Variant, operands []ast.Operand, resolver Resolver, stmtIndex int) (ok bool, unresolved bool, reason string) {
	for i, slot := range v.Slots {
		matched, known, isDisplacement := matchSlotShape(slot, operands[i], resolver, stmtIndex)
		if !matched {
			return false, false, fmt.Sprintf("operand %d shape mismatch for slot %s", i+1, slot.Kind)
		}
		if isDisplacement && !known {
			unresolved = true
		}
	}
	return true, unresolved, ""
}

// matchSlotShape reports whether operand's syntactic shape is
// compatible with slot (register bank, literal constraints, indexed
// vs plain), and — for slots that carry a resolvable value — whether
// that value is currently known.
func matchSlotShape(slot isa.Slot, operand ast.Operand, resolver Resolver, stmtIndex int) (matched, known, isValueSlot bool) {
	switch slot.Kind {
	case isa.SlotDataReg, isa.SlotAddrReg, isa.SlotExtReg:
		reg, ok := operand.(ast.RegisterOperand)
		if !ok || reg.Reg.Bank != slot.Bank {
			return false, true, false
		}
		if slot.Bank == isa.BankExt && reg.Reg.Index%2 != 0 {
			return false, true, false
		}
		if slot.AllowDeref && !slot.AllowPlain && !reg.Reg.Deref {
			return false, true, false
		}
		if slot.AllowPlain && !slot.AllowDeref && reg.Reg.Deref {
			return false, true, false
		}
		return true, true, false
	case isa.SlotLiteralRegister:
		reg, ok := operand.(ast.RegisterOperand)
		if !ok || reg.Reg.Bank != slot.Bank || reg.Reg.Index != slot.RequiredRegister {
			return false, true, false
		}
		return true, true, false
	case isa.SlotFixedLiteral:
		fx, ok := operand.(ast.Fixed)
		if !ok || !strings.EqualFold(fx.Token, slot.LiteralValue) {
			return false, true, false
		}
		return true, true, false
	case isa.SlotMemoryOffset:
		if slot.RequirePostIncrement {
			idx, ok := operand.(ast.Indexed)
			if !ok || idx.Base.Bank != slot.Bank || !idx.Base.PostIncrement {
				return false, true, false
			}
			_, ok2 := resolveExpr(idx.Disp, resolver, stmtIndex)
			return true, ok2, true
		}
		imm, ok := operand.(ast.ImmediateOperand)
		if !ok {
			return false, true, false
		}
		_, ok2 := resolveExpr(imm.Expr, resolver, stmtIndex)
		return true, ok2, true
	case isa.SlotImmediate, isa.SlotBitPosition:
		imm, ok := operand.(ast.ImmediateOperand)
		if !ok {
			return false, true, false
		}
		_, ok2 := resolveExpr(imm.Expr, resolver, stmtIndex)
		return true, ok2, true
	case isa.SlotPCRelative:
		imm, ok := operand.(ast.ImmediateOperand)
		if !ok {
			return false, true, false
		}
		_, ok2 := resolveExpr(imm.Expr, resolver, stmtIndex)
		return true, ok2, true
	default:
		return false, true, false
	}
}

func resolveExpr(e ast.Expr, resolver Resolver, stmtIndex int) (int64, bool) {
	return resolver.Resolve(e, stmtIndex)
}

// encodeBits computes the full encoded word for v given fully
// resolvable operands, or reports false if any slot fails the §4.4
// fit rule.
func encodeBits(v *isa.Variant, operands []ast.Operand, pc int64, resolver Resolver, stmtIndex int) (uint32, bool) {
	bits := v.BaseOpcode
	for i, slot := range v.Slots {
		if !slot.EncodesBits() {
			continue
		}
		raw, ok := slotValue(slot, operands[i], pc, resolver, stmtIndex)
		if !ok {
			return 0, false
		}
		fitted, ok := FitValue(raw, slot)
		if !ok {
			return 0, false
		}
		bits |= fitted << uint(slot.BitPosition)
	}
	return bits, true
}

// slotValue extracts the raw (pre-scale) value a resolved operand
// contributes to slot: a register index, an immediate/displacement,
// or target-minus-pc for a PC-relative slot.
func slotValue(slot isa.Slot, operand ast.Operand, pc int64, resolver Resolver, stmtIndex int) (int64, bool) {
	switch slot.Kind {
	case isa.SlotDataReg, isa.SlotAddrReg, isa.SlotExtReg:
		reg := operand.(ast.RegisterOperand)
		return int64(reg.Reg.Index), true
	case isa.SlotLiteralRegister, isa.SlotFixedLiteral:
		return 0, true
	case isa.SlotMemoryOffset:
		if slot.RequirePostIncrement {
			idx := operand.(ast.Indexed)
			return resolveImmediateValue(ast.ImmediateOperand{Expr: idx.Disp}, resolver, stmtIndex)
		}
		imm := operand.(ast.ImmediateOperand)
		return resolveImmediateValue(imm, resolver, stmtIndex)
	case isa.SlotImmediate, isa.SlotBitPosition:
		imm := operand.(ast.ImmediateOperand)
		return resolveImmediateValue(imm, resolver, stmtIndex)
	case isa.SlotPCRelative:
		imm := operand.(ast.ImmediateOperand)
		target, ok := resolveImmediateValue(imm, resolver, stmtIndex)
		if !ok {
			return 0, false
		}
		return target - pc, true
	default:
		return 0, false
	}
}

func resolveImmediateValue(imm ast.ImmediateOperand, resolver Resolver, stmtIndex int) (int64, bool) {
	v, ok := resolver.Resolve(imm.Expr, stmtIndex)
	if !ok {
		return 0, false
	}
	switch imm.Hi {
	case ast.HLHi:
		v = (v >> 16) & 0xFFFF
	case ast.HLLo:
		v = v & 0xFFFF
	}
	return v, true
}

// FitValue implements the §4.4 fit rule: scale, check the exact-
// division requirement, and check the value lies in the slot's
// signed or unsigned representable range.
func FitValue(v int64, slot isa.Slot) (uint32, bool) {
	k := int64(1)
	if slot.Scale > 0 {
		k = int64(slot.Scale)
	}
	d := v
	if k != 1 {
		if v%k != 0 {
			return 0, false
		}
		d = v / k
	}
	w := slot.BitLength
	var lo, hi int64
	if slot.Signed {
		lo = -(int64(1) << uint(w-1))
		hi = (int64(1) << uint(w-1)) - 1
	} else {
		lo = 0
		hi = (int64(1) << uint(w)) - 1
	}
	if d < lo || d > hi {
		return 0, false
	}
	mask := uint32((int64(1) << uint(w)) - 1)
	return uint32(d) & mask, true
}
