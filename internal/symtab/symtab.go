// Package symtab implements the symbol table and origin/section model
// of §4.3: addresses are assigned during the linker's passes and
// recorded here, keyed by symbol name.
package symtab

import "fmt"

// Symbol is one named location or constant.
type Symbol struct {
	Name       string
	Address    int64
	IsDefined  bool
	IsGlobal   bool
	IsConstant bool // set for EQU symbols, whose "address" is their literal value
	Section    string
}

// Table is the growable symbol table built during the linker's passes.
// A plain map plus insertion-order slice is enough at the table sizes
// this assembler handles.
type Table struct {
	byName map[string]*Symbol
	order  []*Symbol
}

func New() *Table {
	return &Table{byName: make(map[string]*Symbol)}
}

// Define inserts or updates a symbol. A non-constant definition of an
// already-defined symbol is a DuplicateSymbol error, whatever its
// address; defining a name so far held only by a MarkGlobal
// placeholder (which keeps its global scope), or setting an EQU
// constant, is allowed.
func (t *Table) Define(name string, address int64, constant, global bool, section string) error {
	if sym, ok := t.byName[name]; ok {
		if sym.IsDefined && !constant {
			return fmt.Errorf("symbol %q already defined at address %#x", name, sym.Address)
		}
	}
	sym := &Symbol{Name: name, Address: address, IsDefined: true, IsGlobal: global, IsConstant: constant, Section: section}
	if existing, ok := t.byName[name]; ok {
		sym.IsGlobal = sym.IsGlobal || existing.IsGlobal
		*existing = *sym
	} else {
		t.byName[name] = sym
		t.order = append(t.order, sym)
	}
	return nil
}

// MarkGlobal upgrades name's scope to global, inserting a forward
// placeholder entry if it hasn't been defined yet.
func (t *Table) MarkGlobal(name string) {
	if sym, ok := t.byName[name]; ok {
		sym.IsGlobal = true
		return
	}
	sym := &Symbol{Name: name, IsGlobal: true}
	t.byName[name] = sym
	t.order = append(t.order, sym)
}

// Lookup returns name's current address and whether it is defined.
func (t *Table) Lookup(name string) (int64, bool) {
	sym, ok := t.byName[name]
	if !ok || !sym.IsDefined {
		return 0, false
	}
	return sym.Address, true
}

// Get returns the Symbol record for name, or nil.
func (t *Table) Get(name string) *Symbol { return t.byName[name] }

// All returns every symbol in definition order.
func (t *Table) All() []*Symbol { return t.order }
