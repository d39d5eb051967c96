package isa

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tricore-tools/tcasm/internal/diag"
)

// Format names the tabular source format an instruction table is read
// from. Spec §4.1 lists three: tabular spreadsheet, structured
// document, line-oriented text. This package implements the latter
// two (CSV and JSON); no xlsx library exists anywhere in the retrieved
// example pack, so FormatSpreadsheet is accepted as a tag but always
// rejected with a TableLoadError rather than silently downgraded.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatJSON        Format = "json"
	FormatSpreadsheet Format = "spreadsheet"
)

// maxSlotColumns bounds the number of operand-slot column groups a CSV
// row may carry. TriCore's densest real variants (three-register XOPs
// plus an implicit-flag column) fit comfortably within four.
const maxSlotColumns = 4

// csvHeader is the fixed column header LoadCSV expects, one row per
// encoding variant, one column group per operand slot.
var csvHeader = []string{
	"mnemonic", "opcode_size", "base_opcode", "operand_count", "requires_implicit",
}

func slotColumnNames(i int) []string {
	p := fmt.Sprintf("op%d_", i+1)
	return []string{
		p + "kind", p + "pos", p + "len", p + "signed", p + "scale",
		p + "bank", p + "required_reg", p + "post_inc", p + "literal",
	}
}

// FormatFromExtension guesses a table's Format from its file
// extension: ".json" selects FormatJSON, everything else (including
// ".csv") defaults to FormatCSV, the format every worked example in
// SPEC_FULL.md uses.
func FormatFromExtension(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Load reads an instruction table from path in the given format and
// returns the indexed Table, or a TableLoadError diagnostic bag
// describing which rows failed schema validation.
func Load(path string, format Format) (*Table, *diag.Bag) {
	bag := &diag.Bag{}
	f, err := os.Open(path)
	if err != nil {
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "%v", err)
		return nil, bag
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return loadCSV(path, f, bag)
	case FormatJSON:
		return loadJSON(path, f, bag)
	case FormatSpreadsheet:
		bag.Errorf(diag.TableLoadError, diag.Location{File: path},
			"spreadsheet instruction tables are not supported; convert to csv or json")
		return nil, bag
	default:
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "unknown table format %q", format)
		return nil, bag
	}
}

func loadJSON(path string, r io.Reader, bag *diag.Bag) (*Table, *diag.Bag) {
	var variants []*Variant
	dec := json.NewDecoder(r)
	if err := dec.Decode(&variants); err != nil {
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "malformed instruction table: %v", err)
		return nil, bag
	}
	t, err := NewTable(variants)
	if err != nil {
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "%v", err)
		return nil, bag
	}
	return t, bag
}

func loadCSV(path string, r io.Reader, bag *diag.Bag) (*Table, *diag.Bag) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "empty or unreadable table: %v", err)
		return nil, bag
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range csvHeader {
		if _, ok := col[want]; !ok {
			bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "missing required column %q", want)
			return nil, bag
		}
	}

	var variants []*Variant
	rowNum := 1
	for {
		rowNum++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			bag.Errorf(diag.TableLoadError, diag.Location{File: path, Line: rowNum}, "%v", err)
			continue
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		v, err := parseCSVRow(row, col, rowNum)
		if err != nil {
			bag.Errorf(diag.TableLoadError, diag.Location{File: path, Line: rowNum}, "%v", err)
			continue
		}
		variants = append(variants, v)
	}

	if bag.HasFatal() {
		return nil, bag
	}

	t, err := NewTable(variants)
	if err != nil {
		bag.Errorf(diag.TableLoadError, diag.Location{File: path}, "%v", err)
		return nil, bag
	}
	return t, bag
}

func field(row []string, col map[string]int, name string) (string, bool) {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func parseCSVRow(row []string, col map[string]int, rowNum int) (*Variant, error) {
	mnemonic, _ := field(row, col, "mnemonic")
	if mnemonic == "" {
		return nil, fmt.Errorf("row %d: missing mnemonic", rowNum)
	}

	opcodeSizeStr, _ := field(row, col, "opcode_size")
	opcodeSize, err := strconv.Atoi(opcodeSizeStr)
	if err != nil || (opcodeSize != 16 && opcodeSize != 32) {
		return nil, fmt.Errorf("row %d (%s): opcode_size must be 16 or 32", rowNum, mnemonic)
	}

	baseOpcodeStr, _ := field(row, col, "base_opcode")
	baseOpcode, err := parseTableInt(baseOpcodeStr)
	if err != nil {
		return nil, fmt.Errorf("row %d (%s): bad base_opcode: %v", rowNum, mnemonic, err)
	}

	operandCountStr, _ := field(row, col, "operand_count")
	operandCount, err := strconv.Atoi(operandCountStr)
	if err != nil || operandCount < 0 || operandCount > maxSlotColumns {
		return nil, fmt.Errorf("row %d (%s): operand_count must be 0..%d", rowNum, mnemonic, maxSlotColumns)
	}

	requiresImplicit := false
	if s, ok := field(row, col, "requires_implicit"); ok {
		requiresImplicit = parseBoolLoose(s)
	}

	v := &Variant{
		ID:                       rowNum,
		Mnemonic:                 strings.ToUpper(mnemonic),
		OpcodeSizeBits:           opcodeSize,
		BaseOpcode:               uint32(baseOpcode),
		RequiresImplicitRegister: requiresImplicit,
	}

	for i := 0; i < operandCount; i++ {
		names := slotColumnNames(i)
		kindStr, ok := field(row, col, names[0])
		if !ok || kindStr == "" {
			// An empty cell for a declared slot means the slot is
			// absent, not zero-width (§6's instruction-table
			// interface contract); treat as a schema error since
			// operand_count said this slot should exist.
			return nil, fmt.Errorf("row %d (%s): operand slot %d (%s) is empty but operand_count=%d", rowNum, mnemonic, i+1, names[0], operandCount)
		}
		slot, err := parseCSVSlot(row, col, names, rowNum, mnemonic, i)
		if err != nil {
			return nil, err
		}
		v.Slots = append(v.Slots, slot)
	}

	return v, nil
}

func parseCSVSlot(row []string, col map[string]int, names []string, rowNum int, mnemonic string, idx int) (Slot, error) {
	kindStr, _ := field(row, col, names[0])
	kind, ok := slotKindValues[kindStr]
	if !ok {
		return Slot{}, fmt.Errorf("row %d (%s): operand slot %d has unknown kind %q", rowNum, mnemonic, idx+1, kindStr)
	}

	s := Slot{Kind: kind}

	if posStr, ok := field(row, col, names[1]); ok && posStr != "" {
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			return Slot{}, fmt.Errorf("row %d (%s): slot %d bad position: %v", rowNum, mnemonic, idx+1, err)
		}
		s.BitPosition = pos
	}
	if lenStr, ok := field(row, col, names[2]); ok && lenStr != "" {
		length, err := strconv.Atoi(lenStr)
		if err != nil {
			return Slot{}, fmt.Errorf("row %d (%s): slot %d bad length: %v", rowNum, mnemonic, idx+1, err)
		}
		s.BitLength = length
	}
	if signedStr, ok := field(row, col, names[3]); ok {
		s.Signed = parseBoolLoose(signedStr)
	}
	if scaleStr, ok := field(row, col, names[4]); ok && scaleStr != "" {
		scale, err := strconv.Atoi(scaleStr)
		if err == nil {
			s.Scale = scale
		}
	}
	if bankStr, ok := field(row, col, names[5]); ok && bankStr != "" {
		bank, ok := bankValues[bankStr]
		if !ok {
			return Slot{}, fmt.Errorf("row %d (%s): slot %d unknown register bank %q", rowNum, mnemonic, idx+1, bankStr)
		}
		s.Bank = bank
	}
	if regStr, ok := field(row, col, names[6]); ok && regStr != "" {
		reg, err := strconv.Atoi(regStr)
		if err == nil {
			s.RequiredRegister = reg
		}
	}
	if postIncStr, ok := field(row, col, names[7]); ok {
		s.RequirePostIncrement = parseBoolLoose(postIncStr)
	}
	if lit, ok := field(row, col, names[8]); ok && lit != "" {
		s.LiteralValue = strings.ToUpper(lit)
	}

	return s, nil
}

func parseBoolLoose(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

func parseTableInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}
