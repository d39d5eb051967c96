// Command tcasm assembles TriCore TC1.6/1.8 source into binary, Intel
// HEX, or text-dump machine code, following the flag surface of §6.
// Grounded on the teacher's asm/main.go and lang/yasm/main.go: a flat
// flag.Parse() driver that calls into the core and reports errors to
// stderr with os.Exit(1).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tricore-tools/tcasm/internal/config"
	"github.com/tricore-tools/tcasm/internal/diag"
	"github.com/tricore-tools/tcasm/internal/isa"
	"github.com/tricore-tools/tcasm/internal/linker"
	"github.com/tricore-tools/tcasm/internal/output"
	"github.com/tricore-tools/tcasm/internal/parser"
	"github.com/tricore-tools/tcasm/internal/preprocess"
)

const version = "tcasm 0.1.0"

type macroFiles []string

func (m *macroFiles) String() string { return strings.Join(*m, ",") }
func (m *macroFiles) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	format := flag.String("f", "bin", "output format: bin|hex|txt")
	outPath := flag.String("o", "", "final output file")
	listPath := flag.String("l", "", "emit listing (optional explicit path)")
	listFlagSet := false
	outputDir := flag.String("D", "", "base directory for intermediates")
	flag.StringVar(outputDir, "output-dir", "", "base directory for intermediates")
	configPath := flag.String("c", "", "alternate configuration file")
	flag.StringVar(configPath, "config", "", "alternate configuration file")
	tablePath := flag.String("s", "", "override instruction table path")
	flag.StringVar(tablePath, "instruction-set", "", "override instruction table path")
	var macros macroFiles
	flag.Var(&macros, "m", "additional macro-definition file (repeatable)")
	noMacros := flag.Bool("no-macros", false, "bypass the preprocessor entirely")
	preprocessOnly := flag.Bool("E", false, "run only the preprocessor; write result to stdout")
	force32 := flag.Bool("O32", false, "force 32-bit variant where a choice exists")
	noImplicit := flag.Bool("Ono-implicit", false, "drop variants relying on implicit A[10]/A[15]")
	verbose := flag.Bool("verbose", false, "verbose diagnostics")
	infoLevel := flag.Bool("info", false, "info-level diagnostics")
	debugLevel := flag.Bool("debug", false, "debug-level diagnostics")
	showVersion := flag.Bool("v", false, "print version")
	disasm := flag.Bool("d", false, "disassemble mode")

	flag.Parse()
	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "l" {
			listFlagSet = true
		}
	})

	if *showVersion {
		fmt.Println(version)
		return
	}
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: tcasm [flags] <input.s>")
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	bag := &diag.Bag{}
	cfgPath := *configPath
	var cfg config.Config
	if cfgPath != "" {
		cfg = config.Load(cfgPath, bag)
	} else {
		cfg = config.Default()
	}
	if *tablePath != "" {
		cfg.Paths.InstructionSet = *tablePath
	}
	if *outputDir != "" {
		cfg.Paths.OutputDir = *outputDir
	}
	if *noMacros {
		cfg.Output.EnableMacros = false
	}

	if *debugLevel {
		log.SetFlags(log.Ltime)
	} else {
		log.SetFlags(0)
	}
	logf := func(format string, args ...any) {
		if *verbose || *infoLevel || *debugLevel {
			log.Printf(format, args...)
		}
	}

	if *disasm {
		runDisassemble(inputFile, cfg, bag)
		finish(bag)
	}

	src, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	text := string(src)

	if cfg.Output.EnableMacros {
		exp := preprocess.New()
		for _, mf := range macros {
			data, err := os.ReadFile(mf)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			exp.LoadFile(mf, string(data), bag)
		}
		text = exp.Expand(inputFile, text, bag)
		if *preprocessOnly {
			fmt.Print(text)
			return
		}
	}

	tablePathResolved := cfg.Paths.InstructionSet
	if tablePathResolved == "" {
		fmt.Fprintln(os.Stderr, "Error: no instruction table configured (-s or paths.instruction_set)")
		os.Exit(1)
	}
	tableFormat := isa.FormatFromExtension(tablePathResolved)
	table, tableBag := isa.Load(tablePathResolved, tableFormat)
	bag.Merge(tableBag)
	if table == nil {
		finish(bag)
	}
	logf("loaded %d instruction variants from %s", len(table.All()), tablePathResolved)

	stmts, nl := parser.Parse(inputFile, text, bag, parser.Options{IncludeBaseDir: filepath.Dir(inputFile)})

	forceWidth := 0
	if *force32 {
		forceWidth = 32
	}
	prog := linker.Link(table, stmts, nl, bag, linker.Options{ForceWidth: forceWidth, NoImplicit: *noImplicit})
	logf("fixpoint converged after %d passes", prog.Passes)

	if bag.HasFatal() {
		finish(bag)
	}

	end := output.Little
	if cfg.Architecture.Endianness == "big" {
		end = output.Big
	}

	outDir := cfg.Paths.OutputDir
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	base := *outPath
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		base = filepath.Join(outDir, base)
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	outFile := func(ext string) string {
		if *outPath != "" {
			return *outPath
		}
		return base + ext
	}

	switch *format {
	case "bin":
		if cfg.Output.GenerateBin {
			writeAtomic(outFile(".bin"), func(f *os.File) error { return output.WriteBinary(prog, end, f) })
		}
	case "hex":
		if cfg.Output.GenerateHex {
			writeAtomic(outFile(".hex"), func(f *os.File) error { return output.WriteHex(prog, end, f) })
		}
	case "txt":
		writeAtomic(outFile(".txt"), func(f *os.File) error { return output.WriteTextDump(prog, end, f) })
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q\n", *format)
		os.Exit(1)
	}

	if cfg.Output.GenerateLst || listFlagSet {
		lp := *listPath
		if lp == "" {
			lp = base + ".lst"
		}
		width := output.DetectWidth(os.Stdout, 80)
		writeAtomic(lp, func(f *os.File) error { return output.WriteListing(prog, end, width, f) })
	}
	if cfg.Output.GenerateMap {
		writeAtomic(base+".map", func(f *os.File) error { return output.WriteMap(prog, f) })
	}

	finish(bag)
}

func finish(bag *diag.Bag) {
	var sb strings.Builder
	bag.WriteTo(&sb)
	fmt.Fprint(os.Stderr, sb.String())
	fmt.Println(bag.Summary())
	if bag.HasFatal() {
		os.Exit(1)
	}
	os.Exit(0)
}

func writeAtomic(path string, write func(*os.File) error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.Rename(tmp, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDisassemble(path string, cfg config.Config, bag *diag.Bag) {
	tablePathResolved := cfg.Paths.InstructionSet
	if tablePathResolved == "" {
		fmt.Fprintln(os.Stderr, "Error: no instruction table configured (-s or paths.instruction_set)")
		os.Exit(1)
	}
	table, tableBag := isa.Load(tablePathResolved, isa.FormatFromExtension(tablePathResolved))
	bag.Merge(tableBag)
	if table == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lines, err := isa.DisassembleAll(table, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
}
