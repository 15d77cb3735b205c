package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `cbe - a register-allocating code generation backend

Usage:
    cbe <command> [arguments]

Commands:
    build <file>    Allocate registers and emit assembly for an IR file
    alloc <file>    Print the register allocation for an IR file
    check <file>    Load an IR file and report what it declares
    help            Show this help message

Environment:
    CBE_LOG_LEVEL   debug, info, trace, warn, error or fatal (default warn)
    CBE_COLOR       auto, always or never (default auto)
    CBE_JOBS        functions allocated concurrently (default 1)

Examples:
    cbe build -o program.asm program.cbe
    cbe alloc -v program.cbe

Use "cbe <command> -h" for more information about a command.
`)
}

// commandFlags registers the flags shared by every command.
func commandFlags(name, args, summary string, cfg *Config) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	verbose := fs.Bool("v", false, "Log every allocation decision")
	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "Number of functions to allocate concurrently")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cbe %s %s\n", name, args)
		fmt.Fprintf(os.Stderr, "%s\n\n", summary)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs, verbose
}

func parseCommand(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func buildCommand(args []string, cfg Config) {
	fs, verbose := commandFlags("build", "[-o output] [-v] [-j N] <file>",
		"Allocate registers and emit assembly for an IR file", &cfg)
	output := fs.String("o", "", "Output file path (default: stdout)")
	filename := parseCommand(fs, args)
	if *verbose {
		cfg.LogLevel = LevelDebug
	}
	log := cfg.Logger()

	ctx, err := translate(filename, cfg, log)
	if err != nil {
		fail(log, err)
	}

	module := NewModule(ctx)
	defer module.Release()
	if err := module.Generate(); err != nil {
		fail(log, err)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fail(log, fmt.Errorf("creating %s: %w", *output, err))
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	if _, err := module.WriteTo(w); err != nil {
		fail(log, fmt.Errorf("writing output: %w", err))
	}
	if err := w.Flush(); err != nil {
		fail(log, fmt.Errorf("writing output: %w", err))
	}
}

func allocCommand(args []string, cfg Config) {
	fs, verbose := commandFlags("alloc", "[-v] [-j N] <file>",
		"Print the register allocation for an IR file", &cfg)
	filename := parseCommand(fs, args)
	if *verbose {
		cfg.LogLevel = LevelDebug
	}
	log := cfg.Logger()

	ctx, err := translate(filename, cfg, log)
	if err != nil {
		fail(log, err)
	}
	writeAllocationReport(os.Stdout, ctx)
}

func checkCommand(args []string, cfg Config) {
	fs, verbose := commandFlags("check", "[-v] <file>",
		"Load an IR file and report what it declares", &cfg)
	filename := parseCommand(fs, args)
	if *verbose {
		cfg.LogLevel = LevelDebug
	}
	log := cfg.Logger()

	src, err := os.ReadFile(filename)
	if err != nil {
		fail(log, fmt.Errorf("reading %s: %w", filename, err))
	}
	ctx := NewContext(log)
	if err := LoadIR(ctx, string(src)); err != nil {
		fail(log, err)
	}

	instructions := 0
	for _, fn := range ctx.Functions {
		instructions += len(fn.Instructions)
	}
	fmt.Printf("%s: %d globals, %d functions, %d instructions, %d symbols\n",
		filename, len(ctx.Globals), len(ctx.Functions), instructions, ctx.Symbols.Len())
}

// translate loads an IR file and allocates registers for it.
func translate(filename string, cfg Config, log *Logger) (*Context, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	ctx := NewContext(log)
	if err := LoadIR(ctx, string(src)); err != nil {
		return nil, err
	}
	if err := ctx.AllocateRegisters(cfg.Jobs); err != nil {
		return nil, err
	}
	return ctx, nil
}

// writeAllocationReport prints one line per live interval, grouped by
// function.
func writeAllocationReport(w io.Writer, ctx *Context) {
	for fi, fn := range ctx.Functions {
		fmt.Fprintf(w, "%s: frame %d bytes\n", fn.Name, fn.FrameSize)
		for _, li := range ctx.intervalsOf(fi) {
			fmt.Fprintf(w, "  %s\n", li)
		}
	}
}

func fail(log *Logger, err error) {
	if log != nil {
		log.Fatal("%v", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args, cfg)
	case "alloc":
		allocCommand(args, cfg)
	case "check":
		checkCommand(args, cfg)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
