// ledgerctl is an interactive tool for creating and inspecting ledger files.
//
// Usage:
//
//	ledgerctl open <ledger-file>            Open or create a ledger file
//	ledgerctl open --index-labels a,b <f>   Open, restricting the committed index to labels a and b
//
// Commands (in REPL):
//
//	upsert <label> <key> <value>   Stage an upsert in the current block
//	delete <label> <key>           Stage a delete in the current block
//	get <label> <key>              Look up a key (staging, then committed)
//	commit                         Write the staged block to the ledger
//	iter [label]                   List committed entries, optionally filtered
//	blocks                         Show the raw block chain
//	info                           Show tip metadata
//	export <path>                  Snapshot the committed index as JSON
//	help                           Show this help
//	exit / quit / q                Exit
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/ledgerchain/pkg/fs"
	"github.com/calvinalkan/ledgerchain/pkg/ledger"
	"github.com/calvinalkan/ledgerchain/pkg/ledgerstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 || args[0] != "open" {
		printUsage()

		return errors.New("missing 'open' command")
	}

	return runOpen(args[1:])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  ledgerctl open [options] <ledger-file>   Open or create a ledger file\n")
	fmt.Fprintf(os.Stderr, "\nRun 'ledgerctl open --help' for options.\n")
}

// cliConfig is the subset of configuration that can come from either the
// .ledgerctl.json config file or --index-labels/--no-lock flags. CLI flags
// always override the config file.
type cliConfig struct {
	IndexLabels []string `json:"index_labels,omitempty"` //nolint:tagliatelle // snake_case for config file
	NoLock      bool     `json:"no_lock,omitempty"`      //nolint:tagliatelle // snake_case for config file
}

// loadHujsonConfig reads .ledgerctl.json next to the ledger file, if present.
// The file may use JWCC syntax (comments, trailing commas), matching the
// teacher's config.go use of hujson.Standardize before json.Unmarshal.
func loadHujsonConfig(ledgerPath string) (cliConfig, error) {
	path := filepath.Join(filepath.Dir(ledgerPath), ".ledgerctl.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cliConfig{}, nil
		}

		return cliConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cliConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	var cfg cliConfig
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	return cfg, nil
}

func runOpen(args []string) error {
	flags := pflag.NewFlagSet("open", pflag.ExitOnError)

	indexLabels := flags.StringSlice("index-labels", nil, "restrict the committed index to these labels (default: all)")
	noLock := flags.Bool("no-lock", false, "do not take an exclusive file lock")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ledgerctl open [options] <ledger-file>\n\n")
		fmt.Fprintf(os.Stderr, "Open or create a ledger file and start an interactive session.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		flags.Usage()

		return errors.New("missing ledger file path")
	}

	ledgerPath := flags.Arg(0)

	fileCfg, err := loadHujsonConfig(ledgerPath)
	if err != nil {
		return err
	}

	labels := fileCfg.IndexLabels
	if flags.Changed("index-labels") {
		labels = *indexLabels
	}

	lock := fileCfg.NoLock
	if flags.Changed("no-lock") {
		lock = *noLock
	}

	fsys := fs.NewReal()

	var backendOpts []ledgerstore.FileBackendOption
	if lock {
		backendOpts = append(backendOpts, ledgerstore.WithoutLock())
	}

	backend, err := ledgerstore.OpenFileBackend(fsys, ledgerPath, backendOpts...)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrLocked) {
			return fmt.Errorf("%s is already open by another process (use --no-lock to override): %w", ledgerPath, err)
		}

		return fmt.Errorf("opening %s: %w", ledgerPath, err)
	}
	defer backend.Close()

	var engineOpts []ledger.Option
	if len(labels) > 0 {
		engineOpts = append(engineOpts, ledger.WithLabelsToIndex(labels...))
	}

	engine, err := ledger.New(backend, engineOpts...)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	repl := &REPL{engine: engine, path: ledgerPath, indexLabels: labels}

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	engine      *ledger.Engine
	path        string
	indexLabels []string
	liner       *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ledgerctl_history")
}

func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("ledgerctl - %s (blocks=%d)\n", r.path, r.engine.GetBlocksCount())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("ledgerctl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "upsert", "put":
			r.cmdUpsert(args)

		case "delete", "del":
			r.cmdDelete(args)

		case "get":
			r.cmdGet(args)

		case "commit":
			r.cmdCommit()

		case "iter", "ls", "list":
			r.cmdIter(args)

		case "blocks":
			r.cmdBlocks()

		case "info":
			r.cmdInfo()

		case "export":
			r.cmdExport(args)

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"upsert", "put", "delete", "del", "get",
		"commit", "iter", "ls", "list", "blocks",
		"info", "export", "clear", "cls",
		"help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  upsert <label> <key> <value>   Stage an upsert in the current block")
	fmt.Println("  delete <label> <key>           Stage a delete in the current block")
	fmt.Println("  get <label> <key>              Look up a key (staging, then committed)")
	fmt.Println("  commit                         Write the staged block to the ledger")
	fmt.Println("  iter [label]                   List committed entries, optionally filtered")
	fmt.Println("  blocks                         Show the raw block chain")
	fmt.Println("  info                           Show tip metadata")
	fmt.Println("  export <path>                  Snapshot the committed index as JSON")
	fmt.Println("  help                           Show this help")
	fmt.Println("  exit / quit / q                Exit")
	fmt.Println()
	fmt.Println("Keys and values: hex (e.g., 'deadbeef') or plain text (e.g., 'foo').")
}

// parseBytes tries hex first, falling back to the literal text, mirroring
// sloty's key-parsing convention.
func parseBytes(s string) []byte {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return []byte(s)
	}

	return raw
}

func formatBytes(b []byte) string {
	printable := len(b) > 0

	for _, c := range b {
		if c < 32 || c > 126 {
			printable = false

			break
		}
	}

	if printable {
		return fmt.Sprintf("%q", string(b))
	}

	return hex.EncodeToString(b)
}

func (r *REPL) cmdUpsert(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: upsert <label> <key> <value>")

		return
	}

	err := r.engine.Upsert(args[0], parseBytes(args[1]), parseBytes(args[2]))
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: staged upsert %s/%s\n", args[0], formatBytes(parseBytes(args[1])))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: delete <label> <key>")

		return
	}

	err := r.engine.Delete(args[0], parseBytes(args[1]))
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: staged delete %s/%s\n", args[0], formatBytes(parseBytes(args[1])))
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: get <label> <key>")

		return
	}

	value, err := r.engine.Get(args[0], parseBytes(args[1]))
	if err != nil {
		fmt.Printf("(not found): %v\n", err)

		return
	}

	fmt.Printf("%s\n", formatBytes(value))
}

func (r *REPL) cmdCommit() {
	if err := r.engine.CommitBlock(); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: committed. blocks=%d tip=%s\n", r.engine.GetBlocksCount(), hex.EncodeToString(r.engine.GetLatestBlockHash()))
}

func (r *REPL) cmdIter(args []string) {
	label := ""
	if len(args) >= 1 {
		label = args[0]
	}

	count := 0

	for entry := range r.engine.Iter(label) {
		fmt.Printf("%3d. %-12s %-20s %s\n", count+1, entry.Label, formatBytes(entry.Key), formatBytes(entry.Value))
		count++
	}

	if count == 0 {
		fmt.Println("(empty)")
	}
}

func (r *REPL) cmdBlocks() {
	count := 0

	for raw := range r.engine.IterRaw() {
		if raw.Err != nil {
			fmt.Printf("Error at block %d: %v\n", count, raw.Err)

			return
		}

		fmt.Printf("%3d. version=%d prev_jump=%d next_jump=%d entries=%d ts=%d\n",
			count, raw.Header.BlockVersion, raw.Header.JumpBytesPrevBlock, raw.Header.JumpBytesNextBlock,
			len(raw.Block.Entries), raw.Block.TimestampNs)
		count++
	}

	if count == 0 {
		fmt.Println("(empty)")
	}
}

func (r *REPL) cmdInfo() {
	fmt.Printf("Ledger Info:\n")
	fmt.Printf("  Path:           %s\n", r.path)
	fmt.Printf("  Index labels:   %v\n", r.indexLabels)
	fmt.Printf("  Blocks:         %d\n", r.engine.GetBlocksCount())
	fmt.Printf("  Tip hash:       %s\n", hex.EncodeToString(r.engine.GetLatestBlockHash()))
	fmt.Printf("  Tip timestamp:  %d\n", r.engine.GetLatestBlockTimestampNs())
	fmt.Printf("  Next block pos: %d\n", r.engine.GetNextBlockStartPos())
}

// exportEntry is the JSON shape written by the export command.
type exportEntry struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// cmdExport snapshots the committed index to a JSON file without ever
// leaving a half-written file on disk on failure or interruption.
func (r *REPL) cmdExport(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: export <path>")

		return
	}

	var entries []exportEntry

	for entry := range r.engine.Iter("") {
		entries = append(entries, exportEntry{
			Label: entry.Label,
			Key:   hex.EncodeToString(entry.Key),
			Value: hex.EncodeToString(entry.Value),
		})
	}

	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding: %v\n", err)

		return
	}

	if err := atomic.WriteFile(args[0], strings.NewReader(string(buf))); err != nil {
		fmt.Printf("Error writing %s: %v\n", args[0], err)

		return
	}

	fmt.Printf("OK: exported %d entries to %s\n", len(entries), args[0])
}
