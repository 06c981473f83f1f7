// Command ckb-sal is a small demo CLI for the account layer: it runs a
// generator program against locally rebuilt state and produces a
// transaction skeleton, or replays a produced transaction to advance
// that state, persisting the chain as a directory of transaction files.
//
// Usage:
//
//	ckb-sal generate --config account.json --chain-dir ./chain --program program.bin --out tx.json --verbosity 3
//	ckb-sal advance   --config account.json --chain-dir ./chain --tx tx.json --verbosity 4
//	ckb-sal version
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/nervosnetwork/ckb-simple-account-layer/account"
	"github.com/nervosnetwork/ckb-simple-account-layer/chain"
	"github.com/nervosnetwork/ckb-simple-account-layer/log"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It takes CLI
// arguments without the program name so it can be tested in isolation.
func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ckb-sal <generate|advance|version> [flags]")
		return 2
	}

	logger := log.Default().Module("cmd")
	logger.Info("ckb-sal starting", "version", version, "commit", commit)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Printf("ckb-sal %s (commit %s)\n", version, commit)
		return 0
	case "generate":
		return runGenerate(rest, logger)
	case "advance":
		return runAdvance(rest, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		return 2
	}
}

func runGenerate(args []string, logger *log.Logger) int {
	fs, configPath, chainDir, verbosity := newCommonFlagSet("generate")
	programPath := fs.String("program", "", "path to the generator's program argument")
	outPath := fs.String("out", "tx.json", "path to write the produced transaction")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	log.Default().SetLevel(verbosityToLevel(*verbosity))

	cfg, err := LoadAccountConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	acc, err := restoreChain(cfg, *chainDir)
	if err != nil {
		logger.Error("failed to rebuild account state", "error", err)
		return 1
	}

	var program []byte
	if *programPath != "" {
		program, err = os.ReadFile(*programPath)
		if err != nil {
			logger.Error("failed to read program", "error", err)
			return 1
		}
	}

	tx, err := acc.Generate(program)
	if err != nil {
		logger.Error("generate failed", "error", err)
		return 1
	}
	if err := writeTxFile(*outPath, tx); err != nil {
		logger.Error("failed to write transaction", "error", err)
		return 1
	}
	logger.Info("transaction generated", "out", *outPath)
	return 0
}

func runAdvance(args []string, logger *log.Logger) int {
	fs, configPath, chainDir, verbosity := newCommonFlagSet("advance")
	txPath := fs.String("tx", "", "path to the transaction to replay")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	log.Default().SetLevel(verbosityToLevel(*verbosity))
	if *txPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --tx is required")
		return 2
	}

	cfg, err := LoadAccountConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	acc, err := restoreChain(cfg, *chainDir)
	if err != nil {
		logger.Error("failed to rebuild account state", "error", err)
		return 1
	}

	tx, err := readTxFile(*txPath)
	if err != nil {
		logger.Error("failed to read transaction", "error", err)
		return 1
	}

	// SIGINT and SIGTERM are intercepted from here until the function
	// returns, covering Advance and the write of the replayed transaction.
	// The captured signals are not acted upon: an interrupt in that
	// window is discarded instead of ending the process part-way.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := acc.Advance(tx); err != nil {
		logger.Error("advance failed", "error", err)
		return 1
	}

	dest := filepath.Join(*chainDir, fmt.Sprintf("%04d.json", nextChainIndex(*chainDir)))
	if err := writeTxFile(dest, tx); err != nil {
		logger.Error("failed to persist transaction", "error", err)
		return 1
	}
	logger.Info("account advanced", "root", acc.Tree.Root().Hex(), "persisted", dest)
	return 0
}

func newCommonFlagSet(name string) (fs *flagSet, configPath, chainDir *string, verbosity *int) {
	fs = newCustomFlagSet(name)
	configPath = fs.String("config", "account.json", "path to the account JSON config")
	chainDir = fs.String("chain-dir", "./chain", "directory holding persisted transaction files")
	verbosity = fs.Int("verbosity", 3, "log level 0-5 (0-1=error, 2=warn, 3=info, 4-5=debug)")
	return fs, configPath, chainDir, verbosity
}

// verbosityToLevel maps the CLI's 0-5 verbosity scale onto slog's level
// range, the same coarse buckets a numeric log-level flag conventionally
// uses.
func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// restoreChain loads every *.json file in dir as a transaction and
// rebuilds an Account from them in non-strict mode, since a fresh
// chain-dir is simply empty.
func restoreChain(cfg account.Config, dir string) (*account.Account, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return account.New(cfg), nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return account.New(cfg), nil
	}
	sort.Strings(names)

	txs := make([]*chain.Transaction, 0, len(names))
	for _, name := range names {
		tx, err := readTxFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		txs = append(txs, tx)
	}
	return account.RestoreFromTransactions(cfg, txs, false)
}

func nextChainIndex(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		os.MkdirAll(dir, 0o755)
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			count++
		}
	}
	return count
}
