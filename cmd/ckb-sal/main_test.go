package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nervosnetwork/ckb-simple-account-layer/riscv"
)

// exitZeroGenerator returns bytecode for a generator that performs no
// tree operations and exits 0, enough to exercise the CLI's plumbing
// without depending on the VM host's syscall tests.
func exitZeroGenerator() []byte {
	words := []uint32{
		riscv.ADDI(riscv.RegA0, riscv.RegZero, 0),
		riscv.ADDI(riscv.RegA7, riscv.RegZero, riscv.ECallSyscallExit),
		riscv.ECALL(),
	}
	var code []byte
	for _, w := range words {
		code = append(code, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return code
}

func writeTestConfig(t *testing.T, dir string, generatorPath string) string {
	t.Helper()
	fc := fileConfig{
		Generator:         generatorPath,
		ValidatorOutPoint: outPointFile{TxHash: "0xaa", Index: 0},
		TypeScript:        scriptFile{CodeHash: "0x01", HashType: 1},
		LockScript:        &scriptFile{CodeHash: "0x02", HashType: 1},
		Capacity:          1000,
	}
	raw, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "account.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunGenerateThenAdvance(t *testing.T) {
	dir := t.TempDir()
	generatorPath := filepath.Join(dir, "generator.bin")
	if err := os.WriteFile(generatorPath, exitZeroGenerator(), 0o644); err != nil {
		t.Fatalf("write generator: %v", err)
	}
	configPath := writeTestConfig(t, dir, generatorPath)
	chainDir := filepath.Join(dir, "chain")
	txPath := filepath.Join(dir, "tx.json")

	code := run([]string{
		"generate", "--config", configPath, "--chain-dir", chainDir, "--out", txPath,
	})
	if code != 0 {
		t.Fatalf("generate exit code = %d, want 0", code)
	}
	if _, err := os.Stat(txPath); err != nil {
		t.Fatalf("expected tx file to exist: %v", err)
	}

	code = run([]string{
		"advance", "--config", configPath, "--chain-dir", chainDir, "--tx", txPath,
	})
	if code != 0 {
		t.Fatalf("advance exit code = %d, want 0", code)
	}

	entries, err := os.ReadDir(chainDir)
	if err != nil {
		t.Fatalf("ReadDir chain dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 persisted transaction, got %d", len(entries))
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"bogus"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunVersion(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelError},
		{1, slog.LevelError},
		{2, slog.LevelWarn},
		{3, slog.LevelInfo},
		{4, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := verbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("verbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}
