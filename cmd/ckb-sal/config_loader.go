package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nervosnetwork/ckb-simple-account-layer/account"
	"github.com/nervosnetwork/ckb-simple-account-layer/chain"
	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// scriptFile is the JSON shape of a chain.Script: hex-encoded hash and
// args, a small integer hash type.
type scriptFile struct {
	CodeHash string `json:"code_hash"`
	HashType uint8  `json:"hash_type"`
	Args     string `json:"args"`
}

func (s *scriptFile) toScript() (chain.Script, error) {
	if s == nil {
		return chain.Script{}, nil
	}
	args, err := decodeHex(s.Args)
	if err != nil {
		return chain.Script{}, fmt.Errorf("%w: args: %v", ErrInvalidConfig, err)
	}
	return chain.Script{
		CodeHash: common.HexToH256(s.CodeHash),
		HashType: s.HashType,
		Args:     args,
	}, nil
}

type outPointFile struct {
	TxHash string `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

func (o outPointFile) toOutPoint() chain.OutPoint {
	return chain.OutPoint{TxHash: common.HexToH256(o.TxHash), Index: o.Index}
}

// fileConfig is the on-disk JSON configuration for the ckb-sal demo: file
// paths to the validator and generator bytecode, plus everything needed
// to populate an account.Config.
type fileConfig struct {
	Validator         string       `json:"validator"`
	Generator         string       `json:"generator"`
	ValidatorOutPoint outPointFile `json:"validator_out_point"`
	TypeScript        scriptFile   `json:"type_script"`
	LockScript        *scriptFile  `json:"lock_script,omitempty"`
	Capacity          uint64       `json:"capacity"`
	GasLimit          uint64       `json:"gas_limit"`
}

// LoadAccountConfig reads path as a JSON fileConfig and resolves it,
// including the referenced bytecode files, into an account.Config ready
// to drive an Account.
func LoadAccountConfig(path string) (account.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return account.Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return account.Config{}, err
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return account.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	generator, err := readBytecode(fc.Generator)
	if err != nil {
		return account.Config{}, fmt.Errorf("%w: generator: %v", ErrInvalidConfig, err)
	}
	validator, err := readBytecode(fc.Validator)
	if err != nil {
		return account.Config{}, fmt.Errorf("%w: validator: %v", ErrInvalidConfig, err)
	}
	typeScript, err := fc.TypeScript.toScript()
	if err != nil {
		return account.Config{}, err
	}

	cfg := account.Config{
		Validator:         validator,
		Generator:         generator,
		ValidatorOutPoint: fc.ValidatorOutPoint.toOutPoint(),
		TypeScript:        typeScript,
		Capacity:          fc.Capacity,
		GasLimit:          fc.GasLimit,
	}
	if fc.LockScript != nil {
		lockScript, err := fc.LockScript.toScript()
		if err != nil {
			return account.Config{}, err
		}
		cfg.LockScript = &lockScript
	}

	if err := cfg.Validate(); err != nil {
		return account.Config{}, err
	}
	return cfg, nil
}

func readBytecode(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
