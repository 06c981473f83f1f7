package account

import (
	"github.com/nervosnetwork/ckb-simple-account-layer/chain"
)

// Config bundles everything an Account needs to run programs and build
// transactions: the on-chain validator bytecode (referenced, never
// executed, by this layer), the off-chain generator bytecode this layer
// runs, the cell identifying the account's state, and the gas budget
// for one run.
type Config struct {
	Validator         []byte
	Generator         []byte
	ValidatorOutPoint chain.OutPoint
	TypeScript        chain.Script
	LockScript        *chain.Script
	Capacity          uint64
	GasLimit          uint64
}

// Validate reports a configuration error early rather than letting a
// malformed Config surface as a confusing failure deep inside a run.
func (c *Config) Validate() error {
	if len(c.Generator) == 0 {
		return &OtherError{Message: "config: generator bytecode is empty"}
	}
	return nil
}
