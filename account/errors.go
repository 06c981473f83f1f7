package account

import (
	"fmt"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/vm"
)

// InvalidResponseCodeError re-exports the VM host's non-zero exit code
// error under the account package's error surface.
type InvalidResponseCodeError = vm.InvalidResponseCodeError

// InvalidTransactionError reports a semantic violation found while
// replaying a committed transaction: wrong output count, a missing or
// malformed witness, a root mismatch, or a disconnected chain in strict
// mode. The tree is left untouched whenever this error is returned.
type InvalidTransactionError struct {
	TxHash common.H256
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction %s: %s", e.TxHash.Hex(), e.Reason)
}

// OtherError covers configuration failures and anything else that does
// not fit the two categories above: a missing lock script at first-cell
// creation, a serialization-size overflow, or a deliberately
// unsupported operation.
type OtherError struct {
	Message string
}

func (e *OtherError) Error() string { return e.Message }
