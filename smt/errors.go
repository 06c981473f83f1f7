package smt

import "errors"

// ErrNodeNotFound is returned when a branch hash reachable from the root
// has no corresponding entry in the Store: a corrupt or incomplete
// store, never expected in normal single-owner operation.
var ErrNodeNotFound = errors.New("smt: branch node not found in store")

// ErrProofKeyMismatch is returned by Proof.Compile when the supplied
// pairs do not match the keys the proof was built for.
var ErrProofKeyMismatch = errors.New("smt: compile: pairs do not match proof keys")
