// Package witness builds the compact, serializable proof of one run: the
// sorted read/write sets plus the compact SMT proofs needed by an
// on-chain validator to recompute the new root without holding the full
// tree, and the speculative/committed root-hash helpers that sit around
// that computation.
package witness

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/smt"
	"github.com/nervosnetwork/ckb-simple-account-layer/vm"
)

// ErrSerializationOverflow is returned when a length field would not
// fit in 32 bits.
var ErrSerializationOverflow = errors.New("witness: serialized field exceeds u32 range")

// WriteEntry is one entry of a RunProofResult's write list: a key, its
// value before the run, and its value after.
type WriteEntry struct {
	Key      common.H256
	OldValue common.H256
	NewValue common.H256
}

// RunProofResult is the serializable witness built from one RunResult
// and the pre-state tree.
type RunProofResult struct {
	ReadValues    []smt.KVPair
	ReadProof     []byte
	WriteValues   []WriteEntry
	WriteOldProof []byte
}

// Build constructs a RunProofResult from result against tree's current
// (pre-state) root. The tree is read-only; nothing is mutated.
func Build(tree *smt.SparseMerkleTree, result *vm.RunResult) (*RunProofResult, error) {
	readPairs := make([]smt.KVPair, 0, len(result.Reads))
	for k, v := range result.Reads {
		readPairs = append(readPairs, smt.KVPair{Key: k, Value: v})
	}
	smt.SortKVPairs(readPairs)

	readKeys := make([]common.H256, len(readPairs))
	for i, p := range readPairs {
		readKeys[i] = p.Key
	}
	readProofObj, err := tree.MerkleProof(readKeys)
	if err != nil {
		return nil, err
	}
	readProof, err := readProofObj.Compile(readPairs)
	if err != nil {
		return nil, err
	}

	writeKeys := make([]common.H256, 0, len(result.Writes))
	for k := range result.Writes {
		writeKeys = append(writeKeys, k)
	}
	sort.Slice(writeKeys, func(i, j int) bool { return writeKeys[i].Less(writeKeys[j]) })

	writeOldPairs := make([]smt.KVPair, 0, len(writeKeys))
	writeValues := make([]WriteEntry, 0, len(writeKeys))
	for _, k := range writeKeys {
		oldValue, err := tree.Get(k)
		if err != nil {
			return nil, err
		}
		writeOldPairs = append(writeOldPairs, smt.KVPair{Key: k, Value: oldValue})
		writeValues = append(writeValues, WriteEntry{Key: k, OldValue: oldValue, NewValue: result.Writes[k]})
	}

	writeOldProofObj, err := tree.MerkleProof(writeKeys)
	if err != nil {
		return nil, err
	}
	writeOldProof, err := writeOldProofObj.Compile(writeOldPairs)
	if err != nil {
		return nil, err
	}

	return &RunProofResult{
		ReadValues:    readPairs,
		ReadProof:     readProof,
		WriteValues:   writeValues,
		WriteOldProof: writeOldProof,
	}, nil
}

// CommittedRootHash computes the root the tree would have after
// applying result's writes, without mutating tree: it replays the
// writes against an overlay wrapping the tree's store.
func CommittedRootHash(tree *smt.SparseMerkleTree, result *vm.RunResult) (common.H256, error) {
	overlay := smt.NewOverlayStore(tree.Store())
	speculative := smt.NewSparseMerkleTree(tree.Root(), overlay)
	keys := make([]common.H256, 0, len(result.Writes))
	for k := range result.Writes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		if err := speculative.Update(k, result.Writes[k]); err != nil {
			return common.Zero, err
		}
	}
	return speculative.Root(), nil
}

// Commit applies result's writes to tree irrevocably.
func Commit(tree *smt.SparseMerkleTree, result *vm.RunResult) error {
	keys := make([]common.H256, 0, len(result.Writes))
	for k := range result.Writes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		if err := tree.Update(k, result.Writes[k]); err != nil {
			return err
		}
	}
	return nil
}

// SerializePure returns the bit-exact little-endian encoding of r,
// excluding the program bytes:
//
//	u32 read_count
//	  read_count * (32-byte key || 32-byte value)
//	u32 read_proof_len
//	  read_proof bytes
//	u32 write_count
//	  write_count * 32-byte old_value
//	u32 write_old_proof_len
//	  write_old_proof bytes
//
// Keys and new values are omitted: a validator re-executes the program
// and rediscovers them from the proofs plus the program itself.
func (r *RunProofResult) SerializePure() ([]byte, error) {
	if err := checkU32(len(r.ReadValues)); err != nil {
		return nil, err
	}
	if err := checkU32(len(r.ReadProof)); err != nil {
		return nil, err
	}
	if err := checkU32(len(r.WriteValues)); err != nil {
		return nil, err
	}
	if err := checkU32(len(r.WriteOldProof)); err != nil {
		return nil, err
	}

	size := 4 + len(r.ReadValues)*(2*common.H256Length) + 4 + len(r.ReadProof) +
		4 + len(r.WriteValues)*common.H256Length + 4 + len(r.WriteOldProof)
	buf := make([]byte, 0, size)

	buf = appendU32(buf, uint32(len(r.ReadValues)))
	for _, p := range r.ReadValues {
		buf = append(buf, p.Key[:]...)
		buf = append(buf, p.Value[:]...)
	}

	buf = appendU32(buf, uint32(len(r.ReadProof)))
	buf = append(buf, r.ReadProof...)

	buf = appendU32(buf, uint32(len(r.WriteValues)))
	for _, w := range r.WriteValues {
		buf = append(buf, w.OldValue[:]...)
	}

	buf = appendU32(buf, uint32(len(r.WriteOldProof)))
	buf = append(buf, r.WriteOldProof...)

	return buf, nil
}

// Serialize prepends u32(len(program)) || program to SerializePure's
// output.
func (r *RunProofResult) Serialize(program []byte) ([]byte, error) {
	if err := checkU32(len(program)); err != nil {
		return nil, err
	}
	pure, err := r.SerializePure()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4+len(program)+len(pure))
	buf = appendU32(buf, uint32(len(program)))
	buf = append(buf, program...)
	buf = append(buf, pure...)
	return buf, nil
}

func checkU32(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return ErrSerializationOverflow
	}
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
