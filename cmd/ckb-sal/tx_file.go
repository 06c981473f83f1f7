package main

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/nervosnetwork/ckb-simple-account-layer/chain"
)

// txFile is the JSON wire shape used to persist a chain.Transaction to
// and from disk between ckb-sal invocations. chain.Transaction itself
// stays free of struct tags, so the demo CLI owns this hex-friendly
// mirror rather than the library.
type txFile struct {
	CellDeps    []cellDepFile    `json:"cell_deps"`
	Inputs      []cellInputFile  `json:"inputs"`
	Outputs     []cellOutputFile `json:"outputs"`
	OutputsData []string         `json:"outputs_data"`
	Witnesses   []witnessFile    `json:"witnesses"`
}

type cellDepFile struct {
	OutPoint outPointFile `json:"out_point"`
	DepType  uint8        `json:"dep_type"`
}

type cellInputFile struct {
	PreviousOutput outPointFile `json:"previous_output"`
	Since          uint64       `json:"since"`
}

type cellOutputFile struct {
	Capacity uint64      `json:"capacity"`
	Lock     scriptFile  `json:"lock"`
	Type     *scriptFile `json:"type,omitempty"`
}

type witnessFile struct {
	Lock       string `json:"lock,omitempty"`
	InputType  string `json:"input_type,omitempty"`
	OutputType string `json:"output_type,omitempty"`
}

func writeTxFile(path string, tx *chain.Transaction) error {
	tf := txFile{OutputsData: make([]string, len(tx.OutputsData))}
	for _, d := range tx.CellDeps {
		tf.CellDeps = append(tf.CellDeps, cellDepFile{
			OutPoint: fromOutPoint(d.OutPoint),
			DepType:  uint8(d.DepType),
		})
	}
	for _, in := range tx.Inputs {
		tf.Inputs = append(tf.Inputs, cellInputFile{
			PreviousOutput: fromOutPoint(in.PreviousOutput),
			Since:          in.Since,
		})
	}
	for _, out := range tx.Outputs {
		of := cellOutputFile{Capacity: out.Capacity, Lock: fromScript(out.Lock)}
		if out.Type != nil {
			s := fromScript(*out.Type)
			of.Type = &s
		}
		tf.Outputs = append(tf.Outputs, of)
	}
	for i, d := range tx.OutputsData {
		tf.OutputsData[i] = hexEncode(d)
	}
	for _, w := range tx.Witnesses {
		tf.Witnesses = append(tf.Witnesses, witnessFile{
			Lock:       hexEncode(w.Lock),
			InputType:  hexEncode(w.InputType),
			OutputType: hexEncode(w.OutputType),
		})
	}

	raw, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func readTxFile(path string) (*chain.Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf txFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, err
	}

	tx := &chain.Transaction{}
	for _, d := range tf.CellDeps {
		tx.CellDeps = append(tx.CellDeps, chain.CellDep{
			OutPoint: d.OutPoint.toOutPoint(),
			DepType:  chain.DepType(d.DepType),
		})
	}
	for _, in := range tf.Inputs {
		tx.Inputs = append(tx.Inputs, chain.CellInput{
			PreviousOutput: in.PreviousOutput.toOutPoint(),
			Since:          in.Since,
		})
	}
	for _, out := range tf.Outputs {
		script, err := out.Lock.toScript()
		if err != nil {
			return nil, err
		}
		co := chain.CellOutput{Capacity: out.Capacity, Lock: script}
		if out.Type != nil {
			ts, err := out.Type.toScript()
			if err != nil {
				return nil, err
			}
			co.Type = &ts
		}
		tx.Outputs = append(tx.Outputs, co)
	}
	for _, d := range tf.OutputsData {
		b, err := decodeHex(d)
		if err != nil {
			return nil, err
		}
		tx.OutputsData = append(tx.OutputsData, b)
	}
	for _, w := range tf.Witnesses {
		lock, err := decodeHex(w.Lock)
		if err != nil {
			return nil, err
		}
		inputType, err := decodeHex(w.InputType)
		if err != nil {
			return nil, err
		}
		outputType, err := decodeHex(w.OutputType)
		if err != nil {
			return nil, err
		}
		tx.Witnesses = append(tx.Witnesses, chain.WitnessArgs{
			Lock:       lock,
			InputType:  inputType,
			OutputType: outputType,
		})
	}
	return tx, nil
}

func fromOutPoint(o chain.OutPoint) outPointFile {
	return outPointFile{TxHash: o.TxHash.Hex(), Index: o.Index}
}

func fromScript(s chain.Script) scriptFile {
	return scriptFile{CodeHash: s.CodeHash.Hex(), HashType: s.HashType, Args: hexEncode(s.Args)}
}

func hexEncode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}
