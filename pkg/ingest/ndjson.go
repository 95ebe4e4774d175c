package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// maxLineSize bounds a single NDJSON record; tonapi transactions with many
// decoded out messages run to a few hundred kilobytes
const maxLineSize = 16 << 20

// ReadTransactions decodes one transaction per line. Blank lines are skipped;
// a malformed line fails the whole read with its line number.
func ReadTransactions(r io.Reader) ([]*types.Transaction, error) {
	var txs []*types.Transaction
	err := scanLines(r, func(line []byte, n int) error {
		var tx types.Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		txs = append(txs, &tx)
		return nil
	})
	return txs, err
}

// ReadTransactionsFile reads an NDJSON transaction file
func ReadTransactionsFile(path string) ([]*types.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	txs, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txs, nil
}

// ReadRecords decodes indicator records written by WriteRecords
func ReadRecords(r io.Reader) ([]types.IndicatorRecord, error) {
	var records []types.IndicatorRecord
	err := scanLines(r, func(line []byte, n int) error {
		var rec types.IndicatorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

func scanLines(r io.Reader, fn func(line []byte, n int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("line %d: %w", n+1, err)
	}
	return nil
}

// WriteTransactions encodes one transaction per line
func WriteTransactions(w io.Writer, txs []*types.Transaction) error {
	enc := json.NewEncoder(w)
	for i, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

// WriteRecords encodes one indicator record per line
func WriteRecords(w io.Writer, records []types.IndicatorRecord) error {
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("record %s: %w", records[i].Swap.QueryID, err)
		}
	}
	return nil
}
