// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// Snapshot I/O moves legislation corpora between environments as JSONL:
// one LegislationRecord per line, embeddings included when present. The
// format round-trips through the CLI's corpus push/pull/load commands and
// seeds fresh deployments at startup.

// ReadSnapshot decodes a JSONL legislation snapshot.
//
// Records are returned in file order. A malformed record aborts the read
// with its position, so a truncated upload is caught rather than silently
// half-loaded.
func ReadSnapshot(r io.Reader) ([]datatypes.LegislationRecord, error) {
	dec := json.NewDecoder(r)

	var records []datatypes.LegislationRecord
	for {
		var rec datatypes.LegislationRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteSnapshot encodes records as JSONL, one record per line.
func WriteSnapshot(w io.Writer, records []datatypes.LegislationRecord) error {
	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("snapshot record %d: %w", i+1, err)
		}
	}
	return nil
}

// LoadSnapshot reads a JSONL snapshot and upserts every record into the
// store. Returns the number of records loaded. Store-level validation
// applies: a record missing its canonical components fails the load.
func LoadSnapshot(ctx context.Context, store LegislationStore, r io.Reader) (int, error) {
	if ctx == nil {
		return 0, fmt.Errorf("context must not be nil")
	}
	if store == nil {
		return 0, fmt.Errorf("store must not be nil")
	}

	records, err := ReadSnapshot(r)
	if err != nil {
		return 0, err
	}

	for i, rec := range records {
		if err := store.Upsert(ctx, rec); err != nil {
			return i, fmt.Errorf("snapshot record %d (%s): %w", i+1, rec.Key(), err)
		}
	}
	return len(records), nil
}

// LoadSnapshotFile loads the snapshot at path into the store.
func LoadSnapshotFile(ctx context.Context, store LegislationStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return LoadSnapshot(ctx, store, f)
}

// WriteSnapshotFile writes records to path as JSONL, creating or
// truncating the file.
func WriteSnapshotFile(path string, records []datatypes.LegislationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if err := WriteSnapshot(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
