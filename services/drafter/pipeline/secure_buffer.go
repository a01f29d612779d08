// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Confidential draft storage. Requests flagged confidential (pre-publication
// budget secrecy, Lei 14.133/2021 art. 24) hold generated text in mlocked
// memory so drafts never swap to disk, and are wiped when the run ends.

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DraftVaultSize bounds one confidential draft. Schemas cap content at
	// 10k runes, so 256 KB leaves generous room for multi-byte Portuguese
	// text; anything larger is a runaway generation, not a draft.
	DraftVaultSize = 256 * 1024 // 256 KB

	// minMlockLimitKB is the minimum mlock limit required in kilobytes.
	minMlockLimitKB = 256
)

// =============================================================================
// Package Variables
// =============================================================================

var (
	// memguardInitOnce ensures memguard initialization happens only once.
	memguardInitOnce sync.Once

	// mlockSufficient indicates whether secure memory is available.
	mlockSufficient bool

	// mlockLimitKB stores the current mlock limit for logging.
	mlockLimitKB int64
)

// =============================================================================
// DraftVault
// =============================================================================

// DraftVault stores one attempt's draft text for a confidential run.
//
// # Description
//
// Text accumulates in a bounded buffer and is hashed incrementally; Finalize
// extracts the draft once and wipes the buffer, Destroy wipes without
// extraction for retry and error paths. Overflow poisons the vault: the
// attempt fails and the partial draft is never recoverable.
//
// The hash lets the audit store record WHAT was generated (integrity) for
// confidential runs whose attempt records carry no text.
//
// # Thread Safety
//
// Safe for concurrent use, though the pipeline writes from one goroutine.
type DraftVault interface {
	// Write appends draft text to the vault. Returns an error on overflow
	// or after the vault was finalized or destroyed.
	Write(text string) error

	// Finalize extracts the accumulated draft and its SHA-256 hex hash,
	// then wipes the buffer. Single use.
	Finalize() (content string, contentHash string, err error)

	// Destroy wipes the buffer without extraction. Idempotent.
	Destroy()
}

// NewDraftVault builds a vault backed by mlocked memory.
//
// When the system's mlock limit is too low, the vault falls back to ordinary
// memory only if LICITA_INSECURE_MEMORY=true acknowledges the risk;
// otherwise construction fails and the confidential run is refused.
func NewDraftVault(requestID string) (DraftVault, error) {
	initMemguard()

	if !mlockSufficient {
		if os.Getenv("LICITA_INSECURE_MEMORY") == "true" {
			slog.Warn("SECURITY: confidential draft held in unlocked memory",
				"request_id", requestID,
				"mlock_limit_kb", mlockLimitKB,
				"required_kb", minMlockLimitKB)
			return newPlainVault(requestID), nil
		}
		return nil, fmt.Errorf(
			"mlock limit insufficient for confidential drafts: have %d KB, need %d KB "+
				"(raise the limit or set LICITA_INSECURE_MEMORY=true)",
			mlockLimitKB, minMlockLimitKB)
	}

	buf := memguard.NewBuffer(DraftVaultSize)
	if buf == nil {
		return nil, fmt.Errorf("failed to allocate a %d-byte locked buffer", DraftVaultSize)
	}
	buf.Melt()

	return &lockedVault{
		requestID: requestID,
		buffer:    buf,
		hasher:    sha256.New(),
	}, nil
}

// =============================================================================
// Locked Implementation
// =============================================================================

// lockedVault stores draft text in a memguard LockedBuffer: mlocked against
// swapping, guard pages against overruns, zeroed on destruction.
type lockedVault struct {
	requestID string
	mu        sync.Mutex
	buffer    *memguard.LockedBuffer
	offset    int
	hasher    hash.Hash
	overflow  bool
	destroyed bool
}

func (v *lockedVault) Write(text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return fmt.Errorf("draft vault already destroyed")
	}
	if v.overflow {
		return fmt.Errorf("draft vault overflowed")
	}

	data := []byte(text)
	if v.offset+len(data) > DraftVaultSize {
		v.overflow = true
		return fmt.Errorf("draft vault overflow: need %d bytes, have %d remaining",
			len(data), DraftVaultSize-v.offset)
	}

	copy(v.buffer.Bytes()[v.offset:], data)
	v.offset += len(data)
	v.hasher.Write(data)
	return nil
}

func (v *lockedVault) Finalize() (string, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return "", "", fmt.Errorf("draft vault already destroyed")
	}
	if v.overflow {
		v.wipe()
		return "", "", fmt.Errorf("draft vault overflowed during accumulation")
	}

	content := string(v.buffer.Bytes()[:v.offset])
	contentHash := hex.EncodeToString(v.hasher.Sum(nil))
	v.wipe()

	slog.Debug("finalized confidential draft vault",
		"request_id", v.requestID,
		"content_length", len(content))

	return content, contentHash, nil
}

func (v *lockedVault) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}
	v.wipe()
}

// wipe destroys the locked buffer and marks the vault unusable.
// Callers hold the mutex.
func (v *lockedVault) wipe() {
	if v.buffer != nil {
		v.buffer.Destroy()
	}
	v.destroyed = true
}

// =============================================================================
// Plain-Memory Fallback
// =============================================================================

// plainVault is the LICITA_INSECURE_MEMORY fallback: same contract, ordinary
// memory, best-effort zeroing. The GC may keep copies; this mode exists for
// development machines, not deployments.
type plainVault struct {
	requestID string
	mu        sync.Mutex
	data      []byte
	hasher    hash.Hash
	overflow  bool
	destroyed bool
}

func newPlainVault(requestID string) *plainVault {
	return &plainVault{requestID: requestID, hasher: sha256.New()}
}

func (v *plainVault) Write(text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return fmt.Errorf("draft vault already destroyed")
	}
	if v.overflow {
		return fmt.Errorf("draft vault overflowed")
	}

	data := []byte(text)
	if len(v.data)+len(data) > DraftVaultSize {
		v.overflow = true
		return fmt.Errorf("draft vault overflow: need %d bytes, have %d remaining",
			len(data), DraftVaultSize-len(v.data))
	}

	v.data = append(v.data, data...)
	v.hasher.Write(data)
	return nil
}

func (v *plainVault) Finalize() (string, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return "", "", fmt.Errorf("draft vault already destroyed")
	}
	if v.overflow {
		v.wipe()
		return "", "", fmt.Errorf("draft vault overflowed during accumulation")
	}

	content := string(v.data)
	contentHash := hex.EncodeToString(v.hasher.Sum(nil))
	v.wipe()
	return content, contentHash, nil
}

func (v *plainVault) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}
	v.wipe()
}

func (v *plainVault) wipe() {
	for i := range v.data {
		v.data[i] = 0
	}
	v.data = nil
	v.destroyed = true
}

// =============================================================================
// Initialization
// =============================================================================

// initMemguard initializes memguard and checks the mlock limit once.
func initMemguard() {
	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()
		mlockSufficient, mlockLimitKB = checkMlockLimit()
		if mlockSufficient {
			slog.Info("secure draft memory available",
				"mlock_limit_kb", mlockLimitKB,
				"required_kb", minMlockLimitKB)
		} else {
			slog.Error("mlock limit insufficient for confidential drafts",
				"mlock_limit_kb", mlockLimitKB,
				"required_kb", minMlockLimitKB,
				"override", "LICITA_INSECURE_MEMORY=true")
		}
	})
}

// checkMlockLimit queries RLIMIT_MEMLOCK. Returns (sufficient, limit in KB),
// with -1 meaning unlimited.
func checkMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		slog.Warn("could not determine mlock limit", "error", err)
		return true, -1
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}
	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= minMlockLimitKB, limitKB
}

// SecureMemoryAvailable reports whether confidential runs get mlocked
// storage on this system, for the health endpoint.
func SecureMemoryAvailable() (bool, int64) {
	initMemguard()
	return mlockSufficient, mlockLimitKB
}

// PurgeSecureMemory wipes all memguard allocations. Call on shutdown.
func PurgeSecureMemory() {
	memguard.Purge()
	slog.Info("purged secure draft memory")
}
