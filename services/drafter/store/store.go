// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists generation runs for audit and later review.
//
// Backed by gorm over the pure-Go sqlite driver, so the drafter keeps its
// audit trail without a database server. The schema is migrated at open
// time; writers hand in fully built records and the store never mutates
// them afterward.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when no record matches the requested identifier.
var ErrNotFound = errors.New("generation record not found")

// defaultListLimit bounds ListRuns when the caller does not set one.
const defaultListLimit = 50

// =============================================================================
// Interface
// =============================================================================

// ListFilter narrows ListRuns output. Zero values mean "no constraint".
type ListFilter struct {
	SectionType string
	Outcome     string
	Limit       int
}

// AuditStore records generation runs and serves them back for review.
//
// # Description
//
// SaveRun writes one run with its attempts and findings in a single create.
// The Before/older-than operations exist for the retention sweeper: count
// what is expired, delete a bounded batch, count again to verify.
//
// # Thread Safety
//
// All methods are safe for concurrent use; gorm serializes access to the
// underlying sqlite handle.
type AuditStore interface {
	SaveRun(ctx context.Context, record *GenerationRecord) error
	GetRun(ctx context.Context, responseID string) (*GenerationRecord, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]GenerationRecord, error)
	CountRuns(ctx context.Context) (int64, error)
	CountRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// =============================================================================
// Construction
// =============================================================================

// Open opens (or creates) the audit database at path and migrates the
// schema. Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&GenerationRecord{}, &AttemptRecord{}, &FindingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return db, nil
}

type gormStore struct {
	db *gorm.DB
}

// New wraps an opened database in the AuditStore interface.
func New(db *gorm.DB) AuditStore {
	return &gormStore{db: db}
}

// =============================================================================
// Operations
// =============================================================================

func (s *gormStore) SaveRun(ctx context.Context, record *GenerationRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save a nil generation record")
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *gormStore) GetRun(ctx context.Context, responseID string) (*GenerationRecord, error) {
	var record GenerationRecord
	err := s.db.WithContext(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_number")
		}).
		Preload("Attempts.Findings").
		Where("response_id = ?", responseID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListRuns returns summary rows, newest first, without attempt preloads.
// Use GetRun for the full attempt history of one run.
func (s *gormStore) ListRuns(ctx context.Context, filter ListFilter) ([]GenerationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Model(&GenerationRecord{})
	if filter.SectionType != "" {
		q = q.Where("section_type = ?", filter.SectionType)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", filter.Outcome)
	}

	var records []GenerationRecord
	err := q.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (s *gormStore) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&GenerationRecord{}).Count(&count).Error
	return count, err
}

func (s *gormStore) CountRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&GenerationRecord{}).
		Where("created_at < ?", cutoff).Count(&count).Error
	return count, err
}

// DeleteRunsBefore removes up to limit runs older than cutoff, oldest first,
// together with their attempts and findings. A limit <= 0 removes every
// matching run. Returns the number of runs deleted.
//
// Children are deleted explicitly inside one transaction; sqlite does not
// enforce foreign keys unless the pragma is enabled, so cascade clauses
// cannot be relied on.
func (s *gormStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	q := s.db.WithContext(ctx).Model(&GenerationRecord{}).
		Where("created_at < ?", cutoff).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var ids []uint
	if err := q.Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to select expired runs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attemptIDs []uint
		if err := tx.Model(&AttemptRecord{}).
			Where("generation_id IN ?", ids).
			Pluck("id", &attemptIDs).Error; err != nil {
			return err
		}
		if len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).
				Delete(&FindingRecord{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("generation_id IN ?", ids).
			Delete(&AttemptRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&GenerationRecord{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired runs: %w", err)
	}
	return int64(len(ids)), nil
}
