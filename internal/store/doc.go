// Package store provides SQLite-backed storage for cfrstat.
//
// Tables:
//   - cfr_texts: section text per (title, issue date, section)
//   - cfr_dimensions: hierarchy and agency attribution per section
//   - cfr_metrics: one value per (section, metric) per issue date
//   - agencies, cfr_references, titles: reference data
//   - runs: history of ingest and compute runs
//
// # Write Semantics
//
// Section, dimension and metric rows are insert-once. Batch writes use plain
// INSERT inside one transaction: a duplicate key fails the whole batch and
// the transaction is rolled back, leaving nothing of it behind. Callers decide
// whether that is fatal. Reference data is replaced wholesale in a single
// transaction.
//
// Existence queries return sets scoped to one (title, issue date) pair.
// SectionIDs reads cfr_dimensions and drives ingestion deduplication.
// MetricKeys reads cfr_metrics and keeps compute idempotent. Sections and
// their dimensions are written in the same transaction, so either table
// would give the same answer.
//
// # Deterministic Query Results
//
// Every multi-row read has a total ORDER BY, so repeated reads over unchanged
// data return identical slices.
//
// # Database Configuration
//
// Open sets journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000 and
// foreign_keys=ON on a single pooled connection.
package store
