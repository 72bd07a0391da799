// Package engine ingests regulatory documents, computes per-section metrics
// and answers roll-up queries.
//
// ARCHITECTURE:
//
// Ingestion:
// 1. The document is traversed in document order (package traverse)
// 2. Sections already stored for (title, date) are skipped (dedup set)
// 3. Each surviving section yields a Section and a Dimension record
// 4. Records are written in fixed-size batches, one transaction each
//
// Computation:
// 1. For each stored issue date of the title within the range
// 2. Existing (section, metric) keys are loaded once
// 3. Missing keys are computed from the catalog and batched
//
// Roll-up:
// Agency short names resolve to slugs, the level selects the grouping
// column, and the store sums the metric per group.
//
// CRITICAL PATTERNS:
//
// Idempotency:
// Every write is keyed. Re-running ingestion or computation over work that
// is already done writes nothing. A partially completed run leaves a
// committed prefix; retrying computes only what is missing.
//
// Batch failures:
// A failed batch is rolled back whole, logged at Warn and counted. The run
// continues with the next batch. The lost rows are recovered by the next
// run through the idempotency keys.
//
// Single writer:
// Work on one (title, date) pair is sequential. Concurrent writers to the
// same pair are not supported.
package engine
