// Package treasuryservice keeps the escrow journal inside the finance-core
// context.
//
// It consumes poll escrow events and records an append-only ledger of
// contributions and payouts, exposing per-poll ledgers and a platform-wide
// report over HTTP. Event dedup makes consumption safe under at-least-once
// delivery.
package treasuryservice
