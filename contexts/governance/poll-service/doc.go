// Package pollservice implements the poll registry inside the governance
// context.
//
// The module owns the poll lifecycle (create, open voting, end voting), the
// one-vote-per-participant tally with escrowed contributions, tie-aware
// result reads, and the two-phase withdrawal that releases escrow to the
// creator. It keeps business rules in application/domain layers and isolates
// infrastructure concerns behind ports and adapters.
package pollservice
