// Package harvester owns a whole campaign run.
//
// Sessions run one after another, each capped at a number of fetches and
// separated by a fixed cool-down. The loop ends when a session walks the
// full catalog without leaving anything behind (Exhausted) or when the
// session ceiling is hit (SessionCeilingReached). Either way the working
// directory is then archived and published, and the ledger reset.
package harvester
