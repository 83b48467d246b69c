// Package janitor removes records that no longer serve a purpose.
//
// Revocation entries matter only until the token they name would have
// expired anyway; after that the signature check rejects the token on its
// own. Purger deletes those entries, and audit events older than the
// configured retention, in one pass. Scheduler runs passes on a cron spec
// (github.com/robfig/cron/v3).
//
// The API server runs a Scheduler in process when LARDER_PURGE_SCHEDULE is
// set; cmd/larder-janitor runs the same job standalone.
package janitor
