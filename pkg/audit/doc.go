// Package audit records security-relevant account and recipe events.
//
// # Overview
//
// Every registration, login attempt, logout, password change, rejected
// token, denied access and recipe mutation produces an Event. Events carry
// the acting user, the resource touched and the request context (client IP,
// user agent, request ID) taken from contextkeys.
//
// # Sinks
//
// LogLogger writes events as structured log lines and is always available.
// DBLogger stores events in PostgreSQL (table audit_events, migrated with
// goose on startup) and also implements Searcher for the admin API.
// MultiLogger fans an event out to several sinks, optionally asynchronously.
//
// # Usage Example
//
//	recorder := audit.NewRecorder(audit.NewMultiLogger(logSink, dbSink), onError)
//	recorder.Authentication(ctx, audit.EventTypeAuthLogin, user.ID, user.Email,
//		audit.EventStatusSuccess, "login succeeded")
//
// Recorder never returns sink errors to the caller: an audit outage does not
// fail a login.
//
// # Retention
//
// DBLogger.Purge removes events older than a cutoff; the janitor calls it
// on a schedule.
package audit
