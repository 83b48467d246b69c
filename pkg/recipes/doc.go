// Package recipes holds the recipe model, listing filters and the service
// that enforces ownership on mutation.
//
// Reads are public. Update and Delete load the stored recipe first and call
// auth.AssertOwner with the caller's identity before touching the store; a
// mismatch surfaces as auth.ErrForbidden and is written to the audit trail.
//
// Listing filters (search text, category, price band, sort order) are parsed
// from the query string with ParseFilter. Backends may push them down
// (storage/mongo) or evaluate them with Filter.Apply (storage/memory).
package recipes
