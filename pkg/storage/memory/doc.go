// Package memory provides map-backed implementations of the user,
// revocation and recipe stores. State lives for the life of the process.
// It is the default backend for local development and the test suite.
package memory
