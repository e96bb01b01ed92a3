// Package integration contains the end-to-end smoke tests for the mob
// binary. Tests in this package build the real binary and run it against
// local git repositories created on the fly.
//
// Run with: go test ./integration/... -v -timeout 120s
package integration
