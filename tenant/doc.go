// Package tenant makes sure a brand exists for an owner before any work is
// scoped to it.
//
// Bootstrapper.Ensure is idempotent and safe to call concurrently for the
// same owner: every caller gets the same brand, and at most one brand per
// owner is ever created.
package tenant
