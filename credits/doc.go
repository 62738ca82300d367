// Package credits meters capability usage per tenant.
//
// Each (tenant, capability) pair has a balance that is provisioned with a
// default allowance the first time it is read. Consume takes one credit with
// a single atomic conditional decrement in the store, so concurrent callers
// can never drive a balance below zero and a denied call changes nothing.
//
// Callers check before doing costly work and consume only after the work
// succeeded:
//
//	if err := meter.Require(ctx, tenantID, core.CapabilityCampaign); err != nil {
//	    return err // wraps core.ErrInsufficientCredits when exhausted
//	}
//	// ... generate ...
//	remaining, err := meter.Consume(ctx, tenantID, core.CapabilityCampaign)
package credits
