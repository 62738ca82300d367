// Package api exposes a Service over HTTP with gin.
//
// Every tenant-scoped route lives under /api/v1/tenants/:id. Errors are
// returned as {"error": ..., "kind": ...} with a status derived from the
// error taxonomy in package core.
package api
