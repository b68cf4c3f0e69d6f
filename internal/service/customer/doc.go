// Package customer implements customer and order management.
//
// Writes have two paths with identical validation: a direct synchronous path
// and a fire-and-forget path that publishes to the event bus so the HTTP
// request never waits on persistence. The bus consumer funnels back into the
// direct path, so both share one implementation.
package customer
