// Package integration contains the Integration bounded context.
// This context defines the uniform contract every supplier connector speaks,
// regardless of whether the supplier exposes an API, a scraped web portal,
// an email inbox, or nothing at all.
//
// Key concepts:
//   - ProviderAdapter: Port interface one implementation per integration kind
//   - ConnectionContext: Resolved definition plus credentials for one tenant's connection
//   - Product: Value object for a catalog item as the supplier reports it
//   - OrderAck / StatusReport: Value objects returned by submission and status checks
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
