// Package api defines the public types of the stepgate wizard engine:
// the form-state aggregate, the step graph, guard arrivals and decisions,
// outbound events, observers, and the contracts of external collaborators
// (catalog, blob storage, address lookup, currency conversion, remote
// records, checkout and account provisioning).
//
// Most users import the root stepgate package, which re-exports these types
// and provides constructors.
package api
