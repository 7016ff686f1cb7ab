// Package observability records checklist activity as JSON Lines events and
// derives usage metrics from them on demand.
package observability
