// Package credentials manages the persisted credential store for a deployment.
//
// Credentials live in a flat key=value file with restricted permissions.
// Resolving is idempotent: existing values are loaded verbatim and never
// regenerated, only missing values are filled in (random for secrets,
// computed for derived identifiers), and the file is rewritten afterward so
// partial runs converge to a stable credential set.
//
// The package also provides the placeholder substitution pass applied to
// manifest text before submission to the cluster.
package credentials
