// Package model exposes arbitrary host values to templates as a uniform,
// name-indexed field surface. Values that already implement Fields are used
// as-is; structs and string-keyed maps are snapshotted at wrap time so later
// mutation of the original value is not visible to a running template.
// Reads distinguish an absent field from a field explicitly set to nil, which
// lets template logic branch on presence.
package model
