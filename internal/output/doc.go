// Package output renders a triage result for the terminal or a CI artefact.
//
// Formats: text (summary lines followed by the comment), json (the full
// result), markdown (the comment body exactly as posted).
package output
