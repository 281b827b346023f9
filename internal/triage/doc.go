// Package triage runs one issue through the model and onto GitHub.
//
// A run is strictly sequential: pick a model (or use the pinned one), send
// the issue as a single prompt, wrap the generated checklist under a fixed
// header and post it as an issue comment. Model discovery problems degrade
// to a fallback model; generation and posting problems fail the run.
package triage
