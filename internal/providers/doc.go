// Package providers implements the Gemini REST client used by triage.
//
// The client lists the models available to an API key and requests content
// generation for a single text prompt. Both calls carry the key as a query
// parameter and run under their own timeout. There is no retry: a failed
// list request is handled by the caller, a failed generation request is
// returned as an error.
package providers
