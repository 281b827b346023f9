// Package models picks the Gemini model a triage run generates with.
//
// [Pick] is the pure preference rule over a model list: keep models that
// support generateContent, then prefer "gemini-2.5-flash", any "flash", any
// "pro", in that order, falling back to the first capable model. A
// [Selector] adds discovery on top: it fetches the list and, when the fetch
// fails or nothing qualifies, logs a warning and returns the fallback
// model instead of failing the run.
package models
