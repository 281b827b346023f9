// Package redact removes secrets from issue text before it is sent to the
// model.
//
// Issue reports often paste logs, config snippets and curl commands.
// Detection uses regex heuristics for common secret shapes: API key
// assignments, bearer tokens, JWTs, private key headers, AWS keys, and
// provider tokens (Google, GitHub, Slack, Anthropic, OpenAI). Each match is
// replaced with [REDACTED].
package redact
