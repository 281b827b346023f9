// Package config loads and merges triage configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (TRIAGE_MODEL, TRIAGE_FALLBACK_MODEL, TRIAGE_FORMAT, etc.)
//  3. Config file ($XDG_CONFIG_HOME/triage/config.yaml, or $TRIAGE_CONFIG)
//  4. Built-in defaults
//
// Credentials and the issue under triage are not part of [Config]; they are
// read per run from the workflow environment by [ReadEnv].
package config
