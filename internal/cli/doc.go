// Package cli wires together the Cobra command tree for the triage binary.
//
// It defines the root command and all subcommands (run, models, config,
// workflow, version), loads .env files and configuration, sets up logging,
// invokes the triage runner, and maps failures onto exit codes.
package cli
