// Package configs provides embedded configuration templates for
// semcode, embedded at build time with //go:embed so they are
// available in every distribution (source build or binary release).
//
// Configuration hierarchy (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. User config (~/.config/codesearch/config.yaml)
//  3. Project config (.codesearch.yaml)
//  4. Environment variables (SEMCODE_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `semcode config init` to
// ~/.config/codesearch/config.yaml. It holds machine-specific settings:
// embedding provider, performance tuning, daemon log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate documents the project-level .codesearch.yaml
// format: path include/exclude globs and search weights, meant to be
// checked into version control alongside the project it describes.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
