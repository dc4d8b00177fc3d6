// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads renpak's optional YAML configuration.
//
// The file is named by the --config flag or the RENPAK_CONFIG
// environment variable. There is no discovery: without either, the
// built-in [Default] applies. Unknown keys are rejected so a typo does
// not silently fall back to a default.
//
// Path fields expand ${VAR} and ${VAR:-default}, with defaults
// nesting one level deep.
//
// Example:
//
//	build:
//	  quality: 70
//	  speed: 6
//	  exclude: [gui/, fonts/]
//	  fail_fast: true
//	paths:
//	  cache: ${XDG_CACHE_HOME:-${HOME}/.cache}/renpak
//	logging:
//	  level: debug
package config
