// Package config loads, validates, and defaults the TOML configuration shared
// by the quality tool, the production tool, and the dashboard.
//
// Layout details the three tools must agree on (sheet names, column letters,
// first data rows) live here so a single config file keeps independently
// launched processes reading the same cells. Template differences between the
// historical tool variants (row 8 vs row 9, direct closure vs verification)
// are compatibility flags, not constants.
package config
