// Package config loads, validates and resolves the agentrules configuration
// file. Schema violations and decode errors are reported against the
// offending lines of the source document.
package config
