// Package config loads and validates reap configuration files.
//
// A [Loader] decodes YAML into any [v1beta1.Object], checking it against a
// JSON schema first so errors point at the offending source lines.
package config
