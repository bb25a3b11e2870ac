// Package config loads client configuration from a YAML file.
//
// Configuration is optional: every field has a working default, and a
// missing file is not an error. Values may reference environment
// variables with ${VAR}; a referenced variable that is missing from the
// environment fails the load rather than silently expanding to "", so
// credentials are never half-configured.
package config
