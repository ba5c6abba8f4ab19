// Package config loads ringd configuration from YAML files and command-line
// peer lists and maps it onto ring options and router members.
package config
