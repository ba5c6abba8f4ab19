// Package it holds process-level tests that run real ringd binaries.
package it
