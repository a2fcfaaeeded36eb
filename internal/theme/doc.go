// Package theme enumerates installed editor themes and turns their package
// names into human-readable titles. It is used to offer choices in the CLI
// and to sanity-check configured theme names; the day/night decision never
// consults it.
package theme
