// Package daemon runs daynightd: the evaluation loop, config hot-reload
// and the desktop warnings raised when a signal refresh fails.
package daemon
