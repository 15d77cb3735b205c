//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package main

// Without termios there is no cheap way to tell, so never colour.
func isTerminal(fd uintptr) bool {
	return false
}
