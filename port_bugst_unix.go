//go:build unix

package serial

// go.bug.st/serial takes TIOCEXCL in every Unix open
const bugstLocksDevice = true
