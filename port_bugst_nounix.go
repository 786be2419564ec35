//go:build !unix

package serial

const bugstLocksDevice = false
