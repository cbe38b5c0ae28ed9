//go:build !amd64
// +build !amd64

package main

// Stub file to ensure compilation fails if no architecture tag is specified.
// This kernel only targets amd64; it never runs the Go runtime's own
// arch-selection machinery, so the guard has to live at this level instead.

func init() {
	// Undefined on purpose: the build fails with
	// "undefined: compileError_ARCH_NOT_SPECIFIED", which names the
	// missing build tag directly in the error.
	compileError_ARCH_NOT_SPECIFIED()
}
