//go:build !multiboot2
// +build !multiboot2

package main

// Stub file to ensure compilation fails if no boot-protocol tag is
// specified. The only supported platform is a Multiboot2 loader (GRUB
// or QEMU's -kernel direct boot); there is no fallback boot path.

func init() {
	// Undefined on purpose; see arch_unsupported.go.
	compileError_PLATFORM_NOT_SPECIFIED()
}
