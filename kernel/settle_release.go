//go:build !notekernel_debug

package kernel

// settle is a no-op outside notekernel_debug builds; see settle_debug.go.
func settle() {}
