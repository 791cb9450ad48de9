//go:build debug

package registry

import "runtime"

func breaktrap() {
	runtime.Breakpoint()
}
