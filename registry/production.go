//go:build !debug

package registry

func breaktrap() {}
