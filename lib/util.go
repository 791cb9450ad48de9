package lib

import "fmt"
import "bytes"
import "strings"
import "unsafe"

// Memcpy copy memory block of length `ln` from `src` to `dst`. This
// function is useful if memory block is obtained outside golang runtime.
func Memcpy(dst, src unsafe.Pointer, ln int) int {
	if ln <= 0 {
		return 0
	}
	return copy(unsafe.Slice((*byte)(dst), ln), unsafe.Slice((*byte)(src), ln))
}

// Memset fill `ln` bytes starting from `dst` with `c`.
func Memset(dst unsafe.Pointer, c byte, ln int) {
	if ln <= 0 {
		return
	}
	block := unsafe.Slice((*byte)(dst), ln)
	for i := range block {
		block[i] = c
	}
}

// Ispow2 return true if n is a power of 2.
func Ispow2(n int64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Alignup round `n` up to a multiple of `align`, align shall be power
// of 2.
func Alignup(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// Ceil return the quotient of divident/divisor rounded up.
func Ceil(divident, divisor int64) int64 {
	if divident%divisor == 0 {
		return divident / divisor
	}
	return (divident / divisor) + 1
}

// GetStacktrace return stack-trace in human readable format.
func GetStacktrace(skip int, stack []byte) string {
	var buf bytes.Buffer
	lines := strings.Split(string(stack), "\n")
	if skip*2 > len(lines) {
		skip = 0
	}
	for _, call := range lines[skip*2:] {
		buf.WriteString(fmt.Sprintf("%s\n", call))
	}
	return buf.String()
}
