package malloc

import "math/bits"
import "unsafe"

import "github.com/bnclabs/goalloc/lib"

// freebits two level bitmap, a set bit in words marks a free chunk and a
// set bit in summary marks a word that has at least one free chunk.
type freebits struct {
	nbits   int64
	nfree   int64
	words   []uint64
	summary []uint64
}

func freebitsize(nbits int64) int64 {
	nwords := lib.Ceil(nbits, 64)
	return (nwords + lib.Ceil(nwords, 64)) * 8
}

// initfreebits over mem, which should be at least freebitsize(nbits)
// bytes and 8 byte aligned.
func initfreebits(fbits *freebits, nbits int64, mem []byte) {
	nwords := lib.Ceil(nbits, 64)
	nsummary := lib.Ceil(nwords, 64)
	fbits.nbits, fbits.nfree = nbits, nbits
	fbits.words = unsafe.Slice((*uint64)(unsafe.Pointer(&mem[0])), nwords)
	summary := unsafe.Pointer(&mem[nwords*8])
	fbits.summary = unsafe.Slice((*uint64)(summary), nsummary)

	for i := range fbits.words {
		fbits.words[i] = ^uint64(0)
	}
	if x := nbits % 64; x > 0 {
		fbits.words[nwords-1] = (uint64(1) << uint(x)) - 1
	}
	for i := range fbits.summary {
		fbits.summary[i] = ^uint64(0)
	}
	if x := nwords % 64; x > 0 {
		fbits.summary[nsummary-1] = (uint64(1) << uint(x)) - 1
	}
}

// alloc lowest free bit, return -1 if none is free.
func (fbits *freebits) alloc() int64 {
	for si, sword := range fbits.summary {
		if sword == 0 {
			continue
		}
		wi := si*64 + bits.TrailingZeros64(sword)
		word := fbits.words[wi]
		bit := bits.TrailingZeros64(word)
		word &^= uint64(1) << uint(bit)
		fbits.words[wi] = word
		if word == 0 {
			fbits.summary[si] &^= uint64(1) << uint(wi%64)
		}
		fbits.nfree--
		return int64(wi*64 + bit)
	}
	return -1
}

// free nth bit, return false if the bit is already free.
func (fbits *freebits) free(nth int64) bool {
	wi, bit := nth/64, uint(nth%64)
	if (fbits.words[wi] & (uint64(1) << bit)) != 0 {
		return false
	}
	fbits.words[wi] |= uint64(1) << bit
	fbits.summary[wi/64] |= uint64(1) << uint(wi%64)
	fbits.nfree++
	return true
}
