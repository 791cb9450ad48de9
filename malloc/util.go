package malloc

import "fmt"
import "errors"

// ErrorOutofMemory when the page source cannot supply more pages.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// ErrorInvalidPagesize when pagesize is not a power of 2 or is smaller
// than Minpagesize.
var ErrorInvalidPagesize = errors.New("malloc.invalidpagesize")

// ErrorInvalidPoolpage when pool page size is not a power of 2 or
// cannot hold a maxblock chunk.
var ErrorInvalidPoolpage = errors.New("malloc.invalidpoolpage")

// ErrorInvalidBlock when the pre-reserved memory block cannot hold a
// single aligned page.
var ErrorInvalidBlock = errors.New("malloc.invalidblock")

// ErrorInvalidBlocksize when minblock or maxblock are not multiples of
// Sizeinterval, or minblock is greater than maxblock.
var ErrorInvalidBlocksize = errors.New("malloc.invalidblocksize")

// ErrorInvalidCapacity when arena capacity exceeds Maxarenasize.
var ErrorInvalidCapacity = errors.New("malloc.invalidcapacity")

// ErrorUnknownPool when pool algorithm is neither "flist" nor "fbit".
var ErrorUnknownPool = errors.New("malloc.unknownpool")

// SuitableSize picks an optimal block-size for given size,
// to achieve MEMUtilization.
func SuitableSize(blocksizes []int64, size int64) int64 {
	for {
		switch len(blocksizes) {
		case 1:
			return blocksizes[0]

		case 2:
			if size <= blocksizes[0] {
				return blocksizes[0]
			} else if size <= blocksizes[1] {
				return blocksizes[1]
			}
			panicerr("size %v greater than configured", size)

		default:
			pivot := len(blocksizes) / 2
			if blocksizes[pivot] < size {
				blocksizes = blocksizes[pivot+1:]
			} else {
				blocksizes = blocksizes[0 : pivot+1]
			}
		}
	}
}

// Blocksizes generate suitable block-sizes between minblock-size and
// maxblock-size, to acheive MEMUtilization.
func Blocksizes(minblock, maxblock int64) []int64 {
	if err := validblocksizes(minblock, maxblock); err != nil {
		panicerr("blocksizes(%v, %v): %v", minblock, maxblock, err)
	}

	nextsize := func(from int64) int64 {
		addby := int64(float64(from) * (1.0 - MEMUtilization))
		if addby <= Sizeinterval {
			addby = Sizeinterval
		} else if addby&(Sizeinterval-1) != 0 {
			addby = (addby >> 5) << 5
		}
		size := from + addby
		for (float64(from+size)/2.0)/float64(size) > MEMUtilization {
			size += addby
		}
		return size
	}

	sizes := make([]int64, 0, 64)
	for size := minblock; size < maxblock; {
		sizes = append(sizes, size)
		size = nextsize(size)
	}
	sizes = append(sizes, maxblock)
	return sizes
}

func validblocksizes(minblock, maxblock int64) error {
	if minblock <= 0 || maxblock < minblock {
		return ErrorInvalidBlocksize
	} else if (minblock % Sizeinterval) != 0 {
		return ErrorInvalidBlocksize
	} else if (maxblock % Sizeinterval) != 0 {
		return ErrorInvalidBlocksize
	}
	return nil
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
