package main

import "fmt"
import "flag"
import "time"
import "sort"
import "unsafe"
import "math/rand"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/malloc"
import "github.com/bnclabs/goalloc/registry"
import "github.com/bnclabs/goalloc/sysalloc"
import "github.com/bnclabs/golog"
import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"

var options struct {
	minblock  int64
	maxblock  int64
	stress    int
	maxsize   int64
	pagesize  int64
	block     int64
	allocator string
	seed      int64
	loglevel  string
}

func argParse() {
	flag.Int64Var(&options.minblock, "minblock", 32,
		"minimum block size")
	flag.Int64Var(&options.maxblock, "maxblock", 1024*1024,
		"maximum block size")
	flag.IntVar(&options.stress, "stress", 0,
		"number of random allocations on the root allocator")
	flag.Int64Var(&options.maxsize, "maxsize", 64*1024,
		"largest allocation for -stress")
	flag.Int64Var(&options.pagesize, "pagesize", 4096,
		"page size for root allocator")
	flag.Int64Var(&options.block, "block", 0,
		"size of pre-reserved memory block, 0 maps from the OS")
	flag.StringVar(&options.allocator, "allocator", malloc.Defaultpool,
		"pool algorithm flist or fbit")
	flag.Int64Var(&options.seed, "seed", time.Now().UnixNano(),
		"seed for -stress")
	flag.StringVar(&options.loglevel, "log", "info",
		"log level")
	flag.Parse()
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{
		"log.level": options.loglevel,
		"log.file":  "",
	})
	if options.stress > 0 {
		stress()
		return
	}
	tellutilization()
}

func tellutilization() {
	sizes := malloc.Blocksizes(options.minblock, options.maxblock)
	fmt.Println(sizes, options.minblock, options.maxblock)
	for i, size := range sizes[1:] {
		u := (float64(sizes[i]+sizes[i+1]) / 2.0) / float64(size)
		fmt.Printf("size %8v, util %.4f\n", humanize.IBytes(uint64(size)), u)
	}
	fmt.Printf("total %v size pools\n", len(sizes))
}

func stress() {
	registry.LogComponents("all")
	malloc.LogComponents("all")
	sysalloc.LogComponents("all")

	desc := sysalloc.NewDescriptor(s.Settings{
		"heap.pagesize":    options.pagesize,
		"heap.allocator":   options.allocator,
		"heap.memoryblock": options.block,
	})
	sa, err := sysalloc.Create(desc)
	if err != nil {
		log.Fatalf("creating root allocator: %v\n", err)
		return
	}

	mgr := registry.Default()
	mgr.AddOutOfMemoryListener(func() {
		log.Warnf("out of memory, stats %v\n", mgr.Stats())
	})

	rnd := rand.New(rand.NewSource(options.seed))
	live := map[uintptr]int64{}
	ptrs := []unsafe.Pointer{}
	now, allocated := time.Now(), int64(0)
	for i := 0; i < options.stress; i++ {
		if len(ptrs) > 0 && rnd.Intn(3) == 0 {
			n := rnd.Intn(len(ptrs))
			ptr := ptrs[n]
			ptrs[n] = ptrs[len(ptrs)-1]
			ptrs = ptrs[:len(ptrs)-1]
			sa.DeAllocate(ptr, live[uintptr(ptr)], api.Defaultalign)
			delete(live, uintptr(ptr))
			continue
		}
		size := rnd.Int63n(options.maxsize) + 1
		align := int64(1) << uint(rnd.Intn(8))
		ptr := sa.Allocate(size, align, api.Nullflags, "stress", "", i, 0)
		ptrs, live[uintptr(ptr)] = append(ptrs, ptr), size
		allocated += size
	}
	fmt.Printf("Took %v for %v operations, %v allocated, %v live\n",
		time.Since(now), options.stress, humanize.IBytes(uint64(allocated)),
		len(ptrs))

	printstats(sa.Stats(), "")
	for _, ptr := range ptrs {
		sa.DeAllocate(ptr, live[uintptr(ptr)], api.Defaultalign)
	}
	sysalloc.Destroy()
	mgr.RemoveOutOfMemoryListener()
	mgr.Close()
}

func printstats(stats map[string]interface{}, prefix string) {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch val := stats[key].(type) {
		case map[string]interface{}:
			printstats(val, prefix+key+".")
		default:
			fmt.Printf("%v%v: %v\n", prefix, key, val)
		}
	}
}
