package registry

import "runtime/debug"
import "sync/atomic"
import "unsafe"

import "github.com/bnclabs/golog"
import "github.com/bnclabs/goalloc/lib"

// Maxmemorybreaks number of memory breakpoint slots.
const Maxmemorybreaks = 32

// Allbreaks can be passed to ResetMemoryBreak to clear every slot.
const Allbreaks = -1

// MemoryBreak describe an allocation to watch for. Fields left at their
// zero value, Line at -1, are wildcards. An allocation matches if every
// configured field matches it. The address range matches if the
// allocated block overlaps [Start, End).
type MemoryBreak struct {
	Start     uintptr
	End       uintptr
	Size      int64
	Alignment int64
	Name      string
	File      string
	Line      int
}

// NewMemoryBreak return a breakpoint with every field unset.
func NewMemoryBreak() MemoryBreak {
	return MemoryBreak{Line: -1}
}

func (mb *MemoryBreak) isempty() bool {
	return mb.Start == 0 && mb.End == 0 && mb.Size == 0 &&
		mb.Alignment == 0 && mb.Name == "" && mb.File == "" && mb.Line < 0
}

func (mb *MemoryBreak) match(
	ptr unsafe.Pointer, size, align int64, name, file string, line int) bool {

	if mb.isempty() {
		return false
	}
	if mb.Start != 0 || mb.End != 0 {
		addr := uintptr(ptr)
		if addr+uintptr(size) <= mb.Start || addr >= mb.End {
			return false
		}
	}
	if mb.Size != 0 && mb.Size != size {
		return false
	} else if mb.Alignment != 0 && mb.Alignment != align {
		return false
	} else if mb.Name != "" && mb.Name != name {
		return false
	} else if mb.File != "" && mb.File != file {
		return false
	} else if mb.Line >= 0 && mb.Line != line {
		return false
	}
	return true
}

// BreakHandler is called when an allocation matches an active breakpoint.
type BreakHandler func(slot int, mb MemoryBreak, ptr unsafe.Pointer, size int64)

func defaultBreakHandler(slot int, mb MemoryBreak, ptr unsafe.Pointer, size int64) {
	fmsg := "registry: memory break %v hit, %p (%v bytes) %+v\n%s"
	log.Warnf(fmsg, slot, ptr, size, mb, lib.GetStacktrace(2, debug.Stack()))
	breaktrap()
}

// SetBreakHandler replace the handler invoked on a breakpoint hit, nil
// restores the default handler that logs the hit along with the stack
// and, in debug builds, traps into the debugger.
func (mgr *Manager) SetBreakHandler(handler BreakHandler) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if handler == nil {
		handler = defaultBreakHandler
	}
	mgr.breakhandler = handler
}

// SetMemoryBreak install mb in slot.
func (mgr *Manager) SetMemoryBreak(slot int, mb MemoryBreak) {
	if slot < 0 || slot >= Maxmemorybreaks {
		panicerr("invalid memory break slot %v", slot)
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.breaks[slot] = mb
	active := lib.Bit32(atomic.LoadUint32(&mgr.activebreaks))
	atomic.StoreUint32(&mgr.activebreaks, uint32(active.Setbit(uint8(slot))))
}

// ResetMemoryBreak clear slot, or every slot if slot is Allbreaks.
func (mgr *Manager) ResetMemoryBreak(slot int) {
	if slot != Allbreaks && (slot < 0 || slot >= Maxmemorybreaks) {
		panicerr("invalid memory break slot %v", slot)
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if slot == Allbreaks {
		atomic.StoreUint32(&mgr.activebreaks, 0)
		for i := range mgr.breaks {
			mgr.breaks[i] = NewMemoryBreak()
		}
		return
	}
	active := lib.Bit32(atomic.LoadUint32(&mgr.activebreaks))
	atomic.StoreUint32(&mgr.activebreaks, uint32(active.Clearbit(uint8(slot))))
	mgr.breaks[slot] = NewMemoryBreak()
}

// IsMemoryBreakActive return whether slot holds an active breakpoint.
func (mgr *Manager) IsMemoryBreakActive(slot int) bool {
	if slot < 0 || slot >= Maxmemorybreaks {
		panicerr("invalid memory break slot %v", slot)
	}
	return lib.Bit32(atomic.LoadUint32(&mgr.activebreaks)).Isset(uint8(slot))
}

// MemoryBreakAt return the breakpoint installed in slot and whether it
// is active.
func (mgr *Manager) MemoryBreakAt(slot int) (MemoryBreak, bool) {
	if slot < 0 || slot >= Maxmemorybreaks {
		panicerr("invalid memory break slot %v", slot)
	}
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	active := lib.Bit32(atomic.LoadUint32(&mgr.activebreaks)).Isset(uint8(slot))
	return mgr.breaks[slot], active
}

// CheckMemoryBreak is called by allocators before completing an
// allocation. Return the first active slot that matches, -1 if none.
// When there is a match the break handler is invoked, without holding
// the registry lock.
func (mgr *Manager) CheckMemoryBreak(
	ptr unsafe.Pointer, size, align int64, name, file string, line int) int {

	// fast path, no lock when nothing is watched.
	if atomic.LoadUint32(&mgr.activebreaks) == 0 {
		return -1
	}

	mgr.mu.Lock()
	active := lib.Bit32(atomic.LoadUint32(&mgr.activebreaks))
	slot, handler := -1, mgr.breakhandler
	var mb MemoryBreak
	for active != 0 {
		n := active.Findfirstset()
		active = active.Clearbit(uint8(n))
		if mgr.breaks[n].match(ptr, size, align, name, file, line) {
			slot, mb = int(n), mgr.breaks[n]
			break
		}
	}
	mgr.mu.Unlock()

	if slot >= 0 {
		handler(slot, mb, ptr, size)
	}
	return slot
}
