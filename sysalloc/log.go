package sysalloc

import "sync/atomic"

import "github.com/bnclabs/golog"

var logok = int64(0)

// LogComponents enable logging. By default logging is disabled, if
// applications want log information for sysalloc components call this
// function with "self" or "all" or "sysalloc" as argument.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "sysalloc", "self", "all":
			atomic.StoreInt64(&logok, 1)
		}
	}
}

func infof(fmsg string, args ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Infof(fmsg, args...)
	}
}

func warnf(fmsg string, args ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Warnf(fmsg, args...)
	}
}

// failures are always logged.
func errorf(fmsg string, args ...interface{}) {
	log.Errorf(fmsg, args...)
}
