package malloc

import "strings"

import "github.com/bnclabs/golog"

var logok = false

// LogComponents enable logging. By default logging is disabled, if
// applications want log information for malloc components call this
// function with "self" or "all" or "malloc" as argument.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch strings.ToLower(comp) {
		case "self", "all", "malloc":
			logok = true
		}
	}
}

func infof(fmsg string, args ...interface{}) {
	if logok {
		log.Infof(fmsg, args...)
	}
}

func debugf(fmsg string, args ...interface{}) {
	if logok {
		log.Debugf(fmsg, args...)
	}
}

func warnf(fmsg string, args ...interface{}) {
	if logok {
		log.Warnf(fmsg, args...)
	}
}
