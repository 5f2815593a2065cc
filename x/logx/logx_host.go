//go:build !(rp2040 || rp2350)

package logx

import (
	"fmt"

	"github.com/golang/glog"
)

func Info(args ...any)  { glog.InfoDepth(1, fmt.Sprintln(args...)) }
func Warn(args ...any)  { glog.WarningDepth(1, fmt.Sprintln(args...)) }
func Error(args ...any) { glog.ErrorDepth(1, fmt.Sprintln(args...)) }

// Debug logs at glog verbosity 2.
func Debug(args ...any) {
	if glog.V(2) {
		glog.InfoDepth(1, fmt.Sprintln(args...))
	}
}

func Flush() { glog.Flush() }
