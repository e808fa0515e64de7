package observe

import (
	"bytes"
	"runtime"
	"strconv"
)

// gid returns the current goroutine id, parsed from the stack header.
// Used only to recognize a callback cancelling its own handle, where
// joining the in-flight firing would self-deadlock. Not on any hot path.
func gid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
