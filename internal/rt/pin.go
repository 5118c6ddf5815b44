package rt

import "runtime"

var (
	lockThread    = runtime.LockOSThread
	unlockThread  = runtime.UnlockOSThread
	applyAffinity = setAffinity
)

// Pin locks the calling goroutine to its OS thread and, where supported,
// restricts that thread to cpu. A negative cpu only locks the thread. If the
// affinity cannot be applied the thread stays locked and the error is
// returned. The returned function always undoes the lock.
func Pin(cpu int) (func(), error) {
	lockThread()
	if cpu >= 0 {
		if err := applyAffinity(cpu); err != nil {
			return unlockThread, err
		}
	}
	return unlockThread, nil
}
