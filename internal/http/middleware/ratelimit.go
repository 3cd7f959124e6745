package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int64
}

var (
	rlMu    sync.Mutex
	clients = make(map[string]*clientInfo)
)

// localHit is the per-process fixed window used without Redis.
func localHit(key string, window time.Duration) int64 {
	now := time.Now()

	rlMu.Lock()
	defer rlMu.Unlock()

	ci, ok := clients[key]
	if !ok || now.Sub(ci.start) > window {
		clients[key] = &clientInfo{start: now, count: 1}
		if len(clients) > 10000 {
			sweepLocked(now, window)
		}
		return 1
	}
	ci.count++
	return ci.count
}

func sweepLocked(now time.Time, window time.Duration) {
	for k, ci := range clients {
		if now.Sub(ci.start) > window {
			delete(clients, k)
		}
	}
}

func resetLocalLimits() {
	rlMu.Lock()
	clients = make(map[string]*clientInfo)
	rlMu.Unlock()
}
