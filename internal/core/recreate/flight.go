package recreate

import (
	"context"
	"sync"
)

// flight carries the context of one shared recreation. It is cancelled once
// every caller waiting on it has gone, so no caller's lifetime bounds another.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	callers int
}

type flights struct {
	mu sync.Mutex
	m  map[string]*flight
}

// join registers a caller for key and returns the shared run's context with
// a release func the caller invokes once it stops waiting.
func (fs *flights) join(ctx context.Context, key string) (context.Context, func()) {
	fs.mu.Lock()
	if fs.m == nil {
		fs.m = make(map[string]*flight)
	}
	f, ok := fs.m[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		fs.m[key] = f
	}
	f.callers++
	fs.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { fs.leave(key, f) })
	return f.ctx, func() {
		if stop() {
			fs.leave(key, f)
		}
	}
}

func (fs *flights) leave(key string, f *flight) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f.callers--
	if f.callers > 0 {
		return
	}
	f.cancel()
	if fs.m[key] == f {
		delete(fs.m, key)
	}
}

func (fs *flights) callers(key string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.m[key]; ok {
		return f.callers
	}
	return 0
}
