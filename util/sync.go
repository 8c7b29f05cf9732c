// util/sync.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/mmp/trajgen/log"

	"github.com/shirou/gopsutil/v3/cpu"
)

// LoggingMutex is a sync.Mutex that records where it was acquired and
// logs when it is waited on or held for a suspiciously long time.
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

const (
	mutexWaitTimeout  = 10 * time.Second
	mutexHoldWarnTime = 5 * time.Second
)

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()

	if !l.Mutex.TryLock() {
		locked := make(chan struct{}, 1)
		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		select {
		case <-locked:
		case <-time.After(mutexWaitTimeout):
			lg.Error("unable to acquire mutex", slog.Duration("timeout", mutexWaitTimeout), slog.Any("mutex", l))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			usage := []float64{0}
			if u, err := cpu.Percent(time.Second, false); err == nil && len(u) > 0 {
				usage = u
			}
			lg.Errorf("CPU: %d%% alloc: %dMB sys mem: %dMB goroutines: %d",
				int(gomath.Round(usage[0])), m.Alloc/(1024*1024), m.Sys/(1024*1024), runtime.NumGoroutine())

			<-locked
		}
	}

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	if w := l.acq.Sub(tryTime); w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	if d := time.Since(l.acq); d > mutexHoldWarnTime {
		lg.Warn("mutex held for a long time", slog.Any("mutex", l), slog.Duration("held", d))
	}
	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}
