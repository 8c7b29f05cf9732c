// util/chan.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import "unsafe"

// ChunkedChan buffers up multiple sent items in an array and then sends
// slices of them on the channel in order to reduce chan overhead when many
// small objects (e.g., trajectory samples) are being sent.
type ChunkedChan[T any] struct {
	ch    chan []T
	accum []T
	nbuf  int
}

// MakeChunkedChan initializes a ChunkedChan; len is the size of the
// channel where 0 gives an unbuffered channel, etc. chunk gives the
// number of items per sent slice; if it's zero, roughly a megabyte of
// items are buffered.
func MakeChunkedChan[T any](len int, chunk int) *ChunkedChan[T] {
	if chunk <= 0 {
		var t T
		chunk = max(16, 1024*1024/int(max(1, unsafe.Sizeof(t))))
	}
	return &ChunkedChan[T]{
		ch:   make(chan []T, len),
		nbuf: chunk,
	}
}

// Send takes a single item that will eventually be sent on the channel in
// a slice of other T objects.
func (c *ChunkedChan[T]) Send(t T) {
	if c.accum == nil {
		c.accum = make([]T, 0, c.nbuf)
	}

	c.accum = append(c.accum, t)

	if len(c.accum) == c.nbuf { // Send it and clean the slate.
		c.ch <- c.accum
		c.accum = nil
	}
}

// Flush sends any buffered items immediately.
func (c *ChunkedChan[T]) Flush() {
	if len(c.accum) > 0 {
		c.ch <- c.accum
		c.accum = nil
	}
}

func (c *ChunkedChan[T]) Ch() <-chan []T {
	return c.ch
}

func (c *ChunkedChan[T]) Close() {
	c.Flush()
	close(c.ch)
}
