package media

import "sync"

// RingBuffer keeps the most recent samples written to it.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	pos   int
	count int
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1024
	}
	return &RingBuffer{buf: make([]byte, size)}
}

func (r *RingBuffer) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) >= len(r.buf) {
		copy(r.buf, p[len(p)-len(r.buf):])
		r.pos = 0
		r.count = len(r.buf)
		return
	}
	n := copy(r.buf[r.pos:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
	}
	r.pos = (r.pos + len(p)) % len(r.buf)
	r.count += len(p)
	if r.count > len(r.buf) {
		r.count = len(r.buf)
	}
}

// Latest copies up to len(dst) of the newest bytes into dst, oldest first.
func (r *RingBuffer) Latest(dst []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.count {
		n = r.count
	}
	start := (r.pos - n + len(r.buf)) % len(r.buf)
	first := copy(dst[:n], r.buf[start:])
	if first < n {
		copy(dst[first:n], r.buf[:n-first])
	}
	return n
}

func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.count = 0
}
