package audit

import "github.com/heartmarshall/labassist-backend/internal/domain"

// ring keeps the most recent entries for local inspection.
type ring struct {
	buf  []domain.AuditEntry
	next int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]domain.AuditEntry, size)}
}

func (r *ring) push(e domain.AuditEntry) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// last returns up to n entries, oldest first.
func (r *ring) last(n int) []domain.AuditEntry {
	size := r.next
	if r.full {
		size = len(r.buf)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]domain.AuditEntry, 0, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
