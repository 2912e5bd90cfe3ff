package i2csim

import "sync"

// Registers is a device with 256 byte-wide registers. The first byte of a
// write selects the register, further bytes are stored with auto-increment.
// Reads return the selected register and advance.
type Registers struct {
	mutex sync.Mutex
	mem   [256]byte
	ptr   byte
	first bool
	n     int

	// Nack, when set, is asked about each byte written after the address;
	// n counts from 0 within the transaction. A true result NACKs the byte.
	Nack func(n int, b byte) bool
}

func (r *Registers) Addressed(read bool) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !read {
		r.first = true
		r.n = 0
	}
	return true
}

func (r *Registers) Write(b byte) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	n := r.n
	r.n++
	if r.Nack != nil && r.Nack(n, b) {
		return false
	}

	if r.first {
		r.ptr = b
		r.first = false
		return true
	}

	r.mem[r.ptr] = b
	r.ptr++
	return true
}

func (r *Registers) Read() byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b := r.mem[r.ptr]
	r.ptr++
	return b
}

func (r *Registers) Stop() {}

// Get returns the content of register reg.
func (r *Registers) Get(reg byte) byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.mem[reg]
}

// Set stores v in register reg.
func (r *Registers) Set(reg byte, v byte) {
	r.mutex.Lock()
	r.mem[reg] = v
	r.mutex.Unlock()
}

// Stream records every write transaction and answers reads from a queue of
// replies. Once the queue is empty reads return 0xFF, the idle level.
type Stream struct {
	mutex   sync.Mutex
	written [][]byte
	replies []byte
}

func (s *Stream) Addressed(read bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !read {
		s.written = append(s.written, []byte{})
	}
	return true
}

func (s *Stream) Write(b byte) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	last := len(s.written) - 1
	s.written[last] = append(s.written[last], b)
	return true
}

func (s *Stream) Read() byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.replies) == 0 {
		return 0xff
	}
	b := s.replies[0]
	s.replies = s.replies[1:]
	return b
}

func (s *Stream) Stop() {}

// Reply queues bytes for subsequent reads.
func (s *Stream) Reply(b ...byte) {
	s.mutex.Lock()
	s.replies = append(s.replies, b...)
	s.mutex.Unlock()
}

// Written returns the payload of each write transaction so far.
func (s *Stream) Written() [][]byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([][]byte, len(s.written))
	for i, w := range s.written {
		out[i] = append([]byte(nil), w...)
	}
	return out
}
