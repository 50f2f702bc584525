// Copyright 2026 The Cascade Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memstream implements a seekable byte stream backed by a linked
// chain of pooled, fixed-size memblock.Block values. It supports
// stream-at-position insertion/overwrite (splice.go), read-ahead block
// release for unseekable consumption, and buffer attach/detach/inject.
//
// Stream is not safe for concurrent use; Synchronized (sync.go) wraps one
// with a serializing semaphore for callers that need that.
package memstream

import (
	"fmt"
	"io"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/memblock"
)

// DefaultBlockSize is 80KB, chosen (as in the source library this design
// is derived from) to stay under the runtime's large-object threshold.
const DefaultBlockSize = 80 * 1024

// Options configures a new Stream.
type Options struct {
	// BlockSize is the capacity of each block the stream allocates. Zero
	// means DefaultBlockSize.
	BlockSize int
	// Pool, if non-nil, is used to rent and return blocks. Its Capacity()
	// must equal BlockSize (after defaulting) or blocks will not be
	// pool-backed correctly; passing nil simply heap-allocates blocks.
	Pool *memblock.Pool
	// ReleaseOnRead, if true, causes completed head blocks to be returned
	// to the pool as they are read past. It implies the stream is not
	// seekable.
	ReleaseOnRead bool
}

// Stream is a seekable byte stream over a chain of memory blocks.
type Stream struct {
	blockSize     int
	pool          *memblock.Pool
	releaseOnRead bool

	head    *memblock.Block
	current *memblock.Block

	currentStart      int64 // absolute start index of current block
	firstBlockOffset  int64 // bytes dropped from the front by release-on-read
	length            int64
	position          int64
	disposed          bool
}

// New returns an empty Stream configured per opts.
func New(opts Options) *Stream {
	bs := opts.BlockSize
	if bs <= 0 {
		bs = DefaultBlockSize
	}
	return &Stream{
		blockSize:     bs,
		pool:          opts.Pool,
		releaseOnRead: opts.ReleaseOnRead,
	}
}

// CanSeek reports whether Seek/SetLength are usable on this stream.
// ReleaseOnRead streams cannot seek.
func (s *Stream) CanSeek() bool { return !s.releaseOnRead }

// Len returns the stream's logical length in bytes.
func (s *Stream) Len() int64 { return s.length }

// Position returns the current logical read/write position.
func (s *Stream) Position() int64 { return s.position }

// BlockSize returns the configured block capacity.
func (s *Stream) BlockSize() int { return s.blockSize }

func (s *Stream) checkOpen(op string) error {
	if s.disposed {
		return cfgerr.New(cfgerr.ObjectDisposed, op, "", nil)
	}
	return nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.checkOpen("memstream.Stream.Read"); err != nil {
		return 0, err
	}
	avail := s.length - s.position
	if avail <= 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > avail {
		want = avail
	}

	var n int64
	for n < want {
		if s.current == nil {
			break
		}
		offset := int(s.position - s.currentStart)
		blockAvail := s.current.Length() - offset
		toCopy := int64(blockAvail)
		if remaining := want - n; toCopy > remaining {
			toCopy = remaining
		}
		copy(p[n:n+toCopy], s.current.Bytes()[offset:offset+int(toCopy)])
		n += toCopy
		s.position += toCopy

		if offset+int(toCopy) == s.current.Length() {
			next := s.current.Next()
			if s.releaseOnRead {
				consumed := s.current
				consumedLen := int64(consumed.Length())
				consumed.SetNext(nil)
				consumed.Release()
				s.firstBlockOffset += consumedLen
				s.currentStart += consumedLen
				if s.head == consumed {
					s.head = next
				}
			} else if next != nil {
				s.currentStart += int64(s.current.Length())
			}
			if next != nil || s.releaseOnRead {
				s.current = next
			}
		}
	}
	return int(n), nil
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := s.Read(buf[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	return buf[0], nil
}

// Write implements io.Writer. Mid-stream writes overwrite existing data in
// place; Write never splices (use InjectBufferAtCurrentPosition for that).
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.checkOpen("memstream.Stream.Write"); err != nil {
		return 0, err
	}
	var n int
	for n < len(p) {
		if s.current == nil {
			blk := memblock.NewFromPool(s.blockSize, s.pool, false)
			s.head = blk
			s.current = blk
			s.currentStart = s.length
		}
		offset := int(s.position - s.currentStart)
		if offset == s.current.Capacity() {
			next := s.current.Next()
			if next == nil {
				next = memblock.NewFromPool(s.blockSize, s.pool, false)
				s.current.SetNext(next)
			}
			s.currentStart += int64(s.current.Capacity())
			s.current = next
			offset = 0
		}
		toCopy := s.current.Capacity() - offset
		if remaining := len(p) - n; toCopy > remaining {
			toCopy = remaining
		}
		copy(s.current.Raw()[offset:offset+toCopy], p[n:n+toCopy])
		if offset+toCopy > s.current.Length() {
			if err := s.current.SetLength(offset + toCopy); err != nil {
				return n, err
			}
		}
		n += toCopy
		s.position += int64(toCopy)
		if s.position > s.length {
			s.length = s.position
		}
	}
	return n, nil
}

// WriteByte implements io.ByteWriter.
func (s *Stream) WriteByte(c byte) error {
	_, err := s.Write([]byte{c})
	return err
}

// Seek implements io.Seeker. Unavailable (NotSupported) on ReleaseOnRead
// streams.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if err := s.checkOpen("memstream.Stream.Seek"); err != nil {
		return 0, err
	}
	if !s.CanSeek() {
		return 0, cfgerr.New(cfgerr.NotSupported, "memstream.Stream.Seek", "", nil)
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.position + offset
	case io.SeekEnd:
		target = s.length + offset
	default:
		return 0, cfgerr.New(cfgerr.InvalidArgument, "memstream.Stream.Seek", "", fmt.Errorf("invalid whence %d", whence))
	}
	if target < 0 || target > s.length {
		return 0, cfgerr.New(cfgerr.InvalidArgument, "memstream.Stream.Seek", "",
			fmt.Errorf("target %d out of range [0, %d]", target, s.length))
	}
	s.position = target
	s.locate(target)
	return target, nil
}

// SetLength implements the stream's Truncate/grow operation. Unavailable
// (NotSupported) on ReleaseOnRead streams.
//
// n == 0 releases the whole chain. n > current total block capacity
// appends zero-initialized blocks until capacity is sufficient. In every
// other case the chain is cut at byte n: blocks beyond the cut are
// released, and the retained tail block is zero-filled from the cut point
// to its capacity (so any later growth within the same capacity exposes
// zeros, not stale data — freed blocks themselves are not scrubbed).
func (s *Stream) SetLength(n int64) error {
	if err := s.checkOpen("memstream.Stream.SetLength"); err != nil {
		return err
	}
	if !s.CanSeek() {
		return cfgerr.New(cfgerr.NotSupported, "memstream.Stream.SetLength", "", nil)
	}
	if n < 0 {
		return cfgerr.New(cfgerr.InvalidArgument, "memstream.Stream.SetLength", "", fmt.Errorf("negative length %d", n))
	}
	if n == 0 {
		if s.head != nil {
			s.head.ReleaseChain()
		}
		s.head, s.current = nil, nil
		s.length, s.position = 0, 0
		s.currentStart, s.firstBlockOffset = 0, 0
		return nil
	}

	var totalCap int64
	for cur := s.head; cur != nil; cur = cur.Next() {
		totalCap += int64(cur.Capacity())
	}
	for totalCap < n {
		blk := memblock.NewFromPool(s.blockSize, s.pool, true)
		if s.head == nil {
			s.head = blk
		} else {
			tailOf(s.head).SetNext(blk)
		}
		totalCap += int64(blk.Capacity())
	}

	var start int64
	for cur := s.head; cur != nil; cur = cur.Next() {
		capEnd := start + int64(cur.Capacity())
		if n <= capEnd {
			cutOffset := int(n - start)
			raw := cur.Raw()
			for i := cutOffset; i < len(raw); i++ {
				raw[i] = 0
			}
			_ = cur.SetLength(cutOffset)
			rest := cur.Next()
			cur.SetNext(nil)
			if rest != nil {
				rest.ReleaseChain()
			}
			break
		}
		_ = cur.SetLength(cur.Capacity())
		start = capEnd
	}

	s.length = n
	if s.position > n {
		s.position = n
	}
	s.locate(s.position)
	return nil
}

// AppendBuffer appends an externally-owned chain to the tail. The stream
// takes ownership; the caller must not mutate chain afterward.
func (s *Stream) AppendBuffer(chain *memblock.Block) error {
	if err := s.checkOpen("memstream.Stream.AppendBuffer"); err != nil {
		return err
	}
	if chain == nil {
		return cfgerr.New(cfgerr.InvalidArgument, "memstream.Stream.AppendBuffer", "", nil)
	}
	if s.head == nil {
		s.head = chain
	} else {
		tailOf(s.head).SetNext(chain)
	}
	s.length += chain.ChainLength()
	s.locate(s.position)
	return nil
}

// AttachBuffer replaces the stream's backing storage atomically, resetting
// position to 0 and re-deriving length from chain. The previous chain is
// released. A nil chain empties the stream.
func (s *Stream) AttachBuffer(chain *memblock.Block) error {
	if err := s.checkOpen("memstream.Stream.AttachBuffer"); err != nil {
		return err
	}
	if chain != nil && chain.HasPredecessor() {
		return cfgerr.New(cfgerr.NotSupported, "memstream.Stream.AttachBuffer", "", nil)
	}
	if s.head != nil {
		s.head.ReleaseChain()
	}
	s.head = chain
	s.currentStart, s.firstBlockOffset = 0, 0
	s.position = 0
	if chain == nil {
		s.length = 0
		s.current = nil
		return nil
	}
	s.length = chain.ChainLength()
	s.locate(0)
	return nil
}

// DetachBuffer removes ownership of the backing chain and returns it; the
// stream becomes empty. The caller takes ownership and must release the
// chain to return pool buffers.
func (s *Stream) DetachBuffer() *memblock.Block {
	chain := s.head
	s.head, s.current = nil, nil
	s.length, s.position = 0, 0
	s.currentStart, s.firstBlockOffset = 0, 0
	return chain
}

// Close releases every block still owned by the stream. Idempotent.
func (s *Stream) Close() error {
	if s.disposed {
		return nil
	}
	s.disposed = true
	if s.head != nil {
		s.head.ReleaseChain()
	}
	s.head, s.current = nil, nil
	return nil
}

// ReadFrom implements io.ReaderFrom: it reads r fully into freshly
// allocated blocks (never touching the stream's own blocks while doing
// I/O), then splices the resulting chain in at the current position,
// advancing past it. A read failure from r leaves the stream untouched and
// releases the chain read so far.
func (s *Stream) ReadFrom(r io.Reader) (int64, error) {
	if err := s.checkOpen("memstream.Stream.ReadFrom"); err != nil {
		return 0, err
	}
	var head, tail *memblock.Block
	var total int64
	for {
		blk := memblock.NewFromPool(s.blockSize, s.pool, false)
		nr, err := io.ReadFull(r, blk.Raw())
		if nr > 0 {
			_ = blk.SetLength(nr)
			if head == nil {
				head, tail = blk, blk
			} else {
				tail.SetNext(blk)
				tail = blk
			}
			total += int64(nr)
		} else {
			blk.Release()
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			if head != nil {
				head.ReleaseChain()
			}
			return 0, cfgerr.New(cfgerr.Persistence, "memstream.Stream.ReadFrom", "", err)
		}
	}
	if head == nil {
		return 0, nil
	}
	if err := s.InjectBufferAtCurrentPosition(head, false, true); err != nil {
		head.ReleaseChain()
		return 0, err
	}
	return total, nil
}

// CopyTo reads the remainder of the stream into dst using a temporary
// buffer of bufSize bytes (defaulting to the stream's block size).
func (s *Stream) CopyTo(dst io.Writer, bufSize int) (int64, error) {
	if bufSize <= 0 {
		bufSize = s.blockSize
	}
	buf := make([]byte, bufSize)
	var total int64
	for {
		n, err := s.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF || n == 0 {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// locate repositions current/currentStart to the block containing the
// logical offset target (or the last block, positioned at its end, when
// target == length). It tries a forward walk from the current block first
// (the common case for sequential access) and falls back to walking from
// the head of the chain.
func (s *Stream) locate(target int64) {
	if s.current != nil && target >= s.currentStart {
		if blk, start, ok := walkFrom(s.current, s.currentStart, target); ok {
			s.current, s.currentStart = blk, start
			return
		}
	}
	if blk, start, ok := walkFrom(s.head, s.firstBlockOffset, target); ok {
		s.current, s.currentStart = blk, start
		return
	}
	s.current = nil
	s.currentStart = s.firstBlockOffset
}

func walkFrom(cur *memblock.Block, start, target int64) (*memblock.Block, int64, bool) {
	for cur != nil {
		end := start + int64(cur.Length())
		if target < end {
			return cur, start, true
		}
		if target == end && cur.Next() == nil {
			return cur, start, true
		}
		start = end
		cur = cur.Next()
	}
	return nil, start, false
}

func tailOf(b *memblock.Block) *memblock.Block {
	cur := b
	for cur.Next() != nil {
		cur = cur.Next()
	}
	return cur
}
