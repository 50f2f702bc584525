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

package memstream

import (
	"context"
	"io"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/memblock"
)

// Synchronized wraps a Stream with a single binary semaphore (a buffered
// channel of capacity 1) that serializes every public operation, including
// property reads. It is the concurrency-safe front door for a Stream,
// which is itself not safe for concurrent use.
type Synchronized struct {
	sem chan struct{}
	s   *Stream
}

// NewSynchronized wraps s. The wrapper takes over serializing access; the
// caller should not use s directly afterward.
func NewSynchronized(s *Stream) *Synchronized {
	return &Synchronized{sem: make(chan struct{}, 1), s: s}
}

// acquire blocks until the semaphore is free, or ctx is cancelled first (in
// which case it fails before the wrapped call ever runs). ctx == nil means
// block unconditionally.
func (w *Synchronized) acquire(ctx context.Context) error {
	if ctx == nil {
		w.sem <- struct{}{}
		return nil
	}
	select {
	case w.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return cfgerr.New(cfgerr.Cancelled, "memstream.Synchronized", "", ctx.Err())
	}
}

func (w *Synchronized) release() { <-w.sem }

// TryLock attempts to acquire the semaphore without blocking.
func (w *Synchronized) TryLock() bool {
	select {
	case w.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases a semaphore acquired via TryLock. Callers that used
// TryLock are responsible for pairing it with exactly one Unlock.
func (w *Synchronized) Unlock() { w.release() }

// Read serializes Stream.Read.
func (w *Synchronized) Read(p []byte) (int, error) {
	if err := w.acquire(nil); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.Read(p)
}

// ReadContext is Read with cancellation honored before acquisition.
func (w *Synchronized) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := w.acquire(ctx); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.Read(p)
}

// Write serializes Stream.Write.
func (w *Synchronized) Write(p []byte) (int, error) {
	if err := w.acquire(nil); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.Write(p)
}

// WriteContext is Write with cancellation honored before acquisition.
func (w *Synchronized) WriteContext(ctx context.Context, p []byte) (int, error) {
	if err := w.acquire(ctx); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.Write(p)
}

// Seek serializes Stream.Seek.
func (w *Synchronized) Seek(offset int64, whence int) (int64, error) {
	if err := w.acquire(nil); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.Seek(offset, whence)
}

// SetLength serializes Stream.SetLength.
func (w *Synchronized) SetLength(n int64) error {
	if err := w.acquire(nil); err != nil {
		return err
	}
	defer w.release()
	return w.s.SetLength(n)
}

// Len serializes the Stream.Len property read.
func (w *Synchronized) Len() int64 {
	if err := w.acquire(nil); err != nil {
		return 0
	}
	defer w.release()
	return w.s.Len()
}

// Position serializes the Stream.Position property read.
func (w *Synchronized) Position() int64 {
	if err := w.acquire(nil); err != nil {
		return 0
	}
	defer w.release()
	return w.s.Position()
}

// InjectBufferAtCurrentPosition serializes Stream.InjectBufferAtCurrentPosition.
func (w *Synchronized) InjectBufferAtCurrentPosition(chain *memblock.Block, overwrite, advancePosition bool) error {
	if err := w.acquire(nil); err != nil {
		return err
	}
	defer w.release()
	return w.s.InjectBufferAtCurrentPosition(chain, overwrite, advancePosition)
}

// AppendBuffer serializes Stream.AppendBuffer.
func (w *Synchronized) AppendBuffer(chain *memblock.Block) error {
	if err := w.acquire(nil); err != nil {
		return err
	}
	defer w.release()
	return w.s.AppendBuffer(chain)
}

// AttachBuffer serializes Stream.AttachBuffer.
func (w *Synchronized) AttachBuffer(chain *memblock.Block) error {
	if err := w.acquire(nil); err != nil {
		return err
	}
	defer w.release()
	return w.s.AttachBuffer(chain)
}

// DetachBuffer serializes Stream.DetachBuffer.
func (w *Synchronized) DetachBuffer() *memblock.Block {
	if err := w.acquire(nil); err != nil {
		return nil
	}
	defer w.release()
	return w.s.DetachBuffer()
}

// ReadFromContext serializes Stream.ReadFrom with cancellation honored
// before acquisition. In-flight reads of r are not cancelled mid-flight.
func (w *Synchronized) ReadFromContext(ctx context.Context, r io.Reader) (int64, error) {
	if err := w.acquire(ctx); err != nil {
		return 0, err
	}
	defer w.release()
	return w.s.ReadFrom(r)
}

// CopyToContext serializes Stream.CopyTo with cancellation honored between
// read/write chunks (not honored mid-chunk).
func (w *Synchronized) CopyToContext(ctx context.Context, dst io.Writer, bufSize int) (int64, error) {
	if err := w.acquire(ctx); err != nil {
		return 0, err
	}
	defer w.release()
	if bufSize <= 0 {
		bufSize = w.s.blockSize
	}
	buf := make([]byte, bufSize)
	var total int64
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return total, cfgerr.New(cfgerr.Cancelled, "memstream.Synchronized.CopyToContext", "", ctx.Err())
			default:
			}
		}
		n, err := w.s.Read(buf)
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

// Close serializes Stream.Close.
func (w *Synchronized) Close() error {
	if err := w.acquire(nil); err != nil {
		return err
	}
	defer w.release()
	return w.s.Close()
}
