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

// Package memblock implements the chainable, optionally pooled, fixed-
// capacity memory block that backs memstream.Stream.
package memblock

import (
	"fmt"
	"math"

	"github.com/cascadefs/cascade/cfgerr"
)

// Block is a single node in a singly-linked chain of fixed-capacity
// buffers. A Block either owns a heap-allocated buffer (New) or rents one
// from a Pool (NewFromPool); either way Release returns the buffer to its
// pool (if any) exactly once and is a no-op afterwards.
type Block struct {
	buf            []byte
	length         int
	next           *Block
	pool           *Pool
	released       bool
	hasPredecessor bool
}

// New allocates a heap-backed Block with the given capacity.
func New(capacity int) *Block {
	return &Block{buf: make([]byte, capacity)}
}

// NewFromPool rents a Block from pool; the block has the pool's capacity and
// the capacity argument is not used. If pool is nil, it falls back to a heap
// allocation of the given capacity (equivalent to New). If clear is
// true, the rented buffer is zeroed before use (pools do not scrub buffers
// on Put, only on demand here).
func NewFromPool(capacity int, pool *Pool, clear bool) *Block {
	if pool == nil {
		return New(capacity)
	}
	b := pool.get()
	if clear {
		for i := range b.buf {
			b.buf[i] = 0
		}
	}
	return b
}

// Capacity returns the block's fixed buffer capacity.
func (b *Block) Capacity() int { return len(b.buf) }

// Length returns the number of valid bytes currently in the block.
func (b *Block) Length() int { return b.length }

// SetLength sets the number of valid bytes in the block. n must be in
// [0, Capacity()].
func (b *Block) SetLength(n int) error {
	if n < 0 || n > len(b.buf) {
		return cfgerr.New(cfgerr.InvalidArgument, "memblock.Block.SetLength", "",
			fmt.Errorf("length %d out of range [0, %d]", n, len(b.buf)))
	}
	b.length = n
	return nil
}

// Bytes returns the block's valid data, buf[:length]. The returned slice
// aliases the block's storage; callers must not retain it past a Release.
func (b *Block) Bytes() []byte { return b.buf[:b.length] }

// Raw returns the block's full backing storage (buf[:cap]), for writers
// that need to fill beyond the current length before calling SetLength.
func (b *Block) Raw() []byte { return b.buf }

// Next returns the next block in the chain, or nil at the tail.
func (b *Block) Next() *Block { return b.next }

// SetNext splices next in as this block's successor, marking next as having
// a predecessor (see HasPredecessor). The block previously in b.next, if
// any, is marked as no longer having one: a singly-linked Block has no way
// to tell whether it is still reachable from some other chain too, so this
// is a "most recently spliced in somewhere" flag, not a reference count.
func (b *Block) SetNext(next *Block) {
	if b.next != nil {
		b.next.hasPredecessor = false
	}
	b.next = next
	if next != nil {
		next.hasPredecessor = true
	}
}

// HasPredecessor reports whether some other block's SetNext last spliced
// this block in as its successor. memstream.Stream.AttachBuffer refuses a
// chain whose head already has one, since that head is presumably still
// part of (or was just detached from) another chain.
func (b *Block) HasPredecessor() bool { return b.hasPredecessor }

// Released reports whether this block's buffer has already been released.
func (b *Block) Released() bool { return b.released }

// ChainLength sums Length() over b and every block reachable via Next.
func (b *Block) ChainLength() int64 {
	var total int64
	for cur := b; cur != nil; cur = cur.next {
		total += int64(cur.length)
	}
	return total
}

// GetChainData copies the chain's data (b and every successor) into a
// single contiguous byte slice. Defined only when the chain's total length
// fits in an int32.
func (b *Block) GetChainData() ([]byte, error) {
	total := b.ChainLength()
	if total > math.MaxInt32 {
		return nil, cfgerr.New(cfgerr.InvalidArgument, "memblock.Block.GetChainData", "",
			fmt.Errorf("chain length %d exceeds int32 range", total))
	}
	out := make([]byte, 0, total)
	for cur := b; cur != nil; cur = cur.next {
		out = append(out, cur.Bytes()...)
	}
	return out, nil
}

// Release returns this block's buffer to its pool, if any, and marks the
// block released. Idempotent: a second call is a no-op. Release does not
// touch Next(); callers that want to release an entire chain use
// ReleaseChain.
func (b *Block) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.pool != nil {
		b.pool.put(b)
	} else {
		b.buf = nil
	}
}

// ReleaseChain releases b and every block reachable via Next.
func (b *Block) ReleaseChain() {
	cur := b
	for cur != nil {
		next := cur.next
		cur.next = nil
		cur.Release()
		cur = next
	}
}
