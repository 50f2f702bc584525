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
	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/memblock"
)

// InjectBufferAtCurrentPosition splices chain into the stream at the
// current position. The stream takes ownership of chain (and of any new
// blocks allocated to hold displaced data); the caller must not touch
// chain again.
//
// If overwrite is true, chain's bytes replace the same number of existing
// bytes starting at the current position (growing the stream only if the
// overwrite region extends past the old end). If overwrite is false, chain
// is inserted, pushing existing data at/after the current position to
// higher offsets.
//
// If advancePosition is true, the position moves to just past the
// injected region; otherwise it stays at its original value (which then
// addresses the start of the injected data).
func (s *Stream) InjectBufferAtCurrentPosition(chain *memblock.Block, overwrite, advancePosition bool) error {
	if err := s.checkOpen("memstream.Stream.InjectBufferAtCurrentPosition"); err != nil {
		return err
	}
	if chain == nil {
		return cfgerr.New(cfgerr.InvalidArgument, "memstream.Stream.InjectBufferAtCurrentPosition", "", nil)
	}
	chainLen := chain.ChainLength()
	if chainLen == 0 {
		chain.ReleaseChain()
		return nil
	}

	oldPos := s.position
	oldLen := s.length

	// Case 1: empty stream.
	if s.head == nil {
		s.head = chain
		s.length = chainLen
		if advancePosition {
			s.position = s.length
		} else {
			s.position = 0
		}
		s.locate(s.position)
		return nil
	}

	// Case 2: position at end of stream (pure append).
	if oldPos == oldLen {
		tailOf(s.head).SetNext(chain)
		s.length = oldLen + chainLen
		if advancePosition {
			s.position = oldPos + chainLen
		}
		s.locate(s.position)
		return nil
	}

	offset := int(oldPos - s.currentStart)
	if offset == 0 {
		return s.injectAtBoundary(chain, chainLen, overwrite, advancePosition, oldPos, oldLen)
	}
	return s.injectMidBlock(chain, chainLen, offset, overwrite, advancePosition, oldPos, oldLen)
}

// injectAtBoundary handles position at a block boundary (case 3): chain is
// spliced in before s.current (or at the head, if s.current is the head).
func (s *Stream) injectAtBoundary(chain *memblock.Block, chainLen int64, overwrite, advancePosition bool, oldPos, oldLen int64) error {
	pred := s.predecessorOf(s.current)
	successor := s.current
	chainTail := tailOf(chain)

	if pred == nil {
		s.head = chain
	} else {
		pred.SetNext(chain)
	}
	chainTail.SetNext(successor)

	if overwrite {
		remainder := eraseFromChain(successor, chainLen)
		chainTail.SetNext(remainder)
		s.length = max(oldLen, oldPos+chainLen)
	} else {
		s.length = oldLen + chainLen
	}

	if advancePosition {
		s.position = oldPos + chainLen
	} else {
		s.position = oldPos
	}
	// s.current and s.currentStart still describe the old successor, which
	// has moved behind the chain or been released: relocate from the head.
	s.current = nil
	s.locate(s.position)
	return nil
}

// injectMidBlock handles position strictly inside a block's valid data
// (case 4), where offset is in (0, current.Length()).
func (s *Stream) injectMidBlock(chain *memblock.Block, chainLen int64, offset int, overwrite, advancePosition bool, oldPos, oldLen int64) error {
	current := s.current
	restOfBlock := current.Length() - offset
	oldSuccessor := current.Next()
	chainTail := tailOf(chain)

	if overwrite && chainLen >= int64(restOfBlock) {
		_ = current.SetLength(offset)
		current.SetNext(nil)
		extra := chainLen - int64(restOfBlock)
		remainder := eraseFromChain(oldSuccessor, extra)
		chainTail.SetNext(remainder)
		current.SetNext(chain)
		s.length = max(oldLen, oldPos+chainLen)
	} else if overwrite {
		// chainLen < restOfBlock: copy in place, no structural change.
		data, err := chain.GetChainData()
		if err != nil {
			return err
		}
		copy(current.Raw()[offset:offset+len(data)], data)
		if offset+len(data) > current.Length() {
			_ = current.SetLength(offset + len(data))
		}
		chain.ReleaseChain()
		if advancePosition {
			s.position = oldPos + chainLen
		} else {
			s.position = oldPos
		}
		s.locate(s.position)
		return nil
	} else {
		// Insert: displace the rest-of-block bytes after the injected chain.
		displaced := append([]byte(nil), current.Bytes()[offset:current.Length()]...)
		_ = current.SetLength(offset)
		current.SetNext(nil)

		spareInTail := chainTail.Capacity() - chainTail.Length()
		if spareInTail >= len(displaced) {
			copy(chainTail.Raw()[chainTail.Length():chainTail.Length()+len(displaced)], displaced)
			_ = chainTail.SetLength(chainTail.Length() + len(displaced))
			chainTail.SetNext(oldSuccessor)
		} else {
			displacedChain := allocateBlocksForBytes(s, displaced)
			chainTail.SetNext(displacedChain)
			tailOf(displacedChain).SetNext(oldSuccessor)
		}
		current.SetNext(chain)
		s.length = oldLen + chainLen
	}

	if advancePosition {
		s.position = oldPos + chainLen
	} else {
		s.position = oldPos
	}
	s.locate(s.position)
	return nil
}

// predecessorOf returns the block whose Next() is target, or nil if target
// is the head (or not found).
func (s *Stream) predecessorOf(target *memblock.Block) *memblock.Block {
	if s.head == target {
		return nil
	}
	for cur := s.head; cur != nil; cur = cur.Next() {
		if cur.Next() == target {
			return cur
		}
	}
	return nil
}

// eraseFromChain removes up to n bytes from the front of the chain rooted
// at head, releasing whole blocks it consumes and compacting a partially
// consumed block's remaining data to its front. It returns the new head of
// what remains (nil if everything was consumed).
func eraseFromChain(head *memblock.Block, n int64) *memblock.Block {
	cur := head
	for cur != nil && n > 0 {
		length := int64(cur.Length())
		if length <= n {
			n -= length
			next := cur.Next()
			cur.SetNext(nil)
			cur.Release()
			cur = next
			continue
		}
		remaining := cur.Length() - int(n)
		raw := cur.Raw()
		copy(raw[0:remaining], raw[int(n):cur.Length()])
		_ = cur.SetLength(remaining)
		n = 0
	}
	return cur
}

// allocateBlocksForBytes copies data into one or more freshly allocated
// blocks sized per the stream's configured block size, returning the head
// of the resulting chain.
func allocateBlocksForBytes(s *Stream, data []byte) *memblock.Block {
	var head, tail *memblock.Block
	for off := 0; off < len(data) || head == nil; {
		blk := memblock.NewFromPool(s.blockSize, s.pool, false)
		n := copy(blk.Raw(), data[off:])
		_ = blk.SetLength(n)
		off += n
		if head == nil {
			head, tail = blk, blk
		} else {
			tail.SetNext(blk)
			tail = blk
		}
		if n == 0 {
			break
		}
	}
	return head
}
