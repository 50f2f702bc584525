package memstream

import (
	"bytes"
	"io"
	"testing"

	"github.com/cascadefs/cascade/memblock"
)

func chainOf(t *testing.T, chunks ...[]byte) *memblock.Block {
	t.Helper()
	var head, tail *memblock.Block
	for _, c := range chunks {
		b := memblock.New(len(c))
		copy(b.Raw(), c)
		_ = b.SetLength(len(c))
		if head == nil {
			head, tail = b, b
		} else {
			tail.SetNext(b)
			tail = b
		}
	}
	return head
}

func readAll(t *testing.T, s *Stream) []byte {
	t.Helper()
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek(0): %v", err)
	}
	got := make([]byte, s.Len())
	if _, err := io.ReadFull(s, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	return got
}

func TestInjectIntoEmptyStream(t *testing.T) {
	s := New(Options{BlockSize: 4})
	chain := chainOf(t, []byte{1, 2, 3})
	if err := s.InjectBufferAtCurrentPosition(chain, false, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Len() != 3 || s.Position() != 3 {
		t.Fatalf("len=%d pos=%d, want 3,3", s.Len(), s.Position())
	}
	if got := readAll(t, s); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("content = %v, want [1 2 3]", got)
	}
}

func TestInjectAppendAtEnd(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{1, 2, 3})
	s.Seek(3, io.SeekStart)
	chain := chainOf(t, []byte{4, 5})
	if err := s.InjectBufferAtCurrentPosition(chain, false, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Len() != 5 || s.Position() != 5 {
		t.Fatalf("len=%d pos=%d, want 5,5", s.Len(), s.Position())
	}
	if got := readAll(t, s); !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("content = %v, want [1 2 3 4 5]", got)
	}
}

// TestSpliceOverwriteAtPosition3 covers the end-to-end "splice overwrite"
// scenario: a 6-byte stream with block size 4, writing [0xAA,0xBB,0xCC] at
// position 3 in overwrite mode, leaving length unchanged.
func TestSpliceOverwriteAtPosition3(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3, 4, 5})
	s.Seek(3, io.SeekStart)

	chain := chainOf(t, []byte{0xAA, 0xBB, 0xCC})
	if err := s.InjectBufferAtCurrentPosition(chain, true, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Len() != 6 {
		t.Fatalf("Len() = %d, want 6 (overwrite must not grow the stream)", s.Len())
	}
	if s.Position() != 6 {
		t.Fatalf("Position() = %d, want 6", s.Position())
	}
	want := []byte{0, 1, 2, 0xAA, 0xBB, 0xCC}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

// TestSpliceOverwritePastEndGrowsStream covers overwrite where the injected
// chain extends beyond the old length.
func TestSpliceOverwritePastEndGrowsStream(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3})
	s.Seek(2, io.SeekStart)

	chain := chainOf(t, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	if err := s.InjectBufferAtCurrentPosition(chain, true, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", s.Len())
	}
	want := []byte{0, 1, 0xAA, 0xBB, 0xCC, 0xDD}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

// TestSpliceInsertCrossingBlockBoundary covers the end-to-end "splice
// insert crossing a block boundary" scenario with block size 4.
func TestSpliceInsertCrossingBlockBoundary(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7}) // two full 4-byte blocks
	s.Seek(3, io.SeekStart)                 // mid first block

	chain := chainOf(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	if err := s.InjectBufferAtCurrentPosition(chain, false, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Len() != 13 {
		t.Fatalf("Len() = %d, want 13", s.Len())
	}
	if s.Position() != 8 {
		t.Fatalf("Position() = %d, want 8", s.Position())
	}
	want := []byte{0, 1, 2, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 3, 4, 5, 6, 7}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

func TestInjectAtBlockBoundaryInsert(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	s.Seek(4, io.SeekStart) // exactly at second block's start

	chain := chainOf(t, []byte{0xAA, 0xBB})
	if err := s.InjectBufferAtCurrentPosition(chain, false, false); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Position() != 4 {
		t.Fatalf("Position() = %d, want 4 (advancePosition=false)", s.Position())
	}
	want := []byte{0, 1, 2, 3, 0xAA, 0xBB, 4, 5, 6, 7}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

// TestScenarioSpliceOverwrite is spec.md §8 scenario 4 verbatim: a 10-byte
// stream 0..9, seek to 3, overwrite with [0xAA,0xBB,0xCC], advance=true.
func TestScenarioSpliceOverwrite(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	s.Seek(3, io.SeekStart)

	chain := chainOf(t, []byte{0xAA, 0xBB, 0xCC})
	if err := s.InjectBufferAtCurrentPosition(chain, true, true); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Position() != 6 {
		t.Errorf("Position() = %d, want 6", s.Position())
	}
	if s.Len() != 10 {
		t.Errorf("Len() = %d, want 10", s.Len())
	}
	want := []byte{0, 1, 2, 0xAA, 0xBB, 0xCC, 6, 7, 8, 9}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

// TestScenarioSpliceInsertCrossingBlockBoundary is spec.md §8 scenario 5
// verbatim: block size 4, stream 0..7, seek to 3, insert
// [0xAA,0xBB,0xCC,0xDD,0xEE] with advance=false.
func TestScenarioSpliceInsertCrossingBlockBoundary(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	s.Seek(3, io.SeekStart)

	chain := chainOf(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	if err := s.InjectBufferAtCurrentPosition(chain, false, false); err != nil {
		t.Fatalf("InjectBufferAtCurrentPosition: %v", err)
	}
	if s.Position() != 3 {
		t.Errorf("Position() = %d, want 3", s.Position())
	}
	if s.Len() != 13 {
		t.Errorf("Len() = %d, want 13", s.Len())
	}
	want := []byte{0, 1, 2, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 3, 4, 5, 6, 7}
	if got := readAll(t, s); !bytes.Equal(got, want) {
		t.Errorf("content = %v, want %v", got, want)
	}
}

// TestScenarioReleaseOnRead is spec.md §8 scenario 6 verbatim: block size
// 3, write 9 bytes, enable release-on-read, read 4 bytes.
func TestScenarioReleaseOnRead(t *testing.T) {
	s := New(Options{BlockSize: 3})
	s.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8})
	s.Seek(0, io.SeekStart)
	s.releaseOnRead = true

	buf := make([]byte, 4)
	n, err := s.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Read = %d, %v, want 4, nil", n, err)
	}
	blocks := 0
	for b := s.head; b != nil; b = b.Next() {
		blocks++
	}
	if blocks != 2 {
		t.Errorf("remaining blocks = %d, want 2", blocks)
	}
	if s.firstBlockOffset != 3 {
		t.Errorf("firstBlockOffset = %d, want 3", s.firstBlockOffset)
	}
	if s.Position() != 4 {
		t.Errorf("Position() = %d, want 4", s.Position())
	}
	if s.Len() != 9 {
		t.Errorf("Len() = %d, want 9", s.Len())
	}
}

func TestInjectNilChainIsError(t *testing.T) {
	s := New(Options{BlockSize: 4})
	if err := s.InjectBufferAtCurrentPosition(nil, false, true); err == nil {
		t.Fatal("InjectBufferAtCurrentPosition(nil, ...): want error, got nil")
	}
}
