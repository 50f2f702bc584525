package memstream

import (
	"bytes"
	"io"
	"testing"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/memblock"
)

func fill(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestWriteThenReadBackFullRoundTrip(t *testing.T) {
	s := New(Options{BlockSize: 4})
	data := fill(37)
	if n, err := s.Write(data); err != nil || n != len(data) {
		t.Fatalf("Write = %d, %v, want %d, nil", n, err, len(data))
	}
	for p := 0; p <= len(data); p++ {
		if _, err := s.Seek(int64(p), io.SeekStart); err != nil {
			t.Fatalf("Seek(%d): %v", p, err)
		}
		got := make([]byte, len(data)-p)
		n, err := io.ReadFull(s, got)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			t.Fatalf("ReadFull at %d: %v", p, err)
		}
		if n != len(got) {
			t.Fatalf("ReadFull at %d: got %d bytes, want %d", p, n, len(got))
		}
		if !bytes.Equal(got, data[p:]) {
			t.Fatalf("Seek(%d); Read = %v, want %v", p, got, data[p:])
		}
	}
}

func TestSetLengthGrowZeroesExposedBytes(t *testing.T) {
	s := New(Options{BlockSize: 8})
	s.Write([]byte("hello"))
	if err := s.SetLength(3); err != nil {
		t.Fatalf("SetLength(3): %v", err)
	}
	if err := s.SetLength(6); err != nil {
		t.Fatalf("SetLength(6): %v", err)
	}
	s.Seek(0, io.SeekStart)
	got := make([]byte, 6)
	if _, err := io.ReadFull(s, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	want := []byte{'h', 'e', 'l', 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("after shrink-then-grow, got %v, want %v", got, want)
	}
}

func TestSetLengthZeroReleasesChain(t *testing.T) {
	pool := memblock.NewPool(4)
	s := New(Options{BlockSize: 4, Pool: pool})
	s.Write(fill(20))
	if live, _ := pool.Stats(); live == 0 {
		t.Fatal("expected live blocks after write")
	}
	if err := s.SetLength(0); err != nil {
		t.Fatalf("SetLength(0): %v", err)
	}
	if live, _ := pool.Stats(); live != 0 {
		t.Errorf("live blocks after SetLength(0) = %d, want 0", live)
	}
	if s.Len() != 0 || s.Position() != 0 {
		t.Errorf("after SetLength(0): len=%d pos=%d, want 0,0", s.Len(), s.Position())
	}
}

func TestSeekUnseekableReleaseOnRead(t *testing.T) {
	s := New(Options{BlockSize: 4, ReleaseOnRead: true})
	if _, err := s.Seek(0, io.SeekStart); err == nil {
		t.Fatal("Seek on ReleaseOnRead stream: want error, got nil")
	} else if !cfgerr.Is(err, cfgerr.NotSupported) {
		t.Errorf("Seek error kind = %v, want NotSupported", cfgerr.KindOf(err))
	}
}

func TestReleaseOnReadDropsHeadBlocks(t *testing.T) {
	pool := memblock.NewPool(3)
	s := New(Options{BlockSize: 3, Pool: pool})
	s.Write(fill(9)) // 3 blocks of 3 bytes
	if live, _ := pool.Stats(); live != 3 {
		t.Fatalf("live after write = %d, want 3", live)
	}
	s.Seek(0, io.SeekStart)
	s.releaseOnRead = true

	buf := make([]byte, 4)
	n, err := s.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Read = %d, %v, want 4, nil", n, err)
	}
	if live, _ := pool.Stats(); live != 2 {
		t.Errorf("live after reading 4 bytes = %d, want 2", live)
	}
	if s.firstBlockOffset != 3 {
		t.Errorf("firstBlockOffset = %d, want 3", s.firstBlockOffset)
	}
	if s.Position() != 4 || s.Len() != 9 {
		t.Errorf("position=%d len=%d, want 4,9", s.Position(), s.Len())
	}
}

func TestReadByteAndWriteByteEOF(t *testing.T) {
	s := New(Options{BlockSize: 4})
	if err := s.WriteByte('A'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	s.Seek(0, io.SeekStart)
	b, err := s.ReadByte()
	if err != nil || b != 'A' {
		t.Fatalf("ReadByte = %v, %v, want 'A', nil", b, err)
	}
	if _, err := s.ReadByte(); err != io.EOF {
		t.Errorf("ReadByte at EOF = %v, want io.EOF", err)
	}
}

func TestAttachDetachBuffer(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write(fill(10))

	chain := s.DetachBuffer()
	if s.Len() != 0 || s.Position() != 0 {
		t.Fatalf("after DetachBuffer: len=%d pos=%d, want 0,0", s.Len(), s.Position())
	}
	if got := chain.ChainLength(); got != 10 {
		t.Fatalf("detached chain length = %d, want 10", got)
	}

	if err := s.AttachBuffer(chain); err != nil {
		t.Fatalf("AttachBuffer: %v", err)
	}
	if s.Len() != 10 {
		t.Fatalf("after AttachBuffer: len = %d, want 10", s.Len())
	}
	got := make([]byte, 10)
	io.ReadFull(s, got)
	if !bytes.Equal(got, fill(10)) {
		t.Errorf("after AttachBuffer round trip: got %v, want %v", got, fill(10))
	}
}

func TestAttachBufferRejectsBlockWithPredecessor(t *testing.T) {
	s := New(Options{BlockSize: 4})
	head := memblock.New(4)
	tail := memblock.New(4)
	head.SetNext(tail)

	err := s.AttachBuffer(tail)
	if !cfgerr.Is(err, cfgerr.NotSupported) {
		t.Fatalf("AttachBuffer(block with predecessor) = %v, want cfgerr.NotSupported", err)
	}
}

func TestCopyTo(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write(fill(17))
	s.Seek(0, io.SeekStart)
	var buf bytes.Buffer
	n, err := s.CopyTo(&buf, 5)
	if err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if n != 17 || !bytes.Equal(buf.Bytes(), fill(17)) {
		t.Errorf("CopyTo copied %d bytes %v, want 17 bytes %v", n, buf.Bytes(), fill(17))
	}
}

func TestReadFromSplicesAtPosition(t *testing.T) {
	s := New(Options{BlockSize: 4})
	s.Write(fill(6))
	s.Seek(3, io.SeekStart)

	src := bytes.NewReader([]byte{0xAA, 0xBB, 0xCC})
	n, err := s.ReadFrom(src)
	if err != nil || n != 3 {
		t.Fatalf("ReadFrom = %d, %v, want 3, nil", n, err)
	}
	if s.Len() != 9 || s.Position() != 6 {
		t.Fatalf("after ReadFrom: len=%d pos=%d, want 9,6", s.Len(), s.Position())
	}
	s.Seek(0, io.SeekStart)
	got := make([]byte, 9)
	io.ReadFull(s, got)
	want := append(append([]byte{}, fill(6)[:3]...), 0xAA, 0xBB, 0xCC)
	want = append(want, fill(6)[3:]...)
	if !bytes.Equal(got, want) {
		t.Errorf("ReadFrom content = %v, want %v", got, want)
	}
}
