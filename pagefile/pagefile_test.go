package pagefile

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ferrolabs/ferrodb/errs"
)

// E1: create/read-back.
func TestCreateReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	if h.TotalPages() != 1 {
		t.Fatalf("total pages = %d, want 1", h.TotalPages())
	}
	buf := make([]byte, PageSize)
	if err := h.Read(0, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf, make([]byte, PageSize)) {
		t.Fatalf("page 0 not all zero")
	}
}

// E2: write extends the file.
func TestWriteExtendsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	x := bytes.Repeat([]byte{0xAB}, PageSize)
	if err := h.Write(2, x); err != nil {
		t.Fatalf("write: %v", err)
	}
	if h.TotalPages() != 3 {
		t.Fatalf("total pages = %d, want 3", h.TotalPages())
	}
	buf := make([]byte, PageSize)
	for _, p := range []int{0, 1} {
		if err := h.Read(p, buf); err != nil {
			t.Fatalf("read %d: %v", p, err)
		}
		if !bytes.Equal(buf, make([]byte, PageSize)) {
			t.Fatalf("page %d not zero", p)
		}
	}
	if err := h.Read(2, buf); err != nil {
		t.Fatalf("read 2: %v", err)
	}
	if !bytes.Equal(buf, x) {
		t.Fatalf("page 2 mismatch")
	}
}

func TestReadPastEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	buf := make([]byte, PageSize)
	err = h.Read(h.TotalPages(), buf)
	if k, ok := errs.As(err); !ok || k != errs.NonExistingPage {
		t.Fatalf("expected NON_EXISTING_PAGE, got %v", err)
	}
}

func TestReadNextAtLastPageFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	if err := h.AppendEmptyBlock(); err != nil {
		t.Fatalf("append: %v", err)
	}
	buf := make([]byte, PageSize)
	if err := h.Read(h.TotalPages()-1, buf); err != nil {
		t.Fatalf("read last: %v", err)
	}
	err = h.ReadNext(buf)
	if k, ok := errs.As(err); !ok || k != errs.NonExistingPage {
		t.Fatalf("expected NON_EXISTING_PAGE, got %v", err)
	}
}

func TestReadPreviousAtZeroFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	buf := make([]byte, PageSize)
	err = h.ReadPrevious(buf)
	if k, ok := errs.As(err); !ok || k != errs.NonExistingPage {
		t.Fatalf("expected NON_EXISTING_PAGE, got %v", err)
	}
}

func TestEnsureCapacityNoopWhenSufficient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	if err := h.EnsureCapacity(5); err != nil {
		t.Fatalf("ensure capacity: %v", err)
	}
	if h.TotalPages() != 5 {
		t.Fatalf("total pages = %d, want 5", h.TotalPages())
	}
	if err := h.EnsureCapacity(3); err != nil {
		t.Fatalf("ensure capacity (noop): %v", err)
	}
	if h.TotalPages() != 5 {
		t.Fatalf("total pages = %d after no-op EnsureCapacity(3), want still 5", h.TotalPages())
	}
}

func TestWriteCurrentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	x := bytes.Repeat([]byte{0x7F}, PageSize)
	if err := h.WriteCurrent(x); err != nil {
		t.Fatalf("write current: %v", err)
	}
	buf := make([]byte, PageSize)
	if err := h.ReadCurrent(buf); err != nil {
		t.Fatalf("read current: %v", err)
	}
	if !bytes.Equal(buf, x) {
		t.Fatalf("write/read current mismatch")
	}
}

func TestDestroyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.bin")
	if err := Create(path); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Destroy(path); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("open after destroy: expected failure")
	}
}
