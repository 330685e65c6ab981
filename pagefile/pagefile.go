// Package pagefile implements the fixed-size-page backing-file abstraction:
// create/open/close/destroy a named file and read/write it in PageSize
// chunks, tracking a current page position per open handle.
package pagefile

import (
	"io"
	"os"

	"github.com/ferrolabs/ferrodb/errs"
	"github.com/sirupsen/logrus"
)

// PageSize is the fixed page size in bytes. It is a compile-time constant,
// not configurable at runtime (spec.md §6).
const PageSize = 4096

// NoPage is the sentinel for "no page" used by callers that track an
// optional page number (e.g. an empty buffer-pool frame).
const NoPage = -1

var log = logrus.WithField("component", "pagefile")

// Handle is a view onto one open page file: its name, the total number of
// pages it currently holds, and the 0-based current page position used by
// the ReadNext/ReadPrevious/ReadCurrent/WriteCurrent family.
type Handle struct {
	name        string
	file        *os.File
	totalPages  int
	currentPage int
}

// Name returns the handle's backing file name.
func (h *Handle) Name() string { return h.name }

// TotalPages returns the number of PageSize pages currently on disk.
func (h *Handle) TotalPages() int { return h.totalPages }

// CurrentPage returns the 0-based current page position.
func (h *Handle) CurrentPage() int { return h.currentPage }

func zeroPage() []byte { return make([]byte, PageSize) }

// Create creates a new file at name, zero-fills exactly one page, and
// leaves it closed. A partially written file is removed before returning
// an error.
func Create(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return errs.Wrap(errs.CreateFailed, err, "create page file")
	}
	if _, err := f.Write(zeroPage()); err != nil {
		f.Close()
		os.Remove(name)
		return errs.Wrap(errs.CreateFailed, err, "write initial page")
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return errs.Wrap(errs.CreateFailed, err, "close after create")
	}
	log.WithField("name", name).Debug("created page file")
	return nil
}

// Open opens name for read/write access and populates a Handle with the
// current page count and a current position of 0.
func Open(name string) (*Handle, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.FileNotFound, err, "open page file")
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.NumBytesFailed, err, "determine page file size")
	}
	total := int((size + PageSize - 1) / PageSize)
	return &Handle{name: name, file: f, totalPages: total, currentPage: 0}, nil
}

// Close releases the handle's underlying file descriptor. Using the handle
// afterwards is undefined.
func (h *Handle) Close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	if err != nil {
		return errs.Wrap(errs.ReadFailed, err, "close page file")
	}
	return nil
}

// Destroy removes the named backing file.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		return errs.Wrap(errs.FileNotFound, err, "destroy page file")
	}
	return nil
}

func (h *Handle) checkExisting(pageNum int) error {
	if pageNum < 0 || pageNum >= h.totalPages {
		return errs.Newf(errs.NonExistingPage, "page %d out of [0,%d)", pageNum, h.totalPages)
	}
	return nil
}

// Read reads page pageNum into buf, which must be PageSize bytes. On
// success it updates CurrentPage to pageNum.
func (h *Handle) Read(pageNum int, buf []byte) error {
	if err := h.checkExisting(pageNum); err != nil {
		return err
	}
	off := int64(pageNum) * PageSize
	if _, err := h.file.Seek(off, io.SeekStart); err != nil {
		return errs.Wrap(errs.SeekFailed, err, "seek for read")
	}
	if _, err := io.ReadFull(h.file, buf[:PageSize]); err != nil {
		return errs.Wrap(errs.ReadFailed, err, "read page")
	}
	h.currentPage = pageNum
	return nil
}

// ReadFirst reads page 0.
func (h *Handle) ReadFirst(buf []byte) error { return h.Read(0, buf) }

// ReadLast reads the final page.
func (h *Handle) ReadLast(buf []byte) error { return h.Read(h.totalPages-1, buf) }

// ReadCurrent re-reads the page at CurrentPage.
func (h *Handle) ReadCurrent(buf []byte) error { return h.Read(h.currentPage, buf) }

// ReadNext reads the page after CurrentPage. Requires CurrentPage <=
// TotalPages-2.
func (h *Handle) ReadNext(buf []byte) error {
	if h.currentPage > h.totalPages-2 {
		return errs.New(errs.NonExistingPage, "no next page")
	}
	return h.Read(h.currentPage+1, buf)
}

// ReadPrevious reads the page before CurrentPage. Requires CurrentPage >= 1.
func (h *Handle) ReadPrevious(buf []byte) error {
	if h.currentPage < 1 {
		return errs.New(errs.NonExistingPage, "no previous page")
	}
	return h.Read(h.currentPage-1, buf)
}

// EnsureCapacity guarantees the file holds at least n pages, appending
// zero-filled pages in one contiguous write if it does not.
func (h *Handle) EnsureCapacity(n int) error {
	if h.totalPages >= n {
		return nil
	}
	grow := n - h.totalPages
	buf := make([]byte, grow*PageSize)
	off := int64(h.totalPages) * PageSize
	if _, err := h.file.WriteAt(buf, off); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "ensure capacity")
	}
	h.totalPages = n
	log.WithField("name", h.name).WithField("totalPages", n).Debug("extended page file capacity")
	return nil
}

// Write ensures the file has at least pageNum+1 pages, writes buf at that
// page, and updates CurrentPage to pageNum.
func (h *Handle) Write(pageNum int, buf []byte) error {
	if err := h.EnsureCapacity(pageNum + 1); err != nil {
		return err
	}
	off := int64(pageNum) * PageSize
	n, err := h.file.WriteAt(buf[:PageSize], off)
	if err != nil {
		return errs.Wrap(errs.WriteFailed, err, "write page")
	}
	if n != PageSize {
		return errs.New(errs.WriteFailed, "short write")
	}
	h.currentPage = pageNum
	return nil
}

// WriteCurrent writes buf to CurrentPage. Fails if CurrentPage does not
// name an existing page.
func (h *Handle) WriteCurrent(buf []byte) error {
	if err := h.checkExisting(h.currentPage); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "write current: invalid position")
	}
	return h.Write(h.currentPage, buf)
}

// AppendEmptyBlock appends one zero-filled page and increments TotalPages.
func (h *Handle) AppendEmptyBlock() error {
	off := int64(h.totalPages) * PageSize
	n, err := h.file.WriteAt(zeroPage(), off)
	if err != nil {
		return errs.Wrap(errs.WriteFailed, err, "append empty block")
	}
	if n != PageSize {
		return errs.New(errs.WriteFailed, "short write on append")
	}
	h.totalPages++
	return nil
}
