// Package bufferpool caches a bounded number of pages of one page file in
// memory and replaces them under a pluggable FIFO or LRU policy.
package bufferpool

import (
	"github.com/ferrolabs/ferrodb/errs"
	"github.com/ferrolabs/ferrodb/pagefile"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "bufferpool")

// Strategy selects how PinPage picks an eviction victim among unpinned
// frames. Both strategies rank candidates by a per-frame recency stamp;
// they differ only in when that stamp is refreshed.
type Strategy int

const (
	// FIFO stamps a frame once, when it is first populated. Re-pinning does
	// not change its eviction eligibility.
	FIFO Strategy = iota
	// LRU refreshes a frame's stamp on every pin.
	LRU
)

func (s Strategy) String() string {
	switch s {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	default:
		return "UNKNOWN"
	}
}

// normalizeThreshold bounds the tick counter: once it exceeds this value
// after a successful eviction, every live stamp (and the tick itself) is
// shifted down by the smallest live stamp.
const normalizeThreshold = 32000

// Frame is one in-memory page slot.
type Frame struct {
	Data     []byte
	PageNum  int
	Dirty    bool
	FixCount int
	stamp    int32
}

// Pool is a fixed-size array of Frames caching pages of a single page file,
// which the Pool opens and owns for its lifetime.
type Pool struct {
	file     *pagefile.Handle
	strategy Strategy
	frames   []*Frame
	index    map[int]int // pageNum -> frame index
	tick     int32
	readIO   int64
	writeIO  int64
}

// Init opens fileName (which must already exist) and allocates n frames
// over it. Each frame starts empty: PageNum = pagefile.NoPage, clean, fix
// count 0.
func Init(fileName string, n int, strategy Strategy) (*Pool, error) {
	if n <= 0 {
		return nil, errs.New(errs.MemAllocFailed, "init buffer pool: non-positive frame count")
	}
	file, err := pagefile.Open(fileName)
	if err != nil {
		return nil, errs.Wrap(errs.FileNotFound, err, "init buffer pool")
	}
	p := &Pool{
		file:     file,
		strategy: strategy,
		frames:   make([]*Frame, n),
		index:    make(map[int]int, n),
	}
	for i := range p.frames {
		p.frames[i] = &Frame{Data: make([]byte, pagefile.PageSize), PageNum: pagefile.NoPage}
	}
	log.WithField("frames", n).WithField("strategy", strategy).Debug("buffer pool initialized")
	return p, nil
}

// NumReadIO returns the cumulative count of physical page reads.
func (p *Pool) NumReadIO() int64 { return p.readIO }

// NumWriteIO returns the cumulative count of physical page writes.
func (p *Pool) NumWriteIO() int64 { return p.writeIO }

// FrameContents returns, for each frame in order, its resident page number
// (pagefile.NoPage if empty).
func (p *Pool) FrameContents() []int {
	out := make([]int, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.PageNum
	}
	return out
}

// DirtyFlags returns each frame's dirty flag, in frame order.
func (p *Pool) DirtyFlags() []bool {
	out := make([]bool, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.Dirty
	}
	return out
}

// FixCounts returns each frame's fix count, in frame order.
func (p *Pool) FixCounts() []int {
	out := make([]int, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.FixCount
	}
	return out
}

// findFrame returns the index of the frame holding pageNum, or -1.
func (p *Pool) findFrame(pageNum int) int {
	if i, ok := p.index[pageNum]; ok {
		return i
	}
	return -1
}

// PageHandle is the view a caller gets back from PinPage: the frame's
// buffer plus a snapshot of its bookkeeping fields. Callers mutate Data in
// place; they must call MarkDirty/ForcePage/UnpinPage through the Pool for
// bookkeeping to stay consistent, not by writing fields here directly.
type PageHandle struct {
	Data     []byte
	PageNum  int
	Dirty    bool
	FixCount int
}

// PinPage fetches pageNum into a frame (reading it from disk if not
// already resident), increments that frame's fix count, and returns a
// PageHandle viewing the frame's buffer.
func (p *Pool) PinPage(pageNum int) (*PageHandle, error) {
	if idx := p.findFrame(pageNum); idx >= 0 {
		f := p.frames[idx]
		f.FixCount++
		if p.strategy == LRU {
			f.stamp = p.nextTick()
		}
		return p.handleFor(idx), nil
	}

	if idx := p.firstEmptyFrame(); idx >= 0 {
		f := p.frames[idx]
		if err := p.file.Read(pageNum, f.Data); err != nil {
			return nil, err
		}
		p.readIO++
		f.PageNum = pageNum
		f.Dirty = false
		f.FixCount = 1
		f.stamp = p.nextTick()
		p.index[pageNum] = idx
		return p.handleFor(idx), nil
	}

	victimIdx, ok := p.chooseVictim()
	if !ok {
		return nil, errs.New(errs.NoFrame, "pin page: all frames pinned")
	}
	victim := p.frames[victimIdx]
	if victim.Dirty {
		if err := p.file.Write(victim.PageNum, victim.Data); err != nil {
			return nil, err
		}
		p.writeIO++
		victim.Dirty = false
	}
	// Read the new page before touching victim's bookkeeping: if this fails
	// (e.g. pageNum doesn't exist), the frame must still hold its old page
	// under its old index entry, not an orphaned PageNum with no index
	// pointing at it.
	oldPageNum := victim.PageNum
	if err := p.file.Read(pageNum, victim.Data); err != nil {
		return nil, err
	}
	p.readIO++
	delete(p.index, oldPageNum)
	victim.PageNum = pageNum
	victim.Dirty = false
	victim.FixCount = 1
	victim.stamp = p.nextTick()
	p.index[pageNum] = victimIdx
	p.maybeNormalize()
	log.WithField("page", pageNum).WithField("frame", victimIdx).Debug("evicted frame for new page")
	return p.handleFor(victimIdx), nil
}

func (p *Pool) handleFor(idx int) *PageHandle {
	f := p.frames[idx]
	return &PageHandle{Data: f.Data, PageNum: f.PageNum, Dirty: f.Dirty, FixCount: f.FixCount}
}

func (p *Pool) firstEmptyFrame() int {
	for i, f := range p.frames {
		if f.PageNum == pagefile.NoPage {
			return i
		}
	}
	return -1
}

// chooseVictim selects, among frames with FixCount == 0, the one with the
// smallest stamp, breaking ties by the smallest frame index.
func (p *Pool) chooseVictim() (int, bool) {
	best := -1
	for i, f := range p.frames {
		if f.FixCount != 0 {
			continue
		}
		if best == -1 || f.stamp < p.frames[best].stamp {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func (p *Pool) nextTick() int32 {
	t := p.tick
	p.tick++
	return t
}

// maybeNormalize keeps stamps and the tick counter bounded: once tick
// exceeds normalizeThreshold after an eviction, every live stamp and the
// tick itself are shifted down by the smallest live stamp.
func (p *Pool) maybeNormalize() {
	if p.tick <= normalizeThreshold {
		return
	}
	min := int32(0)
	first := true
	for _, f := range p.frames {
		if f.PageNum == pagefile.NoPage {
			continue
		}
		if first || f.stamp < min {
			min = f.stamp
			first = false
		}
	}
	if first {
		return
	}
	for _, f := range p.frames {
		if f.PageNum != pagefile.NoPage {
			f.stamp -= min
		}
	}
	p.tick -= min
}

// AppendPage grows the backing file by one zero-filled page and returns
// its page number. The buffer pool has no "append" primitive in spec.md
// (PinPage only ever serves pages that already exist); this is how a
// caller that needs a brand new page makes room for it before pinning.
func (p *Pool) AppendPage() (int, error) {
	if err := p.file.AppendEmptyBlock(); err != nil {
		return 0, err
	}
	return p.file.TotalPages() - 1, nil
}

// MarkDirty sets the dirty flag on the frame holding pageNum.
func (p *Pool) MarkDirty(pageNum int) error {
	idx := p.findFrame(pageNum)
	if idx < 0 {
		return errs.Newf(errs.PageNotFound, "mark dirty: page %d not resident", pageNum)
	}
	p.frames[idx].Dirty = true
	return nil
}

// UnpinPage decrements the fix count of the frame holding pageNum. A page
// that is not resident is a quiet no-op (spec-documented, flagged
// suspicious but kept for compatibility).
func (p *Pool) UnpinPage(pageNum int) error {
	idx := p.findFrame(pageNum)
	if idx < 0 {
		return nil
	}
	if p.frames[idx].FixCount > 0 {
		p.frames[idx].FixCount--
	}
	return nil
}

// ForcePage writes the frame holding pageNum to disk and clears its dirty
// flag. It does not affect fix count.
func (p *Pool) ForcePage(pageNum int) error {
	idx := p.findFrame(pageNum)
	if idx < 0 {
		return errs.Newf(errs.PageNotFound, "force page: page %d not resident", pageNum)
	}
	f := p.frames[idx]
	if err := p.file.Write(f.PageNum, f.Data); err != nil {
		return err
	}
	p.writeIO++
	f.Dirty = false
	return nil
}

// ForceFlushPool writes back every frame with FixCount == 0 and Dirty set,
// clearing each one's dirty flag. The first write failure ends the flush
// and is returned.
func (p *Pool) ForceFlushPool() error {
	for _, f := range p.frames {
		if f.FixCount == 0 && f.Dirty {
			if err := p.file.Write(f.PageNum, f.Data); err != nil {
				return errs.Wrap(errs.ForceFlushFailed, err, "force flush pool")
			}
			p.writeIO++
			f.Dirty = false
		}
	}
	return nil
}

// Shutdown fails with ShutdownFailed if any frame is still pinned;
// otherwise it force-flushes and releases all frame buffers, leaving the
// Pool unusable.
func (p *Pool) Shutdown() error {
	for i, f := range p.frames {
		if f.FixCount > 0 {
			return errs.Newf(errs.ShutdownFailed, "shutdown: frame %d still pinned (page %d)", i, f.PageNum)
		}
	}
	if err := p.ForceFlushPool(); err != nil {
		return err
	}
	if err := p.file.Close(); err != nil {
		return err
	}
	p.frames = nil
	p.index = nil
	return nil
}
