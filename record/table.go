// Package record implements the on-disk table format: a header page
// carrying the schema, a chain of page-metadata pages tracking each data
// page's used-slot count, and data pages of fixed-size slots. Records are
// addressed by (page, slot).
package record

import (
	"encoding/binary"

	"github.com/ferrolabs/ferrodb/bufferpool"
	"github.com/ferrolabs/ferrodb/errs"
	"github.com/ferrolabs/ferrodb/pagefile"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "record")

// DefaultSlotSize is the slot width used by CreateTable, chosen so that
// PageSize/DefaultSlotSize is a whole number of slots per page.
const DefaultSlotSize = 256

const headerIntBytes = 16 // meta_size, slots_per_page, slot_size, num_tuples
const entrySize = 8       // (data_page_number int32, free_count int32)

// entriesPerMetaPage is how many (page, count) pairs fit on one
// page-metadata page; the last one is reserved for the forward pointer.
const entriesPerMetaPage = pagefile.PageSize / entrySize
const usableEntriesPerMetaPage = entriesPerMetaPage - 1

// RID addresses a record by data page number and slot index within that
// page.
type RID struct {
	Page int
	Slot int
}

// Table is an open table: its buffer pool, schema, and the page layout
// constants read back from its header.
type Table struct {
	name         string
	pool         *bufferpool.Pool
	schema       *Schema
	metaSize     int
	slotsPerPage int
	slotSize     int
	firstMeta    int
}

// Schema returns the table's schema.
func (t *Table) Schema() *Schema { return t.schema }

func metaSizeFor(schemaLen int) int {
	cap0 := pagefile.PageSize - headerIntBytes
	if schemaLen <= cap0 {
		return 1
	}
	remaining := schemaLen - cap0
	extra := (remaining + pagefile.PageSize - 1) / pagefile.PageSize
	return 1 + extra
}

// CreateTable lays down a new table file: the header page (with schema
// serialized starting at byte 16, continuing onto further pages if
// needed), followed by one initial, all-empty page-metadata page.
func CreateTable(name string, schema *Schema) error {
	if err := pagefile.Create(name); err != nil {
		return err
	}
	h, err := pagefile.Open(name)
	if err != nil {
		return err
	}
	defer h.Close()

	schemaBytes := []byte(schema.Serialize())
	metaSize := metaSizeFor(len(schemaBytes))
	slotSize := DefaultSlotSize
	slotsPerPage := pagefile.PageSize / slotSize

	if err := h.EnsureCapacity(metaSize); err != nil {
		return err
	}

	page0 := make([]byte, pagefile.PageSize)
	binary.LittleEndian.PutUint32(page0[0:4], uint32(metaSize))
	binary.LittleEndian.PutUint32(page0[4:8], uint32(slotsPerPage))
	binary.LittleEndian.PutUint32(page0[8:12], uint32(slotSize))
	binary.LittleEndian.PutUint32(page0[12:16], uint32(0))

	cap0 := pagefile.PageSize - headerIntBytes
	n := len(schemaBytes)
	first := n
	if first > cap0 {
		first = cap0
	}
	copy(page0[headerIntBytes:headerIntBytes+first], schemaBytes[:first])
	if err := h.Write(0, page0); err != nil {
		return err
	}

	off := first
	for pg := 1; pg < metaSize; pg++ {
		buf := make([]byte, pagefile.PageSize)
		end := off + pagefile.PageSize
		if end > n {
			end = n
		}
		copy(buf, schemaBytes[off:end])
		if err := h.Write(pg, buf); err != nil {
			return err
		}
		off = end
	}

	// one initial page-metadata page, all entries unused, no next page.
	meta := make([]byte, pagefile.PageSize)
	for i := 0; i < entriesPerMetaPage; i++ {
		writeEntry(meta, i, -1, -1)
	}
	if err := h.Write(metaSize, meta); err != nil {
		return err
	}
	log.WithField("name", name).WithField("metaSize", metaSize).Debug("created table")
	return nil
}

func writeEntry(buf []byte, idx int, pageNum, count int32) {
	off := idx * entrySize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(pageNum))
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(count))
}

func readEntry(buf []byte, idx int) (pageNum, count int32) {
	off := idx * entrySize
	pageNum = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
	count = int32(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	return
}

// OpenTable opens the underlying page file through a dedicated 10-frame
// LRU buffer pool and reconstructs the schema from the header.
func OpenTable(name string) (*Table, error) {
	pool, err := bufferpool.Init(name, 10, bufferpool.LRU)
	if err != nil {
		return nil, err
	}

	h0, err := pool.PinPage(0)
	if err != nil {
		return nil, err
	}
	metaSize := int(int32(binary.LittleEndian.Uint32(h0.Data[0:4])))
	slotsPerPage := int(int32(binary.LittleEndian.Uint32(h0.Data[4:8])))
	slotSize := int(int32(binary.LittleEndian.Uint32(h0.Data[8:12])))

	cap0 := pagefile.PageSize - headerIntBytes
	schemaBuf := make([]byte, 0, cap0)
	schemaBuf = append(schemaBuf, h0.Data[headerIntBytes:]...)
	if err := pool.UnpinPage(0); err != nil {
		return nil, err
	}

	for pg := 1; pg < metaSize; pg++ {
		hp, err := pool.PinPage(pg)
		if err != nil {
			return nil, err
		}
		schemaBuf = append(schemaBuf, hp.Data...)
		if err := pool.UnpinPage(pg); err != nil {
			return nil, err
		}
	}

	end := len(schemaBuf)
	for i, b := range schemaBuf {
		if b == 0 {
			end = i
			break
		}
	}
	schema, err := ParseSchema(string(schemaBuf[:end]))
	if err != nil {
		return nil, err
	}

	return &Table{
		name:         name,
		pool:         pool,
		schema:       schema,
		metaSize:     metaSize,
		slotsPerPage: slotsPerPage,
		slotSize:     slotSize,
		firstMeta:    metaSize,
	}, nil
}

// CloseTable flushes and shuts down the table's buffer pool.
func CloseTable(t *Table) error {
	return t.pool.Shutdown()
}

// DeleteTable destroys the table's backing page file.
func DeleteTable(name string) error {
	return pagefile.Destroy(name)
}

// SyncHeader forces the header page to disk immediately, without waiting
// for CloseTable's shutdown-time flush. Callers that want the tuple count
// durable after a batch of inserts (without unpinning/closing the table)
// use this instead of ForceFlushPool's whole-pool sweep.
func SyncHeader(t *Table) error {
	return t.pool.ForcePage(0)
}

// GetNumTuples reads the live-record counter from the header.
func GetNumTuples(t *Table) (int, error) {
	h, err := t.pool.PinPage(0)
	if err != nil {
		return 0, err
	}
	n := int(int32(binary.LittleEndian.Uint32(h.Data[12:16])))
	if err := t.pool.UnpinPage(0); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *Table) addNumTuples(delta int32) error {
	h, err := t.pool.PinPage(0)
	if err != nil {
		return err
	}
	cur := int32(binary.LittleEndian.Uint32(h.Data[12:16]))
	binary.LittleEndian.PutUint32(h.Data[12:16], uint32(cur+delta))
	if err := t.pool.MarkDirty(0); err != nil {
		return err
	}
	return t.pool.UnpinPage(0)
}

// metaForwardEntryIdx is the index, within a metadata page, of the entry
// whose page-number field holds the forward pointer.
const metaForwardEntryIdx = entriesPerMetaPage - 1

func (t *Table) metaForward(metaPage int) (int, error) {
	h, err := t.pool.PinPage(metaPage)
	if err != nil {
		return 0, err
	}
	fwd, _ := readEntry(h.Data, metaForwardEntryIdx)
	if err := t.pool.UnpinPage(metaPage); err != nil {
		return 0, err
	}
	return int(fwd), nil
}

// addMetaPage appends a fresh, all-unused page-metadata page to the file
// and links it as metaPage's forward pointer.
func (t *Table) addMetaPage(metaPage int) (int, error) {
	newPageNum, err := t.growFile()
	if err != nil {
		return 0, err
	}

	nh, err := t.pool.PinPage(newPageNum)
	if err != nil {
		return 0, err
	}
	for i := 0; i < entriesPerMetaPage; i++ {
		writeEntry(nh.Data, i, -1, -1)
	}
	if err := t.pool.MarkDirty(newPageNum); err != nil {
		return 0, err
	}
	if err := t.pool.UnpinPage(newPageNum); err != nil {
		return 0, err
	}

	mh, err := t.pool.PinPage(metaPage)
	if err != nil {
		return 0, err
	}
	writeEntry(mh.Data, metaForwardEntryIdx, int32(newPageNum), -1)
	if err := t.pool.MarkDirty(metaPage); err != nil {
		return 0, err
	}
	if err := t.pool.UnpinPage(metaPage); err != nil {
		return 0, err
	}
	return newPageNum, nil
}

// growFile extends the table's backing file by one page and returns its
// page number.
func (t *Table) growFile() (int, error) {
	return t.pool.AppendPage()
}

// allocDataPage appends a fresh, empty (all-dead) data page and returns
// its page number.
func (t *Table) allocDataPage() (int, error) {
	pg, err := t.growFile()
	if err != nil {
		return 0, err
	}
	h, err := t.pool.PinPage(pg)
	if err != nil {
		return 0, err
	}
	for i := range h.Data {
		h.Data[i] = 0
	}
	if err := t.pool.MarkDirty(pg); err != nil {
		return 0, err
	}
	if err := t.pool.UnpinPage(pg); err != nil {
		return 0, err
	}
	return pg, nil
}

// InsertRecord walks the page-metadata chain for the first data page with
// room, growing the chain and allocating a new data page if none has any,
// and writes rec into the first free slot on that page.
func InsertRecord(t *Table, rec *Record) (RID, error) {
	metaPage := t.firstMeta
	for {
		h, err := t.pool.PinPage(metaPage)
		if err != nil {
			return RID{}, err
		}

		targetEntry := -1
		targetDataPage := -1
		for i := 0; i < usableEntriesPerMetaPage; i++ {
			pageNum, count := readEntry(h.Data, i)
			if count != -1 && int(count) != t.slotsPerPage {
				targetEntry = i
				targetDataPage = int(pageNum)
				break
			}
		}

		if targetEntry < 0 {
			// no page with room referenced yet; look for an unused entry to
			// register a brand new data page in.
			for i := 0; i < usableEntriesPerMetaPage; i++ {
				_, count := readEntry(h.Data, i)
				if count == -1 {
					targetEntry = i
					break
				}
			}
		}

		if targetEntry < 0 {
			// this metadata page's entry array is full; follow or create
			// the next one.
			fwd, _ := readEntry(h.Data, metaForwardEntryIdx)
			if err := t.pool.UnpinPage(metaPage); err != nil {
				return RID{}, err
			}
			if fwd == -1 {
				next, err := t.addMetaPage(metaPage)
				if err != nil {
					return RID{}, err
				}
				metaPage = next
			} else {
				metaPage = int(fwd)
			}
			continue
		}

		if targetDataPage < 0 {
			// register a freshly allocated data page in this entry.
			newPage, err := t.allocDataPage()
			if err != nil {
				t.pool.UnpinPage(metaPage)
				return RID{}, err
			}
			writeEntry(h.Data, targetEntry, int32(newPage), 0)
			if err := t.pool.MarkDirty(metaPage); err != nil {
				return RID{}, err
			}
			targetDataPage = newPage
		}

		slot, err := t.firstFreeSlot(targetDataPage)
		if err != nil {
			t.pool.UnpinPage(metaPage)
			return RID{}, err
		}

		if err := t.writeSlot(targetDataPage, slot, rec); err != nil {
			t.pool.UnpinPage(metaPage)
			return RID{}, err
		}

		_, count := readEntry(h.Data, targetEntry)
		writeEntry(h.Data, targetEntry, int32(targetDataPage), count+1)
		if err := t.pool.MarkDirty(metaPage); err != nil {
			return RID{}, err
		}
		if err := t.pool.UnpinPage(metaPage); err != nil {
			return RID{}, err
		}

		if err := t.addNumTuples(1); err != nil {
			return RID{}, err
		}
		return RID{Page: targetDataPage, Slot: slot}, nil
	}
}

func (t *Table) firstFreeSlot(dataPage int) (int, error) {
	h, err := t.pool.PinPage(dataPage)
	if err != nil {
		return 0, err
	}
	defer t.pool.UnpinPage(dataPage)
	for s := 0; s < t.slotsPerPage; s++ {
		if h.Data[s*t.slotSize] == 0 {
			return s, nil
		}
	}
	return 0, errs.New(errs.InvalidArg, "insert record: no free slot despite metadata count")
}

func (t *Table) writeSlot(dataPage, slot int, rec *Record) error {
	h, err := t.pool.PinPage(dataPage)
	if err != nil {
		return err
	}
	off := slot * t.slotSize
	h.Data[off] = 1
	copy(h.Data[off+1:off+t.slotSize], rec.Data)
	if err := t.pool.MarkDirty(dataPage); err != nil {
		t.pool.UnpinPage(dataPage)
		return err
	}
	return t.pool.UnpinPage(dataPage)
}

// findMetaEntry locates the (metaPage, entryIdx) pair whose data page
// number is dataPage, walking the chain from the start.
func (t *Table) findMetaEntry(dataPage int) (metaPage, entryIdx int, err error) {
	mp := t.firstMeta
	for mp != -1 {
		h, err := t.pool.PinPage(mp)
		if err != nil {
			return 0, 0, err
		}
		for i := 0; i < usableEntriesPerMetaPage; i++ {
			pageNum, count := readEntry(h.Data, i)
			if count != -1 && int(pageNum) == dataPage {
				if err := t.pool.UnpinPage(mp); err != nil {
					return 0, 0, err
				}
				return mp, i, nil
			}
		}
		fwd, _ := readEntry(h.Data, metaForwardEntryIdx)
		if err := t.pool.UnpinPage(mp); err != nil {
			return 0, 0, err
		}
		mp = int(fwd)
	}
	return 0, 0, errs.Newf(errs.InvalidArg, "no metadata entry for data page %d", dataPage)
}

// GetRecord reads the record at rid; RECORD_NOT_EXIST if its slot is dead.
func GetRecord(t *Table, rid RID) (*Record, error) {
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return nil, err
	}
	defer t.pool.UnpinPage(rid.Page)

	off := rid.Slot * t.slotSize
	if h.Data[off] == 0 {
		return nil, errs.Newf(errs.RecordNotExist, "rid (%d,%d)", rid.Page, rid.Slot)
	}
	data := make([]byte, t.slotSize-1)
	copy(data, h.Data[off+1:off+t.slotSize])
	return &Record{Data: data[:t.schema.RecordSize()]}, nil
}

// UpdateRecord overwrites the record bytes at rid in place.
func UpdateRecord(t *Table, rid RID, rec *Record) error {
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return err
	}
	off := rid.Slot * t.slotSize
	if h.Data[off] == 0 {
		t.pool.UnpinPage(rid.Page)
		return errs.Newf(errs.RecordNotExist, "rid (%d,%d)", rid.Page, rid.Slot)
	}
	copy(h.Data[off+1:off+t.slotSize], rec.Data)
	if err := t.pool.MarkDirty(rid.Page); err != nil {
		t.pool.UnpinPage(rid.Page)
		return err
	}
	return t.pool.UnpinPage(rid.Page)
}

// DeleteRecord clears rid's live flag and record bytes, decrements the
// header tuple count, and decrements the owning metadata entry's used
// count (spec.md §9's required deviation from the source, which never
// decremented on delete).
func DeleteRecord(t *Table, rid RID) error {
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return err
	}
	off := rid.Slot * t.slotSize
	if h.Data[off] == 0 {
		t.pool.UnpinPage(rid.Page)
		return errs.Newf(errs.RecordNotExist, "rid (%d,%d)", rid.Page, rid.Slot)
	}
	for i := off; i < off+t.slotSize; i++ {
		h.Data[i] = 0
	}
	if err := t.pool.MarkDirty(rid.Page); err != nil {
		t.pool.UnpinPage(rid.Page)
		return err
	}
	if err := t.pool.UnpinPage(rid.Page); err != nil {
		return err
	}

	metaPage, entryIdx, err := t.findMetaEntry(rid.Page)
	if err != nil {
		return err
	}
	mh, err := t.pool.PinPage(metaPage)
	if err != nil {
		return err
	}
	pageNum, count := readEntry(mh.Data, entryIdx)
	writeEntry(mh.Data, entryIdx, pageNum, count-1)
	if err := t.pool.MarkDirty(metaPage); err != nil {
		t.pool.UnpinPage(metaPage)
		return err
	}
	if err := t.pool.UnpinPage(metaPage); err != nil {
		return err
	}

	return t.addNumTuples(-1)
}

// Scan is a logical cursor over the metadata-entry/slot space, as
// described by spec.md §9.
type Scan struct {
	table    *Table
	pred     Predicate
	metaPage int
	entryIdx int
	slot     int
}

// StartScan begins a scan of t filtered by pred (use AlwaysTrue for an
// unfiltered scan).
func StartScan(t *Table, pred Predicate) *Scan {
	return &Scan{table: t, pred: pred, metaPage: t.firstMeta, entryIdx: 0, slot: 0}
}

// Next advances the scan and returns the next record whose predicate
// evaluates true, or NoMoreTuples once the chain is exhausted.
func Next(s *Scan) (*Record, RID, error) {
	t := s.table
	for {
		if s.metaPage == -1 {
			return nil, RID{}, errs.New(errs.NoMoreTuples, "scan exhausted")
		}
		h, err := t.pool.PinPage(s.metaPage)
		if err != nil {
			return nil, RID{}, err
		}

		if s.entryIdx >= usableEntriesPerMetaPage {
			fwd, _ := readEntry(h.Data, metaForwardEntryIdx)
			if err := t.pool.UnpinPage(s.metaPage); err != nil {
				return nil, RID{}, err
			}
			s.metaPage = int(fwd)
			s.entryIdx = 0
			s.slot = 0
			continue
		}

		pageNum, count := readEntry(h.Data, s.entryIdx)
		if err := t.pool.UnpinPage(s.metaPage); err != nil {
			return nil, RID{}, err
		}
		if count == -1 {
			s.entryIdx++
			s.slot = 0
			continue
		}

		dh, err := t.pool.PinPage(int(pageNum))
		if err != nil {
			return nil, RID{}, err
		}
		found := -1
		for slot := s.slot; slot < t.slotsPerPage; slot++ {
			off := slot * t.slotSize
			if dh.Data[off] != 0 {
				found = slot
				break
			}
		}
		if found < 0 {
			if err := t.pool.UnpinPage(int(pageNum)); err != nil {
				return nil, RID{}, err
			}
			s.entryIdx++
			s.slot = 0
			continue
		}
		off := found * t.slotSize
		data := make([]byte, t.slotSize-1)
		copy(data, dh.Data[off+1:off+t.slotSize])
		rec := &Record{Data: data[:t.schema.RecordSize()]}
		if err := t.pool.UnpinPage(int(pageNum)); err != nil {
			return nil, RID{}, err
		}
		s.slot = found + 1

		ok, err := s.pred.Eval(t.schema, rec)
		if err != nil {
			return nil, RID{}, err
		}
		if ok {
			return rec, RID{Page: int(pageNum), Slot: found}, nil
		}
	}
}

// CloseScan releases the scan's state. Scans hold no pinned pages between
// calls to Next, so this is a no-op kept for symmetry with spec.md's API.
func CloseScan(s *Scan) {}
