// Package pager mediates between the B+tree and the backing file: it maps
// page numbers to in-memory page buffers, lazily loading from disk, and
// flushes every resident page unconditionally on Close.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// PageSize is the fixed size of every page, including the page-0
	// header. Changing it changes the on-disk format.
	PageSize = 4096

	// DefaultTableMaxPages bounds the pager's resident page table. The
	// spec permits 100-256 in sources; this implementation defaults
	// higher since nothing here evicts mid-session.
	DefaultTableMaxPages = 4096
)

// Page is one resident 4096-byte page buffer, addressable in place.
type Page struct {
	Data [PageSize]byte
}

// Options configures a Pager. The zero value is valid and uses defaults.
type Options struct {
	TableMaxPages int
	Logger        logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.TableMaxPages <= 0 {
		o.TableMaxPages = DefaultTableMaxPages
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Pager owns the backing file handle and a page-number-indexed cache of
// resident page buffers. It performs no eviction: the working set is
// bounded by TableMaxPages and must fit in memory for the session.
type Pager struct {
	file          *os.File
	pages         []*Page // nil entries are non-resident
	fileNumPages  int     // pages known to exist on disk at open time
	tableMaxPages int
	log           logrus.FieldLogger
}

// Open opens path for read+write, creating it empty if absent. It rejects a
// file whose length is not a multiple of PageSize.
func Open(path string, opts Options) (*Pager, error) {
	opts = opts.withDefaults()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "pager: open %q", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "pager: stat %q", path)
	}

	size := fi.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, errors.Errorf("pager: %q length %d is not a multiple of page size %d", path, size, PageSize)
	}
	numPages := int(size / PageSize)

	p := &Pager{
		file:          f,
		pages:         make([]*Page, numPages),
		fileNumPages:  numPages,
		tableMaxPages: opts.TableMaxPages,
		log:           opts.Logger,
	}
	p.log.WithField("pages", numPages).Debug("pager: opened")
	return p, nil
}

// NumPages reports the number of pages currently known to the pager
// (resident or not), i.e. one past the highest allocated page number.
func (p *Pager) NumPages() int {
	return len(p.pages)
}

// GetPage returns the buffer for page n, allocating a zero-filled buffer
// and loading it from disk (if n is within the on-disk range) on first
// access. It fails if n is at or beyond TableMaxPages.
func (p *Pager) GetPage(n uint32) (*Page, error) {
	if int(n) >= p.tableMaxPages {
		return nil, errors.Errorf("pager: page %d exceeds table max pages %d", n, p.tableMaxPages)
	}

	if int(n) >= len(p.pages) {
		grown := make([]*Page, int(n)+1)
		copy(grown, p.pages)
		p.pages = grown
	}

	if p.pages[n] == nil {
		pg := &Page{}
		if int(n) < p.fileNumPages {
			if err := p.readPageFromDisk(n, pg); err != nil {
				return nil, err
			}
		}
		p.pages[n] = pg
		p.log.WithField("page", n).Debug("pager: faulted in page")
	}
	return p.pages[n], nil
}

func (p *Pager) readPageFromDisk(n uint32, pg *Page) error {
	off := int64(n) * PageSize
	if _, err := p.file.ReadAt(pg.Data[:], off); err != nil && err != io.EOF {
		return errors.Wrapf(err, "pager: read page %d", n)
	}
	return nil
}

// AllocatePage hands out the next page number after the current highest,
// monotonically. It never reuses a page number within a session.
func (p *Pager) AllocatePage() (uint32, error) {
	n := uint32(len(p.pages))
	if int(n) >= p.tableMaxPages {
		return 0, errors.Errorf("pager: out of pages (max %d)", p.tableMaxPages)
	}
	p.pages = append(p.pages, &Page{})
	return n, nil
}

// Flush writes the resident buffer for page n back to its file offset.
// It is a no-op if page n is not resident.
func (p *Pager) Flush(n uint32) error {
	if int(n) >= len(p.pages) || p.pages[n] == nil {
		return nil
	}
	off := int64(n) * PageSize
	if _, err := p.file.WriteAt(p.pages[n].Data[:], off); err != nil {
		return errors.Wrapf(err, "pager: flush page %d", n)
	}
	return nil
}

// Close flushes every resident page unconditionally, then closes the file.
// There is no dirty bit: every page that was ever faulted in or allocated
// this session is rewritten, since the tree mutates buffers in place and
// the pager has no way to tell whether a given page changed.
func (p *Pager) Close() error {
	for n, pg := range p.pages {
		if pg == nil {
			continue
		}
		if err := p.Flush(uint32(n)); err != nil {
			return err
		}
	}
	p.log.WithField("pages", len(p.pages)).Debug("pager: flushed all resident pages")
	if err := p.file.Sync(); err != nil {
		return errors.Wrap(err, "pager: sync")
	}
	return errors.Wrap(p.file.Close(), "pager: close")
}
