package filter

import (
	"os"
	"path/filepath"
	"time"
)

// Attr bits for the file-attributes attribute. Parsed from the letter
// set used in predicate values.
const (
	AttrReadOnly  uint32 = 1 << iota // r
	AttrHidden                       // h
	AttrSystem                       // s
	AttrDirectory                    // d
	AttrArchive                      // a
	AttrReparse                      // l
	AttrCompressed                   // c
	AttrSparse                       // p
)

// Record is one enumerated file with a lazily-populated holder for the
// metadata collectors gather. Reset clears the holder so a compiled
// filter can be evaluated against many records with each collector
// running at most once per record.
type Record struct {
	// Path is the full path of the file.
	Path string

	// Name is the base name.
	Name string

	// Info is the enumeration record.
	Info os.FileInfo

	// Collected metadata, valid only when the matching bit in have is
	// set.
	size           int64
	allocSize      int64
	compressedSize int64
	attrs          uint32
	perms          uint32
	writeTime      time.Time
	accessTime     time.Time
	createTime     time.Time
	linkCount      int64
	rangeCount     int64
	fragCount      int64
	streamCount    int64
	usn            int64
	reparseTag     uint32
	shortName      string
	owner          string
	objectID       string
	imageArch      string
	imageSubsystem string
	imageMinOS     int64
	fileVersion    int64
	description    string

	have haveSet
}

type haveSet uint16

const (
	haveSize haveSet = 1 << iota
	haveAllocSize
	haveAttrs
	haveWriteTime
	haveTimes
	haveLinkCount
	havePerms
	haveShortName
	haveOwner
	haveImage
)

// NewRecord builds a record for path using an already-obtained Info.
func NewRecord(path string, info os.FileInfo) *Record {
	return &Record{Path: path, Name: filepath.Base(path), Info: info}
}

// FromDirEntry builds a record from a directory enumeration entry.
func FromDirEntry(dir string, entry os.DirEntry) (*Record, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, err
	}
	return &Record{
		Path: filepath.Join(dir, entry.Name()),
		Name: entry.Name(),
		Info: info,
	}, nil
}

// Reset clears the collected metadata before a fresh evaluation.
func (r *Record) Reset() {
	r.have = 0
}

// Ext returns the file extension including the dot, empty when none.
func (r *Record) Ext() string {
	return filepath.Ext(r.Name)
}

func (r *Record) collectSize() error {
	if r.have&haveSize == 0 {
		r.size = r.Info.Size()
		r.have |= haveSize
	}
	return nil
}

func (r *Record) collectAllocSize() error {
	if r.have&haveAllocSize == 0 {
		r.allocSize = sysAllocSize(r.Info)
		r.have |= haveAllocSize
	}
	return nil
}

func (r *Record) collectAttrs() error {
	if r.have&haveAttrs == 0 {
		attrs := sysAttrs(r.Info)
		if r.Info.IsDir() {
			attrs |= AttrDirectory
		}
		if r.Info.Mode().Perm()&0o200 == 0 {
			attrs |= AttrReadOnly
		}
		r.attrs = attrs
		r.have |= haveAttrs
	}
	return nil
}

func (r *Record) collectWriteTime() error {
	if r.have&haveWriteTime == 0 {
		r.writeTime = r.Info.ModTime()
		r.have |= haveWriteTime
	}
	return nil
}

func (r *Record) collectTimes() error {
	if r.have&haveTimes == 0 {
		access, create, err := sysTimes(r.Info)
		if err != nil {
			return err
		}
		r.accessTime = access
		r.createTime = create
		r.have |= haveTimes
	}
	return nil
}

func (r *Record) collectLinkCount() error {
	if r.have&haveLinkCount == 0 {
		n, err := sysLinkCount(r.Info)
		if err != nil {
			return err
		}
		r.linkCount = n
		r.have |= haveLinkCount
	}
	return nil
}

func (r *Record) collectPerms() error {
	if r.have&havePerms == 0 {
		r.perms = uint32(r.Info.Mode().Perm())
		r.have |= havePerms
	}
	return nil
}

func (r *Record) collectShortName() error {
	if r.have&haveShortName == 0 {
		s, err := sysShortName(r.Path)
		if err != nil {
			return err
		}
		r.shortName = filepath.Base(s)
		r.have |= haveShortName
	}
	return nil
}

func (r *Record) collectOwner() error {
	if r.have&haveOwner == 0 {
		s, err := sysOwner(r.Info)
		if err != nil {
			return err
		}
		r.owner = s
		r.have |= haveOwner
	}
	return nil
}

// The quantities below live in filesystem-specific control queries with
// no portable equivalent here. Their collectors report the metadata as
// unavailable, so predicates over them reject every record.

func (r *Record) collectCompressedSize() error { return errUnsupportedMetadata }

func (r *Record) collectRangeCount() error { return errUnsupportedMetadata }

func (r *Record) collectFragCount() error { return errUnsupportedMetadata }

func (r *Record) collectStreamCount() error { return errUnsupportedMetadata }

func (r *Record) collectObjectID() error { return errUnsupportedMetadata }

func (r *Record) collectUSN() error { return errUnsupportedMetadata }

func (r *Record) collectReparseTag() error { return errUnsupportedMetadata }

// Version-resource fields need VS_VERSION_INFO parsing out of the image
// file; unimplemented, so they reject every record as well.
func (r *Record) collectVersionInfo() error { return errUnsupportedMetadata }
