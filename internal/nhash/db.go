package nhash

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/xerrors"
)

// DB translates hashes back to the strings they were computed from. It is
// read-only after loading. Two logical instances exist per process: one
// keyed by the case-sensitive hash, one by the lowercase-folded hash.
type DB struct {
	byHash map[uint32]string
	lower  bool
}

// NewDB returns an empty database. When lower is set, labels are keyed by
// their lowercase-folded hash.
func NewDB(lower bool) *DB {
	return &DB{byHash: make(map[uint32]string), lower: lower}
}

// LoadDB reads a database from r: one label per line, blank lines and
// lines starting with '#' ignored.
func LoadDB(r io.Reader, lower bool) (*DB, error) {
	db := NewDB(lower)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		db.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("read hash database: %w", err)
	}
	return db, nil
}

// Add registers a label under its hash.
func (db *DB) Add(label string) {
	if db.lower {
		db.byHash[CRC32Lower(label)] = label
		return
	}
	db.byHash[CRC32(label)] = label
}

// Len returns the number of known labels.
func (db *DB) Len() int { return len(db.byHash) }

// TryGetString translates hash to its original string. Unknown hashes
// come back as eight lowercase hex digits with no prefix, so callers can
// always use the result as a stable name.
func (db *DB) TryGetString(hash uint32) string {
	if db != nil {
		if s, ok := db.byHash[hash]; ok {
			return s
		}
	}
	return fmt.Sprintf("%08x", hash)
}
