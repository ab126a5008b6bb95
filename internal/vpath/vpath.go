// Package vpath implements the POSIX-style paths used to address entries
// across devices. A path is a plain string: a trailing slash marks a
// directory, a leading slash marks an absolute path, the empty string is
// "no path". Values are freely copied; slicing never allocates.
package vpath

import "strings"

// Separator separates path components.
const Separator = '/'

// Root is the absolute root directory.
const Root = Path("/")

// Path is an immutable slash-separated path.
type Path string

// IsEmpty reports whether p is the empty path.
func (p Path) IsEmpty() bool { return len(p) == 0 }

// IsDirectory reports whether p names a directory (trailing separator).
// The empty path is neither a directory nor a file.
func (p Path) IsDirectory() bool { return len(p) > 0 && p[len(p)-1] == Separator }

// IsFile reports whether p names a file.
func (p Path) IsFile() bool { return len(p) > 0 && p[len(p)-1] != Separator }

// IsAbsolute reports whether p starts at the root.
func (p Path) IsAbsolute() bool { return len(p) > 0 && p[0] == Separator }

// IsRelative reports whether p is relative.
func (p Path) IsRelative() bool { return len(p) > 0 && p[0] != Separator }

// IsRoot reports whether p is exactly the root directory.
func (p Path) IsRoot() bool { return p == Root }

// String returns the path text.
func (p Path) String() string { return string(p) }

// trimmed returns p without its trailing separator, if any.
func (p Path) trimmed() string {
	if p.IsDirectory() {
		return string(p[:len(p)-1])
	}
	return string(p)
}

// Parent returns the directory containing p, or the empty path when p is
// the root, a top-level relative entry, or empty.
func (p Path) Parent() Path {
	if p.IsEmpty() || p.IsRoot() {
		return ""
	}
	t := p.trimmed()
	i := strings.LastIndexByte(t, Separator)
	if i < 0 {
		return ""
	}
	return Path(t[:i+1])
}

// HasParent reports whether p has a parent directory.
func (p Path) HasParent() bool { return !p.Parent().IsEmpty() }

// Name returns the last component of p without any separator. The name of
// the root (and of the empty path) is empty.
func (p Path) Name() string {
	if p.IsEmpty() || p.IsRoot() {
		return ""
	}
	t := p.trimmed()
	i := strings.LastIndexByte(t, Separator)
	return t[i+1:]
}

// RelativeTo strips the directory base from the front of p. It returns the
// empty path when p is not under base, or when base is not directory-typed.
// An empty base returns p unchanged if p is relative.
func (p Path) RelativeTo(base Path) Path {
	if base.IsEmpty() {
		if p.IsRelative() {
			return p
		}
		return ""
	}
	if !base.IsDirectory() {
		return ""
	}
	if !strings.HasPrefix(string(p), string(base)) {
		return ""
	}
	return p[len(base):]
}

// Append joins a relative path onto p, inserting a separator iff p is not
// already a directory. Appending anything to the empty path returns the
// other path unchanged; appending a non-relative path returns p unchanged.
func (p Path) Append(other Path) Path {
	if other.IsEmpty() {
		return p
	}
	if !other.IsRelative() {
		return p
	}
	if p.IsEmpty() {
		return other
	}
	if p.IsDirectory() {
		return p + other
	}
	return p + Path(string(Separator)) + other
}

// Concat appends raw text to p without inserting a separator. It is the way
// to toggle a path's directory-ness ("file" + "/" = "file/").
func (p Path) Concat(s string) Path { return p + Path(s) }

// Normalize replaces backslashes with separators and collapses runs of
// separators into one.
func (p Path) Normalize() Path {
	if !strings.ContainsAny(string(p), "\\") && !strings.Contains(string(p), "//") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '\\' {
			c = Separator
		}
		if c == Separator {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}
	return Path(b.String())
}
