package vpath

import "testing"

func TestDirectoryFile(t *testing.T) {
	for _, tt := range []struct {
		p   Path
		dir bool
	}{
		{"/", true},
		{"file", false},
		{"/file", false},
		{"/dir/", true},
		{"/dir/subfile", false},
		{"/dir/subdir/", true},
	} {
		if got, want := tt.p.IsDirectory(), tt.dir; got != want {
			t.Errorf("%q.IsDirectory() = %v, want %v", tt.p, got, want)
		}
		if got, want := tt.p.IsFile(), !tt.dir; got != want {
			t.Errorf("%q.IsFile() = %v, want %v", tt.p, got, want)
		}
	}
}

func TestIsRoot(t *testing.T) {
	if !Root.IsRoot() {
		t.Error("Root.IsRoot() = false")
	}
	for _, p := range []Path{"/file", "/dir/", "relative_file", "relative_dir/"} {
		if p.IsRoot() {
			t.Errorf("%q.IsRoot() = true", p)
		}
	}
}

func TestParent(t *testing.T) {
	for _, tt := range []struct {
		p, parent Path
	}{
		{"relative_file", ""},
		{"/", ""},
		{"/a", "/"},
		{"/dir/", "/"},
		{"relative_dir/", ""},
		{"relative_dir/subfile", "relative_dir/"},
		{"/dir/subfile", "/dir/"},
		{"relative_dir/subdir/", "relative_dir/"},
		{"/dir/subdir/", "/dir/"},
	} {
		if got := tt.p.Parent(); got != tt.parent {
			t.Errorf("%q.Parent() = %q, want %q", tt.p, got, tt.parent)
		}
		if got, want := tt.p.HasParent(), tt.parent != ""; got != want {
			t.Errorf("%q.HasParent() = %v, want %v", tt.p, got, want)
		}
	}
}

func TestName(t *testing.T) {
	for _, tt := range []struct {
		p    Path
		name string
	}{
		{"relative_file", "relative_file"},
		{"/", ""},
		{"/a", "a"},
		{"/dir/", "dir"},
		{"relative_dir/", "relative_dir"},
		{"/dir/subfile", "subfile"},
		{"/dir/subdir/", "subdir"},
	} {
		if got := tt.p.Name(); got != tt.name {
			t.Errorf("%q.Name() = %q, want %q", tt.p, got, tt.name)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	for _, tt := range []struct {
		p, base, want Path
	}{
		{"/file", "/", "file"},
		{"/file", "", ""},
		{"/dir/", "/", "dir/"},
		{"/some/deep/file", "/", "some/deep/file"},
		{"/some/deep/file", "/some/", "deep/file"},
		{"/some/deep/file", "/some/deep/", "file"},
		{"/some/deep/dir/", "/some/", "deep/dir/"},
		{"/some/deep/dir/", "/some/deep/dir/", ""},
		{"relative_dir/file", "relative_dir/", "file"},
		{"relative_dir/file", "", "relative_dir/file"},
		{"/elsewhere/file", "/some/", ""},
	} {
		if got := tt.p.RelativeTo(tt.base); got != tt.want {
			t.Errorf("%q.RelativeTo(%q) = %q, want %q", tt.p, tt.base, got, tt.want)
		}
	}
}

func TestRelativeToRoundTrip(t *testing.T) {
	base := Path("/some/deep/")
	p := Path("/some/deep/dir/file")
	rel := p.RelativeTo(base)
	if got := base.Append(rel); got != p {
		t.Errorf("round trip = %q, want %q", got, p)
	}
}

func TestAppend(t *testing.T) {
	for _, tt := range []struct {
		p, other, want Path
	}{
		{"/dir/", "file", "/dir/file"},
		{"/dir", "file", "/dir/file"},
		{"", "file", "file"},
		{"/dir/", "", "/dir/"},
		{"/dir/", "/abs", "/dir/"},
	} {
		if got := tt.p.Append(tt.other); got != tt.want {
			t.Errorf("%q.Append(%q) = %q, want %q", tt.p, tt.other, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, tt := range []struct {
		p, want Path
	}{
		{"some\\dir\\with\\files", "some/dir/with/files"},
		{"some/dir//with////files///////////", "some/dir/with/files/"},
		{"some\\dir//with\\\\\\\\files///////////\\", "some/dir/with/files/"},
		{"some\\dir//with\\\\files///", "some/dir/with/files/"},
		{"already/clean/", "already/clean/"},
	} {
		if got := tt.p.Normalize(); got != tt.want {
			t.Errorf("%q.Normalize() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestExclusiveInvariants(t *testing.T) {
	for _, p := range []Path{"/", "/a", "a", "a/", "/a/b/", "/a/b"} {
		if p.IsDirectory() == p.IsFile() {
			t.Errorf("%q: IsDirectory and IsFile not exclusive", p)
		}
		if p.IsAbsolute() == p.IsRelative() {
			t.Errorf("%q: IsAbsolute and IsRelative not exclusive", p)
		}
	}
}
