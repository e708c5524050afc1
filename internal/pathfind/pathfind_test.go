package pathfind

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o755); err != nil {
			t.Fatalf("touch %s: %v", name, err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		query  string
		path   bool
		ext    bool
	}{
		{"tool", false, false},
		{"tool.exe", false, true},
		{"bin/tool", true, false},
		{"bin\\tool", true, false},
		{"bin/tool.exe", true, true},
		{"C:tool", true, false},
		{"./tool.v2", true, true},
		{"dotted.dir/tool", true, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := Classify(tt.query)
			if c.HasPath != tt.path || c.HasExtension != tt.ext {
				t.Errorf("Classify(%q) = %+v, want path=%v ext=%v", tt.query, c, tt.path, tt.ext)
			}
		})
	}
}

func TestSplitSearchPath(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"plain", `C:\a;C:\b`, []string{`C:\a`, `C:\b`}},
		{"leading semicolons", `;;C:\a`, []string{`C:\a`}},
		{"empty elements", `C:\a;;C:\b;`, []string{`C:\a`, `C:\b`}},
		{"quoted element with semicolon", `"C:\with;semi";C:\b`, []string{`C:\with;semi`, `C:\b`}},
		{"unterminated quote", `"C:\open`, []string{`C:\open`}},
		{"empty value", ``, nil},
		{"only separators", `;;;`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSearchPath(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSearchPath(%q) = %q, want %q", tt.value, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("element %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitExtList(t *testing.T) {
	got := SplitExtList(".com;.exe;;.bat")
	want := []string{".com", ".exe", ".bat"}
	if len(got) != len(want) {
		t.Fatalf("SplitExtList = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJoinDirFile(t *testing.T) {
	sep := string(os.PathSeparator)
	tests := []struct {
		name string
		dir  string
		file string
		want string
	}{
		{"normal dir", "dir", "f.exe", "dir" + sep + "f.exe"},
		{"drive only keeps relative meaning", "C:", "f.exe", "C:f.exe"},
		{"lowercase drive", "d:", "f", "d:f"},
		{"trailing slash", "dir/", "f", "dir/f"},
		{"trailing backslash", `dir\`, "f", `dir\f`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinDirFile(tt.dir, tt.file); got != tt.want {
				t.Errorf("JoinDirFile(%q, %q) = %q, want %q", tt.dir, tt.file, got, tt.want)
			}
		})
	}
}

func TestLocateFirstMatchHonoursExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tool.bat", "tool.exe", "tool.cmd")

	r := &Resolver{SearchPath: dir, ExtList: DefaultPathExt}
	got, err := r.Locate("tool")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	// .exe precedes .bat and .cmd in the default list even though the
	// directory enumerates .bat first.
	if filepath.Base(got) != "tool.exe" {
		t.Errorf("Locate = %q, want tool.exe", got)
	}
}

func TestLocateSearchesDirectoriesInOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	touch(t, dirB, "tool.exe")

	r := &Resolver{
		SearchPath: dirA + ";" + dirB,
		ExtList:    ".com;.exe",
	}
	got, err := r.Locate("tool")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != filepath.Join(dirB, "tool.exe") {
		t.Errorf("Locate = %q, want %q", got, filepath.Join(dirB, "tool.exe"))
	}
}

func TestLocateEarlierDirectoryWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	touch(t, dirA, "tool.bat")
	touch(t, dirB, "tool.exe")

	r := &Resolver{SearchPath: dirA + ";" + dirB, ExtList: DefaultPathExt}
	got, err := r.Locate("tool")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	// Directory order outranks extension order across directories.
	if got != filepath.Join(dirA, "tool.bat") {
		t.Errorf("Locate = %q, want the .bat from the earlier directory", got)
	}
}

func TestLocateCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Tool.EXE")

	r := &Resolver{SearchPath: dir, ExtList: DefaultPathExt}
	got, err := r.Locate("tool")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if filepath.Base(got) != "Tool.EXE" {
		t.Errorf("Locate = %q, want Tool.EXE", got)
	}
}

func TestLocateNotFound(t *testing.T) {
	r := &Resolver{SearchPath: t.TempDir(), ExtList: DefaultPathExt}
	if _, err := r.Locate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Locate error = %v, want ErrNotFound", err)
	}
}

func TestLocateKnownExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tool.exe")

	r := &Resolver{SearchPath: dir, ExtList: DefaultPathExt}
	got, err := r.Locate("tool.exe")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != filepath.Join(dir, "tool.exe") {
		t.Errorf("Locate = %q", got)
	}
}

func TestLocateKnownPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tool.exe")

	r := &Resolver{SearchPath: "", ExtList: DefaultPathExt}
	got, err := r.Locate(filepath.Join(dir, "tool"))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != filepath.Join(dir, "tool.exe") {
		t.Errorf("Locate = %q", got)
	}
}

func TestLocateDirectProbeFallsBackToEnumeration(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "tool.v2.exe")

	// The query names a path and what classifies as an extension, but
	// no such file exists; the resolver retries with the name as a stem.
	r := &Resolver{SearchPath: "", ExtList: DefaultPathExt}
	got, err := r.Locate(filepath.Join(dir, "tool.v2"))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != filepath.Join(dir, "tool.v2.exe") {
		t.Errorf("Locate = %q", got)
	}
}

func TestLocateAllWildcard(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "foo.exe", "foo.bat", "foo.txt", "foobar.exe", "foobar.bat")

	r := &Resolver{SearchPath: dir, ExtList: DefaultPathExt}

	// First-match mode prefers foo.exe.
	got, err := r.Locate("foo*")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if filepath.Base(got) != "foo.exe" {
		t.Errorf("first match = %q, want foo.exe", got)
	}

	// Match-all mode delivers every candidate, duplicates permitted by
	// contract.
	var all []Match
	var names []string
	if err := r.LocateAll("foo*", func(m Match) bool {
		all = append(all, m)
		names = append(names, filepath.Base(m.Path))
		return true
	}); err != nil {
		t.Fatalf("LocateAll: %v", err)
	}

	counts := map[string]int{}
	for _, n := range names {
		counts[strings.ToLower(n)]++
	}
	for _, want := range []string{"foo.exe", "foo.bat", "foobar.exe", "foobar.bat"} {
		if counts[want] == 0 {
			t.Errorf("match-all missing %s (got %q)", want, names)
		}
	}

	// foo.txt is a partial match whose stem re-enumerates as "foo", so
	// foo.exe is delivered once by the wildcard pass and again by the
	// partial's re-enumeration.
	if counts["foo.exe"] < 2 {
		t.Errorf("foo.exe delivered %d times, want the duplicate from re-enumeration (got %q)",
			counts["foo.exe"], names)
	}

	deduped := Dedupe(all)
	if len(deduped) != 4 {
		t.Errorf("Dedupe kept %d matches, want 4 distinct: %+v", len(deduped), deduped)
	}
}

func TestDedupe(t *testing.T) {
	in := []Match{
		{Path: `C:\a\foo.exe`},
		{Path: `C:\a\FOO.EXE`},
		{Path: `C:\a\bar.exe`},
		{Path: `C:\a\foo.exe`},
	}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("Dedupe kept %d entries, want 2", len(out))
	}
	if out[0].Path != `C:\a\foo.exe` || out[1].Path != `C:\a\bar.exe` {
		t.Errorf("Dedupe order wrong: %+v", out)
	}
}

func TestEnumerationFailureSkipsDirectory(t *testing.T) {
	dirB := t.TempDir()
	touch(t, dirB, "tool.exe")

	r := &Resolver{
		SearchPath: filepath.Join(dirB, "does-not-exist") + ";" + dirB,
		ExtList:    DefaultPathExt,
	}
	got, err := r.Locate("tool")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != filepath.Join(dirB, "tool.exe") {
		t.Errorf("Locate = %q, search did not continue past bad directory", got)
	}
}

func TestSearchEnv(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	touch(t, dirB, "settings.ini")

	got, err := SearchEnv("settings.ini", dirA+";"+dirB, nil, false)
	if err != nil {
		t.Fatalf("SearchEnv: %v", err)
	}
	if got != JoinDirFile(dirB, "settings.ini") {
		t.Errorf("SearchEnv = %q", got)
	}
}

func TestSearchEnvNotFound(t *testing.T) {
	if _, err := SearchEnv("nope.ini", t.TempDir(), nil, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("SearchEnv error = %v, want ErrNotFound", err)
	}
}

func TestSearchEnvMatchAll(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	touch(t, dirA, "f.cfg")
	touch(t, dirB, "f.cfg")

	var hits []string
	_, err := SearchEnv("f.cfg", dirA+";"+dirB, func(m Match) bool {
		hits = append(hits, m.Path)
		return true
	}, false)
	if err != nil {
		t.Fatalf("SearchEnv: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("match-all hits = %q, want both directories", hits)
	}
}

func TestLookupEnvFold(t *testing.T) {
	t.Setenv("CONKIT_TEST_VAR", "value")

	if v, ok := LookupEnvFold("conkit_test_var"); !ok || v != "value" {
		t.Errorf("LookupEnvFold(lowercase) = (%q, %v), want (value, true)", v, ok)
	}
	if _, ok := LookupEnvFold("CONKIT_TEST_MISSING"); ok {
		t.Errorf("LookupEnvFold found a variable that does not exist")
	}
}
