package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/vt"
)

func TestDefaultPathsWithRootOverride(t *testing.T) {
	t.Setenv("CONKIT_ROOT", "/tmp/conkit-test")
	t.Setenv("CONKIT_CONFIG", "")

	paths, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths: %v", err)
	}
	if paths.Root != "/tmp/conkit-test" {
		t.Errorf("Root = %q, want /tmp/conkit-test", paths.Root)
	}
	if want := filepath.Join("/tmp/conkit-test", "config.toml"); paths.Config != want {
		t.Errorf("Config = %q, want %q", paths.Config, want)
	}
}

func TestDefaultPathsWithConfigOverride(t *testing.T) {
	t.Setenv("CONKIT_CONFIG", "/etc/conkit.toml")

	paths, err := DefaultPaths()
	if err != nil {
		t.Fatalf("DefaultPaths: %v", err)
	}
	if paths.Config != "/etc/conkit.toml" {
		t.Errorf("Config = %q, want /etc/conkit.toml", paths.Config)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CONKIT_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.LineEnding != "crlf" {
		t.Errorf("LineEnding = %q, want crlf", cfg.Output.LineEnding)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[output]
line_ending = "lf"
default_color = "white+bg_blue"

[path]
ext = ".com;.exe"

[rules]
dirs = "fa&d,fg=blue"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONKIT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.LineEnding != "lf" {
		t.Errorf("LineEnding = %q, want lf", cfg.Output.LineEnding)
	}
	if cfg.Path.Ext != ".com;.exe" {
		t.Errorf("Ext = %q, want .com;.exe", cfg.Path.Ext)
	}
	if _, ok := cfg.Rules["dirs"]; !ok {
		t.Error("rules table was not loaded")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[output\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONKIT_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded on malformed TOML")
	}
}

func TestApply(t *testing.T) {
	t.Cleanup(func() {
		vt.SetLineEnding("\r\n")
		console.ResetDefaultColorForTest()
	})

	cfg := DefaultConfig()
	cfg.Output.LineEnding = "lf"
	cfg.Output.DefaultColor = "green"
	if err := cfg.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if vt.LineEnding() != "\n" {
		t.Errorf("line ending = %q, want \\n", vt.LineEnding())
	}
	if got := console.DefaultColor(); got&console.FgMask != console.FgGreen {
		t.Errorf("default colour = %#x, want green foreground", got)
	}

	cfg.Output.LineEnding = "mixed"
	if err := cfg.Apply(); err == nil {
		t.Error("Apply accepted unknown line ending")
	}
}

func TestRulePreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules["logs"] = "fe=.log,fg=yellow"

	cf, err := cfg.Rule("logs")
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	if cf.Len() != 1 {
		t.Errorf("Len = %d, want 1", cf.Len())
	}

	if _, err := cfg.Rule("missing"); err == nil {
		t.Error("Rule returned a preset for an unknown name")
	}

	cfg.Rules["bad"] = "zz=1,fg=red"
	if _, err := cfg.Rule("bad"); err == nil {
		t.Error("Rule compiled a malformed expression")
	}
}
