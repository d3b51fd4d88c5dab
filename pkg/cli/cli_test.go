package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/liquid/internal/bytecode"
)

func newTestApp(stdin string, terminal bool) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &App{
		Name:            "liquid",
		Stdin:           strings.NewReader(stdin),
		Stdout:          &stdout,
		Stderr:          &stderr,
		StdinIsTerminal: func() bool { return terminal },
	}, &stdout, &stderr
}

// TestGolden renders every testdata/*.liquid file that has a .want file
// with both backends and compares the output.
func TestGolden(t *testing.T) {
	sources, err := filepath.Glob(filepath.Join("testdata", "*.liquid"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(sources) == 0 {
		t.Skip("no golden files")
	}

	for _, source := range sources {
		base := strings.TrimSuffix(source, ".liquid")
		want, err := os.ReadFile(base + ".want")
		if err != nil {
			continue
		}
		args := []string{"render"}
		if _, err := os.Stat(base + ".yaml"); err == nil {
			args = append(args, "-data", base+".yaml")
		}

		for _, backend := range []string{"vm", "tree"} {
			t.Run(filepath.Base(base)+"/"+backend, func(t *testing.T) {
				app, stdout, stderr := newTestApp("", true)
				argv := append(append([]string{}, args...), "-backend", backend, source)
				if code := app.Run(argv); code != 0 {
					t.Fatalf("exit code %d: %s", code, stderr.String())
				}
				if diff := cmp.Diff(string(want), stdout.String()); diff != "" {
					t.Errorf("output mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestRenderFromStdin(t *testing.T) {
	app, stdout, stderr := newTestApp("{{ 'x' | upcase }}{{ 1 | plus: 2 }}", false)
	if code := app.Run([]string{"render"}); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "X3" {
		t.Errorf("got %q", got)
	}
}

func TestRenderRefusesTerminalStdin(t *testing.T) {
	app, _, stderr := newTestApp("", true)
	if code := app.Run([]string{"render"}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "terminal") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRenderDataFromStdin(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "hello.liquid")
	if err := os.WriteFile(tmpl, []byte("hello {{ user.name }}"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, stdout, stderr := newTestApp(`{"user": {"name": "ann"}}`, false)
	if code := app.Run([]string{"render", "-data", "-", tmpl}); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "hello ann" {
		t.Errorf("got %q", got)
	}
}

func TestRenderErrorModes(t *testing.T) {
	source := "a{{ x | nosuch }}b"

	app, stdout, _ := newTestApp(source, false)
	if code := app.Run([]string{"render", "-mode", "strict"}); code != 1 {
		t.Errorf("strict exit code %d, want 1", code)
	}
	if got := stdout.String(); got != "a" {
		t.Errorf("strict output %q, want %q", got, "a")
	}

	app, stdout, _ = newTestApp(source, false)
	if code := app.Run([]string{"render", "-mode", "lax"}); code != 0 {
		t.Errorf("lax exit code %d, want 0", code)
	}
	if got := stdout.String(); got != "ab" {
		t.Errorf("lax output %q, want %q", got, "ab")
	}
}

func TestSyntaxError(t *testing.T) {
	app, _, stderr := newTestApp("{% if x %}never closed", false)
	if code := app.Run([]string{"render"}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if stderr.Len() == 0 {
		t.Error("expected an error message")
	}
}

func TestDisasm(t *testing.T) {
	app, stdout, stderr := newTestApp("{% for x in xs %}{{ x }}{% endfor %}", false)
	if code := app.Run([]string{"disasm", "-backend", "tree"}); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"LOOP_ITEMS", "FOR", "; x", "WRITE"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestCompileAndRun(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "list.liquid")
	if err := os.WriteFile(tmpl, []byte("{% for n in (1..3) %}{{ n | times: k }}{% endfor %}"), 0o644); err != nil {
		t.Fatal(err)
	}
	data := filepath.Join(dir, "data.yaml")
	if err := os.WriteFile(data, []byte("k: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	app, stdout, stderr := newTestApp("", true)
	if code := app.Run([]string{"compile", tmpl}); code != 0 {
		t.Fatalf("compile exit code %d: %s", code, stderr.String())
	}
	compiled := filepath.Join(dir, "list"+CompiledFileExt)
	if !strings.Contains(stdout.String(), compiled) {
		t.Errorf("compile output %q does not name %s", stdout.String(), compiled)
	}

	app, stdout, stderr = newTestApp("", true)
	if code := app.Run([]string{"run", "-data", data, compiled}); code != 0 {
		t.Fatalf("run exit code %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "102030" {
		t.Errorf("got %q, want %q", got, "102030")
	}
}

func TestRunRejectsInvalidBytecode(t *testing.T) {
	p := bytecode.NewProgram("bad")
	p.Instructions.Append(bytecode.OpIncrement, 3)
	data, err := bytecode.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "bad"+CompiledFileExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	app, _, stderr := newTestApp("", true)
	if code := app.Run([]string{"run", path}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "invalid program") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestCompileOutputFlag(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "a.liquid")
	out := filepath.Join(dir, "custom.bin")
	if err := os.WriteFile(tmpl, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, stderr := newTestApp("", true)
	if code := app.Run([]string{"compile", "-o", out, tmpl}); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file: %v", err)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "liquid.toml")
	if err := os.WriteFile(cfg, []byte("backend = \"bogus\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, stderr := newTestApp("x", false)
	if code := app.Run([]string{"render", "-config", cfg}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "bogus") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestUsage(t *testing.T) {
	app, _, stderr := newTestApp("", true)
	if code := app.Run(nil); code != 2 {
		t.Errorf("no args: exit code %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Commands:") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	app, stdout, _ := newTestApp("", true)
	if code := app.Run([]string{"help"}); code != 0 {
		t.Errorf("help: exit code %d", code)
	}
	if !strings.Contains(stdout.String(), "render") {
		t.Errorf("help output %q", stdout.String())
	}

	app, _, _ = newTestApp("", true)
	if code := app.Run([]string{"frobnicate"}); code != 2 {
		t.Errorf("unknown command: exit code %d, want 2", code)
	}
}

func TestEnvFileOverridesMode(t *testing.T) {
	env := filepath.Join(t.TempDir(), "lax.env")
	if err := os.WriteFile(env, []byte("LIQUID_MODE=lax\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, stdout, stderr := newTestApp("a{{ x | nosuch }}b", false)
	if code := app.Run([]string{"render", "-env", env}); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}

	// Flags beat the env file.
	app, _, _ = newTestApp("a{{ x | nosuch }}b", false)
	if code := app.Run([]string{"render", "-env", env, "-mode", "strict"}); code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
}
