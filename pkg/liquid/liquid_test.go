package liquid_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/funvibe/liquid/internal/cache"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/loader"
	"github.com/funvibe/liquid/pkg/liquid"
)

var backends = []string{config.BackendVM, config.BackendTree}

func newEnv(t *testing.T, opts ...liquid.Option) *liquid.Environment {
	t.Helper()
	env, err := liquid.NewEnvironment(opts...)
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}
	t.Cleanup(func() { env.Close() })
	return env
}

func TestRenderOnBothBackends(t *testing.T) {
	source := `{% tablerow p in products cols:2 %}{{ p | upcase }}{% endtablerow %}|{% for p in products %}{% cycle 'a', 'b' %}{% endfor %}`
	data := map[string]any{"products": []any{"hat", "shoe", "sock"}}
	want := `<tr class="row1"><td class="col1">HAT</td><td class="col2">SHOE</td></tr><tr class="row2"><td class="col1">SOCK</td></tr>|aba`

	for _, name := range backends {
		env := newEnv(t, liquid.WithBackend(name))
		if env.Backend() == "" {
			t.Fatalf("%s: empty backend name", name)
		}
		tmpl, err := env.FromString(source)
		if err != nil {
			t.Fatalf("%s: parse failed: %v", name, err)
		}
		got, err := tmpl.Render(data)
		if err != nil {
			t.Fatalf("%s: render failed: %v", name, err)
		}
		if got != want {
			t.Errorf("%s:\ngot:  %q\nwant: %q", name, got, want)
		}
	}
}

func TestGlobalsPrecedence(t *testing.T) {
	env := newEnv(t, liquid.WithGlobals(map[string]any{"a": "env", "b": "env", "c": "env"}))
	tmpl, err := env.FromStringNamed("page", "{{ a }} {{ b }} {{ c }}", map[string]any{"a": "tmpl", "b": "tmpl"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Render(map[string]any{"a": "data"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "data tmpl env" {
		t.Errorf("got=%q, want=%q", got, "data tmpl env")
	}
}

func TestTemplateDrop(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"shop/page.html.liquid", "page|shop|html|page.html"},
		{"index.liquid", "index|||index"},
	}
	for _, tt := range tests {
		env := newEnv(t)
		tmpl, err := env.FromStringNamed(tt.name, "{{ template.name }}|{{ template.directory }}|{{ template.suffix }}|{{ template }}", nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := tmpl.Render(nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: got=%q, want=%q", tt.name, got, tt.want)
		}
	}
}

func TestGetTemplateCaches(t *testing.T) {
	env := newEnv(t, liquid.WithLoader(loader.DictLoader{"hello": "Hello, {{ name }}!"}))

	first, err := env.GetTemplate("hello")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.GetTemplate("hello")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected the cached template on the second load")
	}

	got, err := first.Render(map[string]any{"name": "World"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello, World!" {
		t.Errorf("got=%q", got)
	}

	if _, err := env.GetTemplate("missing"); !errors.Is(err, liquid.ErrTemplateNotFound) {
		t.Errorf("got err=%v, want ErrTemplateNotFound", err)
	}
}

func TestCacheSizeEvictsLeastRecentlyUsed(t *testing.T) {
	env := newEnv(t,
		liquid.WithLoader(loader.DictLoader{"a": "A", "b": "B"}),
		liquid.WithCacheSize(1),
	)
	load := func(name string) *liquid.Template {
		t.Helper()
		tmpl, err := env.GetTemplate(name)
		if err != nil {
			t.Fatalf("GetTemplate(%q): %v", name, err)
		}
		return tmpl
	}

	a := load("a")
	if load("a") != a {
		t.Fatalf("expected a cache hit for a")
	}
	load("b")
	if load("a") == a {
		t.Errorf("a should have been evicted by b")
	}
}

func TestGetTemplateReloadsStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.liquid")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newEnv(t, liquid.WithLoader(loader.NewFileSystemLoader(dir)))

	tmpl, err := env.GetTemplate("page")
	if err != nil {
		t.Fatal(err)
	}
	if !tmpl.IsUpToDate() {
		t.Fatal("fresh template reported stale")
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	reloaded, err := env.GetTemplate("page")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded == tmpl {
		t.Fatal("stale template was served from cache")
	}
	if got, _ := reloaded.Render(nil); got != "v2" {
		t.Errorf("got=%q, want=%q", got, "v2")
	}
}

func TestBytecodeStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "programs.db")
	templates := loader.DictLoader{"list": "{% for x in xs %}{{ x }},{% endfor %}"}
	data := map[string]any{"xs": []any{1, 2}}

	for i := 0; i < 2; i++ {
		env, err := liquid.NewEnvironment(liquid.WithLoader(templates), liquid.WithStore(dbPath))
		if err != nil {
			t.Fatal(err)
		}
		tmpl, err := env.GetTemplate("list")
		if err != nil {
			t.Fatal(err)
		}
		if tmpl.Program() == nil {
			t.Fatalf("run %d: no compiled program", i)
		}
		got, err := tmpl.Render(data)
		if err != nil {
			t.Fatal(err)
		}
		if got != "1,2," {
			t.Errorf("run %d: got=%q", i, got)
		}
		if err := env.Close(); err != nil {
			t.Fatal(err)
		}
	}

	store, err := cache.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, err := store.Len(); err != nil || n != 1 {
		t.Errorf("stored programs: %d, %v; want 1", n, err)
	}
}

func TestModes(t *testing.T) {
	source := "a{{ x | nosuch }}b"
	for _, name := range backends {
		strict := newEnv(t, liquid.WithBackend(name))
		tmpl, err := strict.FromString(source)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tmpl.Render(nil); err == nil {
			t.Errorf("%s: strict mode should fail", name)
		}

		lax := newEnv(t, liquid.WithBackend(name), liquid.WithMode(liquid.Lax))
		tmpl, err = lax.FromString(source)
		if err != nil {
			t.Fatal(err)
		}
		got, err := tmpl.Render(nil)
		if err != nil {
			t.Fatalf("%s: lax mode failed: %v", name, err)
		}
		if got != "ab" {
			t.Errorf("%s: got=%q, want=%q", name, got, "ab")
		}
	}
}

func TestCustomFilter(t *testing.T) {
	shout := func(in any, args ...any) (any, error) {
		s, _ := in.(string)
		return strings.ToUpper(s) + "!", nil
	}
	env := newEnv(t, liquid.WithFilter("shout", shout))
	tmpl, err := env.FromString("{{ 'hi' | shout }}")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := tmpl.Render(nil); got != "HI!" {
		t.Errorf("got=%q", got)
	}

	other := newEnv(t)
	tmpl, err = other.FromString("{{ 'hi' | shout }}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.Render(nil); err == nil {
		t.Errorf("filter leaked into another environment")
	}
}

func TestRenderToCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range backends {
		env := newEnv(t, liquid.WithBackend(name))
		tmpl, err := env.FromString("{% for x in (1..5000) %}{{ x }}{% endfor %}")
		if err != nil {
			t.Fatal(err)
		}
		if err := tmpl.RenderTo(ctx, &bytes.Buffer{}, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: got err=%v, want context.Canceled", name, err)
		}
	}
}

func TestWithConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.liquid"), []byte("{{ 1 | plus: 2 }}"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse([]byte("backend = \"tree\"\nmode = \"warn\"\nsearch_path = [\""+filepath.ToSlash(dir)+"\"]\n"), ".toml")
	if err != nil {
		t.Fatal(err)
	}
	env := newEnv(t, liquid.WithConfig(cfg))
	if env.Backend() != "tree-walk" {
		t.Errorf("backend: got=%q", env.Backend())
	}
	tmpl, err := env.GetTemplate("a")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := tmpl.Render(nil); got != "3" {
		t.Errorf("got=%q, want=%q", got, "3")
	}
	if _, err := tmpl.Disassemble(); err == nil {
		t.Errorf("tree-walk templates have no program to disassemble")
	}
}

func TestConcurrentRenders(t *testing.T) {
	env := newEnv(t, liquid.WithLoader(loader.DictLoader{"t": "{% for x in xs %}{% increment n %}{% endfor %}"}))
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tmpl, err := env.GetTemplate("t")
			if err != nil {
				errs <- err
				return
			}
			got, err := tmpl.Render(map[string]any{"xs": []any{1, 2, 3}})
			if err != nil {
				errs <- err
				return
			}
			if got != "012" {
				errs <- errors.New("unexpected output " + got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
