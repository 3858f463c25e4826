package source_test

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/goliatone/go-tplengine/pkg/source"
	"github.com/goliatone/go-tplengine/pkg/template"
	"github.com/goliatone/go-tplengine/pkg/testsupport"
)

func TestFS_Read(t *testing.T) {
	files := fstest.MapFS{
		"views/page.tpl":        {Data: []byte("page")},
		"views/page.mobile.tpl": {Data: []byte("mobile page")},
	}
	reader, err := source.NewFS(files)
	if err != nil {
		t.Fatalf("new fs reader: %v", err)
	}

	got, err := reader.Read("views/page", "mobile")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "mobile page" {
		t.Fatalf("unexpected content %q", got)
	}

	got, err = reader.Read("views/absent", "")
	if err != nil || got != "" {
		t.Fatalf("expected empty content without error, got %q, %v", got, err)
	}

	if _, err := reader.Read("../views/page", ""); !errors.Is(err, source.ErrInvalidTemplateName) {
		t.Fatalf("expected ErrInvalidTemplateName, got %v", err)
	}
	if _, err := source.NewFS(nil); err == nil {
		t.Fatalf("expected error for nil fs")
	}
}

func TestMap_Read(t *testing.T) {
	reader := source.NewMap(map[string]string{
		"Greet":        "Hello",
		"greet.Mobile": "Hi",
		"  ":           "dropped",
	})

	if reader.Len() != 2 {
		t.Fatalf("expected 2 templates, got %d", reader.Len())
	}

	tests := []struct {
		name, suffix, want string
	}{
		{"greet", "", "Hello"},
		{"GREET", "", "Hello"},
		{"greet", "mobile", "Hi"},
		{"greet", "tablet", "Hello"},
		{"absent", "", ""},
	}
	for _, tt := range tests {
		got, err := reader.Read(tt.name, tt.suffix)
		if err != nil {
			t.Fatalf("read %s/%s: %v", tt.name, tt.suffix, err)
		}
		if got != tt.want {
			t.Fatalf("read %s/%s: want %q, got %q", tt.name, tt.suffix, tt.want, got)
		}
	}

	if _, err := reader.Read("", ""); !errors.Is(err, source.ErrTemplateNameRequired) {
		t.Fatalf("expected ErrTemplateNameRequired, got %v", err)
	}
}

func TestParseBundle(t *testing.T) {
	yamlBundle := []byte(`templates:
  greet: "Hello, ${model.Name}!"
  greet.mobile: "Hi ${Name}"
`)
	jsonBundle := []byte(`{"templates":{"greet":"Hello, ${model.Name}!","greet.mobile":"Hi ${Name}"}}`)

	for label, data := range map[string][]byte{"yaml": yamlBundle, "json": jsonBundle} {
		t.Run(label, func(t *testing.T) {
			reader, err := source.ParseBundle(data, label)
			if err != nil {
				t.Fatalf("parse bundle: %v", err)
			}
			got, err := reader.Read("greet", "mobile")
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got != "Hi ${Name}" {
				t.Fatalf("unexpected content %q", got)
			}
		})
	}
}

func TestParseBundle_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":        "   ",
		"no templates": "templates: {}",
		"invalid":      "templates: [unclosed",
		"case clash":   "templates:\n  Greet: a\n  greet: b\n",
	}
	for label, data := range tests {
		t.Run(label, func(t *testing.T) {
			if _, err := source.ParseBundle([]byte(data), label); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadBundleFileAndFS(t *testing.T) {
	dir := testsupport.WriteTemplates(t, t.TempDir(), map[string]string{
		"bundle.yaml": "templates:\n  page: body\n",
	})

	reader, err := source.LoadBundleFile(filepath.Join(dir, "bundle.yaml"))
	if err != nil {
		t.Fatalf("load bundle file: %v", err)
	}
	if got, _ := reader.Read("page", ""); got != "body" {
		t.Fatalf("unexpected content %q", got)
	}

	files := fstest.MapFS{"bundle.json": {Data: []byte(`{"templates":{"page":"fs body"}}`)}}
	reader, err = source.LoadBundleFS(files, "bundle.json")
	if err != nil {
		t.Fatalf("load bundle fs: %v", err)
	}
	if got, _ := reader.Read("page", ""); got != "fs body" {
		t.Fatalf("unexpected content %q", got)
	}

	if _, err := source.LoadBundleFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing bundle")
	}
}

func TestHTTP_Read(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		switch r.URL.Path {
		case "/tpl/greet.tpl":
			_, _ = w.Write([]byte("Hello, ${model.Name}!"))
		case "/tpl/greet.mobile.tpl":
			_, _ = w.Write([]byte("Hi"))
		case "/tpl/broken.tpl":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	reader, err := source.NewHTTP(server.URL+"/tpl", source.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new http reader: %v", err)
	}

	got, err := reader.Read("greet", "")
	if err != nil || got != "Hello, ${model.Name}!" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	got, err = reader.Read("greet", "mobile")
	if err != nil || got != "Hi" {
		t.Fatalf("unexpected suffixed result %q, %v", got, err)
	}
	got, err = reader.Read("absent", "")
	if err != nil || got != "" {
		t.Fatalf("expected 404 to be empty content, got %q, %v", got, err)
	}
	_, err = reader.Read("broken", "")
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if paths[0] != "/tpl/greet.tpl" {
		t.Fatalf("unexpected request path %q", paths[0])
	}
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	reader, err := source.NewHTTP(server.URL, source.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new http reader: %v", err)
	}
	if _, err := reader.Read("slow", ""); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNewHTTP_Validation(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := source.NewHTTP(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

type fakeConn struct {
	mu     sync.Mutex
	values map[string]string
	fail   error
	keys   []string
}

func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Err() error   { return nil }

func (c *fakeConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if cmd != "GET" {
		return nil, nil
	}
	key, _ := args[0].(string)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	if c.fail != nil {
		return nil, c.fail
	}
	value, ok := c.values[key]
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

func (c *fakeConn) Send(string, ...interface{}) error { return nil }
func (c *fakeConn) Flush() error                       { return nil }
func (c *fakeConn) Receive() (interface{}, error)      { return nil, nil }

func newFakePool(conn *fakeConn) *redis.Pool {
	return &redis.Pool{
		MaxIdle: 1,
		Dial: func() (redis.Conn, error) {
			return conn, nil
		},
	}
}

func TestRedis_Read(t *testing.T) {
	conn := &fakeConn{values: map[string]string{
		"templates:greet":        "Hello",
		"templates:greet.mobile": "Hi",
	}}
	reader := source.NewRedisPool(newFakePool(conn), "")
	defer reader.Close()

	got, err := reader.Read("greet", "mobile")
	if err != nil || got != "Hi" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	got, err = reader.Read("absent", "")
	if err != nil || got != "" {
		t.Fatalf("expected missing key to be empty content, got %q, %v", got, err)
	}
	if _, err := reader.Read(" ", ""); !errors.Is(err, source.ErrTemplateNameRequired) {
		t.Fatalf("expected ErrTemplateNameRequired, got %v", err)
	}

	conn.mu.Lock()
	keys := append([]string(nil), conn.keys...)
	conn.mu.Unlock()
	if len(keys) != 2 || keys[0] != "templates:greet.mobile" || keys[1] != "templates:absent" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestRedis_ReadError(t *testing.T) {
	conn := &fakeConn{fail: errors.New("connection reset")}
	reader := source.NewRedisPool(newFakePool(conn), "tpl/")
	defer reader.Close()

	if key := reader.Key("page", "mobile"); key != "tpl/page.mobile" {
		t.Fatalf("unexpected key %q", key)
	}
	_, err := reader.Read("page", "")
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped connection error, got %v", err)
	}
}

func TestChain_Read(t *testing.T) {
	primary := source.NewMap(map[string]string{"page": "override"})
	fallback := source.NewMap(map[string]string{"page": "base", "footer": "foot"})
	chain := source.NewChain(nil, primary, fallback)

	if len(chain) != 2 {
		t.Fatalf("expected nil readers to be dropped, got %d", len(chain))
	}

	got, err := chain.Read("page", "")
	if err != nil || got != "override" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	got, err = chain.Read("footer", "")
	if err != nil || got != "foot" {
		t.Fatalf("unexpected fallback result %q, %v", got, err)
	}
	got, err = chain.Read("absent", "")
	if err != nil || got != "" {
		t.Fatalf("expected empty content, got %q, %v", got, err)
	}

	failing := template.SourceReaderFunc(func(string, string) (string, error) {
		return "", errors.New("offline")
	})
	if _, err := source.NewChain(failing, fallback).Read("page", ""); err == nil {
		t.Fatalf("expected error to stop the chain")
	}
}

func TestFS_List(t *testing.T) {
	reader, err := source.NewFS(fstest.MapFS{
		"page.tpl":          {Data: []byte("")},
		"partials/head.tpl": {Data: []byte("")},
		"readme.md":         {Data: []byte("")},
	})
	if err != nil {
		t.Fatalf("new fs reader: %v", err)
	}
	names, err := reader.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "page" || names[1] != "partials/head" {
		t.Fatalf("unexpected names %v", names)
	}
}

type failingFS struct{}

func (failingFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: errors.New("disk offline")}
}

func TestFS_ReadSkipsDirectoriesAndReportsErrorsOnce(t *testing.T) {
	reader, err := source.NewFS(fstest.MapFS{
		"partials.tpl/header.tpl": {Data: []byte("<header>")},
	})
	if err != nil {
		t.Fatalf("new fs reader: %v", err)
	}
	got, err := reader.Read("partials", "")
	if err != nil || got != "" {
		t.Fatalf("expected directory to read as empty content, got %q, %v", got, err)
	}

	failing, err := source.NewFS(failingFS{})
	if err != nil {
		t.Fatalf("new fs reader: %v", err)
	}
	_, err = failing.Read("page", "")
	if err == nil {
		t.Fatalf("expected read error")
	}
	if n := strings.Count(err.Error(), "page.tpl"); n != 1 {
		t.Fatalf("expected path once in %q, got %d", err.Error(), n)
	}
}
