package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woxQAQ/quadhost/internal/wasm/wasmtest"
)

// writeApp creates dir/name with the given manifest and, unless wasm is nil,
// the Wasm file it references.
func writeApp(t *testing.T, dir, name, manifest string, wasm []byte) string {
	t.Helper()
	appDir := filepath.Join(dir, name)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if wasm != nil {
		if err := os.WriteFile(filepath.Join(appDir, name+".wasm"), wasm, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return appDir
}

func validManifest(name string) string {
	return `name: ` + name + `
version: 1.0.0
wasm:
  file: ` + name + `.wasm
plugins: [quad_storage, quad_url]
page:
  url: http://localhost/` + name + `/index.html?x=1#top
author: quad
license: MIT
`
}

func writeValidApp(t *testing.T, dir, name string) string {
	t.Helper()
	return writeApp(t, dir, name, validManifest(name), wasmtest.Minimal())
}
