package app

import (
	"path/filepath"
	"testing"
)

func TestParseManifest_Valid(t *testing.T) {
	dir := writeValidApp(t, t.TempDir(), "demo")

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if manifest.Name != "demo" {
		t.Errorf("expected Name 'demo', got '%s'", manifest.Name)
	}

	if manifest.Version != "1.0.0" {
		t.Errorf("expected Version '1.0.0', got '%s'", manifest.Version)
	}

	if manifest.Wasm.File != "demo.wasm" {
		t.Errorf("expected Wasm.File 'demo.wasm', got '%s'", manifest.Wasm.File)
	}

	if len(manifest.Plugins) != 2 {
		t.Errorf("expected 2 plugins, got %d", len(manifest.Plugins))
	}

	if manifest.EntrypointName() != DefaultEntrypoint {
		t.Errorf("expected default entrypoint, got '%s'", manifest.EntrypointName())
	}

	if manifest.Page.URL != "http://localhost/demo/index.html?x=1#top" {
		t.Errorf("unexpected page url '%s'", manifest.Page.URL)
	}

	if manifest.WasmPath() != filepath.Join(dir, "demo.wasm") {
		t.Errorf("unexpected wasm path '%s'", manifest.WasmPath())
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	_, err := ParseManifest(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Fatal("ParseManifest() should fail for nonexistent directory")
	}

	if _, ok := err.(*ManifestNotFoundError); !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	dir := writeApp(t, t.TempDir(), "broken", "name: [unterminated\n", nil)

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail for invalid YAML")
	}

	if _, ok := err.(*ManifestParseError); !ok {
		t.Errorf("expected ManifestParseError, got %T", err)
	}
}

func TestParseManifest_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		field    string
	}{
		{
			name:     "missing name",
			manifest: "version: 1.0.0\nwasm:\n  file: app.wasm\n",
			field:    "name",
		},
		{
			name:     "missing version",
			manifest: "name: app\nwasm:\n  file: app.wasm\n",
			field:    "version",
		},
		{
			name:     "missing wasm file",
			manifest: "name: app\nversion: 1.0.0\n",
			field:    "wasm.file",
		},
		{
			name:     "unknown plugin",
			manifest: "name: app\nversion: 1.0.0\nwasm:\n  file: app.wasm\nplugins: [quad_audio]\n",
			field:    "plugins",
		},
		{
			name:     "duplicate plugin",
			manifest: "name: app\nversion: 1.0.0\nwasm:\n  file: app.wasm\nplugins: [quad_url, quad_url]\n",
			field:    "plugins",
		},
		{
			name:     "relative page url",
			manifest: "name: app\nversion: 1.0.0\nwasm:\n  file: app.wasm\npage:\n  url: /index.html\n",
			field:    "page.url",
		},
		{
			name:     "non-http page url",
			manifest: "name: app\nversion: 1.0.0\nwasm:\n  file: app.wasm\npage:\n  url: file:///tmp/index.html\n",
			field:    "page.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeApp(t, t.TempDir(), "app", tt.manifest, []byte("placeholder"))

			_, err := ParseManifest(dir)
			if err == nil {
				t.Fatal("ParseManifest() should fail")
			}

			verr, ok := err.(*ManifestValidationError)
			if !ok {
				t.Fatalf("expected ManifestValidationError, got %T: %v", err, err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field '%s', got '%s'", tt.field, verr.Field)
			}
		})
	}
}

func TestParseManifest_WasmNotFound(t *testing.T) {
	dir := writeApp(t, t.TempDir(), "nowasm", validManifest("nowasm"), nil)

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail when the Wasm file is missing")
	}

	if _, ok := err.(*WasmNotFoundError); !ok {
		t.Errorf("expected WasmNotFoundError, got %T", err)
	}
}

func TestManifest_Entrypoint(t *testing.T) {
	m := &Manifest{Entrypoint: "start"}
	if m.EntrypointName() != "start" {
		t.Errorf("expected entrypoint 'start', got '%s'", m.EntrypointName())
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&AppNotFoundError{AppName: "demo"}, "app 'demo' not found"},
		{&AppAlreadyRegisteredError{AppName: "demo"}, "app 'demo' is already registered"},
		{&NoAppsFoundError{Paths: []string{"./apps"}}, "no apps found in paths: [./apps]"},
		{&PluginUnavailableError{AppName: "demo", PluginName: "quad_url"}, "app 'demo' requests plugin 'quad_url', which the host does not provide"},
		{&ManifestValidationError{Path: "m.yaml", Message: "bad"}, "manifest validation failed at 'm.yaml': bad"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
