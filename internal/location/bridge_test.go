package location

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/quadhost/internal/wasm"
	"github.com/woxQAQ/quadhost/internal/wasm/wasmtest"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap/zaptest"
)

// urlGuest imports every quad_url function.
func urlGuest() []byte {
	return wasmtest.Guest(
		wasmtest.Func(protocol.ImportURLPath, 1, 1),
		wasmtest.Func(protocol.ImportURLParamCount, 0, 1),
		wasmtest.Func(protocol.ImportURLGetKey, 1, 1),
		wasmtest.Func(protocol.ImportURLGetValue, 1, 1),
		wasmtest.Func(protocol.ImportURLLinkOpen, 2, 0),
		wasmtest.Func(protocol.ImportURLSetProgramParameter, 2, 0),
		wasmtest.Func(protocol.ImportURLDeleteProgramParameter, 1, 0),
		wasmtest.Func(protocol.ImportURLGetHash, 0, 1),
		wasmtest.Func(protocol.ImportURLSetHash, 1, 0),
	)
}

type guestHarness struct {
	t        *testing.T
	instance *wasm.Instance
}

func newGuestHarness(t *testing.T, bridge *Bridge) *guestHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := wasm.NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runtime.Close(context.Background()) })

	if _, err := wasm.NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "url-guest", urlGuest()); err != nil {
		t.Fatal(err)
	}

	instance, err := wasm.NewInstanceManager(runtime, logger).Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: "url-guest",
		Plugins:    []wasm.Plugin{bridge},
	})
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	return &guestHarness{t: t, instance: instance}
}

func (h *guestHarness) call(name string, params ...uint64) uint64 {
	h.t.Helper()
	results, err := h.instance.Call(context.Background(), "call_"+name, params...)
	if err != nil {
		h.t.Fatalf("%s failed: %v", name, err)
	}
	if len(results) == 0 {
		return 0
	}
	return results[0]
}

func (h *guestHarness) str(s string) uint64 {
	return api.EncodeI32(h.instance.Guest().Object(s))
}

func (h *guestHarness) read(handle uint64) string {
	h.t.Helper()
	s, ok := h.instance.Guest().String(int32(handle))
	if !ok {
		h.t.Fatalf("handle %d is not a string", int32(handle))
	}
	return s
}

func newTestBridge(t *testing.T, rawURL string) (*Bridge, *LogOpener) {
	t.Helper()
	page, err := NewPage(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	opener := NewLogOpener(zaptest.NewLogger(t))
	return NewBridge(page, opener, zaptest.NewLogger(t)), opener
}

func TestBridge_PathImport(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost:8080/game/?level=3#boss")
	h := newGuestHarness(t, bridge)

	if got := h.read(h.call(protocol.ImportURLPath, 1)); got != "http://localhost:8080/game/?level=3#boss" {
		t.Errorf("path(full) = %q", got)
	}
	if got := h.read(h.call(protocol.ImportURLPath, 0)); got != "http://localhost:8080/game/" {
		t.Errorf("path(short) = %q", got)
	}
}

func TestBridge_ParamImports(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/?x=1&y=2")
	h := newGuestHarness(t, bridge)

	if n := h.call(protocol.ImportURLParamCount); n != 2 {
		t.Fatalf("param_count = %d, want 2", n)
	}

	var got []Param
	for i := uint64(0); i < 2; i++ {
		got = append(got, Param{
			Name:  h.read(h.call(protocol.ImportURLGetKey, i)),
			Value: h.read(h.call(protocol.ImportURLGetValue, i)),
		})
	}
	if diff := cmp.Diff([]Param{{"x", "1"}, {"y", "2"}}, got); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	if int32(h.call(protocol.ImportURLGetKey, 2)) != protocol.NilHandle {
		t.Error("get_key past the end should return the nil handle")
	}
	if int32(h.call(protocol.ImportURLGetValue, 7)) != protocol.NilHandle {
		t.Error("get_value past the end should return the nil handle")
	}
}

func TestBridge_ParamSnapshot(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/?a=1")
	h := newGuestHarness(t, bridge)

	h.call(protocol.ImportURLParamCount)
	if err := bridge.SetProgramParameter("b", "2"); err != nil {
		t.Fatal(err)
	}

	// Indexes refer to the snapshot taken by the last param_count.
	if int32(h.call(protocol.ImportURLGetKey, 1)) != protocol.NilHandle {
		t.Error("get_key(1) should not see parameters added after param_count")
	}
	if n := h.call(protocol.ImportURLParamCount); n != 2 {
		t.Fatalf("param_count after refresh = %d, want 2", n)
	}
	if got := h.read(h.call(protocol.ImportURLGetKey, 1)); got != "b" {
		t.Errorf("get_key(1) = %q, want b", got)
	}
}

func TestBridge_SetAndDeleteProgramParameter(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/play?x=1#section1")
	h := newGuestHarness(t, bridge)

	h.call(protocol.ImportURLSetProgramParameter, h.str("z"), h.str("3"))
	if got := bridge.Page().Href(); got != "http://localhost/play?x=1&z=3#section1" {
		t.Errorf("after set = %q", got)
	}

	h.call(protocol.ImportURLSetProgramParameter, h.str("x"), h.str("a b&c"))
	if got := bridge.Page().Search(); got != "?x=a+b%26c&z=3" {
		t.Errorf("after overwrite Search() = %q", got)
	}

	h.call(protocol.ImportURLDeleteProgramParameter, h.str("x"))
	if got := bridge.Page().Href(); got != "http://localhost/play?z=3#section1" {
		t.Errorf("after delete = %q", got)
	}

	h.call(protocol.ImportURLDeleteProgramParameter, h.str("z"))
	if got := bridge.Page().Href(); got != "http://localhost/play#section1" {
		t.Errorf("deleting the last parameter = %q, want no '?'", got)
	}

	want := []string{
		"http://localhost/play?x=1#section1",
		"http://localhost/play?x=1&z=3#section1",
		"http://localhost/play?x=a+b%26c&z=3#section1",
		"http://localhost/play?z=3#section1",
		"http://localhost/play#section1",
	}
	if diff := cmp.Diff(want, bridge.Page().History()); diff != "" {
		t.Errorf("each change should push one entry (-want +got):\n%s", diff)
	}
}

func TestBridge_HashImports(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/?q=1")
	h := newGuestHarness(t, bridge)

	if got := h.read(h.call(protocol.ImportURLGetHash)); got != "" {
		t.Errorf("get_hash with no fragment = %q, want empty", got)
	}

	h.call(protocol.ImportURLSetHash, h.str("section2"))
	if got := h.read(h.call(protocol.ImportURLGetHash)); got != "#section2" {
		t.Errorf("get_hash = %q, want #section2", got)
	}
	if got := bridge.Page().Search(); got != "?q=1" {
		t.Errorf("set_hash changed the query: %q", got)
	}

	h.call(protocol.ImportURLSetHash, h.str("#already"))
	if got := bridge.Hash(); got != "#already" {
		t.Errorf("leading '#' should not double, got %q", got)
	}

	for _, tt := range []struct{ in, want string }{
		{"100%", "#100%"},
		{"50%25", "#50%25"},
		{"a b", "#a%20b"},
		{"x#y", "#x#y"},
	} {
		h.call(protocol.ImportURLSetHash, h.str(tt.in))
		if got := h.read(h.call(protocol.ImportURLGetHash)); got != tt.want {
			t.Errorf("set_hash(%q) then get_hash = %q, want %q", tt.in, got, tt.want)
		}
		if got := bridge.Page().Search(); got != "?q=1" {
			t.Errorf("set_hash(%q) changed the query: %q", tt.in, got)
		}
	}

	h.call(protocol.ImportURLSetHash, h.str(""))
	if got := bridge.Page().Href(); got != "http://localhost/?q=1" {
		t.Errorf("empty hash should clear the fragment, got %q", got)
	}
}

func TestBridge_LinkOpen(t *testing.T) {
	bridge, opener := newTestBridge(t, "http://localhost/app/?a=1")
	h := newGuestHarness(t, bridge)

	h.call(protocol.ImportURLLinkOpen, h.str("help.html"), 1)
	if diff := cmp.Diff([]string{"http://localhost/app/help.html"}, opener.Opened()); diff != "" {
		t.Errorf("new tab mismatch (-want +got):\n%s", diff)
	}
	if bridge.Page().Href() != "http://localhost/app/?a=1" {
		t.Error("opening a new tab should leave the page alone")
	}

	h.call(protocol.ImportURLLinkOpen, h.str("https://example.com/docs"), 0)
	if got := bridge.Page().Href(); got != "https://example.com/docs" {
		t.Errorf("in-place open = %q", got)
	}
	if len(opener.Opened()) != 1 {
		t.Error("in-place open should not use the opener")
	}

	// Bad input is logged and dropped.
	h.call(protocol.ImportURLLinkOpen, h.str("ftp://example.com"), 0)
	h.call(protocol.ImportURLLinkOpen, api.EncodeI32(protocol.NilHandle), 1)
	if got := bridge.Page().Href(); got != "https://example.com/docs" {
		t.Errorf("invalid link changed the page: %q", got)
	}
}

func TestBridge_LinkOpenUsesOpenerError(t *testing.T) {
	page, _ := NewPage("http://localhost/")
	failing := OpenerFunc(func(ctx context.Context, url string) error {
		return errors.New("no browser")
	})
	bridge := NewBridge(page, failing, zaptest.NewLogger(t))

	err := bridge.LinkOpen(context.Background(), "/x", true)
	if err == nil || err.Error() != "no browser" {
		t.Errorf("LinkOpen() error = %v, want opener error", err)
	}
}

func TestBridge_SetURL(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/p?a=1#h")

	if err := bridge.SetURL(Replace("?b=2"), Keep()); err != nil {
		t.Fatal(err)
	}
	if got := bridge.Page().Href(); got != "http://localhost/p?b=2#h" {
		t.Errorf("replace query = %q", got)
	}

	if err := bridge.SetURL(Replace(""), Replace("")); err != nil {
		t.Fatal(err)
	}
	if got := bridge.Page().Href(); got != "http://localhost/p" {
		t.Errorf("clear both = %q", got)
	}

	if err := bridge.SetURL(Keep(), Keep()); err != nil {
		t.Fatal(err)
	}
	if got := len(bridge.Page().History()); got != 4 {
		t.Errorf("history length = %d, want 4", got)
	}
}

func TestBridge_GoAPIErrors(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/?a=1")

	if bridge.ParamCount() != 1 {
		t.Fatal("ParamCount() != 1")
	}
	if _, err := bridge.ParamKey(1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("ParamKey(1) error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := bridge.ParamValue(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("ParamValue(-1) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := bridge.LinkOpen(context.Background(), "javascript:alert(1)", false); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("LinkOpen(javascript:) error = %v, want ErrInvalidURL", err)
	}
}

func TestBridge_PluginIdentity(t *testing.T) {
	bridge, _ := newTestBridge(t, "http://localhost/")
	if bridge.Name() != protocol.URLPlugin {
		t.Errorf("Name() = %s", bridge.Name())
	}
	if bridge.Version() != protocol.URLVersion {
		t.Errorf("Version() = %s", bridge.Version())
	}
}
