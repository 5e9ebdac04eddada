package location

import (
	"context"
	"strings"
	"sync"

	"github.com/woxQAQ/quadhost/internal/wasm"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

// Bridge exposes a Page to one guest as the quad_url plugin.
type Bridge struct {
	page   *Page
	opener Opener
	guest  *wasm.Guest
	logger *zap.Logger

	// Snapshot behind the index-based param imports, refreshed by
	// ParamCount.
	mu     sync.Mutex
	params Params
}

// NewBridge creates a URL bridge for page. New tabs go to opener.
func NewBridge(page *Page, opener Opener, logger *zap.Logger) *Bridge {
	return &Bridge{
		page:   page,
		opener: opener,
		logger: logger.With(zap.String("component", "url-bridge")),
	}
}

// Page returns the page the bridge operates on.
func (b *Bridge) Page() *Page {
	return b.page
}

// Path returns the full address when full is set, otherwise origin and
// pathname only.
func (b *Bridge) Path(full bool) string {
	if full {
		return b.page.Href()
	}
	return b.page.Origin() + b.page.Pathname()
}

// Params parses the current query string.
func (b *Bridge) Params() Params {
	return ParseParams(b.page.Search())
}

// ParamCount refreshes the parameter snapshot and returns its length.
func (b *Bridge) ParamCount() int {
	params := b.Params()

	b.mu.Lock()
	b.params = params
	b.mu.Unlock()

	return params.Len()
}

// ParamKey returns the name at index in the last ParamCount snapshot.
func (b *Bridge) ParamKey(index int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.Key(index)
}

// ParamValue returns the value at index in the last ParamCount snapshot.
func (b *Bridge) ParamValue(index int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.Value(index)
}

// LinkOpen opens rawURL. In place, the page navigates and its history
// restarts; otherwise the opener receives the resolved URL.
func (b *Bridge) LinkOpen(ctx context.Context, rawURL string, newTab bool) error {
	if !newTab {
		return b.page.Navigate(rawURL)
	}
	resolved, err := b.page.Resolve(rawURL)
	if err != nil {
		return err
	}
	return b.opener.Open(ctx, resolved)
}

// SetProgramParameter sets name to value in the query string.
func (b *Bridge) SetProgramParameter(name, value string) error {
	return b.SetURL(Replace(b.Params().Set(name, value).Encode()), Keep())
}

// DeleteProgramParameter removes name from the query string.
func (b *Bridge) DeleteProgramParameter(name string) error {
	return b.SetURL(Replace(b.Params().Delete(name).Encode()), Keep())
}

// Hash returns the fragment with its leading '#', or "".
func (b *Bridge) Hash() string {
	return b.page.Hash()
}

// SetHash replaces the fragment, leaving the query string untouched.
func (b *Bridge) SetHash(hash string) error {
	return b.SetURL(Keep(), Replace(hash))
}

// SetURL rewrites the address bar from origin and pathname, adding the
// query and hash only when non-empty, and pushes it without reloading.
func (b *Bridge) SetURL(query, hash Component) error {
	q := strings.TrimPrefix(query.Resolve(b.page.Search()), "?")
	h := strings.TrimPrefix(hash.Resolve(b.page.Hash()), "#")

	var sb strings.Builder
	sb.WriteString(b.page.Origin())
	sb.WriteString(b.page.Pathname())
	if q != "" {
		sb.WriteByte('?')
		sb.WriteString(q)
	}
	if h != "" {
		sb.WriteByte('#')
		sb.WriteString(h)
	}
	return b.page.PushState(sb.String())
}

// Name implements wasm.Plugin.
func (b *Bridge) Name() string { return protocol.URLPlugin }

// Version implements wasm.Plugin.
func (b *Bridge) Version() string { return protocol.URLVersion }

// OnInit implements wasm.Plugin.
func (b *Bridge) OnInit(guest *wasm.Guest) error {
	b.guest = guest
	b.logger = b.logger.With(zap.String("instance_id", guest.ID()))
	return nil
}

// RegisterPlugin implements wasm.Plugin.
func (b *Bridge) RegisterPlugin(imports *wasm.ImportTable) error {
	funcs := []struct {
		name   string
		fn     interface{}
		params []string
	}{
		{protocol.ImportURLPath, b.importPath, []string{"full"}},
		{protocol.ImportURLParamCount, b.importParamCount, nil},
		{protocol.ImportURLGetKey, b.importGetKey, []string{"index"}},
		{protocol.ImportURLGetValue, b.importGetValue, []string{"index"}},
		{protocol.ImportURLLinkOpen, b.importLinkOpen, []string{"url", "new_tab"}},
		{protocol.ImportURLSetProgramParameter, b.importSetProgramParameter, []string{"name", "value"}},
		{protocol.ImportURLDeleteProgramParameter, b.importDeleteProgramParameter, []string{"name"}},
		{protocol.ImportURLGetHash, b.importGetHash, nil},
		{protocol.ImportURLSetHash, b.importSetHash, []string{"hash"}},
	}
	for _, f := range funcs {
		if err := imports.Func(f.name, f.fn, f.params...); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) importPath(ctx context.Context, full uint32) int32 {
	return b.guest.Object(b.Path(full != 0))
}

func (b *Bridge) importParamCount(ctx context.Context) uint32 {
	return uint32(b.ParamCount())
}

func (b *Bridge) importGetKey(ctx context.Context, index uint32) int32 {
	key, err := b.ParamKey(int(index))
	if err != nil {
		b.fail(protocol.ImportURLGetKey, err)
		return protocol.NilHandle
	}
	return b.guest.Object(key)
}

func (b *Bridge) importGetValue(ctx context.Context, index uint32) int32 {
	value, err := b.ParamValue(int(index))
	if err != nil {
		b.fail(protocol.ImportURLGetValue, err)
		return protocol.NilHandle
	}
	return b.guest.Object(value)
}

func (b *Bridge) importLinkOpen(ctx context.Context, urlHandle int32, newTab uint32) {
	rawURL, ok := b.arg(protocol.ImportURLLinkOpen, urlHandle)
	if !ok {
		return
	}
	if err := b.LinkOpen(ctx, rawURL, newTab != 0); err != nil {
		b.fail(protocol.ImportURLLinkOpen, err)
	}
}

func (b *Bridge) importSetProgramParameter(ctx context.Context, nameHandle, valueHandle int32) {
	name, ok := b.arg(protocol.ImportURLSetProgramParameter, nameHandle)
	if !ok {
		return
	}
	value, ok := b.arg(protocol.ImportURLSetProgramParameter, valueHandle)
	if !ok {
		return
	}
	if err := b.SetProgramParameter(name, value); err != nil {
		b.fail(protocol.ImportURLSetProgramParameter, err)
	}
}

func (b *Bridge) importDeleteProgramParameter(ctx context.Context, nameHandle int32) {
	name, ok := b.arg(protocol.ImportURLDeleteProgramParameter, nameHandle)
	if !ok {
		return
	}
	if err := b.DeleteProgramParameter(name); err != nil {
		b.fail(protocol.ImportURLDeleteProgramParameter, err)
	}
}

func (b *Bridge) importGetHash(ctx context.Context) int32 {
	return b.guest.Object(b.Hash())
}

func (b *Bridge) importSetHash(ctx context.Context, hashHandle int32) {
	hash, ok := b.arg(protocol.ImportURLSetHash, hashHandle)
	if !ok {
		return
	}
	if err := b.SetHash(hash); err != nil {
		b.fail(protocol.ImportURLSetHash, err)
	}
}

// arg resolves a string handle passed by the guest.
func (b *Bridge) arg(fn string, handle int32) (string, bool) {
	s, ok := b.guest.String(handle)
	if !ok {
		b.logger.Warn("Invalid string handle",
			zap.String("import", fn),
			zap.Int32("handle", handle),
		)
	}
	return s, ok
}

func (b *Bridge) fail(fn string, err error) {
	b.logger.Warn("URL import failed",
		zap.Error(&wasm.HostFunctionError{FunctionName: fn, Err: err}),
	)
}

var _ wasm.Plugin = (*Bridge)(nil)
