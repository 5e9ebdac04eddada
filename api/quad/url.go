//go:build wasip1

package quad

//go:wasmimport env quad_url_path
func urlPath(full uint32) int32

//go:wasmimport env quad_url_param_count
func urlParamCount() uint32

//go:wasmimport env quad_url_get_key
func urlGetKey(index uint32) int32

//go:wasmimport env quad_url_get_value
func urlGetValue(index uint32) int32

//go:wasmimport env quad_url_link_open
func urlLinkOpen(url int32, newTab uint32)

//go:wasmimport env quad_url_set_program_parameter
func urlSetProgramParameter(name, value int32)

//go:wasmimport env quad_url_delete_program_parameter
func urlDeleteProgramParameter(name int32)

//go:wasmimport env quad_url_get_hash
func urlGetHash() int32

//go:wasmimport env quad_url_set_hash
func urlSetHash(hash int32)

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Path returns the page address, without query and hash unless full.
func Path(full bool) string {
	s, _ := takeString(objects, urlPath(boolArg(full)))
	return s
}

// Params returns the query string pairs in order.
func Params() []Param {
	n := urlParamCount()
	params := make([]Param, 0, n)
	for i := uint32(0); i < n; i++ {
		name, _ := takeString(objects, urlGetKey(i))
		value, _ := takeString(objects, urlGetValue(i))
		params = append(params, Param{Name: name, Value: value})
	}
	return params
}

// LinkOpen opens url in place or in a new tab.
func LinkOpen(url string, newTab bool) {
	withStrings(objects, func(h []int32) { urlLinkOpen(h[0], boolArg(newTab)) }, url)
}

// SetProgramParameter sets a query parameter without reloading.
func SetProgramParameter(name, value string) {
	withStrings(objects, func(h []int32) { urlSetProgramParameter(h[0], h[1]) }, name, value)
}

// DeleteProgramParameter removes a query parameter without reloading.
func DeleteProgramParameter(name string) {
	withStrings(objects, func(h []int32) { urlDeleteProgramParameter(h[0]) }, name)
}

// Hash returns the fragment including '#', or "".
func Hash() string {
	s, _ := takeString(objects, urlGetHash())
	return s
}

// SetHash replaces the fragment.
func SetHash(hash string) {
	withStrings(objects, func(h []int32) { urlSetHash(h[0]) }, hash)
}
