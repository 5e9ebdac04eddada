package quad

// objectHost is the string object table as the guest sees it through the
// sapp_jsutils imports.
type objectHost interface {
	create(s string) int32
	length(handle int32) uint32
	unwrap(handle int32, buf []byte)
	free(handle int32)
	isNil(handle int32) bool
}

// takeString copies a host string out and frees its handle. It reports
// false for the nil handle and for handles the host no longer knows.
func takeString(o objectHost, handle int32) (string, bool) {
	if handle == NilObject || o.isNil(handle) {
		return "", false
	}
	defer o.free(handle)

	n := o.length(handle)
	if n == 0 {
		return "", true
	}
	buf := make([]byte, n)
	o.unwrap(handle, buf)
	return string(buf), true
}

// withStrings passes fresh handles for args to fn and frees them afterwards.
func withStrings(o objectHost, fn func(handles []int32), args ...string) {
	handles := make([]int32, len(args))
	for i, s := range args {
		handles[i] = o.create(s)
	}
	defer func() {
		for _, h := range handles {
			o.free(h)
		}
	}()
	fn(handles)
}
