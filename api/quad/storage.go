//go:build wasip1

package quad

//go:wasmimport env quad_storage_length
func storageLength() uint32

//go:wasmimport env quad_storage_has_key
func storageHasKey(index uint32) uint32

//go:wasmimport env quad_storage_key
func storageKey(index uint32) int32

//go:wasmimport env quad_storage_has_value
func storageHasValue(key int32) uint32

//go:wasmimport env quad_storage_get
func storageGet(key int32) int32

//go:wasmimport env quad_storage_set
func storageSet(key, value int32)

//go:wasmimport env quad_storage_remove
func storageRemove(key int32)

//go:wasmimport env quad_storage_clear
func storageClear()

// StorageLen returns the number of stored entries.
func StorageLen() int {
	return int(storageLength())
}

// StorageHasKey reports whether an entry exists at index.
func StorageHasKey(index int) bool {
	return storageHasKey(uint32(index)) != 0
}

// StorageKey returns the key at index.
func StorageKey(index int) (string, bool) {
	return takeString(objects, storageKey(uint32(index)))
}

// StorageHas reports whether key is stored.
func StorageHas(key string) bool {
	var has bool
	withStrings(objects, func(h []int32) { has = storageHasValue(h[0]) != 0 }, key)
	return has
}

// StorageGet returns the value stored under key.
func StorageGet(key string) (string, bool) {
	var handle int32
	withStrings(objects, func(h []int32) { handle = storageGet(h[0]) }, key)
	return takeString(objects, handle)
}

// StorageSet stores value under key. Writes over quota are dropped by the host.
func StorageSet(key, value string) {
	withStrings(objects, func(h []int32) { storageSet(h[0], h[1]) }, key, value)
}

// StorageRemove deletes key.
func StorageRemove(key string) {
	withStrings(objects, func(h []int32) { storageRemove(h[0]) }, key)
}

// StorageClear deletes every entry.
func StorageClear() {
	storageClear()
}
