package common

const (
	// MaxStoreDescriptionRunes limits store description length to keep payloads sane.
	MaxStoreDescriptionRunes = 2000
	// MaxStoreTagCount caps tags per store.
	MaxStoreTagCount = 20
	// MaxStoreRequestBody limits JSON request bodies for store endpoints.
	MaxStoreRequestBody = 1 << 20
	// MaxTopStoresLimit caps ?limit on the top-rated listing.
	MaxTopStoresLimit = 10
)
