// Package cart owns the shopping cart: the item list, its derived totals,
// persistence to a blob store and change notification for the screens.
//
// A Store is created empty, hydrated once with Load, and then mutated by the
// UI. Every mutation after Load schedules a background save of the full item
// list; callers never wait on storage.
package cart
