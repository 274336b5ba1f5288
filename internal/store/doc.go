// Package store defines the persistence interfaces consumed by the
// service layer. Implementations live under internal/platform; the
// interfaces here are the only storage contract the rest of the
// application depends on.
package store
