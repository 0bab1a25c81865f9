package services

import "bagStore/entities"

// DeeperEntry reconciles the persistent and the session cache tiers: the entry
// with more loaded pages wins, ties go to the persistent tier. Either may be nil.
func DeeperEntry(persistent, session *entities.CatalogCacheEntry) *entities.CatalogCacheEntry {
	switch {
	case persistent == nil:
		return session
	case session == nil:
		return persistent
	case session.Data.LoadedPages > persistent.Data.LoadedPages:
		return session
	default:
		return persistent
	}
}
