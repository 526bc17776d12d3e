package sqlstore

import "github.com/goliatone/go-peers/core"

var (
	_ core.Storage                  = (*Storage)(nil)
	_ core.Lister                   = (*Storage)(nil)
	_ core.StorageProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStorageFactory = (*RepositoryFactory)(nil)
)
