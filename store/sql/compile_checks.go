package sqlstore

import "github.com/goliatone/go-quantum-client/core"

var (
	_ core.RunStore               = (*RunStore)(nil)
	_ core.RunStore               = (*CachedRunStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
