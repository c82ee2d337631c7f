package storage

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys() ([]string, error)
}

// Deleter is implemented by backends that can remove a key.
type Deleter interface {
	Delete(key string) error
}
