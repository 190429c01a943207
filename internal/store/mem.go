package store

// MemStore is an in-memory secret store for tests.
type MemStore struct {
	Secret string

	// ReadError, if set, will be returned by ReadSecret.
	ReadError error

	// WriteError, if set, will be returned by WriteSecret.
	WriteError error

	// Writes counts successful WriteSecret calls.
	Writes int
}

// NewMemStore creates a MemStore holding secret.
func NewMemStore(secret string) *MemStore {
	return &MemStore{Secret: secret}
}

// ReadSecret returns the held secret.
func (m *MemStore) ReadSecret() (string, error) {
	if m.ReadError != nil {
		return "", m.ReadError
	}
	return m.Secret, nil
}

// WriteSecret replaces the held secret.
func (m *MemStore) WriteSecret(secret string) error {
	if m.WriteError != nil {
		return m.WriteError
	}
	m.Secret = secret
	m.Writes++
	return nil
}
