package domain

// ConversationStore persists conversation records keyed by conversation
// identity. Writes happen synchronously after every mutating operation on a
// conversation; each identity owns its own record so concurrent saves never
// contend over shared state.
type ConversationStore interface {
	// Save upserts the record for rec.ID.
	Save(rec ConversationRecord) error
	// Load returns the record for id, or ErrNotFound. Corrupt persisted
	// state is reported as ErrStorageCorrupt; callers treat it as absent.
	Load(id ConversationID) (*ConversationRecord, error)
	// Delete removes the record for id. Deleting a missing record is not
	// an error.
	Delete(id ConversationID) error
	// List returns all persisted records. Individually corrupt records are
	// skipped, not fatal.
	List() ([]ConversationRecord, error)
	// SetSelected remembers the last-selected conversation for restore.
	SetSelected(id string) error
	// Selected returns the last-selected conversation key, or "" if none.
	Selected() (string, error)
}

// CredentialStore maps a provider to its API secret. Local-only, plaintext
// at rest.
type CredentialStore interface {
	Get(provider ProviderType) (string, error)
	Set(provider ProviderType, key string) error
	Remove(provider ProviderType) error
	Has(provider ProviderType) bool
}
