package secrets

import (
	"encoding/json"
	"fmt"
)

// StaticStore answers every lookup with the same pair of communities, as
// given on the command line.
type StaticStore struct {
	Read  string
	Write string
}

func NewStaticStore(read, write string) *StaticStore {
	return &StaticStore{Read: read, Write: write}
}

func (s *StaticStore) value() string {
	b, _ := json.Marshal(map[string]string{"read": s.Read, "write": s.Write})
	return string(b)
}

func (s *StaticStore) GetSecretByID(secretID string) (string, error) {
	return s.value(), nil
}

func (s *StaticStore) StoreSecretByID(secretID, secret string) error {
	return fmt.Errorf("static store is read-only")
}

func (s *StaticStore) ListSecrets() (map[string]string, error) {
	return map[string]string{DEFAULT_KEY: s.value()}, nil
}

func (s *StaticStore) RemoveSecretByID(secretID string) error {
	return fmt.Errorf("static store is read-only")
}
