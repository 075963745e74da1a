package secrets

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*LocalSecretStore, string) {
	t.Helper()
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}
	filename := filepath.Join(t.TempDir(), "communities.json")
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}
	return store, masterKey
}

func TestNewLocalSecretStore(t *testing.T) {
	store, masterKey := newTestStore(t)

	if _, err := os.Stat(store.filename); err != nil {
		t.Errorf("Expected store file to be created: %v", err)
	}
	if hex.EncodeToString(store.masterKey) != masterKey {
		t.Errorf("Expected master key %s, got %s", masterKey, hex.EncodeToString(store.masterKey))
	}
}

func TestNewLocalSecretStoreWithoutCreate(t *testing.T) {
	masterKey, _ := GenerateMasterKey()
	filename := filepath.Join(t.TempDir(), "missing.json")

	if _, err := NewLocalSecretStore(masterKey, filename, false); err == nil {
		t.Errorf("Expected an error for a missing store file")
	}
}

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	if len(key) != 64 { // 32 bytes in hex representation
		t.Errorf("Expected key length 64, got %d", len(key))
	}
}

func TestStoreAndGetCommunities(t *testing.T) {
	store, _ := newTestStore(t)

	secretID := "10.0.0.5"
	communities := `{"read":"ro-secret","write":"rw-secret"}`

	if err := store.StoreSecretByID(secretID, communities); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}
	if store.Secrets[secretID] == communities {
		t.Errorf("Expected the stored value to be encrypted")
	}

	retrieved, err := store.GetSecretByID(secretID)
	if err != nil {
		t.Fatalf("Failed to get secret: %v", err)
	}
	if retrieved != communities {
		t.Errorf("Expected %s, got %s", communities, retrieved)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	store, masterKey := newTestStore(t)

	if err := store.StoreSecretByID(DEFAULT_KEY, `{"read":"a","write":"b"}`); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	reopened, err := NewLocalSecretStore(masterKey, store.filename, false)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	retrieved, err := reopened.GetSecretByID(DEFAULT_KEY)
	if err != nil {
		t.Fatalf("Failed to get secret after reopen: %v", err)
	}
	if retrieved != `{"read":"a","write":"b"}` {
		t.Errorf("Unexpected secret after reopen: %s", retrieved)
	}
}

func TestListSecrets(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.StoreSecretByID("pdu-1", "one"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}
	if err := store.StoreSecretByID("pdu-2", "two"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	secrets, err := store.ListSecrets()
	if err != nil {
		t.Fatalf("Failed to list secrets: %v", err)
	}
	if len(secrets) != 2 {
		t.Errorf("Expected 2 secrets, got %d", len(secrets))
	}
	for id, sealed := range secrets {
		if sealed != store.Secrets[id] {
			t.Errorf("Expected listed value for %s to match the stored one", id)
		}
	}
}

func TestRemoveSecretByID(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.StoreSecretByID("pdu-1", "one"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}
	if err := store.RemoveSecretByID("pdu-1"); err != nil {
		t.Fatalf("Failed to remove secret: %v", err)
	}
	if _, err := store.GetSecretByID("pdu-1"); err == nil {
		t.Errorf("Expected removed secret to be gone")
	}
	if err := store.RemoveSecretByID("pdu-1"); err == nil {
		t.Errorf("Expected an error removing a missing secret")
	}
}

func TestStaticStore(t *testing.T) {
	store := NewStaticStore("ro", "rw")

	value, err := store.GetSecretByID("any-host")
	if err != nil {
		t.Fatalf("Failed to get secret: %v", err)
	}
	if value != `{"read":"ro","write":"rw"}` {
		t.Errorf("Unexpected static value %s", value)
	}
	if err := store.StoreSecretByID("x", "y"); err == nil {
		t.Errorf("Expected static store to be read-only")
	}
}
