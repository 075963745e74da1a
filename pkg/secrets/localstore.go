package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// LocalSecretStore keeps encrypted secrets in a JSON file. Each secret is
// sealed with a key derived from the master key and its id.
type LocalSecretStore struct {
	mu        sync.RWMutex
	masterKey []byte
	filename  string
	Secrets   map[string]string `json:"secrets"`
}

func NewLocalSecretStore(masterKeyHex, filename string, create bool) (*LocalSecretStore, error) {
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("unable to decode master key: %w", err)
	}

	secrets := make(map[string]string)
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if !create {
			return nil, fmt.Errorf("file %s does not exist", filename)
		}
		if err := SaveSecrets(filename, secrets); err != nil {
			return nil, fmt.Errorf("unable to create file %s: %w", filename, err)
		}
	} else if secrets, err = loadSecrets(filename); err != nil {
		return nil, fmt.Errorf("unable to load secrets from file: %w", err)
	}

	return &LocalSecretStore{
		masterKey: masterKey,
		filename:  filename,
		Secrets:   secrets,
	}, nil
}

// GenerateMasterKey creates a 32-byte random key and returns it as a hex string.
func GenerateMasterKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func (l *LocalSecretStore) GetSecretByID(secretID string) (string, error) {
	l.mu.RLock()
	sealed, exists := l.Secrets[secretID]
	l.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("no secret found for %s", secretID)
	}
	return decryptAESGCM(deriveAESKey(l.masterKey, secretID), sealed)
}

func (l *LocalSecretStore) StoreSecretByID(secretID, secret string) error {
	sealed, err := encryptAESGCM(deriveAESKey(l.masterKey, secretID), []byte(secret))
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.Secrets[secretID] = sealed
	return SaveSecrets(l.filename, l.Secrets)
}

// ListSecrets returns a copy of the stored (still encrypted) secrets.
func (l *LocalSecretStore) ListSecrets() (map[string]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	secrets := make(map[string]string, len(l.Secrets))
	for k, v := range l.Secrets {
		secrets[k] = v
	}
	return secrets, nil
}

func (l *LocalSecretStore) RemoveSecretByID(secretID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.Secrets[secretID]; !exists {
		return fmt.Errorf("no secret found for %s", secretID)
	}
	delete(l.Secrets, secretID)
	return SaveSecrets(l.filename, l.Secrets)
}

// OpenStore opens (or creates) the store at filename with the master key
// from the MASTER_KEY environment variable.
func OpenStore(filename string) (SecretStore, error) {
	if filename == "" {
		return nil, fmt.Errorf("path to secret store required")
	}

	masterKey := os.Getenv("MASTER_KEY")
	if masterKey == "" {
		return nil, fmt.Errorf("MASTER_KEY environment variable not set")
	}

	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open local secret store: %w", err)
	}
	return store, nil
}

func SaveSecrets(jsonFile string, store map[string]string) error {
	file, err := os.OpenFile(jsonFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(store)
}

func loadSecrets(jsonFile string) (map[string]string, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("unable to open secret file %s: %w", jsonFile, err)
	}
	defer file.Close()

	store := make(map[string]string)
	if err := json.NewDecoder(file).Decode(&store); err != nil {
		return nil, err
	}
	return store, nil
}
