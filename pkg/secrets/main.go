// Package secrets stores SNMP community strings per device.
//
// Values are opaque strings; pductl stores JSON documents of the form
// {"read": "public", "write": "private"} keyed by device host.
package secrets

// DEFAULT_KEY is the id consulted when a device has no entry of its own.
const DEFAULT_KEY = "default"

type SecretStore interface {
	GetSecretByID(secretID string) (string, error)
	StoreSecretByID(secretID, secret string) error
	ListSecrets() (map[string]string, error)
	RemoveSecretByID(secretID string) error
}
