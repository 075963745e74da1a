package pdu

import (
	"encoding/json"
	"fmt"

	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
)

// LoadCommunities resolves the community strings for a device from a secret
// store. The host's own entry is preferred, then the store's default entry,
// then fallback. Missing fields of a stored entry are taken from fallback.
func LoadCommunities(store secrets.SecretStore, host string, fallback Communities) (Communities, error) {
	if store == nil {
		return fallback, nil
	}

	for _, id := range []string{host, secrets.DEFAULT_KEY} {
		if id == "" {
			continue
		}
		raw, err := store.GetSecretByID(id)
		if err != nil {
			log.Debug().Str("id", id).Err(err).Msg("no communities stored")
			continue
		}
		communities := fallback
		if err := json.Unmarshal([]byte(raw), &communities); err != nil {
			return fallback, fmt.Errorf("failed to unmarshal communities for %s: %w", id, err)
		}
		log.Debug().Str("host", host).Str("id", id).Msg("using stored communities")
		return communities, nil
	}

	return fallback, nil
}
