// Package idmap maps PDU hosts to their CabinetPDU xnames, so outlets can be
// reported under their power connector xnames.
//
// Implementations of specific mappers live in files of this package. To add
// one, implement Mapper and extend the selection logic in PickIDMapper.
package idmap

import (
	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/rs/zerolog/log"
)

type Mapper interface {
	// GetMappedID returns the xname of host, or "" when there is none.
	GetMappedID(host string) string
}

// staticMapper hands out the same xname for every host, as set with --xname.
type staticMapper struct {
	xname string
}

func (m staticMapper) GetMappedID(string) string {
	return m.xname
}

// PickIDMapper selects the mapper for the configured options. An explicit
// xname always wins over a map. idMap is either inline JSON or "@path" to a
// JSON or YAML file.
func PickIDMapper(xname string, idMap string, idMapFormat format.DataFormat) (Mapper, error) {
	if xname != "" || idMap == "" {
		return staticMapper{xname: xname}, nil
	}

	mapper, err := newUserProvidedMapper(idMap, idMapFormat)
	if err != nil {
		log.Error().Err(err).Str("map", idMap).Msg("failed to decode user supplied xname map")
		return nil, err
	}
	return mapper, nil
}
