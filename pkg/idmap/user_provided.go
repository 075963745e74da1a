package idmap

import (
	"fmt"
	"os"

	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/rs/zerolog/log"
)

// MapKeyHost is currently the only supported map_key: entries are keyed by
// the host exactly as given on the command line.
const MapKeyHost = "pdu-host"

// xnameMap is the document supplied with --xname-map.
type xnameMap struct {
	IDMap  map[string]string `json:"id_map" yaml:"id_map"`
	MapKey string            `json:"map_key" yaml:"map_key"`
}

type userProvidedMapper struct {
	idMap *xnameMap
}

func newUserProvidedMapper(data string, dataFormat format.DataFormat) (*userProvidedMapper, error) {
	idMap, err := loadXnameMap(data, dataFormat)
	if err != nil {
		return nil, err
	}

	switch idMap.MapKey {
	case MapKeyHost, "":
	default:
		return nil, fmt.Errorf("invalid 'map_key' field '%s' in xname map; a valid value is '%s'", idMap.MapKey, MapKeyHost)
	}
	return &userProvidedMapper{idMap: idMap}, nil
}

func loadXnameMap(data string, dataFormat format.DataFormat) (*xnameMap, error) {
	var idMap xnameMap

	// inline JSON unless the data names a file with '@'
	if data[0] != '@' {
		if err := format.Unmarshal([]byte(data), &idMap, format.FORMAT_JSON); err != nil {
			return nil, err
		}
		return &idMap, nil
	}

	path := data[1:]
	input, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading xname map file '%s': %w", path, err)
	}
	if err := format.Unmarshal(input, &idMap, format.DataFormatFromFileExt(path, dataFormat)); err != nil {
		return nil, err
	}
	return &idMap, nil
}

func (m *userProvidedMapper) GetMappedID(host string) string {
	xname := m.idMap.IDMap[host]
	if xname == "" {
		log.Warn().Msgf("no mapping found from host '%v' to an xname", host)
	}
	return xname
}
