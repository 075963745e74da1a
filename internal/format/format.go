package format

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type DataFormat string

const (
	FORMAT_LIST DataFormat = "list"
	FORMAT_JSON DataFormat = "json"
	FORMAT_YAML DataFormat = "yaml"
)

func (df DataFormat) String() string {
	return string(df)
}

func (df *DataFormat) Set(v string) error {
	switch DataFormat(v) {
	case FORMAT_LIST, FORMAT_JSON, FORMAT_YAML:
		*df = DataFormat(v)
		return nil
	default:
		return fmt.Errorf("must be one of %v", []DataFormat{FORMAT_LIST, FORMAT_JSON, FORMAT_YAML})
	}
}

func (df DataFormat) Type() string {
	return "DataFormat"
}

// Marshal encodes data as JSON or YAML. The list format is rendered by the
// caller and cannot be marshaled here.
func Marshal(data any, outFormat DataFormat) ([]byte, error) {
	switch outFormat {
	case FORMAT_JSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into JSON: %w", err)
		}
		return b, nil
	case FORMAT_YAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into YAML: %w", err)
		}
		return b, nil
	case FORMAT_LIST:
		return nil, fmt.Errorf("this data format cannot be marshaled")
	default:
		return nil, fmt.Errorf("unknown data format: %s", outFormat)
	}
}

func Unmarshal(data []byte, v any, inFormat DataFormat) error {
	switch inFormat {
	case FORMAT_JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal JSON data: %w", err)
		}
	case FORMAT_YAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal YAML data: %w", err)
		}
	case FORMAT_LIST:
		return fmt.Errorf("this data format cannot be unmarshaled")
	default:
		return fmt.Errorf("unknown data format: %s", inFormat)
	}
	return nil
}

// Write marshals data and writes it to w followed by a newline.
func Write(w io.Writer, data any, outFormat DataFormat) error {
	b, err := Marshal(data, outFormat)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if len(b) > 0 && b[len(b)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// DataFormatFromFileExt guesses JSON or YAML from a file extension and
// falls back to defaultFmt.
func DataFormatFromFileExt(path string, defaultFmt DataFormat) DataFormat {
	switch filepath.Ext(path) {
	case ".json", ".JSON":
		return FORMAT_JSON
	case ".yaml", ".yml", ".YAML", ".YML":
		return FORMAT_YAML
	}
	return defaultFmt
}
