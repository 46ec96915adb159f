package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatTOML    = "toml"
	FormatMsgpack = "msgpack"
	FormatBolt    = "bolt"
)

// codec converts the state record to and from bytes. Decode rejects
// unknown fields.
type codec interface {
	Format() string
	Encode(*record) ([]byte, error)
	Decode([]byte, *record) error
}

// FormatForPath picks a storage format from the file extension. Unknown
// extensions fall back to JSON.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".msgpack", ".mpk":
		return FormatMsgpack
	case ".db", ".bolt":
		return FormatBolt
	default:
		return FormatJSON
	}
}

func codecFor(format string) (codec, error) {
	switch format {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	case FormatMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported state format %q", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Format() string { return FormatJSON }

func (jsonCodec) Encode(rec *record) ([]byte, error) {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) Decode(b []byte, rec *record) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after state record")
	}
	return nil
}

type yamlCodec struct{}

func (yamlCodec) Format() string { return FormatYAML }

func (yamlCodec) Encode(rec *record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Decode(b []byte, rec *record) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(rec)
}

type tomlCodec struct{}

func (tomlCodec) Format() string { return FormatTOML }

func (tomlCodec) Encode(rec *record) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) Decode(b []byte, rec *record) error {
	md, err := toml.NewDecoder(bytes.NewReader(b)).Decode(rec)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown fields: %s", strings.Join(keys, ", "))
	}
	return nil
}

type msgpackCodec struct{}

func (msgpackCodec) Format() string { return FormatMsgpack }

func (msgpackCodec) Encode(rec *record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func (msgpackCodec) Decode(b []byte, rec *record) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields(true)
	return dec.Decode(rec)
}
