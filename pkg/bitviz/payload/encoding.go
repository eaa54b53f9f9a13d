package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/fxamacker/cbor/v2"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
)

// Encoding names
const (
	EncodingBase64 = "base64" // indented JSON, UTF-8, base64
	EncodingGzip   = "gzip"   // gzip of the same JSON, base64
	EncodingBzip2  = "bzip2"  // bzip2 of the same JSON, base64
	EncodingCBOR   = "cbor"   // deterministic CBOR, base64
)

// DefaultEncoding is the exchange form other tools expect.
const DefaultEncoding = EncodingBase64

// Codec converts a payload to the bytes that get base64 wrapped, and
// decodes such bytes back into a generic document for Apply.
type Codec interface {
	Name() string
	Marshal(p *Payload) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// Registry maps encoding names to codecs
var Registry = make(map[string]Codec)

// Register registers a codec under its name
func Register(c Codec) {
	Registry[c.Name()] = c
}

// Get retrieves a codec by name. An empty name selects DefaultEncoding.
func Get(name string) (Codec, error) {
	if name == "" {
		name = DefaultEncoding
	}
	c, ok := Registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", bverrors.ErrUnknownEncoding, name)
	}
	return c, nil
}

// Names lists the registered encodings in sorted order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for n := range Registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(jsonCodec{})
	Register(compressedCodec{name: EncodingGzip, compress: gzipCompress, decompress: gzipDecompress})
	Register(compressedCodec{name: EncodingBzip2, compress: bzip2Compress, decompress: bzip2Decompress})
	Register(newCBORCodec())
}

// EncodeString renders p as an exchange string.
func EncodeString(p *Payload, encoding string) (string, error) {
	c, err := Get(encoding)
	if err != nil {
		return "", err
	}
	data, err := c.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", c.Name(), err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeString parses an exchange string. Whitespace anywhere in the text
// is ignored and padding is optional.
func DecodeString(text, encoding string) (any, error) {
	c, err := Get(encoding)
	if err != nil {
		return nil, err
	}
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if normalized == "" {
		return nil, bverrors.ErrEmptyConfig
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(normalized, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bverrors.ErrInvalidBase64, err)
		}
	}
	return c.Unmarshal(data)
}

// MarshalJSON renders p as two-space indented JSON without HTML escaping.
func MarshalJSON(p *Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON parses a JSON document into generic values.
func UnmarshalJSON(data []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing configuration JSON: %w", err)
	}
	return doc, nil
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return EncodingBase64 }
func (jsonCodec) Marshal(p *Payload) ([]byte, error) { return MarshalJSON(p) }
func (jsonCodec) Unmarshal(data []byte) (any, error) { return UnmarshalJSON(data) }

// cborCodec uses Core Deterministic Encoding so identical payloads encode
// to identical strings. Maps decode as map[string]any to match JSON.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("payload: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("payload: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string { return EncodingCBOR }

func (c cborCodec) Marshal(p *Payload) ([]byte, error) {
	return c.enc.Marshal(p)
}

func (c cborCodec) Unmarshal(data []byte) (any, error) {
	var doc any
	if err := c.dec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing configuration CBOR: %w", err)
	}
	return doc, nil
}
