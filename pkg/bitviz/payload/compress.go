package payload

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// compressedCodec wraps the JSON form in a compression layer.
type compressedCodec struct {
	name       string
	compress   func(input []byte) ([]byte, error)
	decompress func(input []byte) ([]byte, error)
}

func (c compressedCodec) Name() string { return c.name }

func (c compressedCodec) Marshal(p *Payload) ([]byte, error) {
	raw, err := MarshalJSON(p)
	if err != nil {
		return nil, err
	}
	return c.compress(raw)
}

func (c compressedCodec) Unmarshal(data []byte) (any, error) {
	raw, err := c.decompress(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalJSON(raw)
}

// gzipCompress compresses data using GZIP
func gzipCompress(input []byte) ([]byte, error) {
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(input); err != nil {
		gw.Close()
		return nil, fmt.Errorf("writing gzip data: %w", err)
	}

	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// gzipDecompress decompresses GZIP data
func gzipDecompress(input []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("reading gzip data: %w", err)
	}
	return data, nil
}

// bzip2Compress compresses data using BZIP2
func bzip2Compress(input []byte) ([]byte, error) {
	var buf bytes.Buffer

	bw, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}

	if _, err := bw.Write(input); err != nil {
		bw.Close()
		return nil, fmt.Errorf("writing bzip2 data: %w", err)
	}

	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("closing bzip2 writer: %w", err)
	}

	return buf.Bytes(), nil
}

// bzip2Decompress decompresses BZIP2 data
func bzip2Decompress(input []byte) ([]byte, error) {
	br, err := bzip2.NewReader(bytes.NewReader(input), &bzip2.ReaderConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 reader: %w", err)
	}
	defer br.Close()

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reading bzip2 data: %w", err)
	}
	return data, nil
}
