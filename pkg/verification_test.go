package pkg

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/session"
)

func checkResults(v *Verification) map[string]bool {
	out := map[string]bool{}
	for _, c := range v.Checks {
		out[c.Name] = c.OK
	}
	return out
}

func TestVerifyExportedConfig(t *testing.T) {
	s := session.New(testLogger("verify_test"), session.Options{
		Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err := s.SetHex("0x1234"); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(grid.Position{ByteIndex: 1, BitIndex: 4}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GroupSelection("Nibble"); err != nil {
		t.Fatal(err)
	}

	for _, encoding := range []string{"base64", "gzip", "bzip2", "cbor"} {
		t.Run(encoding, func(t *testing.T) {
			text, err := s.ExportString(encoding, false)
			if err != nil {
				t.Fatal(err)
			}
			v, err := VerifyConfigWithLogger(text, encoding, testLogger("verify"))
			if err != nil {
				t.Fatal(err)
			}
			if !v.Passed() {
				t.Errorf("checks = %+v", v.Checks)
			}
			if v.Session == nil || v.Session.Grid().Hex() != "0x1234" {
				t.Error("scratch session does not hold the configuration")
			}
		})
	}
}

func TestVerifyReportsProblems(t *testing.T) {
	doc := `{"version":2,"bytes":[300,1.5],"groups":[{"bits":[]},{"type":"value","decoderSource":"x","bits":[{"byteIndex":0,"bitIndex":0}]}]}`
	text := base64.StdEncoding.EncodeToString([]byte(doc))

	v, err := VerifyConfigWithLogger(text, "", testLogger("verify"))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"Payload":  true,
		"Version":  false,
		"Bytes":    false,
		"Groups":   false,
		"Decoders": false,
	}
	got := checkResults(v)
	for name, ok := range want {
		if got[name] != ok {
			t.Errorf("check %s = %v, want %v", name, got[name], ok)
		}
	}
	if v.Passed() || v.Failures() != 4 {
		t.Errorf("failures = %d", v.Failures())
	}
	if v.Encoding != "base64" {
		t.Errorf("encoding = %q", v.Encoding)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := VerifyConfigWithLogger("@@@", "base64", testLogger("verify")); !errors.Is(err, bverrors.ErrInvalidBase64) {
		t.Errorf("err = %v, want ErrInvalidBase64", err)
	}

	arrayDoc := base64.StdEncoding.EncodeToString([]byte(`[]`))
	v, err := VerifyConfigWithLogger(arrayDoc, "base64", testLogger("verify"))
	if err != nil {
		t.Fatal(err)
	}
	if checkResults(v)["Payload"] {
		t.Error("array payload passed the object check")
	}
}
