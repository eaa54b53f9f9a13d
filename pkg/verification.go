package pkg

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/jsnum"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/payload"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/session"
)

// Check is one line of a verification report.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Verification is the outcome of VerifyConfig.
type Verification struct {
	Encoding string
	Checks   []Check
	// Session holds the configuration as it would be imported.
	Session *session.Session
}

// Passed reports whether every check succeeded.
func (v *Verification) Passed() bool {
	for _, c := range v.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failures counts failed checks.
func (v *Verification) Failures() int {
	n := 0
	for _, c := range v.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

func (v *Verification) add(logger hclog.Logger, name string, ok bool, detail string) {
	v.Checks = append(v.Checks, Check{Name: name, OK: ok, Detail: detail})
	if ok {
		logger.Info("✓ "+name+" valid", "detail", detail)
	} else {
		logger.Error("✗ "+name+" check failed", "detail", detail)
	}
}

// VerifyConfigWithLogger decodes an exchange string and applies it to a
// scratch session, recording what an import would keep and drop. Only an
// undecodable string is an error; everything else becomes a failed check.
func VerifyConfigWithLogger(text, encoding string, logger hclog.Logger) (*Verification, error) {
	if encoding == "" {
		encoding = payload.DefaultEncoding
	}
	doc, err := payload.DecodeString(text, encoding)
	if err != nil {
		logger.Error("Failed to decode configuration", "encoding", encoding, "error", err)
		return nil, err
	}

	v := &Verification{Encoding: encoding}
	logger.Info("Verifying configuration", "encoding", encoding)

	fields, isObject := doc.(map[string]any)
	v.add(logger, "Payload", isObject, fmt.Sprintf("%T", doc))

	version, hasVersion := fields["version"]
	v.add(logger, "Version", hasVersion && jsnum.Value(version) == payload.Version,
		fmt.Sprintf("%v", version))

	raw, isArray := fields["bytes"].([]any)
	exact := isArray && len(raw) > 0
	for _, b := range raw {
		n := jsnum.Value(b)
		if !jsnum.Finite(n) || float64(grid.NormalizeByte(n)) != n {
			exact = false
		}
	}
	v.add(logger, "Bytes", exact, fmt.Sprintf("%d entries", len(raw)))

	s := session.New(hclog.NewNullLogger(), session.Options{})
	if err := s.Import(doc); err != nil {
		v.add(logger, "Import", false, err.Error())
		return v, nil
	}
	v.Session = s

	entries, _ := fields["groups"].([]any)
	kept := s.Store().Len()
	v.add(logger, "Groups", kept == len(entries), fmt.Sprintf("%d of %d kept", kept, len(entries)))

	failing := 0
	for _, out := range s.Outputs() {
		if out.Error != "" {
			failing++
			logger.Warn("Decoder reported an error", "group", out.GroupID, "error", out.Error)
		}
	}
	v.add(logger, "Decoders", failing == 0, fmt.Sprintf("%d of %d failing", failing, kept))

	if v.Passed() {
		logger.Info("✓ Configuration verification passed")
	} else {
		logger.Error("✗ Configuration verification failed", "error_count", v.Failures())
	}
	return v, nil
}
