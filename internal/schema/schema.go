// Package schema validates the structure of serialized DID documents,
// verifiable credentials and presentations before they are decoded.
package schema

import (
	_ "embed"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"didstore/internal/fault"
)

var (
	//go:embed document.json
	documentJSON string

	//go:embed credential.json
	credentialJSON string

	//go:embed presentation.json
	presentationJSON string

	documentSchema     = mustLoad(documentJSON)
	credentialSchema   = mustLoad(credentialJSON)
	presentationSchema = mustLoad(presentationJSON)
)

func mustLoad(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sch
}

// ValidateDocument checks data against the DID document schema.
func ValidateDocument(data []byte) error {
	return validate(documentSchema, "document", data)
}

// ValidateCredential checks data against the credential schema.
func ValidateCredential(data []byte) error {
	return validate(credentialSchema, "credential", data)
}

// ValidatePresentation checks data against the presentation schema.
// Embedded credentials are validated separately when they are decoded.
func ValidatePresentation(data []byte) error {
	return validate(presentationSchema, "presentation", data)
}

func validate(sch *gojsonschema.Schema, what string, data []byte) error {
	result, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fault.Wrap(fault.Malformed, what+" is not JSON", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fault.Newf(fault.Malformed, "%s is invalid: %s", what, strings.Join(msgs, "; "))
}
