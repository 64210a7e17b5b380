package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"didstore/internal/fault"
	"didstore/internal/schema"
)

func TestValidateDocument(t *testing.T) {
	ok := `{
	  "id": "did:elastos:iabc",
	  "publicKey": [{"id": "did:elastos:iabc#primary", "type": "ECDSAsecp256k1",
	    "controller": "did:elastos:iabc", "publicKeyBase58": "xyz"}],
	  "authentication": ["did:elastos:iabc#primary"],
	  "expires": "2030-01-01T00:00:00Z",
	  "version": 1,
	  "proof": {"type": "ECDSAsecp256k1", "created": "2025-01-01T00:00:00Z",
	    "creator": "did:elastos:iabc#primary", "signatureValue": "sig"}
	}`
	assert.NoError(t, schema.ValidateDocument([]byte(ok)))

	missingAuth := `{"id": "did:elastos:iabc", "publicKey": [], "expires": "x", "proof": {}}`
	err := schema.ValidateDocument([]byte(missingAuth))
	assert.True(t, fault.IsErrMalformed(err))

	err = schema.ValidateDocument([]byte("not json"))
	assert.True(t, fault.IsErrMalformed(err))
}

func TestValidateCredential(t *testing.T) {
	ok := `{
	  "id": "did:elastos:iabc#email",
	  "type": ["BasicProfileCredential"],
	  "issuer": "did:elastos:iabc",
	  "issuanceDate": "2025-01-01T00:00:00Z",
	  "credentialSubject": {"id": "did:elastos:iabc", "email": "a@b.c"},
	  "proof": {"type": "ECDSAsecp256k1", "verificationMethod": "did:elastos:iabc#primary", "signature": "sig"}
	}`
	assert.NoError(t, schema.ValidateCredential([]byte(ok)))

	noProof := `{"id": "did:elastos:iabc#email", "type": ["X"], "issuer": "did:elastos:iabc",
	  "issuanceDate": "2025-01-01T00:00:00Z", "credentialSubject": {"id": "did:elastos:iabc"}}`
	assert.True(t, fault.IsErrMalformed(schema.ValidateCredential([]byte(noProof))))
}

func TestValidatePresentation(t *testing.T) {
	ok := `{
	  "type": "VerifiablePresentation",
	  "created": "2025-01-01T00:00:00Z",
	  "verifiableCredential": [{"id": "did:elastos:iabc#email"}],
	  "proof": {"type": "ECDSAsecp256k1", "verificationMethod": "did:elastos:iabc#primary",
	    "nonce": "n", "realm": "r", "signature": "sig"}
	}`
	assert.NoError(t, schema.ValidatePresentation([]byte(ok)))

	noCredentials := `{"type": "VerifiablePresentation", "created": "2025-01-01T00:00:00Z",
	  "verifiableCredential": [],
	  "proof": {"type": "t", "verificationMethod": "did:elastos:iabc#primary", "nonce": "n", "realm": "r", "signature": "s"}}`
	assert.True(t, fault.IsErrMalformed(schema.ValidatePresentation([]byte(noCredentials))))

	noNonce := `{"type": "VerifiablePresentation", "created": "2025-01-01T00:00:00Z",
	  "verifiableCredential": [{}],
	  "proof": {"type": "t", "verificationMethod": "did:elastos:iabc#primary", "realm": "r", "signature": "s"}}`
	assert.True(t, fault.IsErrMalformed(schema.ValidatePresentation([]byte(noNonce))))
}
