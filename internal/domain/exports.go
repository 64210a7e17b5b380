package domain

import (
	interfaces "didstore/internal/domain/interfaces"
	types "didstore/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	DID              = types.DID
	DIDURL           = types.DIDURL
	DIDMeta          = types.DIDMeta
	DIDEntry         = types.DIDEntry
	CredentialMeta   = types.CredentialMeta
	CredentialEntry  = types.CredentialEntry
	StoreMeta        = types.StoreMeta
	PrivateIdentity  = types.PrivateIdentity
	KeyBlob          = types.KeyBlob
	Rotation         = types.Rotation
	DIDRecord        = types.DIDRecord
	CredentialRecord = types.CredentialRecord
	Import           = types.Import
	ListFilter       = types.ListFilter
	Fingerprint      = types.Fingerprint
	Operation        = types.Operation
	Request          = types.Request
	RequestProof     = types.RequestProof
	ResolvedRecord   = types.ResolvedRecord
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Storage = interfaces.Storage
	Backend = interfaces.Backend
)

// Re-exported constants.
const (
	FilterAll           = types.FilterAll
	FilterHasPrivateKey = types.FilterHasPrivateKey
	FilterNoPrivateKey  = types.FilterNoPrivateKey

	OpCreate     = types.OpCreate
	OpUpdate     = types.OpUpdate
	OpDeactivate = types.OpDeactivate
)

const (
	StoreType    = types.StoreType
	StoreVersion = types.StoreVersion
)

// Re-exported constructors.
var (
	NewDID        = types.NewDID
	ParseDID      = types.ParseDID
	NewDIDURL     = types.NewDIDURL
	ParseDIDURL   = types.ParseDIDURL
	ValidFragment = types.ValidFragment

	ParseListFilter = types.ParseListFilter
)
