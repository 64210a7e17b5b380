package fault

// common errors - keep in alphabetic order
var (
	ErrAlreadyDeactivated   = New(Deactivated, "DID already deactivated.")
	ErrAuthorizationKey     = New(Store, "No matched authorization key.")
	ErrDefaultKeyNotAuthKey = New(Store, "Default key must be an authentication key.")
	ErrDIDDeactivated       = New(Deactivated, "DID is deactivated.")
	ErrDIDExists            = New(Store, "DID already exists.")
	ErrDuplicateFragment    = New(Store, "Duplicate fragment in document.")
	ErrIdentityExists       = New(Store, "DID store already has private identity.")
	ErrInvalidMnemonic      = New(Store, "Invalid mnemonic.")
	ErrNoAuthenticationKey  = New(Store, "Document must have at least one authentication key.")
	ErrNoDefaultKey         = New(Store, "Document has no usable default key.")
	ErrNoDocument           = New(Store, "Can not load DID document.")
	ErrNoPrivateIdentity    = New(Store, "DID store does not contain private identity.")
	ErrNoPrivateKey         = New(Store, "No private key for signing.")
	ErrNotGenuine           = New(Malformed, "Document is not genuine.")
	ErrTransactionConflict  = New(Store, "Update ID transaction error.")
	ErrUnsupportedExport    = New(Malformed, "Unsupported export format.")
	ErrWrongExportPassword  = New(WrongPassword, "Wrong export password or corrupted export.")
	ErrWrongPassword        = New(WrongPassword, "Wrong password.")
)
