// Package mnemonic wraps BIP39 mnemonic generation, validation and seed
// derivation for the supported word list languages.
package mnemonic

import (
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"

	"didstore/internal/fault"
)

// Supported languages.
const (
	ChineseSimplified  = "chinese_simplified"
	ChineseTraditional = "chinese_traditional"
	Czech              = "czech"
	English            = "english"
	French             = "french"
	Italian            = "italian"
	Japanese           = "japanese"
	Korean             = "korean"
	Spanish            = "spanish"
)

var lists = map[string][]string{
	ChineseSimplified:  wordlists.ChineseSimplified,
	ChineseTraditional: wordlists.ChineseTraditional,
	Czech:              wordlists.Czech,
	English:            wordlists.English,
	French:             wordlists.French,
	Italian:            wordlists.Italian,
	Japanese:           wordlists.Japanese,
	Korean:             wordlists.Korean,
	Spanish:            wordlists.Spanish,
}

// bip39 keeps its word list in a package global.
var mu sync.Mutex

const entropyBits = 128

func use(language string) error {
	if language == "" {
		language = English
	}
	list, ok := lists[strings.ToLower(language)]
	if !ok {
		return fault.Newf(fault.Store, "unsupported mnemonic language %q", language)
	}
	bip39.SetWordList(list)
	return nil
}

// Generate returns a fresh 12-word mnemonic in language.
func Generate(language string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := use(language); err != nil {
		return "", err
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// IsValid reports whether m is a well-formed mnemonic in language.
func IsValid(language, m string) bool {
	mu.Lock()
	defer mu.Unlock()

	if err := use(language); err != nil {
		return false
	}
	return bip39.IsMnemonicValid(normalize(m))
}

// Seed derives the 64-byte BIP39 seed. The caller wipes the result.
func Seed(language, m, passphrase string) ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := use(language); err != nil {
		return nil, err
	}
	seed, err := bip39.NewSeedWithErrorChecking(normalize(m), passphrase)
	if err != nil {
		return nil, fault.Wrap(fault.Store, fault.ErrInvalidMnemonic.Msg, err)
	}
	return seed, nil
}

// Languages lists the supported languages.
func Languages() []string {
	return []string{
		ChineseSimplified, ChineseTraditional, Czech, English, French,
		Italian, Japanese, Korean, Spanish,
	}
}

func normalize(m string) string {
	return strings.Join(strings.Fields(m), " ")
}
