package wallet

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const keychainService = "w3token"

// Errors.
var (
	ErrKeyNotFound = errors.New("no key stored for wallet")
	ErrInvalidKey  = errors.New("invalid private key")
)

// Keystore stores signing keys in the OS keychain.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// DefaultKeystore returns a keystore backed by the OS keychain. fileDir is
// where the encrypted file backend lives on headless Linux.
func DefaultKeystore(fileDir string) (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keychain: %w", err)
	}
	return &Keystore{ring: ring}, nil
}

// Ref returns the keychain item key for a wallet name.
func Ref(name string) string {
	return keychainService + "." + name
}

// Import validates hexKey, stores it under name and returns its address.
func (k *Keystore) Import(name, hexKey string) (common.Address, error) {
	hexKey = normaliseHexKey(hexKey)
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	err = k.ring.Set(keyring.Item{
		Key:         Ref(name),
		Data:        []byte(hexKey),
		Label:       "w3token wallet " + name,
		Description: "EVM signing key",
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("keychain store: %w", err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// Retrieve fetches the hex private key stored for name.
func (k *Keystore) Retrieve(name string) (string, error) {
	item, err := k.ring.Get(Ref(name))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes the key stored for name.
func (k *Keystore) Delete(name string) error {
	err := k.ring.Remove(Ref(name))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return err
}

// Names lists wallet names that have a stored key.
func (k *Keystore) Names() ([]string, error) {
	keys, err := k.ring.Keys()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, key := range keys {
		if name, ok := strings.CutPrefix(key, keychainService+"."); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return s
}
