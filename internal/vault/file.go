package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/juju/errors"
)

// FileName is the vault file created inside the config directory.
const FileName = "vault.enc"

// FileVault stores secrets in an AES-256-GCM encrypted JSON file.
type FileVault struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileVault creates a vault backed by <dir>/vault.enc.
func NewFileVault(dir string) *FileVault {
	return &FileVault{
		path: filepath.Join(dir, FileName),
		key:  deriveKey(),
	}
}

// Path returns the location of the encrypted file.
func (f *FileVault) Path() string { return f.path }

func deriveKey() []byte {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}

	seed := fmt.Sprintf("cloudcanvas-vault:%s:%s", hostname, username)
	hash := sha256.Sum256([]byte(seed))
	return hash[:]
}

func (f *FileVault) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, errors.Trace(err)
	}

	plaintext, err := f.decrypt(data)
	if err != nil {
		return nil, errors.Annotate(err, "vault decrypt")
	}

	var store map[string]string
	if err := json.Unmarshal(plaintext, &store); err != nil {
		return nil, errors.Annotate(err, "vault parse")
	}
	if store == nil {
		store = make(map[string]string)
	}
	return store, nil
}

func (f *FileVault) save(store map[string]string) error {
	plaintext, err := json.Marshal(store)
	if err != nil {
		return errors.Trace(err)
	}

	ciphertext, err := f.encrypt(plaintext)
	if err != nil {
		return errors.Trace(err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Trace(err)
	}
	return os.WriteFile(f.path, ciphertext, 0o600)
}

func (f *FileVault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileVault) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := f.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (f *FileVault) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := f.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, body, nil)
}

func (f *FileVault) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return err
	}
	store[key] = value
	return f.save(store)
}

func (f *FileVault) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return "", err
	}
	val, ok := store[key]
	if !ok {
		return "", errors.WithType(errors.Errorf("key %q", key), ErrKeyNotFound)
	}
	return val, nil
}

func (f *FileVault) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := store[key]; !ok {
		return errors.WithType(errors.Errorf("key %q", key), ErrKeyNotFound)
	}
	delete(store, key)
	return f.save(store)
}

func (f *FileVault) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
