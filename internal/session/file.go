package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// fileMagic prefixes encrypted session files.
const fileMagic = "CSS1"

// ErrBadPassphrase is returned when an encrypted session file cannot be
// opened with the configured passphrase.
var ErrBadPassphrase = errors.New("session: wrong passphrase or corrupt file")

// FileStore keeps the whole session as one JSON object in a file.  With a
// passphrase the file is sealed with NaCl secretbox under an scrypt-derived
// key; without one it is plain JSON readable only by the owner.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	data       map[string]string
}

// OpenFileStore loads path, creating an empty store when the file does not
// exist yet.
func OpenFileStore(path, passphrase string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]string)}
	if passphrase != "" {
		fs.passphrase = []byte(passphrase)
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return fs, nil
	}
	plain, err := fs.open(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plain, &fs.data); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if fs.data == nil {
		fs.data = make(map[string]string)
	}
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.flush()
}

func (f *FileStore) Close() error { return nil }

// flush writes the map through a temporary file and renames it into place.
func (f *FileStore) flush() error {
	plain, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	out, err := f.seal(plain)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("mkdir session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// seal encrypts plain when a passphrase is set.  Layout:
// magic | salt(16) | nonce(24) | secretbox(plain).
func (f *FileStore) seal(plain []byte) ([]byte, error) {
	if f.passphrase == nil {
		return plain, nil
	}
	var salt [16]byte
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	key, err := deriveKey(f.passphrase, salt[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(fileMagic)+len(salt)+len(nonce)+len(plain)+secretbox.Overhead)
	out = append(out, fileMagic...)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (f *FileStore) open(raw []byte) ([]byte, error) {
	sealed := len(raw) >= len(fileMagic) && string(raw[:len(fileMagic)]) == fileMagic
	if !sealed {
		// A plain file is sealed on the next write when a passphrase is set.
		return raw, nil
	}
	if f.passphrase == nil {
		return nil, ErrBadPassphrase
	}
	rest := raw[len(fileMagic):]
	if len(rest) < 16+24+secretbox.Overhead {
		return nil, ErrBadPassphrase
	}
	var nonce [24]byte
	salt := rest[:16]
	copy(nonce[:], rest[16:40])
	key, err := deriveKey(f.passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, rest[40:], &nonce, key)
	if !ok {
		return nil, ErrBadPassphrase
	}
	return plain, nil
}

func deriveKey(passphrase, salt []byte) (*[32]byte, error) {
	k, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], k)
	return &key, nil
}
