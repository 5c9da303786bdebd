package securestore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Keys used by the shell.
const (
	KeyAccessToken = "accessToken"
	KeyLoginCookie = "loginCookie"
)

const (
	fileVersion = 1
	keyInfo     = "took-securestore-v1"

	keyFileSuffix = ".key"
	keyFileBytes  = 32
)

// ErrWrongSecret is returned when the file cannot be opened with the
// configured secret.
var ErrWrongSecret = errors.New("secure store: wrong secret or corrupted file")

type envelope struct {
	Version   int    `json:"version"`
	InstallID string `json:"install_id"`
	Nonce     []byte `json:"nonce"`
	Data      []byte `json:"data"`
}

// Store is an encrypted string key-value file.
type Store struct {
	path      string
	installID uuid.UUID
	key       []byte

	mu sync.Mutex
}

// Open opens the store at path, creating it with a fresh install id when it
// does not exist. An empty secret uses a random key kept in path+".key",
// created together with the store; the install id alone never opens the file.
func Open(path, secret string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	env, err := readEnvelope(path)
	missing := errors.Is(err, os.ErrNotExist)
	if err != nil && !missing {
		return nil, err
	}
	if secret == "" {
		if secret, err = keyFileSecret(path+keyFileSuffix, missing); err != nil {
			return nil, err
		}
	}

	if missing {
		s := &Store{path: path, installID: uuid.New()}
		if s.key, err = deriveKey(secret, s.installID); err != nil {
			return nil, err
		}
		if err := s.write(map[string]string{}); err != nil {
			return nil, err
		}
		return s, nil
	}

	installID, err := uuid.Parse(env.InstallID)
	if err != nil {
		return nil, fmt.Errorf("parse install id: %w", err)
	}
	s := &Store{path: path, installID: installID}
	if s.key, err = deriveKey(secret, installID); err != nil {
		return nil, err
	}
	if _, err := s.open(env); err != nil {
		return nil, err
	}
	return s, nil
}

// InstallID identifies this installation. It is stable for the life of the file.
func (s *Store) InstallID() uuid.UUID {
	return s.installID
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, func(values map[string]string) {
		values[key] = value
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(values map[string]string) {
		delete(values, key)
	})
}

func (s *Store) update(ctx context.Context, fn func(map[string]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	fn(values)
	return s.write(values)
}

func (s *Store) read() (map[string]string, error) {
	env, err := readEnvelope(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return s.open(env)
}

func (s *Store) open(env envelope) (map[string]string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongSecret
	}
	plain, err := aead.Open(nil, env.Nonce, env.Data, []byte(env.InstallID))
	if err != nil {
		return nil, ErrWrongSecret
	}
	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	id := s.installID.String()
	env := envelope{
		Version:   fileVersion,
		InstallID: id,
		Nonce:     nonce,
		Data:      aead.Seal(nil, nonce, plain, []byte(id)),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return writeAtomic(s.path, data)
}

// keyFileSecret reads the random key at path. A missing key is created only
// for a new store; an existing store without its key cannot be opened.
func keyFileSecret(path string, create bool) (string, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(data), nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read store key: %w", err)
	case !create:
		return "", fmt.Errorf("%w: key file %s missing", ErrWrongSecret, path)
	}

	raw := make([]byte, keyFileBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate store key: %w", err)
	}
	secret := hex.EncodeToString(raw)
	if err := writeAtomic(path, []byte(secret)); err != nil {
		return "", fmt.Errorf("write store key: %w", err)
	}
	return secret, nil
}

func deriveKey(secret string, installID uuid.UUID) ([]byte, error) {
	ikm := append([]byte(secret), installID[:]...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, installID[:], []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func readEnvelope(path string) (envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return envelope{}, err
		}
		return envelope{}, fmt.Errorf("read store: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != fileVersion {
		return envelope{}, fmt.Errorf("unsupported store version %d", env.Version)
	}
	return env, nil
}

// writeAtomic replaces path so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".securestore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
