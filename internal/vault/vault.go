// Package vault encrypts locked notes at rest.
//
// The key is derived from the user's password with argon2id and held in
// memory only while the vault is unlocked. Note bodies are sealed with
// AES-256-GCM; titles stay in the clear so locked notes can be listed.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/argon2"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

const (
	keyLen     = 32
	saltLen    = 16
	kdfThreads = 4
	verifyText = "quire-vault-v1"
)

// Backend is the persistence the vault seals into.
type Backend interface {
	NoteByID(ctx context.Context, id string) (*models.Note, error)
	VaultMeta(ctx context.Context) (store.VaultMeta, error)
	CreateVaultMeta(ctx context.Context, m store.VaultMeta) error
	Seal(ctx context.Context, id string, sealed []byte) error
	WriteSealed(ctx context.Context, id, title string, sealed []byte) error
	Sealed(ctx context.Context, id string) ([]byte, error)
}

// Option configures a Vault.
type Option func(*Vault)

// WithKDF sets the argon2id cost used when the vault is first created.
func WithKDF(time, memoryKiB uint32) Option {
	return func(v *Vault) {
		v.kdfTime = time
		v.kdfMemory = memoryKiB
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) { v.log = l }
}

// Vault seals and opens locked notes.
type Vault struct {
	db        Backend
	kdfTime   uint32
	kdfMemory uint32
	log       *slog.Logger

	mu   sync.RWMutex
	aead cipher.AEAD
}

type payload struct {
	Title   string         `json:"title"`
	Content models.Content `json:"content"`
}

// New creates a locked Vault over db.
func New(db Backend, opts ...Option) *Vault {
	v := &Vault{db: db, kdfTime: 3, kdfMemory: 64 * 1024, log: slog.Default()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Unlock derives the key from password. The first unlock creates the vault
// with the configured KDF cost.
func (v *Vault) Unlock(ctx context.Context, password string) error {
	meta, err := v.db.VaultMeta(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return v.create(ctx, password)
	case err != nil:
		return fmt.Errorf("vault: unlock: %w", err)
	}

	aead, err := newAEAD(argon2.IDKey([]byte(password), meta.Salt, meta.KDFTime, meta.KDFMemory, kdfThreads, keyLen))
	if err != nil {
		return fmt.Errorf("vault: unlock: %w", err)
	}
	plain, err := open(aead, meta.Verifier)
	if err != nil || string(plain) != verifyText {
		return fmt.Errorf("vault: unlock: %w", apperr.ErrWrongPassword)
	}
	v.setAEAD(aead)
	v.log.Info("vault unlocked")
	return nil
}

func (v *Vault) create(ctx context.Context, password string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("vault: salt: %w", err)
	}
	aead, err := newAEAD(argon2.IDKey([]byte(password), salt, v.kdfTime, v.kdfMemory, kdfThreads, keyLen))
	if err != nil {
		return fmt.Errorf("vault: create: %w", err)
	}
	verifier, err := seal(aead, []byte(verifyText))
	if err != nil {
		return fmt.Errorf("vault: create: %w", err)
	}
	meta := store.VaultMeta{Salt: salt, Verifier: verifier, KDFTime: v.kdfTime, KDFMemory: v.kdfMemory}
	if err := v.db.CreateVaultMeta(ctx, meta); err != nil {
		return fmt.Errorf("vault: create: %w", err)
	}
	v.setAEAD(aead)
	v.log.Info("vault created")
	return nil
}

// Forget drops the key from memory.
func (v *Vault) Forget() {
	v.setAEAD(nil)
}

// Unlocked reports whether the key is held.
func (v *Vault) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.aead != nil
}

// Save seals title and content of a locked note.
func (v *Vault) Save(ctx context.Context, in models.NoteInput) error {
	sealed, err := v.sealPayload(payload{Title: in.Title, Content: in.Content})
	if err != nil {
		return fmt.Errorf("vault: save %s: %w", in.ID, err)
	}
	if err := v.db.WriteSealed(ctx, in.ID, in.Title, sealed); err != nil {
		return fmt.Errorf("vault: save %s: %w", in.ID, err)
	}
	return nil
}

// Lock moves a plain note into the vault. Locking a locked note is a no-op.
func (v *Vault) Lock(ctx context.Context, id string) error {
	note, err := v.db.NoteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("vault: lock %s: %w", id, err)
	}
	if note.Locked {
		return nil
	}
	sealed, err := v.sealPayload(payload{Title: note.Title, Content: note.Content})
	if err != nil {
		return fmt.Errorf("vault: lock %s: %w", id, err)
	}
	if err := v.db.Seal(ctx, id, sealed); err != nil {
		return fmt.Errorf("vault: lock %s: %w", id, err)
	}
	v.log.Info("note locked", slog.String("note_id", id))
	return nil
}

// Open returns a locked note with its body decrypted.
func (v *Vault) Open(ctx context.Context, id string) (models.Note, error) {
	note, err := v.db.NoteByID(ctx, id)
	if err != nil {
		return models.Note{}, fmt.Errorf("vault: open %s: %w", id, err)
	}
	sealed, err := v.db.Sealed(ctx, id)
	if err != nil {
		return models.Note{}, fmt.Errorf("vault: open %s: %w", id, err)
	}
	v.mu.RLock()
	aead := v.aead
	v.mu.RUnlock()
	if aead == nil {
		return models.Note{}, fmt.Errorf("vault: open %s: %w", id, apperr.ErrVaultLocked)
	}
	plain, err := open(aead, sealed)
	if err != nil {
		return models.Note{}, fmt.Errorf("vault: open %s: %w", id, err)
	}
	var p payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return models.Note{}, fmt.Errorf("vault: decode %s: %w", id, err)
	}
	note.Title = p.Title
	note.Content = p.Content
	return *note, nil
}

func (v *Vault) sealPayload(p payload) ([]byte, error) {
	v.mu.RLock()
	aead := v.aead
	v.mu.RUnlock()
	if aead == nil {
		return nil, apperr.ErrVaultLocked
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return seal(aead, data)
}

func (v *Vault) setAEAD(a cipher.AEAD) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.aead = a
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext.
func seal(aead cipher.AEAD, plain []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func open(aead cipher.AEAD, sealed []byte) ([]byte, error) {
	n := aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("sealed data too short")
	}
	return aead.Open(nil, sealed[:n], sealed[n:], nil)
}
