package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quire/internal/apperr"
)

// VaultMeta holds the key derivation parameters of the vault and a sealed
// verifier used to check passwords.
type VaultMeta struct {
	Salt      []byte
	Verifier  []byte
	KDFTime   uint32
	KDFMemory uint32
}

// VaultMeta returns the stored vault parameters, or apperr.ErrNotFound when
// no vault was created yet.
func (db *DB) VaultMeta(ctx context.Context) (VaultMeta, error) {
	var m VaultMeta
	err := db.conn.QueryRowContext(ctx,
		`SELECT salt, verifier, kdf_time, kdf_memory FROM vault_meta WHERE id = 1`,
	).Scan(&m.Salt, &m.Verifier, &m.KDFTime, &m.KDFMemory)
	if errors.Is(err, sql.ErrNoRows) {
		return VaultMeta{}, fmt.Errorf("store: vault meta: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return VaultMeta{}, fmt.Errorf("store: vault meta: %w", err)
	}
	return m, nil
}

// CreateVaultMeta stores the vault parameters once.
func (db *DB) CreateVaultMeta(ctx context.Context, m VaultMeta) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vault_meta (id, salt, verifier, kdf_time, kdf_memory) VALUES (1, ?, ?, ?, ?)`,
		m.Salt, m.Verifier, m.KDFTime, m.KDFMemory)
	if err != nil {
		return fmt.Errorf("store: create vault meta: %w", err)
	}
	return nil
}

// Seal marks a note locked, replacing its plaintext body with sealed. The
// title stays readable for listing.
func (db *DB) Seal(ctx context.Context, id string, sealed []byte) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE notes
		SET locked = 1, sealed = ?, body = '', delta = NULL, date_edited = ?
		WHERE id = ?
	`, sealed, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: seal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: seal %s: %w", id, apperr.ErrNotFound)
	}
	// Drop the plaintext from the search index.
	if err := ftsUpsert(tx, id, "", ""); err != nil {
		return err
	}
	return tx.Commit()
}

// WriteSealed updates the title and sealed body of a locked note.
func (db *DB) WriteSealed(ctx context.Context, id, title string, sealed []byte) error {
	return db.update(ctx, id,
		`UPDATE notes SET title = ?, sealed = ?, date_edited = ? WHERE id = ? AND locked = 1`,
		title, sealed, time.Now().UTC(), id)
}

// Sealed returns the sealed body of a locked note.
func (db *DB) Sealed(ctx context.Context, id string) ([]byte, error) {
	var (
		sealed []byte
		locked bool
	)
	err := db.conn.QueryRowContext(ctx, `SELECT sealed, locked FROM notes WHERE id = ?`, id).Scan(&sealed, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: sealed %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: sealed %s: %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("store: sealed %s: note is not locked", id)
	}
	return sealed, nil
}
