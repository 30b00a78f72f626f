// Package credential stores the default wallet credential on disk.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	corewallet "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

// StorageName is the fixed name of the default credential record.
const StorageName = "cashlabs_default_wallet"

// FileStore reads and writes <dir>/cashlabs_default_wallet.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, StorageName+".json")
}

// Default implements wallet.CredentialStore. A missing file, or a record
// without key material, means no default.
func (s *FileStore) Default(ctx context.Context) (corewallet.Credential, bool, error) {
	if err := ctx.Err(); err != nil {
		return corewallet.Credential{}, false, err
	}
	raw, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return corewallet.Credential{}, false, nil
	}
	if err != nil {
		return corewallet.Credential{}, false, fmt.Errorf("read default credential: %w", err)
	}
	var cred corewallet.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return corewallet.Credential{}, false, fmt.Errorf("decode default credential: %w", err)
	}
	if cred.Empty() {
		return corewallet.Credential{}, false, nil
	}
	return cred, true, nil
}

// Save writes cred as the default, readable by the owner only.
func (s *FileStore) Save(ctx context.Context, cred corewallet.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cred.Empty() {
		return errors.New("credential has no key material")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	raw, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(), raw, 0o600)
}

// Static is a CredentialStore over a fixed value, for tests and embedding.
type Static struct {
	Cred corewallet.Credential
}

// Default implements wallet.CredentialStore.
func (s Static) Default(context.Context) (corewallet.Credential, bool, error) {
	return s.Cred, !s.Cred.Empty(), nil
}
