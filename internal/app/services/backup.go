package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
)

// ErrEmptyBackup is returned when there is nothing to export.
var ErrEmptyBackup = errors.New("backup has no wallets")

// BackupExporter writes the key material of generated wallets somewhere the
// user can retrieve it. Exports are one-way.
type BackupExporter interface {
	Export(ctx context.Context, b *dto.Backup) (location string, err error)
}

// FileBackupExporter writes one JSON file per run
// PRINCIPLES:
// - SRP: Only responsible for persisting backups
// - Files are created 0600 and never overwritten
type FileBackupExporter struct {
	dir string
	key []byte
}

// NewFileBackupExporter writes into dir. A non-nil key seals every file with
// AES-256-GCM.
func NewFileBackupExporter(dir string, key []byte) (*FileBackupExporter, error) {
	if key != nil && len(key) != serialization.KeySize {
		return nil, serialization.ErrKeySize
	}
	return &FileBackupExporter{dir: dir, key: key}, nil
}

// FileName is the artifact name for a run.
func (e *FileBackupExporter) FileName(runID string) string {
	if e.key != nil {
		return "cashlabs-backup-" + runID + ".json.enc"
	}
	return "cashlabs-backup-" + runID + ".json"
}

func (e *FileBackupExporter) Export(ctx context.Context, b *dto.Backup) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b == nil || len(b.Wallets) == 0 {
		return "", ErrEmptyBackup
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	if e.key != nil {
		if data, err = serialization.Seal(e.key, data); err != nil {
			return "", fmt.Errorf("seal backup: %w", err)
		}
	}

	if err := os.MkdirAll(e.dir, 0o700); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(e.dir, e.FileName(b.RunID))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}
	return path, nil
}

// ReadBackup loads an exported file, opening it with key when sealed.
func ReadBackup(path string, key []byte) (*dto.Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if key != nil {
		if data, err = serialization.Open(key, data); err != nil {
			return nil, fmt.Errorf("open backup: %w", err)
		}
	}
	var b dto.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &b, nil
}
