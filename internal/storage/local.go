package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LocalStorage writes renditions under <baseDir>/<productID>/<variant>/<file>.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

func (s *LocalStorage) Save(_ context.Context, productID int64, variant, fileName string, data []byte, _ string) (string, error) {
	dir := filepath.Join(s.baseDir, strconv.FormatInt(productID, 10), variant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return fmt.Sprintf("/uploads/products/%d/%s/%s", productID, variant, fileName), nil
}

// Delete removes one rendition file. A missing file is not an error;
// deletion is best-effort by contract.
func (s *LocalStorage) Delete(_ context.Context, productID int64, variant, fileName string) error {
	path := filepath.Join(s.baseDir, strconv.FormatInt(productID, 10), variant, fileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) Type() string { return "local" }
