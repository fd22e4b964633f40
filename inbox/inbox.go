// Package inbox is the file transport for batch files: a data directory holding the
// batches and a status directory holding one marker file per state.
//
//	<root>/data/<name>.txt.asc   encrypted batch (or <name>.txt when unencrypted)
//	<root>/status/<name>.fetched  ready to process
//	<root>/status/<name>.processed
//	<root>/status/<name>.error    holds the error text
package inbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo"
)

const (
	dataDir   = "data"
	statusDir = "status"
	tmpDir    = "tmp"

	markerFetched   = ".fetched"
	markerProcessed = ".processed"
	markerError     = ".error"

	encryptedExt = ".txt.asc"
	plainExt     = ".txt"
)

// ErrBatchMissing means a fetched marker has no batch file next to it.
var ErrBatchMissing = errors.New("batch file not found")

type Inbox struct {
	Root         string
	DocumentType models.DocumentType
	// empty when batches are not encrypted
	Passphrase string
}

func New(root string, doc models.DocumentType, passphrase string) *Inbox {
	return &Inbox{Root: root, DocumentType: doc, Passphrase: passphrase}
}

func (i *Inbox) statusPath(name string, marker string) string {
	return filepath.Join(i.Root, statusDir, name+marker)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Pending lists batch names that were fetched but are neither processed nor failed, in name order.
func (i *Inbox) Pending() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(i.Root, statusDir))
	if err != nil {
		return nil, fmt.Errorf("read status dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), markerFetched) {
			continue
		}
		// the batch name stops at the first dot
		name := e.Name()
		if idx := strings.Index(name, "."); idx >= 0 {
			name = name[:idx]
		}
		if exists(i.statusPath(name, markerProcessed)) || exists(i.statusPath(name, markerError)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DataPath returns the batch file for name, preferring the encrypted form.
func (i *Inbox) DataPath(name string) (string, error) {
	encrypted := filepath.Join(i.Root, dataDir, name+encryptedExt)
	if exists(encrypted) {
		return encrypted, nil
	}
	plain := filepath.Join(i.Root, dataDir, name+plainExt)
	if exists(plain) {
		return plain, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrBatchMissing)
}

// Batch describes name for the processor.
func (i *Inbox) Batch(name string) prpo.Batch {
	return prpo.Batch{
		DocumentType: i.DocumentType,
		Label:        name,
		SourcePath:   filepath.Join(i.Root, dataDir, name),
		SavedTo:      filepath.Join(i.Root, tmpDir) + string(filepath.Separator),
	}
}

// Open returns the plaintext of a batch, decrypting .asc files with the inbox passphrase.
func (i *Inbox) Open(name string) (io.Reader, error) {
	path, err := i.DataPath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, encryptedExt) {
		return Decrypt(f, i.Passphrase)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (i *Inbox) MarkProcessed(name string) error {
	return i.writeMarker(name, markerProcessed, "")
}

func (i *Inbox) MarkError(name string, cause error) error {
	text := ""
	if cause != nil {
		text = cause.Error() + "\n"
	}
	return i.writeMarker(name, markerError, text)
}

func (i *Inbox) writeMarker(name string, marker string, text string) error {
	f, err := os.OpenFile(i.statusPath(name, marker), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write %s marker for %s: %w", marker, name, err)
	}
	defer f.Close()
	if text != "" {
		if _, err := f.WriteString(text); err != nil {
			return err
		}
	}
	return nil
}
