// prpo-process-file runs one batch file through the processor outside the poll loop.
// It writes no status marker and does not consolidate.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/inbox"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
)

func main() {
	docType := flag.String("type", "", "Required: document type (PR or PO)")
	file := flag.String("file", "", "Required: path of the batch file (.txt or .txt.asc)")
	label := flag.String("label", "", "Optional: batch label (defaults to the file name without extensions)")
	passphraseEnv := flag.String("passphrase-env", "", "Optional: env var holding the passphrase (defaults to PRPO_GPG_PR / PRPO_GPG_PO)")
	flag.Parse()

	doc, err := models.ParseDocumentType(*docType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "--type must be PR or PO")
		os.Exit(1)
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	config.ConfigureLogger(settings.LogLevel, settings.LogFile)

	ctx, _ := utils.WithNewCorrelationId(context.Background())
	if err := config.ConnectDatabaseWithRetry(ctx, settings); err != nil {
		fmt.Fprintf(os.Stderr, "connect databases: %v\n", err)
		os.Exit(1)
	}

	reader, err := openBatch(*file, passphrase(doc, *passphraseEnv, settings))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open batch: %v\n", err)
		os.Exit(1)
	}

	batch := prpo.Batch{
		DocumentType: doc,
		Label:        batchLabel(*file, *label),
		SourcePath:   *file,
		SavedTo:      filepath.Dir(*file) + string(filepath.Separator),
	}
	processor := prpo.NewProcessor(models.NewGormStore())
	result, err := processor.ProcessFile(ctx, batch, prpo.NewDelimitedSource(reader))
	if result != nil {
		out, _ := json.MarshalIndent(struct {
			Label    string        `json:"label"`
			Counters prpo.Counters `json:"counters"`
			Ignored  int           `json:"ignored"`
			Invalid  int           `json:"invalid"`
		}{result.Label, result.Counters, result.Counters.Ignored(), len(result.Invalid)}, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "process batch: %v\n", err)
		os.Exit(1)
	}
}

func passphrase(doc models.DocumentType, env string, settings *config.Settings) string {
	if env != "" {
		return os.Getenv(env)
	}
	if doc == models.DocumentTypePo {
		return settings.PoPassphrase
	}
	return settings.PrPassphrase
}

func openBatch(path string, passphrase string) (io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".asc") {
		return inbox.Decrypt(f, passphrase)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func batchLabel(path string, label string) string {
	if strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
