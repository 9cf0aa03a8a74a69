// Package storage persists category batches as JSON artifacts.
//
// Each category is written to {dir}/{label}_vacancies.json as a pretty-printed
// UTF-8 JSON array of {"name", "skills"} objects. Writes go to a temporary
// file in the same directory and are renamed into place, so a failed run never
// leaves a truncated artifact behind.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/hh-skills-collector/pkg/logging"
	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	hhArtifactsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_artifacts_written_total",
		Help: "Total artifact writes by result",
	}, []string{"result"}) // "success", "error"

	hhArtifactRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hh_artifact_records",
		Help: "Number of records in the last artifact written per category",
	}, []string{"category"})
)

// ArtifactSuffix is appended to the category label to form the file name.
const ArtifactSuffix = "_vacancies.json"

// ErrInvalidLabel is returned for labels that cannot name a file.
var ErrInvalidLabel = errors.New("invalid category label")

// ArtifactName returns the artifact file name for label.
func ArtifactName(label string) string {
	return label + ArtifactSuffix
}

// FileStore writes artifacts into one directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logging.NewLogger("file-store"),
	}, nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the artifact path for label.
func (s *FileStore) Path(label string) string {
	return filepath.Join(s.dir, ArtifactName(label))
}

// Save writes batch to its artifact, replacing any previous one, and returns
// the artifact path. An empty batch is written as [].
func (s *FileStore) Save(ctx context.Context, batch vacancy.CategoryBatch) (string, error) {
	if err := validateLabel(batch.Category); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := Encode(batch.Records)
	if err != nil {
		hhArtifactsWrittenTotal.WithLabelValues("error").Inc()
		return "", err
	}

	path := s.Path(batch.Category)
	if err := writeFileAtomic(path, data); err != nil {
		hhArtifactsWrittenTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	hhArtifactsWrittenTotal.WithLabelValues("success").Inc()
	hhArtifactRecords.WithLabelValues(batch.Category).Set(float64(batch.Len()))

	s.logger.Debug().
		Str("category", batch.Category).
		Str("path", path).
		Int("records", batch.Len()).
		Msg("Artifact written")

	return path, nil
}

// Load reads the artifact of label back into a batch.
func (s *FileStore) Load(label string) (vacancy.CategoryBatch, error) {
	if err := validateLabel(label); err != nil {
		return vacancy.CategoryBatch{}, err
	}

	records, err := ReadFile(s.Path(label))
	if err != nil {
		return vacancy.CategoryBatch{}, err
	}
	return vacancy.CategoryBatch{Category: label, Records: records}, nil
}

// Encode renders records as an indented JSON array without HTML escaping.
func Encode(records []vacancy.Record) ([]byte, error) {
	if records == nil {
		records = []vacancy.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadFile decodes an artifact file.
func ReadFile(path string) ([]vacancy.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []vacancy.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if records == nil {
		records = []vacancy.Record{}
	}
	return records, nil
}

func validateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLabel)
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
