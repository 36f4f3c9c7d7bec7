package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rag-platform/models"
)

// DocumentService manages the source directory that ingestion scans: saving
// uploads into it, listing what is there, and clearing it out.
type DocumentService struct {
	sourceDir string
}

func NewDocumentService(sourceDir string) *DocumentService {
	return &DocumentService{sourceDir: sourceDir}
}

func (d *DocumentService) SourceDir() string { return d.sourceDir }

// SaveUpload streams an uploaded file into the source directory. The stored
// name is the bare base name of the upload, which also becomes the document's
// source identity in the vector store.
func (d *DocumentService) SaveUpload(file multipart.File, filename string) (string, error) {
	if err := os.MkdirAll(d.sourceDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create source directory: %w", err)
	}

	name := filepath.Base(filename)
	destPath := filepath.Join(d.sourceDir, name)

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write uploaded file: %w", err)
	}

	return destPath, nil
}

// FindPDFs walks the source directory recursively and returns the paths of
// every PDF in it, sorted for deterministic processing order. A missing
// directory is treated as empty rather than an error.
func (d *DocumentService) FindPDFs() ([]string, error) {
	var paths []string

	err := filepath.Walk(d.sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// List returns the PDFs in the source directory with their sizes.
func (d *DocumentService) List() ([]models.DocumentInfo, error) {
	paths, err := d.FindPDFs()
	if err != nil {
		return nil, err
	}

	docs := make([]models.DocumentInfo, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			// File disappeared between walk and stat; skip it.
			continue
		}
		docs = append(docs, models.DocumentInfo{
			Name: filepath.Base(path),
			Size: info.Size(),
		})
	}
	return docs, nil
}

// Exists reports whether a file with the given base name is already present
// in the source directory.
func (d *DocumentService) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(d.sourceDir, filepath.Base(filename)))
	return err == nil
}

// Clear deletes every PDF under the source directory and returns how many
// were removed. Failures are collected per file so a single bad file does
// not abort the sweep.
func (d *DocumentService) Clear() (int, []string) {
	paths, err := d.FindPDFs()
	if err != nil {
		return 0, []string{err.Error()}
	}

	deleted := 0
	var failures []string
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		deleted++
	}
	return deleted, failures
}
