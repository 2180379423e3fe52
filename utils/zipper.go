package utils

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path"

	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/models"
)

// ArchiveManifestName is the JSON listing written first in every export
const ArchiveManifestName = "history.json"

// WriteHistoryArchive streams a ZIP of history to w: a manifest of the records
// followed by every capture they reference under images/. Captures that are
// missing on disk are skipped and logged. Returns how many images were added.
func WriteHistoryArchive(w io.Writer, history []models.ClassificationHistory, store media.Store) (int, error) {
	zipWriter := zip.NewWriter(w)

	manifest, err := zipWriter.Create(ArchiveManifestName)
	if err != nil {
		return 0, fmt.Errorf("failed to create manifest entry: %w", err)
	}
	enc := json.NewEncoder(manifest)
	enc.SetIndent("", "  ")
	if err := enc.Encode(history); err != nil {
		return 0, fmt.Errorf("failed to write manifest: %w", err)
	}

	added := 0
	seen := make(map[string]bool, len(history))
	for _, rec := range history {
		if rec.ImagePath == "" || seen[rec.ImagePath] {
			continue
		}
		seen[rec.ImagePath] = true

		fullPath, err := store.GetFullPath(rec.ImagePath)
		if err != nil {
			log.Printf("zipper: Skipping image for record %d: %v", rec.ID, err)
			continue
		}
		fileToZip, err := os.Open(fullPath)
		if err != nil {
			log.Printf("zipper: Failed to open %s for zipping: %v. Skipping.", fullPath, err)
			continue
		}

		entryName := path.Join("images", path.Base(rec.ImagePath))
		writer, err := zipWriter.Create(entryName)
		if err != nil {
			fileToZip.Close()
			return added, fmt.Errorf("failed to create zip entry %s: %w", entryName, err)
		}

		_, err = io.Copy(writer, fileToZip)
		fileToZip.Close()
		if err != nil {
			return added, fmt.Errorf("failed to write %s to zip: %w", entryName, err)
		}
		added++
	}

	if err := zipWriter.Close(); err != nil {
		return added, fmt.Errorf("failed to finalize zip writer: %w", err)
	}

	log.Printf("zipper: Exported %d records with %d images", len(history), added)
	return added, nil
}
