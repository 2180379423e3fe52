package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/melvy13/fruitveg-classifier-app/media"
)

// AssetServer creates a handler to serve saved images from a specific base directory.
// it expects the request path to contain the relative path within that base directory.
// example Usage:
//
//	r.Get("/api/captures/*", AssetServer(cfg.MediaStoragePath, "captures", "/api/captures/"))
//
// where the route prefix ends in the subDir.
func AssetServer(baseStoragePath, subDir, routePrefix string) http.HandlerFunc {
	absBase, err := filepath.Abs(baseStoragePath)
	if err != nil {
		log.Fatalf("FATAL: Invalid asset base path '%s': %v", baseStoragePath, err)
	}
	fullAssetDirPath := filepath.Clean(filepath.Join(absBase, subDir))
	log.Printf("Serving assets for '%s*' from directory: %s", routePrefix, fullAssetDirPath)

	if !strings.HasPrefix(fullAssetDirPath, absBase) {
		log.Fatalf("FATAL: Asset subdirectory '%s' resolved outside base storage path '%s'. Resolved path: '%s'", subDir, absBase, fullAssetDirPath)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// e.g., for route /api/captures/* and request /api/captures/img_1.jpg, extract "img_1.jpg"
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)

		if relativePath == "" || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid asset path")
			return
		}
		if !media.IsRasterImage(relativePath) {
			http.NotFound(w, r)
			return
		}

		requestedAssetPath := filepath.Join(fullAssetDirPath, filepath.FromSlash(relativePath))
		cleanedAssetPath := filepath.Clean(requestedAssetPath)

		if !strings.HasPrefix(cleanedAssetPath, fullAssetDirPath+string(filepath.Separator)) {
			WriteAPIError(w, http.StatusForbidden, CodeBadRequest, "Forbidden")
			log.Printf("SECURITY: Attempted asset access outside designated directory: Request='%s', Resolved='%s', Allowed Base='%s'",
				r.URL.Path, cleanedAssetPath, fullAssetDirPath)
			return
		}

		if _, err := os.Stat(cleanedAssetPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			writeInternalError(w, "stat asset file", err)
			return
		}

		// captures are written once under a unique name
		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, cleanedAssetPath)
	}
}
