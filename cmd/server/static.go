package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupStaticFiles serves the frontend build from dir when it exists.
// Unknown non-API paths fall back to index.html for client-side routing.
func setupStaticFiles(router *gin.Engine, dir string, logger *zap.Logger) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Info("no frontend build found, serving API only", zap.String("static_dir", dir))
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
		})
		return
	}

	logger.Info("serving frontend", zap.String("static_dir", dir))
	files := http.Dir(dir)

	router.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
			return
		}

		if f, err := files.Open(urlPath); err == nil {
			stat, statErr := f.Stat()
			f.Close()
			if statErr == nil && !stat.IsDir() {
				c.FileFromFS(urlPath, files)
				return
			}
		}

		c.File(index)
	})
}
