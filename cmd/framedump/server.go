package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/cadence"
)

// preview holds what the HTTP server exposes
type preview struct {
	stats func() framesource.Stats

	mu      sync.RWMutex
	latest  *image.RGBA
	cadence cadence.Summary
}

func newPreview(stats func() framesource.Stats) *preview {
	return &preview{stats: stats}
}

// publish replaces the latest image
func (p *preview) publish(img *image.RGBA) {
	p.mu.Lock()
	p.latest = img
	p.mu.Unlock()
}

func (p *preview) setCadence(c cadence.Summary) {
	p.mu.Lock()
	p.cadence = c
	p.mu.Unlock()
}

func (p *preview) snapshot() (*image.RGBA, cadence.Summary) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.cadence
}

// newRouter builds the preview endpoints
func newRouter(p *preview) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "framedump",
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		_, cad := p.snapshot()
		c.JSON(http.StatusOK, gin.H{
			"session": p.stats(),
			"cadence": cad,
		})
	})

	r.GET("/canvas.png", func(c *gin.Context) {
		img, _ := p.snapshot()
		if img == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no frame rendered yet"})
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	})

	return r
}

// serve runs the preview server until ctx is done
func serve(ctx context.Context, addr string, p *preview) {
	server := &http.Server{
		Addr:    addr,
		Handler: newRouter(p),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("framedump: preview server shutdown failed", "error", err)
		}
	}()

	slog.Info("framedump: preview server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("framedump: preview server failed", "error", err)
	}
}
