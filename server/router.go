package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/pkg/identity"
	"video-library/pkg/rabbitmq"
	"video-library/service"
)

type Dependencies struct {
	Uploads   service.UploadService
	Subtitles service.SubtitleService
	Deletions service.DeletionService
	Catalog   service.CatalogService
	Identity  *identity.Provider
	Events    rabbitmq.Publisher
	Gatherer  prometheus.Gatherer
	// MaxUploadBytes caps the file part of a multipart upload.
	MaxUploadBytes int64
}

func NewRouter(logger zerolog.Logger, deps Dependencies) *gin.Engine {
	if deps.Events == nil {
		deps.Events = rabbitmq.NewNoopPublisher()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = constant.MaxUploadBytes
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	addHealth(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	h := &videoHandlers{deps: deps}
	api := r.Group("/api", authMiddleware(deps.Identity))
	api.POST("/media/signature", h.issueTicket)
	api.GET("/videos", h.list)
	api.POST("/videos", h.create)
	api.POST("/videos/upload", h.upload)
	api.POST("/videos/:id/subtitles", h.generateSubtitles)
	api.GET("/videos/:id/download", h.download)
	api.GET("/videos/:id/subtitles", h.subtitles)
	api.DELETE("/videos/:id", h.delete)

	return r
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}
