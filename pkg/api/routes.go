package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spidr/estimate-form/pkg/middleware"
)

//go:embed web
var webFS embed.FS

// NewRouter builds the gin engine serving the form page and its JSON API
func NewRouter(h *Handlers, logger *zap.Logger, allowedOrigins []string) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(webFS, "web/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error parsing page template: %w", err)
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, fmt.Errorf("error loading static assets: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(allowedOrigins...))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", h.Index)
	router.POST("/submit", h.SubmitForm)
	router.GET("/health", h.HealthCheck)
	router.StaticFS("/static", http.FS(static))

	form := router.Group("/api")
	{
		form.GET("/form", h.GetForm)
		form.POST("/form/change", h.ChangeField)
		form.POST("/form/toggle-pin", h.TogglePIN)
		form.POST("/form/submit", h.Submit)
		form.GET("/particles", h.Particles)
	}

	return router, nil
}
