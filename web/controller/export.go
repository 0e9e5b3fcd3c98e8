package controller

import (
	"mime"
	"net/http"

	"github.com/bookshelf/bookshelf/web/locale"
	"github.com/bookshelf/bookshelf/web/service"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// ExportController serves collection downloads, gzip-compressed when the client accepts it.
type ExportController struct {
	BaseController

	exportService *service.ExportService
}

func NewExportController(g *gin.RouterGroup, base BaseController, exportService *service.ExportService) *ExportController {
	a := &ExportController{BaseController: base, exportService: exportService}
	a.initRouter(g)
	return a
}

func (a *ExportController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/books/export", a.checkLogin, gzip.Gzip(gzip.DefaultCompression))
	g.GET("/:format", a.export)
}

func (a *ExportController) export(c *gin.Context) {
	out, err := a.exportService.Export(c.Request.Context(), CurrentUser(c), service.ExportFormat(c.Param("format")), locale.Lang(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
