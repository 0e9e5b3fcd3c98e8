package controller

import (
	"net/http"

	"github.com/bookshelf/bookshelf/web/service"

	"github.com/gin-gonic/gin"
)

// SearchController proxies metadata lookups to Google Books.
type SearchController struct {
	BaseController

	metadataService *service.MetadataService
}

func NewSearchController(g *gin.RouterGroup, base BaseController, metadataService *service.MetadataService) *SearchController {
	a := &SearchController{BaseController: base, metadataService: metadataService}
	g.GET("/search-google-books", a.checkLogin, a.search)
	return a
}

func (a *SearchController) search(c *gin.Context) {
	result, err := a.metadataService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
