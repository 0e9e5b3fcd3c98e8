package controller

import (
	"net/http"

	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/web/service"

	"github.com/gin-gonic/gin"
)

// BookController serves the collection of the logged-in user.
type BookController struct {
	BaseController

	bookService *service.BookService
}

func NewBookController(g *gin.RouterGroup, base BaseController, bookService *service.BookService) *BookController {
	a := &BookController{BaseController: base, bookService: bookService}
	a.initRouter(g)
	return a
}

func (a *BookController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)

	g.GET("/books", a.list)
	g.POST("/books", a.create)
	g.GET("/books/:id", a.get)
	g.PUT("/books/:id", a.update)
	g.DELETE("/books/:id", a.delete)

	g.GET("/genres", a.genres)
	g.GET("/authors", a.authors)
	g.GET("/stats", a.stats)
}

func (a *BookController) list(c *gin.Context) {
	q := service.ParseBookQuery(c.Request.URL.Query())
	list, err := a.bookService.Query(c.Request.Context(), currentUserID(c), q)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *BookController) get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	book, err := a.bookService.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (a *BookController) create(c *gin.Context) {
	var patch model.BookPatch
	if err := bindJSON(c, &patch); err != nil {
		jsonError(c, err)
		return
	}
	book, err := a.bookService.Create(c.Request.Context(), currentUserID(c), &patch)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (a *BookController) update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	var patch model.BookPatch
	if err := bindJSON(c, &patch); err != nil {
		jsonError(c, err)
		return
	}
	book, err := a.bookService.Update(c.Request.Context(), currentUserID(c), id, &patch)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (a *BookController) delete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	if err := a.bookService.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		jsonError(c, err)
		return
	}
	jsonMsg(c, http.StatusOK, "messages.bookDeleted")
}

func (a *BookController) genres(c *gin.Context) {
	genres, err := a.bookService.Genres(c.Request.Context(), currentUserID(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}

func (a *BookController) authors(c *gin.Context) {
	authors, err := a.bookService.Authors(c.Request.Context(), currentUserID(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (a *BookController) stats(c *gin.Context) {
	stats, err := a.bookService.Stats(c.Request.Context(), currentUserID(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
