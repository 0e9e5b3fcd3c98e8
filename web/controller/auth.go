package controller

import (
	"net/http"

	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/web/entity"
	"github.com/bookshelf/bookshelf/web/service"
	"github.com/bookshelf/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

// AuthController handles registration, login, logout and the current identity.
type AuthController struct {
	BaseController

	userService *service.UserService
}

// NewAuthController registers the account routes. limit guards login and registration.
func NewAuthController(g *gin.RouterGroup, base BaseController, userService *service.UserService, limit gin.HandlerFunc) *AuthController {
	a := &AuthController{BaseController: base, userService: userService}
	a.initRouter(g, limit)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup, limit gin.HandlerFunc) {
	g.POST("/register", limit, a.register)
	g.POST("/login", limit, a.login)
	g.POST("/logout", a.checkLogin, a.logout)
	g.GET("/current-user", a.currentUser)
}

func (a *AuthController) register(c *gin.Context) {
	var form entity.Credentials
	if err := bindJSON(c, &form); err != nil {
		jsonError(c, err)
		return
	}
	user, err := a.userService.Register(c.Request.Context(), form.Nickname, form.Password)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.RegisterResult{
		Message: I18nWeb(c, "messages.registered"),
		UserId:  user.Id,
	})
}

func (a *AuthController) login(c *gin.Context) {
	var form entity.Credentials
	if err := bindJSON(c, &form); err != nil {
		jsonError(c, err)
		return
	}
	user, err := a.userService.Authenticate(c.Request.Context(), form.Nickname, form.Password)
	if err != nil {
		logger.Warningf("failed login for %q from %s", form.Nickname, c.ClientIP())
		jsonError(c, err)
		return
	}
	if err := session.SetLoginUser(c, user); err != nil {
		jsonError(c, err)
		return
	}
	total, err := a.userService.CountBooks(c.Request.Context(), user.Id)
	if err != nil {
		jsonError(c, err)
		return
	}
	logger.Infof("%s logged in successfully, Ip Address: %s", user.Nickname, c.ClientIP())
	c.JSON(http.StatusOK, entity.LoginResult{
		Message: I18nWeb(c, "messages.loggedIn"),
		User:    entity.NewUser(user, total),
	})
}

func (a *AuthController) logout(c *gin.Context) {
	if user := CurrentUser(c); user != nil {
		logger.Infof("%s logged out successfully", user.Nickname)
	}
	if err := session.ClearSession(c); err != nil {
		jsonError(c, err)
		return
	}
	jsonMsg(c, http.StatusOK, "messages.loggedOut")
}

func (a *AuthController) currentUser(c *gin.Context) {
	if !session.IsLogin(c) {
		c.JSON(http.StatusOK, entity.CurrentUser{Authenticated: false})
		return
	}
	user, err := a.resolveUser(c)
	if err != nil {
		if errorStatus(err) == http.StatusUnauthorized {
			c.JSON(http.StatusOK, entity.CurrentUser{Authenticated: false})
			return
		}
		jsonError(c, err)
		return
	}
	total, err := a.userService.CountBooks(c.Request.Context(), user.Id)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.CurrentUser{Authenticated: true, User: entity.NewUser(user, total)})
}
