// Package controller provides the HTTP handlers of the bookshelf JSON API.
package controller

import (
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/web/service"
	"github.com/bookshelf/bookshelf/web/session"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// BaseController provides the authentication check shared by all controllers.
type BaseController struct {
	userService *service.UserService
}

func NewBaseController(userService *service.UserService) BaseController {
	return BaseController{userService: userService}
}

// resolveUser returns the live user bound to the session. A session whose user no
// longer exists is cleared.
func (a *BaseController) resolveUser(c *gin.Context) (*model.User, error) {
	id, ok := session.GetLoginUserID(c)
	if !ok {
		return nil, common.NewError(common.ErrUnauthenticated, "errors.unauthenticated")
	}
	user, err := a.userService.GetUser(c.Request.Context(), id)
	if common.Kind(err) == common.ErrNotFound {
		if err := session.ClearSession(c); err != nil {
			logger.Warning("Unable to clear stale session:", err)
		}
		return nil, common.NewError(common.ErrUnauthenticated, "errors.unauthenticated")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkLogin aborts with 401 unless the request carries a session of an existing user.
func (a *BaseController) checkLogin(c *gin.Context) {
	user, err := a.resolveUser(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.Set(currentUserKey, user)
	c.Next()
}

// CurrentUser returns the user resolved by checkLogin.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(currentUserKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

func currentUserID(c *gin.Context) int {
	if user := CurrentUser(c); user != nil {
		return user.Id
	}
	return 0
}
