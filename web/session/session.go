package session

import (
	"github.com/bookshelf/bookshelf/database/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const loginUserID = "LOGIN_USER_ID"

// SetLoginUser binds the session to user. Only the id is stored; the user is resolved
// again on every request.
func SetLoginUser(c *gin.Context, user *model.User) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(loginUserID, user.Id)
	return s.Save()
}

func GetLoginUserID(c *gin.Context) (int, bool) {
	s := sessions.Default(c)
	if id, ok := s.Get(loginUserID).(int); ok && id > 0 {
		return id, true
	}
	return 0, false
}

func IsLogin(c *gin.Context) bool {
	_, ok := GetLoginUserID(c)
	return ok
}

// ClearSession ends the session. Calling it without a session is a no-op.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}
