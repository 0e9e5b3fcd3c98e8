package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/web/entity"
	"github.com/bookshelf/bookshelf/web/locale"
	"github.com/bookshelf/bookshelf/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// I18nWeb renders a message in the language of the request.
func I18nWeb(c *gin.Context, key string, params ...string) string {
	return locale.I18n(locale.Lang(c), key, params...)
}

func errorStatus(err error) int {
	switch common.Kind(err) {
	case common.ErrValidation, common.ErrConflict:
		return http.StatusBadRequest
	case common.ErrAuth, common.ErrUnauthenticated:
		return http.StatusUnauthorized
	case common.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// jsonError aborts the request with the status mapped from err and a localized
// {"error": ...} body. Internal errors are logged and answered with a generic message.
func jsonError(c *gin.Context, err error) {
	status := errorStatus(err)
	var e *common.Error
	msg := ""
	switch {
	case common.Kind(err) != nil && errors.As(err, &e):
		msg = I18nWeb(c, e.Key, e.Params...)
		if common.Kind(err) == common.ErrUpstream {
			logger.Warningf("[%s] %v", middleware.RequestID(c), err)
		}
	default:
		logger.Errorf("[%s] %s %s: %v", middleware.RequestID(c), c.Request.Method, c.Request.URL.Path, err)
		msg = I18nWeb(c, "errors.internal")
	}
	c.AbortWithStatusJSON(status, entity.ErrorMsg{Error: msg})
}

func jsonMsg(c *gin.Context, status int, key string, params ...string) {
	c.JSON(status, entity.Msg{Message: I18nWeb(c, key, params...)})
}

// bindJSON decodes the request body into obj. An empty or malformed body is a
// validation error.
func bindJSON(c *gin.Context, obj any) error {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		return common.NewError(common.ErrValidation, "errors.invalidBody")
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return common.WrapError(common.ErrValidation, err, "errors.invalidBody")
	}
	return nil
}

// paramID parses the :id path parameter. Ids that cannot name a book are reported as
// not found.
func paramID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, common.NewError(common.ErrNotFound, "errors.bookNotFound")
	}
	return id, nil
}
