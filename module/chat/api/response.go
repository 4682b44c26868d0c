package api

import (
	"net/http"

	"chatline/logger"
	"chatline/tools/errs"

	"github.com/gin-gonic/gin"
)

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Code: 0, Msg: "ok", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response{Code: 0, Msg: "ok", Data: data})
}

// fail maps the coded error taxonomy onto HTTP statuses. Anything
// without a code is an internal error and gets logged at error level;
// coded failures are expected outcomes and log as warnings.
func fail(c *gin.Context, err error) {
	code := errs.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.CodeValidation:
		status = http.StatusBadRequest
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeAuthorization:
		status = http.StatusForbidden
	case errs.CodeConflict:
		status = http.StatusConflict
	case errs.CodeDependency:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logger.Errorf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, response{Code: -1, Msg: "internal error"})
		return
	}
	logger.Warnf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(status, response{Code: code, Msg: err.Error()})
}
