package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, Body{Code: http.StatusOK, Data: data})
}

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Code: status, Data: gin.H{}, Msg: msg})
}
