package httptransport

import "github.com/gin-gonic/gin"

// 对外接口直接返回裸 JSON 载荷，与仪表盘等既有消费方的契约保持
// 一致，不再包一层统一信封。

// ErrorBody 错误响应结构
type ErrorBody struct {
	Error string `json:"error"` // 人类可读消息
	Kind  string `json:"kind"`  // 机器可读类别
}

// writeError 写出错误响应
func writeError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, ErrorBody{Error: message, Kind: kind})
}

// writeClassifiedError 按错误分类写出响应
func writeClassifiedError(c *gin.Context, err error) {
	status, kind, message := classifyError(err)
	writeError(c, status, kind, message)
}
