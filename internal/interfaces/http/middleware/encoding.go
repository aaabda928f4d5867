package middleware

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Body 把非 UTF-8 的请求体规范为 UTF-8 的中间件
// Windows 中文环境下用 curl 上传文档时请求体常是 GBK（代码页 936），
// 直接入库会污染片段存储和词法索引，这里统一在入口处转码
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body.Close()

		body, converted := normalizeToUTF8(raw)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if converted {
			c.Request.ContentLength = int64(len(body))
		}

		c.Next()
	}
}

// normalizeToUTF8 尝试把字节流规范为 UTF-8，返回结果和是否发生了转换
// 已是 UTF-8 或转码失败时原样返回，由后续的 JSON 绑定报错
func normalizeToUTF8(raw []byte) ([]byte, bool) {
	if len(raw) == 0 || utf8.Valid(raw) {
		return raw, false
	}

	reader := transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GBK.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil || !utf8.Valid(decoded) {
		return raw, false
	}
	return decoded, true
}
