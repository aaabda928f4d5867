package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// newEchoRouter 构造一个把请求体原样回显的路由，用于观察中间件处理后的内容
func newEchoRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnsureUTF8Body())
	r.POST("/documents", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
	})
	return r
}

func TestEnsureUTF8Body_GBKDocumentConverted(t *testing.T) {
	text := "合同在柏林签署"
	gbkReader := transform.NewReader(strings.NewReader(text), simplifiedchinese.GBK.NewEncoder())
	gbkBytes, err := io.ReadAll(gbkReader)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(string(gbkBytes)))
	w := httptest.NewRecorder()
	newEchoRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, text, w.Body.String(), "GBK 上传的文档内容应被转为 UTF-8")
}

func TestEnsureUTF8Body_UTF8Passthrough(t *testing.T) {
	body := `{"document_id":"doc-1","text":"Acme Corp 在柏林签署合同"}`

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	w := httptest.NewRecorder()
	newEchoRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "UTF-8 请求体应原样透传")
}

func TestEnsureUTF8Body_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	w := httptest.NewRecorder()
	newEchoRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestNormalizeToUTF8(t *testing.T) {
	utf8Text := []byte("already utf-8 文本")
	out, converted := normalizeToUTF8(utf8Text)
	assert.False(t, converted)
	assert.Equal(t, utf8Text, out)

	gbkReader := transform.NewReader(strings.NewReader("检索服务"), simplifiedchinese.GBK.NewEncoder())
	gbkBytes, err := io.ReadAll(gbkReader)
	require.NoError(t, err)

	out, converted = normalizeToUTF8(gbkBytes)
	assert.True(t, converted)
	assert.Equal(t, "检索服务", string(out))
}
