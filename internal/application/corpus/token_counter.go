package corpus

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 使用 tiktoken 精确计算 Token 数量
// 分片器据此判断段落是否超出窗口
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// 单例实例
var (
	tokenCounterInstance *TokenCounter
	tokenCounterOnce     sync.Once
	tokenCounterErr      error
)

// GetTokenCounter 获取 TokenCounter 单例
// 单例模式避免重复加载编码文件
func GetTokenCounter() (*TokenCounter, error) {
	tokenCounterOnce.Do(func() {
		// cl100k_base 编码（GPT-4 系模型兼容）
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tokenCounterErr = err
			return
		}
		tokenCounterInstance = &TokenCounter{
			encoding: enc,
		}
	})

	if tokenCounterErr != nil {
		return nil, tokenCounterErr
	}
	return tokenCounterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *TokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	tokens := c.encoding.Encode(text, nil, nil)
	return len(tokens)
}
