package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ragpro/backend/internal/domain/events"
)

// collectingHandler 收集收到的事件
type collectingHandler struct {
	mu       sync.Mutex
	received []events.EventType
}

func (h *collectingHandler) HandleEvent(event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event.Type())
	return nil
}

func (h *collectingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newFileEvent(t events.EventType) *events.DocumentFileEvent {
	return &events.DocumentFileEvent{
		EventType:  t,
		DocumentID: "file:sample",
		FilePath:   "/tmp/sample.txt",
		EventTime:  time.Now(),
	}
}

func TestEventBus_PublishReachesSubscriber(t *testing.T) {
	bus := NewEventBus()
	handler := &collectingHandler{}

	bus.Subscribe(events.DocumentFileCreated, handler)
	bus.Publish(newFileEvent(events.DocumentFileCreated))
	bus.Close()

	assert.Equal(t, 1, handler.count(), "订阅者应收到已发布的事件")
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	bus := NewEventBus()
	handler := &collectingHandler{}

	bus.SubscribeMultiple([]events.EventType{
		events.DocumentFileCreated,
		events.DocumentFileDeleted,
	}, handler)

	bus.Publish(newFileEvent(events.DocumentFileCreated))
	bus.Publish(newFileEvent(events.DocumentFileDeleted))
	bus.Publish(newFileEvent(events.DocumentFileModified))
	bus.Close()

	assert.Equal(t, 2, handler.count(), "只应收到已订阅类型的事件")
}

func TestEventBus_ClosedBusDropsEvents(t *testing.T) {
	bus := NewEventBus()
	handler := &collectingHandler{}

	bus.Subscribe(events.DocumentFileCreated, handler)
	bus.Close()
	bus.Publish(newFileEvent(events.DocumentFileCreated))

	assert.Equal(t, 0, handler.count(), "关闭后的总线应丢弃新事件")
}

func TestDocumentIDForPath(t *testing.T) {
	assert.Equal(t, "file:notes", DocumentIDForPath("/data/docs/notes.txt"), "文档 ID 由文件名派生")
	assert.Equal(t, "file:notes", DocumentIDForPath("/other/dir/notes.md"), "相同文件名映射到相同 ID")
}

func TestIsDocumentFile(t *testing.T) {
	assert.True(t, isDocumentFile("a.txt"))
	assert.True(t, isDocumentFile("b.MD"))
	assert.False(t, isDocumentFile("c.pdf"))
	assert.False(t, isDocumentFile("d"))
}
