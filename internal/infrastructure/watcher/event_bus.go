// Package watcher 提供文档目录监听和事件分发功能
package watcher

import (
	"log/slog"
	"sync"

	"github.com/ragpro/backend/internal/domain/events"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// eventBusImpl EventBus 的实现
type eventBusImpl struct {
	handlers map[events.EventType][]events.Handler
	mu       sync.RWMutex
	logger   *slog.Logger
	closed   bool
	wg       sync.WaitGroup
}

// NewEventBus 创建事件总线实例
func NewEventBus() events.EventBus {
	return &eventBusImpl{
		handlers: make(map[events.EventType][]events.Handler),
		logger:   log.NewModuleLogger("watcher", "event_bus"),
	}
}

// Subscribe 订阅特定类型的事件
func (b *eventBusImpl) Subscribe(eventType events.EventType, handler events.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	return func() {
		b.unsubscribe(eventType, handler)
	}
}

// SubscribeMultiple 订阅多个类型的事件
func (b *eventBusImpl) SubscribeMultiple(eventTypes []events.EventType, handler events.Handler) func() {
	unsubscribers := make([]func(), 0, len(eventTypes))
	for _, eventType := range eventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, handler))
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

// unsubscribe 取消订阅
func (b *eventBusImpl) unsubscribe(eventType events.EventType, handler events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if &h == &handler {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
}

// Publish 异步发布事件
func (b *eventBusImpl) Publish(event events.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]events.Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	b.logger.Debug("Publishing event",
		"type", event.Type(),
		"handlers_count", len(handlers),
	)

	for _, handler := range handlers {
		b.wg.Add(1)
		go b.dispatchToHandler(event, handler)
	}
}

// dispatchToHandler 分发事件到单个处理器
func (b *eventBusImpl) dispatchToHandler(event events.Event, handler events.Handler) {
	defer b.wg.Done()

	// 捕获 panic，防止单个处理器崩溃影响其他处理器
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				"type", event.Type(),
				"panic", r,
			)
		}
	}()

	if err := handler.HandleEvent(event); err != nil {
		b.logger.Error("Handler returned error",
			"type", event.Type(),
			"error", err,
		)
	}
}

// Close 关闭事件总线
func (b *eventBusImpl) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus closed")
}
