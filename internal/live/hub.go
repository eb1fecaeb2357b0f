// Package live рассылает новые комментарии подписчикам поста через websocket.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 10 * time.Second
	writeTimeout = 5 * time.Second
	bufferSize   = 8
)

// Hub хранит каналы подписчиков на комментарии.
type Hub struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Comment

	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		subs: make(map[string]map[string]chan *domain.Comment),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Subscribe возвращает канал новых комментариев поста. Канал закрывается
// после отмены ctx.
func (h *Hub) Subscribe(ctx context.Context, postID string) <-chan *domain.Comment {
	ch := make(chan *domain.Comment, bufferSize)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[postID] == nil {
		h.subs[postID] = make(map[string]chan *domain.Comment)
	}
	h.subs[postID][subID] = ch
	h.mu.Unlock()

	// Очистка при отключении клиента
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if postSubs, ok := h.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(h.subs, postID)
			}
		}
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish уведомляет подписчиков поста. Не блокируется: медленный
// подписчик пропускает комментарий.
func (h *Hub) Publish(c *domain.Comment) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subID, ch := range h.subs[c.PostID] {
		select {
		case ch <- c:
		default:
			h.log.WithFields(logrus.Fields{"post_id": c.PostID, "subscriber": subID}).Warn("live subscriber is lagging, comment dropped")
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (h *Hub) Subscribers(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[postID])
}

// Serve переводит соединение на websocket и пишет в него комментарии поста
// в JSON, пока клиент не отключится.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, postID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Читаем только чтобы заметить закрытие соединения
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	comments := h.Subscribe(ctx, postID)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	log := h.log.WithField("post_id", postID)
	log.Debug("live subscriber connected")
	defer log.Debug("live subscriber disconnected")

	for {
		select {
		case c, ok := <-comments:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(c); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
