package client

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generations выдаёт монотонные токены запросов по ключу (экран, форма).
// Ответ применяется, только если его токен всё ещё текущий; иначе пользователь
// уже ушёл дальше и результат отбрасывается.
type Generations struct {
	mu      sync.Mutex
	entropy io.Reader
	current map[string]ulid.ULID
}

func NewGenerations() *Generations {
	return &Generations{
		entropy: ulid.Monotonic(rand.Reader, 0),
		current: make(map[string]ulid.ULID),
	}
}

// Next начинает новое поколение для ключа и делает предыдущие устаревшими.
func (g *Generations) Next(key string) ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.current[key] = id
	return id
}

// Current сообщает, актуален ли ещё токен.
func (g *Generations) Current(key string, tok ulid.ULID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.current[key]
	return ok && cur == tok
}

// Forget удаляет ключ: все выданные по нему токены устаревают.
func (g *Generations) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.current, key)
}
