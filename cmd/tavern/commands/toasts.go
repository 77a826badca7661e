package commands

import (
	"fmt"
	"io"
	"sync"

	"tavern-client/internal/domain"
	"tavern-client/internal/notify"
)

// toastPrinter imprime cada notificacion una sola vez, al aparecer en la cola.
type toastPrinter struct {
	out  io.Writer
	mu   sync.Mutex
	seen map[string]struct{}
	stop func()
}

func newToastPrinter(out io.Writer, q *notify.Queue) *toastPrinter {
	p := &toastPrinter{out: out, seen: make(map[string]struct{})}
	p.print(q.Items())
	p.stop = q.Subscribe(p.print)
	return p
}

func (p *toastPrinter) print(items []domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range items {
		if _, ok := p.seen[n.ID]; ok {
			continue
		}
		p.seen[n.ID] = struct{}{}
		title := n.Title
		if title == "" {
			title = string(n.Kind)
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", n.Kind, title, n.Message)
	}
}

func (p *toastPrinter) flush() {
	if p != nil && p.stop != nil {
		p.stop()
		p.stop = nil
	}
}
