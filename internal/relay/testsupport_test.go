package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// newFakePeer создаёт пир без сокета: отправленные пакеты копятся в очереди
// и читаются обратно через sentMessages. Писатель не запускается.
func newFakePeer(svc *Service) *Peer {
	return &Peer{
		service:     svc,
		addr:        "198.51.100.10:54321",
		sendCh:      make(chan []byte, sendQueueSize),
		closed:      make(chan struct{}),
		sessionData: make(map[string]any),
	}
}

// sentMessages разбирает всё, что сервис успел отправить пиру.
func sentMessages(t *testing.T, p *Peer) []Message {
	t.Helper()
	reg := messages.NewRegistry()
	var out []Message
	for {
		select {
		case data := <-p.sendCh:
			msgs, err := protocol.ParsePacket(reg, data)
			require.NoError(t, err)
			out = append(out, msgs...)
		default:
			return out
		}
	}
}

// waitSentMessages ждёт хотя бы одного пакета в очереди пира.
func waitSentMessages(t *testing.T, p *Peer) []Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if msgs := sentMessages(t, p); len(msgs) > 0 {
			return msgs
		}
		select {
		case <-deadline:
			t.Fatal("no packet sent before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func testSymbols(t *testing.T) *symbol.Cache {
	t.Helper()
	c, err := symbol.NewCache(map[string]int64{
		"us-central":  int64(symbol.HashString("us-central")),
		"eu-west":     int64(symbol.HashString("eu-west")),
		"v1":          int64(symbol.HashString("v1")),
		"echo_arena":  int64(symbol.HashString("echo_arena")),
		"mpl_arena_a": int64(symbol.HashString("mpl_arena_a")),
		"eula":        int64(symbol.HashString("eula")),
	})
	require.NoError(t, err)
	return c
}
