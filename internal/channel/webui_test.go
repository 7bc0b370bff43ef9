package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/talkmira/mira/internal/bus"
	"github.com/talkmira/mira/internal/config"
)

func TestNewWebUIChannel(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{Port: 0}, b)
	if err != nil {
		t.Fatalf("NewWebUIChannel: %v", err)
	}
	if ch.Name() != "webui" {
		t.Errorf("Name() = %q, want webui", ch.Name())
	}
}

func TestWebUIChannelServesChatPage(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{Port: 19891}, b)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ch.Stop()

	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:19891/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
}

func TestWebUIChannelRoundTrip(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{Port: 19892}, b)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ch.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer ch.Stop()

	time.Sleep(100 * time.Millisecond)

	conn, _, err := websocket.Dial(ctx, "ws://localhost:19892/ws", nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.CloseNow()

	data, _ := json.Marshal(wsMessage{Type: "message", Content: "мне грустно сегодня"})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("ws write: %v", err)
	}

	select {
	case inbound := <-b.Inbound:
		if inbound.Channel != "webui" {
			t.Errorf("channel = %q", inbound.Channel)
		}
		if inbound.Content != "мне грустно сегодня" {
			t.Errorf("content = %q", inbound.Content)
		}
		if !strings.HasPrefix(inbound.ChatID, "webui-") {
			t.Errorf("chatID = %q, want webui- prefix", inbound.ChatID)
		}

		if err := ch.Send(bus.OutboundMessage{
			Channel: "webui",
			ChatID:  inbound.ChatID,
			Content: "Расскажи, что случилось?",
		}); err != nil {
			t.Fatalf("Send: %v", err)
		}

		_, respData, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("ws read: %v", err)
		}
		var resp wsMessage
		if err := json.Unmarshal(respData, &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Type != "message" || resp.Content != "Расскажи, что случилось?" {
			t.Errorf("reply = %+v", resp)
		}

	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for inbound message")
	}
}

func TestWebUIChannelBroadcastToUnknownChat(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewWebUIChannel(config.WebUIConfig{Enabled: true}, config.GatewayConfig{Port: 19893}, b)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ch.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer ch.Stop()

	time.Sleep(100 * time.Millisecond)

	conn, _, err := websocket.Dial(ctx, "ws://localhost:19893/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.CloseNow()

	time.Sleep(100 * time.Millisecond)

	if err := ch.Send(bus.OutboundMessage{
		Channel: "webui",
		ChatID:  "no-such-client",
		Content: "Привет! Как прошло?",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	readCtx, readCancel := context.WithTimeout(ctx, 3*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Content != "Привет! Как прошло?" {
		t.Errorf("content = %q", msg.Content)
	}
}
