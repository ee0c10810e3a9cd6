package mcp

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/qet/internal/ops"
)

// NotificationMethod is the MCP method used for pushed translation outcomes.
const NotificationMethod = "notifications/qet/translation"

// ClientNotifier forwards orchestrator notifications to every connected MCP
// client. It drops notifications until a server is attached.
type ClientNotifier struct {
	mu  sync.RWMutex
	srv *server.MCPServer
}

// Attach sets the server notifications are sent through.
func (n *ClientNotifier) Attach(s *server.MCPServer) {
	n.mu.Lock()
	n.srv = s
	n.mu.Unlock()
}

// Notify implements ops.Notifier.
func (n *ClientNotifier) Notify(_ context.Context, note ops.Notification) error {
	n.mu.RLock()
	s := n.srv
	n.mu.RUnlock()
	if s == nil {
		return nil
	}
	s.SendNotificationToAllClients(NotificationMethod, map[string]any{
		"target": note.Target,
		"action": note.Action,
		"result": note.Result,
	})
	return nil
}
