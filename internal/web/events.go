package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// heartbeatInterval keeps idle event streams open through proxies.
var heartbeatInterval = 25 * time.Second

// handleTabEvents streams notifications addressed to a tab as server-sent
// events until the client disconnects or the server shuts down.
func (s *Server) handleTabEvents(c echo.Context) error {
	tab := strings.TrimSpace(c.Param("tab"))
	if tab == "" {
		return failValidation(c, map[string]string{"tab": "is required"})
	}

	ch, cancel := s.broker.Subscribe(tab)
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	w.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(n.Result)
			if err != nil {
				s.logger.Error().Err(err).Str("tab", tab).Msg("encode notification failed")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Action, data)
			w.Flush()
		}
	}
}
