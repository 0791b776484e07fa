// Package server exposes the HTTP surface of the relay: the join form, the
// chat view, the WebSocket upgrade endpoint, and a health check.
package server

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const joinFormHTML = `<!DOCTYPE html>
<html>
<head><title>Join {{.RoomID}}</title></head>
<body>
    <h1>Join room "{{.RoomID}}"</h1>
    {{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
    <form method="POST" action="/chat/{{.RoomID}}">
        <input type="text" name="username" placeholder="Pick a username" autofocus>
        <button type="submit">Join</button>
    </form>
</body>
</html>`

const chatPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>{{.RoomID}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #inbox {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
    </style>
</head>
<body>
    <h1>Room "{{.RoomID}}"</h1>
    <div id="inbox">{{range .Messages}}{{.}}{{end}}</div>
    <form id="messageform">
        <input type="text" id="message" placeholder="Type a message..." autofocus>
        <button type="submit">Send</button>
    </form>

    <script>
        const inbox = document.getElementById('inbox');
        const scheme = location.protocol === 'https:' ? 'wss' : 'ws';
        const url = scheme + '://' + location.host +
            '/chatsocket/{{.RoomID}}?username=' + encodeURIComponent({{.Username}});
        const ws = new WebSocket(url);

        ws.onmessage = function(event) {
            event.data.split('\n').forEach(function(line) {
                if (!line) return;
                const msg = JSON.parse(line);
                const node = document.createElement('div');
                node.innerHTML = msg.rendered;
                inbox.appendChild(node.firstChild);
            });
            inbox.scrollTop = inbox.scrollHeight;
        };

        document.getElementById('messageform').onsubmit = function(e) {
            e.preventDefault();
            const input = document.getElementById('message');
            if (input.value && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({body: input.value}));
                input.value = '';
            }
        };
    </script>
</body>
</html>`

type joinFormData struct {
	RoomID string
	Notice string
}

type chatPageData struct {
	RoomID   string
	Username string
	Messages []template.HTML
}

// renderedHistory lifts the stored presentation blobs into the chat view
// without re-escaping them; they were already escaped by the renderer when
// the messages were accepted.
func renderedHistory(msgs []Message) []template.HTML {
	out := make([]template.HTML, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, template.HTML(msg.Rendered))
	}
	return out
}

// ChatServer bundles the relay's collaborators behind the HTTP surface. One
// instance is constructed at startup; nothing here is package-global state.
type ChatServer struct {
	cfg          *Config
	registry     *Registry
	history      *HistoryCache
	broadcaster  *Broadcaster
	originPolicy OriginPolicy
	upgrader     websocket.Upgrader
	joinTmpl     *template.Template
	chatTmpl     *template.Template
}

// NewChatServer wires a registry, history cache, renderer, and broadcaster
// for the given configuration. An empty origin allow-list falls back to the
// same-origin policy.
func NewChatServer(cfg *Config) *ChatServer {
	sanitized := sanitizeConfig(*cfg)

	registry := NewRegistry()
	history := NewHistoryCache(sanitized.CacheSize)
	broadcaster := NewBroadcaster(registry, history, NewTemplateRenderer())

	policy := SameOriginPolicy
	if len(sanitized.AllowedOrigins) > 0 {
		policy = AllowListPolicy(sanitized.AllowedOrigins)
	}

	return &ChatServer{
		cfg:          &sanitized,
		registry:     registry,
		history:      history,
		broadcaster:  broadcaster,
		originPolicy: policy,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by ValidateHandshake before Upgrade runs.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		joinTmpl: template.Must(template.New("join").Parse(joinFormHTML)),
		chatTmpl: template.Must(template.New("chat").Parse(chatPageHTML)),
	}
}

// Registry exposes the room registry for shutdown coordination.
func (cs *ChatServer) Registry() *Registry {
	return cs.registry
}

// Shutdown closes all live sessions and waits for their goroutines to finish.
func (cs *ChatServer) Shutdown(timeout time.Duration) error {
	return cs.registry.Shutdown(timeout)
}

// JoinHandler serves the join flow for a room. GET renders the join form;
// POST checks the requested username and either re-renders the form or
// renders the chat view seeded with the room's recent history. The binding
// username claim happens when the socket joins, so the POST check is a
// courtesy pre-check, not the uniqueness guarantee.
func (cs *ChatServer) JoinHandler(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/chat/")
	if roomID == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		cs.renderJoinForm(w, roomID, "")

	case http.MethodPost:
		username := strings.TrimSpace(r.FormValue("username"))
		if username == "" {
			cs.renderJoinForm(w, roomID, "Username is required")
			return
		}
		if cs.registry.Claimed(roomID, username) {
			cs.renderJoinForm(w, roomID, "Username is already taken")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := chatPageData{
			RoomID:   roomID,
			Username: username,
			Messages: renderedHistory(cs.history.Snapshot(roomID)),
		}
		if err := cs.chatTmpl.Execute(w, data); err != nil {
			log.Printf("Error rendering chat page for room %q: %v", roomID, err)
		}

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (cs *ChatServer) renderJoinForm(w http.ResponseWriter, roomID, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := cs.joinTmpl.Execute(w, joinFormData{RoomID: roomID, Notice: notice}); err != nil {
		log.Printf("Error rendering join form for room %q: %v", roomID, err)
	}
}

// SocketHandler upgrades /chatsocket/{room}?username=u requests into live
// sessions. Handshake validation runs before any room or session state is
// touched; a duplicate username closes the fresh connection with a policy
// violation instead of opening a session.
func (cs *ChatServer) SocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	roomID := strings.TrimPrefix(r.URL.Path, "/chatsocket/")
	username := r.URL.Query().Get("username")
	if roomID == "" || username == "" {
		http.Error(w, "room and username are required", http.StatusBadRequest)
		return
	}

	if hsErr := ValidateHandshake(r, cs.originPolicy); hsErr != nil {
		log.Printf("Rejected handshake from %s: %d %s", r.RemoteAddr, hsErr.Status, hsErr.Reason)
		hsErr.WriteResponse(w)
		return
	}

	conn, err := cs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sess := NewSession(conn, cs.registry, cs.broadcaster, roomID, username, r.RemoteAddr, cs.cfg)
	if err := cs.registry.Join(sess); err != nil {
		log.Printf("Join rejected for %q in room %q: %v", username, roomID, err)
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "username already taken")
		if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", r.RemoteAddr, err)
		}
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing rejected connection from %s: %v", r.RemoteAddr, err)
		}
		return
	}

	sess.Start()
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func (cs *ChatServer) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomcast server is running!")
}
