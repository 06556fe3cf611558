package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/chat"
	"github.com/xhad/docchat/pkg/ingest"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/metrics"
	"github.com/xhad/docchat/pkg/scraper"
	"github.com/xhad/docchat/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types sent by clients.
const (
	TypeChat   = "chat"
	TypeUpload = "upload"
	TypeURL    = "url"
	TypeImage  = "image"
	TypeAudio  = "audio"
	TypeVoice  = "voice"
	TypeLoad   = "load"
)

// Message types sent to clients.
const (
	TypeStatus   = "status"
	TypeProgress = "progress"
	TypeResponse = "response"
	TypeWarning  = "warning"
	TypeError    = "error"
)

// Message is the JSON frame exchanged over the websocket. File carries
// uploads and is base64 encoded on the wire.
type Message struct {
	Type        string      `json:"type"`
	Content     string      `json:"content"`
	Name        string      `json:"name,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	File        []byte      `json:"file,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr              string
	MemoryWindow      int
	MaxDepth          int
	RateLimit         float64
	IgnorePatterns    []string
	AllowedExtensions []string
	MaxMessageBytes   int64
}

// Dependencies are built by the caller from the loaded configuration.
// Sessions and Gatherer may be nil.
type Dependencies struct {
	Chat     *chat.Service
	Pipeline *ingest.Pipeline
	Sessions *session.Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type WSServer struct {
	config Config
	deps   Dependencies
}

func NewWSServer(config Config, deps Dependencies) (*WSServer, error) {
	if deps.Chat == nil || deps.Pipeline == nil {
		return nil, fmt.Errorf("chat service and ingest pipeline are required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.MemoryWindow <= 0 {
		config.MemoryWindow = 4
	}
	if config.MaxMessageBytes == 0 {
		config.MaxMessageBytes = 64 << 20
	}
	return &WSServer{config: config, deps: deps}, nil
}

// Handler serves /ws, /health and /metrics.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if s.deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting WebSocket server on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// conn is one client. Messages are handled in arrival order.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	session *session.Session
}

func (c *conn) send(msgType, content string, data interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		logger.Debug("error sending message: %v", err)
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(s.config.MaxMessageBytes)

	s.deps.Metrics.ConnectionOpened()
	defer s.deps.Metrics.ConnectionClosed()

	c := &conn{ws: ws, session: session.New(s.config.MemoryWindow)}
	c.send(TypeStatus, "connected", map[string]string{"session": c.session.ID})

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Error reading message: %v", err)
			}
			return
		}
		s.handleMessage(r.Context(), c, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	switch msg.Type {
	case TypeChat, "":
		if strings.TrimSpace(msg.Content) == "" {
			c.send(TypeError, "empty question", nil)
			return
		}
		s.answer(ctx, c, msg.Content)
	case TypeUpload:
		upload := models.Upload{Name: msg.Name, ContentType: msg.ContentType, Data: msg.File}
		s.ingest(ctx, c, []models.Upload{upload})
	case TypeURL:
		s.ingestURL(ctx, c, strings.TrimSpace(msg.Content))
	case TypeImage:
		reply, err := s.deps.Chat.DescribeImage(ctx, c.session, msg.File, msg.ContentType, msg.Content)
		s.reply(c, reply, err)
	case TypeAudio:
		reply, err := s.deps.Chat.AnswerAudio(ctx, c.session, msg.Name, msg.File)
		s.reply(c, reply, err)
	case TypeVoice:
		text, err := s.deps.Chat.Transcribe(ctx, msg.Name, msg.File)
		if err != nil {
			c.send(TypeError, err.Error(), nil)
			return
		}
		c.send(TypeStatus, "transcribed", map[string]string{"text": text})
		s.answer(ctx, c, text)
	case TypeLoad:
		s.load(c, msg.Content)
	default:
		c.send(TypeError, fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
}

func (s *WSServer) answer(ctx context.Context, c *conn, question string) {
	reply, err := s.deps.Chat.Answer(ctx, c.session, question)
	s.reply(c, reply, err)
}

func (s *WSServer) reply(c *conn, reply *chat.Reply, err error) {
	if err != nil {
		c.send(TypeError, err.Error(), nil)
		return
	}
	if reply.Warning != "" {
		c.send(TypeWarning, reply.Warning, nil)
	}

	sources := make([]map[string]interface{}, len(reply.Sources))
	for i, r := range reply.Sources {
		sources[i] = map[string]interface{}{
			"source":   r.Source,
			"category": r.Category,
			"distance": r.Distance,
		}
	}
	c.send(TypeResponse, reply.Text, map[string]interface{}{
		"mode":    c.session.Mode(),
		"sources": sources,
	})
	s.save(c)
}

func (s *WSServer) ingest(ctx context.Context, c *conn, uploads []models.Upload) {
	c.send(TypeStatus, fmt.Sprintf("Processing %d document(s)", len(uploads)), nil)

	report, err := s.deps.Pipeline.Ingest(ctx, uploads, func(p ingest.Progress) {
		c.send(TypeProgress, fmt.Sprintf("%s %s", p.Stage, p.Name), p)
	})
	if err != nil {
		c.send(TypeError, err.Error(), nil)
	}
	if report == nil || len(report.Committed) == 0 {
		return
	}

	c.session.EnableGrounded()
	c.send(TypeStatus, fmt.Sprintf("Ingested %d document(s)", report.Ingested), report)
	s.save(c)
}

func (s *WSServer) ingestURL(ctx context.Context, c *conn, target string) {
	if target == "" {
		c.send(TypeError, "missing url", nil)
		return
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	c.send(TypeStatus, fmt.Sprintf("Processing URL: %s", target), nil)

	pages := 0
	sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:           target,
		MaxDepth:          s.config.MaxDepth,
		RateLimit:         s.config.RateLimit,
		IgnorePatterns:    s.config.IgnorePatterns,
		AllowedExtensions: s.config.AllowedExtensions,
		OnProgress: func(url string) {
			pages++
			c.send(TypeProgress, fmt.Sprintf("Scraped %d pages", pages), nil)
		},
	})
	if err != nil {
		c.send(TypeError, fmt.Sprintf("Failed to initialize scraper: %v", err), nil)
		return
	}

	uploads, err := sc.Scrape(ctx, target)
	if err != nil && len(uploads) == 0 {
		c.send(TypeError, fmt.Sprintf("Failed to scrape URL: %v", err), nil)
		return
	}
	s.ingest(ctx, c, uploads)
}

func (s *WSServer) load(c *conn, id string) {
	if s.deps.Sessions == nil {
		c.send(TypeError, "session history is not configured", nil)
		return
	}
	sess, err := s.deps.Sessions.Load(id)
	if err != nil {
		c.send(TypeError, err.Error(), nil)
		return
	}
	c.session = sess
	c.send(TypeStatus, "loaded", map[string]interface{}{
		"session": sess.ID,
		"mode":    sess.Mode(),
		"history": sess.Memory.History(),
	})
}

func (s *WSServer) save(c *conn) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.Save(c.session); err != nil {
		logger.Warn("failed to save session %s: %v", c.session.ID, err)
	}
}
