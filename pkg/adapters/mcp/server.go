package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/internal/logging"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/protocol"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ParticipantID is the identity events relayed through MCP are sent from.
const ParticipantID = "huddle-mcp"

// ActivitiesURI is the resource listing every activity.
const ActivitiesURI = "huddle://activities"

// ActivitySummary is one activity as tools report it.
type ActivitySummary struct {
	Slug        string   `json:"slug" jsonschema_description:"Activity identifier, also the event namespace"`
	Title       string   `json:"title"`
	Phases      []string `json:"phases,omitempty"`
	Description string   `json:"description,omitempty"`
	UserDefined bool     `json:"user_defined" jsonschema_description:"False for built-in activities"`
	SourceID    string   `json:"source_id,omitempty"`
}

// ActivityList is the output of list_activities.
type ActivityList struct {
	Activities []ActivitySummary `json:"activities"`
}

// SendResult is the output of send_event.
type SendResult struct {
	Room  string       `json:"room"`
	Event domain.Event `json:"event"`
}

// Server exposes a Runtime as an MCP server.
type Server struct {
	runtime   *huddle.Runtime
	transport ports.Transport
	mcpServer *server.MCPServer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
// Room tools are only registered when transport is non-nil.
func NewServer(rt *huddle.Runtime, transport ports.Transport, opts ...Option) *Server {
	s := &Server{
		runtime:   rt,
		transport: transport,
		mcpServer: server.NewMCPServer("huddle-mcp", strings.TrimSpace(huddle.Version)),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_activities",
		mcp.WithDescription("List every activity a room can start, built-in and user registered."),
		mcp.WithOutputSchema[ActivityList](),
	), mcp.NewStructuredToolHandler(s.handleListActivities))

	s.mcpServer.AddTool(mcp.NewTool("register_activity",
		mcp.WithDescription("Register or replace a user activity. Built-in slugs cannot be replaced."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Identifier, must not contain ':'")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("phases", mcp.Description("Comma separated phase names, the first is the initial phase")),
		mcp.WithString("description", mcp.Description("Markdown description")),
		mcp.WithOutputSchema[ActivitySummary](),
	), mcp.NewStructuredToolHandler(s.handleRegisterActivity))

	if s.transport == nil {
		return
	}

	s.mcpServer.AddTool(mcp.NewTool("get_room_snapshot",
		mcp.WithDescription("Read the active activity and last event a room advertises to late joiners."),
		mcp.WithString("room", mcp.Required(), mcp.Description("Room ID")),
		mcp.WithOutputSchema[domain.RoomSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetRoomSnapshot))

	s.mcpServer.AddTool(mcp.NewTool("send_event",
		mcp.WithDescription("Broadcast an event such as 'snowball:start' or 'brainstorm:submit' to a room."),
		mcp.WithString("room", mcp.Required(), mcp.Description("Room ID")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Event tag '<namespace>:<action>'")),
		mcp.WithString("sender_id", mcp.Description("Participant the event is attributed to")),
		mcp.WithString("payload", mcp.Description("JSON object payload")),
		mcp.WithOutputSchema[SendResult](),
	), mcp.NewStructuredToolHandler(s.handleSendEvent))
}

func (s *Server) listActivities() ActivityList {
	all := s.runtime.Registry().ListAll()
	out := ActivityList{Activities: make([]ActivitySummary, 0, len(all))}
	for slug, entry := range all {
		def := entry.Definition
		out.Activities = append(out.Activities, ActivitySummary{
			Slug:        slug,
			Title:       def.Title,
			Phases:      def.Phases,
			Description: def.Description,
			UserDefined: entry.UserDefined,
			SourceID:    def.Metadata.SourceID,
		})
	}
	sort.Slice(out.Activities, func(i, j int) bool { return out.Activities[i].Slug < out.Activities[j].Slug })
	return out
}

func (s *Server) handleListActivities(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ActivityList, error) {
	return s.listActivities(), nil
}

func (s *Server) handleRegisterActivity(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ActivitySummary, error) {
	slug, _ := args["slug"].(string)
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)
	phasesRaw, _ := args["phases"].(string)

	var phases []string
	for _, p := range strings.Split(phasesRaw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			phases = append(phases, p)
		}
	}

	def := domain.Definition{
		Slug:        slug,
		Title:       title,
		Phases:      phases,
		Description: description,
		Metadata: domain.Metadata{
			SourceID:        ParticipantID,
			CreatedAt:       s.now().UTC(),
			IsUserGenerated: true,
			CanRegenerate:   true,
		},
	}
	if err := s.runtime.RegisterDefinition(ctx, def); err != nil {
		s.logger.Warn("MCP register_activity rejected", "slug", slug, "err", err)
		return ActivitySummary{}, fmt.Errorf("register failed: %w", err)
	}
	s.logger.Info("activity registered", "slug", slug, "source", ParticipantID)

	return ActivitySummary{
		Slug:        slug,
		Title:       title,
		Phases:      phases,
		Description: description,
		UserDefined: true,
		SourceID:    ParticipantID,
	}, nil
}

func (s *Server) handleGetRoomSnapshot(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.RoomSnapshot, error) {
	room, _ := args["room"].(string)
	if room == "" {
		return domain.RoomSnapshot{}, fmt.Errorf("room is required")
	}
	snap, err := s.transport.Channel(room, ParticipantID).Snapshot(ctx)
	if err != nil {
		return domain.RoomSnapshot{}, fmt.Errorf("snapshot failed: %w", err)
	}
	return snap, nil
}

// handleSendEvent relays an event after checking that its namespace resolves.
// The relay does not apply the event to any local state.
func (s *Server) handleSendEvent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SendResult, error) {
	room, _ := args["room"].(string)
	typ, _ := args["type"].(string)
	sender, _ := args["sender_id"].(string)
	if room == "" {
		return SendResult{}, fmt.Errorf("room is required")
	}
	if sender == "" {
		sender = ParticipantID
	}

	tag, err := protocol.Parse(typ)
	if err != nil {
		return SendResult{}, err
	}
	if tag.Action != protocol.ActionReaction {
		if _, ok := s.runtime.Registry().Resolve(tag.Namespace); !ok {
			return SendResult{}, &domain.LookupError{Slug: tag.Namespace}
		}
	}

	var payload map[string]any
	if raw, _ := args["payload"].(string); strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return SendResult{}, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}
	payload, err = protocol.SanitizePayload(payload)
	if err != nil {
		s.logger.Warn("MCP send_event: payload rejected", "type", typ, "err", err)
		return SendResult{}, err
	}

	evt := domain.Event{
		Type:        tag.String(),
		SenderID:    sender,
		Payload:     payload,
		RoomScopeID: room,
		SentAt:      s.now().UTC(),
	}
	if err := s.transport.Channel(room, ParticipantID).Send(ctx, evt); err != nil {
		return SendResult{}, fmt.Errorf("send failed: %w", err)
	}
	s.logger.Info("MCP event relayed", "room", room, "type", evt.Type, "sender", sender)
	return SendResult{Room: room, Event: evt}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ActivitiesURI, "Activity Catalog",
		mcp.WithMIMEType("application/json"),
	), s.readActivities)
}

func (s *Server) readActivities(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.listActivities())
	if err != nil {
		return nil, fmt.Errorf("failed to encode activities: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ActivitiesURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
