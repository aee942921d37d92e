package mcp

import (
	"context"
	"encoding/json"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const defaultWaitTimeout = 30 * time.Second

// registerTools registers the bridge tool set on the server.
func (s *Server) registerTools() {
	s.add(
		s.registerTool(),
		s.listPeersTool(),
		s.sendMessageTool(),
		s.readMailboxTool(),
		s.waitForReplyTool(),
		s.shareContextTool(),
		s.getContextTool(),
		s.createTaskTool(),
		s.getTasksTool(),
		s.updateTaskTool(),
	)
}

func (s *Server) registerTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_register",
		mcplib.WithDescription("Register a codebase with the bridge"),
		mcplib.WithString("name", mcplib.Required(), mcplib.Description("Agent name for this codebase")),
		mcplib.WithString("path", mcplib.Required(), mcplib.Description("Absolute path of the codebase")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRegister}
}

func (s *Server) listPeersTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_list_peers",
		mcplib.WithDescription("List all connected codebases"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListPeers}
}

func (s *Server) sendMessageTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_send_message",
		mcplib.WithDescription("Send an async message to a peer codebase's mailbox"),
		mcplib.WithString("sender", mcplib.Required(), mcplib.Description("Your agent name")),
		mcplib.WithString("peer", mcplib.Required(), mcplib.Description("Receiving agent name")),
		mcplib.WithString("message", mcplib.Required(), mcplib.Description("Message body")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSendMessage}
}

func (s *Server) readMailboxTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_read_mailbox",
		mcplib.WithDescription("Read and drain all incoming messages for this agent"),
		mcplib.WithString("name", mcplib.Required(), mcplib.Description("Your agent name")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleReadMailbox}
}

func (s *Server) waitForReplyTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_wait_for_reply",
		mcplib.WithDescription("Wait for messages to arrive in this agent's mailbox, polling every 2s"),
		mcplib.WithString("name", mcplib.Required(), mcplib.Description("Your agent name")),
		mcplib.WithNumber("timeout", mcplib.Description("Seconds to wait before giving up (default 30)")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleWaitForReply}
}

func (s *Server) shareContextTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_share_context",
		mcplib.WithDescription("Push a piece of context that other peers can read"),
		mcplib.WithString("owner", mcplib.Required(), mcplib.Description("Owning agent name")),
		mcplib.WithString("key", mcplib.Required(), mcplib.Description("Context key")),
		mcplib.WithString("value", mcplib.Required(), mcplib.Description("Context value")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleShareContext}
}

func (s *Server) getContextTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_get_context",
		mcplib.WithDescription("Pull a piece of context from a peer"),
		mcplib.WithString("owner", mcplib.Required(), mcplib.Description("Owning agent name")),
		mcplib.WithString("key", mcplib.Required(), mcplib.Description("Context key")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetContext}
}

func (s *Server) createTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_create_task",
		mcplib.WithDescription("File a task on another agent's board"),
		mcplib.WithString("agent", mcplib.Required(), mcplib.Description("Agent the task is for")),
		mcplib.WithString("description", mcplib.Required(), mcplib.Description("What needs doing")),
		mcplib.WithString("id", mcplib.Description("Task id; generated when omitted")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCreateTask}
}

func (s *Server) getTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_get_tasks",
		mcplib.WithDescription("List an agent's tasks, newest first"),
		mcplib.WithString("agent", mcplib.Required(), mcplib.Description("Agent name")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTasks}
}

func (s *Server) updateTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_update_task",
		mcplib.WithDescription("Update a task's status and optionally attach a result"),
		mcplib.WithString("task_id", mcplib.Required(), mcplib.Description("Task id")),
		mcplib.WithString("status", mcplib.Required(), mcplib.Description("New status, e.g. running, done, failed")),
		mcplib.WithString("result", mcplib.Description("Result text for finished tasks")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateTask}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleRegister(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, ok := stringArg(req, "name")
	if !ok {
		return mcplib.NewToolResultError("name is required"), nil
	}
	path, ok := stringArg(req, "path")
	if !ok {
		return mcplib.NewToolResultError("path is required"), nil
	}
	a, err := s.deps.Broker.Register(ctx, name, path, "")
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to register", err), nil
	}
	return toolResultJSON(a)
}

func (s *Server) handleListPeers(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agents, err := s.deps.Broker.ListAgents(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list peers", err), nil
	}
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	return toolResultJSON(names)
}

func (s *Server) handleSendMessage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	sender, _ := stringArg(req, "sender")
	peer, ok := stringArg(req, "peer")
	if !ok {
		return mcplib.NewToolResultError("peer is required"), nil
	}
	body, ok := stringArg(req, "message")
	if !ok {
		return mcplib.NewToolResultError("message is required"), nil
	}
	result, err := s.deps.Broker.Send(ctx, sender, peer, body)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to send message", err), nil
	}
	return mcplib.NewToolResultText(result), nil
}

func (s *Server) handleReadMailbox(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, ok := stringArg(req, "name")
	if !ok {
		return mcplib.NewToolResultError("name is required"), nil
	}
	msgs, err := s.deps.Broker.Read(ctx, name)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to read mailbox", err), nil
	}
	return toolResultJSON(msgs)
}

func (s *Server) handleWaitForReply(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, ok := stringArg(req, "name")
	if !ok {
		return mcplib.NewToolResultError("name is required"), nil
	}
	timeout := defaultWaitTimeout
	if secs, ok := req.GetArguments()["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	msgs := s.deps.Broker.WaitForReply(ctx, name, timeout)
	return toolResultJSON(msgs)
}

func (s *Server) handleShareContext(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	owner, ok := stringArg(req, "owner")
	if !ok {
		return mcplib.NewToolResultError("owner is required"), nil
	}
	key, ok := stringArg(req, "key")
	if !ok {
		return mcplib.NewToolResultError("key is required"), nil
	}
	value, _ := stringArg(req, "value")
	result, err := s.deps.Broker.ShareContext(ctx, owner, key, value)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to share context", err), nil
	}
	return mcplib.NewToolResultText(result), nil
}

func (s *Server) handleGetContext(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	owner, ok := stringArg(req, "owner")
	if !ok {
		return mcplib.NewToolResultError("owner is required"), nil
	}
	key, ok := stringArg(req, "key")
	if !ok {
		return mcplib.NewToolResultError("key is required"), nil
	}
	value, err := s.deps.Broker.GetContext(ctx, owner, key)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get context", err), nil
	}
	return mcplib.NewToolResultText(value), nil
}

func (s *Server) handleCreateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentName, ok := stringArg(req, "agent")
	if !ok {
		return mcplib.NewToolResultError("agent is required"), nil
	}
	description, ok := stringArg(req, "description")
	if !ok {
		return mcplib.NewToolResultError("description is required"), nil
	}
	id, _ := stringArg(req, "id")
	t, err := s.deps.Broker.CreateTask(ctx, id, agentName, description)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to create task", err), nil
	}
	return toolResultJSON(t)
}

func (s *Server) handleGetTasks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentName, ok := stringArg(req, "agent")
	if !ok {
		return mcplib.NewToolResultError("agent is required"), nil
	}
	tasks, err := s.deps.Broker.TasksForAgent(ctx, agentName)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get tasks", err), nil
	}
	return toolResultJSON(tasks)
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, ok := stringArg(req, "task_id")
	if !ok {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	status, ok := stringArg(req, "status")
	if !ok {
		return mcplib.NewToolResultError("status is required"), nil
	}
	var result *string
	if r, ok := stringArg(req, "result"); ok {
		result = &r
	}
	t, err := s.deps.Broker.UpdateTask(ctx, id, &status, result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to update task", err), nil
	}
	return toolResultJSON(t)
}

func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	v, ok := req.GetArguments()[name].(string)
	return v, ok && v != ""
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
