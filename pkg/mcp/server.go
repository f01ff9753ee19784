package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/wentf9/ufwctl/pkg/logger"
	"github.com/wentf9/ufwctl/pkg/ufw"
)

const serverName = "ufwctl"

type emptyInput struct{}

type allowInput struct {
	Port     string `json:"port" jsonschema:"port number, comma list or range such as 8000:8100"`
	Protocol string `json:"protocol,omitempty" jsonschema:"tcp, udp or any (default any)"`
	From     string `json:"from,omitempty" jsonschema:"only allow this source address or CIDR"`
}

type denyInput struct {
	From string `json:"from" jsonschema:"source address or CIDR to block"`
}

type deleteInput struct {
	Index int `json:"index" jsonschema:"rule number as shown by ufw_list_rules"`
}

// NewServer 创建 mcp 服务, 所有工具都作用于同一个 Manager
func NewServer(m *ufw.Manager, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	h := handlers{m: m}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ufw_status",
		Description: "Report whether ufw is active on " + m.Target() + " and return its numbered rules as JSON",
	}, h.status)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ufw_list_rules",
		Description: "List the numbered ufw rules, one per line",
	}, h.listRules)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ufw_allow",
		Description: "Allow inbound traffic to a port, optionally only from one source",
	}, h.allow)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ufw_deny",
		Description: "Deny all inbound traffic from a source address",
	}, h.deny)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ufw_delete_rule",
		Description: "Delete a rule by its number. Numbers shift after every delete, list again before the next one",
	}, h.deleteRule)
	return server
}

// Serve 在 stdio 上运行服务直到 ctx 结束或客户端断开
func Serve(ctx context.Context, m *ufw.Manager, version string) error {
	logger.L().Info("mcp server started", "target", m.Target())
	return NewServer(m, version).Run(ctx, &mcp.StdioTransport{})
}

type handlers struct {
	m *ufw.Manager
}

func (h handlers) status(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	st, err := h.m.Status(ctx)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

func (h handlers) listRules(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	rules, err := h.m.Rules(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(rules) == 0 {
		return textResult("no rules"), nil, nil
	}
	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = r.String()
	}
	return textResult(strings.Join(lines, "\n")), nil, nil
}

func (h handlers) allow(ctx context.Context, _ *mcp.CallToolRequest, in allowInput) (*mcp.CallToolResult, any, error) {
	proto, err := ufw.ParseProtocol(in.Protocol)
	if err != nil {
		return nil, nil, err
	}
	if in.From != "" {
		err = h.m.AllowInboundFrom(ctx, in.From, in.Port, proto)
	} else {
		err = h.m.AllowInbound(ctx, in.Port, proto)
	}
	if err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("allowed %s", in.Port)), nil, nil
}

func (h handlers) deny(ctx context.Context, _ *mcp.CallToolRequest, in denyInput) (*mcp.CallToolResult, any, error) {
	if err := h.m.DenyInbound(ctx, in.From); err != nil {
		return nil, nil, err
	}
	return textResult("denied " + in.From), nil, nil
}

func (h handlers) deleteRule(ctx context.Context, _ *mcp.CallToolRequest, in deleteInput) (*mcp.CallToolResult, any, error) {
	if err := h.m.DeleteRule(ctx, in.Index); err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("deleted rule %d", in.Index)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
