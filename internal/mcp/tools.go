package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the admin tools over MCP
type Server struct {
	server *mcp.Server
}

// NewServer creates an MCP server whose tools call the API at apiURL
func NewServer(apiURL, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "chatguard-admin",
		Version: version,
	}, nil)
	registerTools(server, NewHandler(NewClient(apiURL)))
	return &Server{server: server}
}

func registerTools(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "moderation_stats",
		Description: "Get today's moderation counters: messages seen, spam removed, media blocked, members verified and members removed by verification.",
	}, h.Stats)

	// Whitelist management tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "whitelist_list",
		Description: "List users exempt from all moderation.",
	}, h.WhitelistList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "whitelist_add",
		Description: "Exempt a user from moderation. Whitelisted users skip verification, the media gate and spam scoring.",
	}, h.WhitelistAdd)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "whitelist_remove",
		Description: "Remove a user from the whitelist.",
	}, h.WhitelistRemove)

	// Learned keyword tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "keyword_list",
		Description: "List the keywords operators taught the spam scorer.",
	}, h.KeywordList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "keyword_learn",
		Description: "Teach the spam scorer a new keyword. It counts like a built-in keyword from the next message on.",
	}, h.KeywordLearn)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "keyword_forget",
		Description: "Retire a learned keyword. The entry is kept for audit but no longer scores.",
	}, h.KeywordForget)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_text",
		Description: "Score a text against the live signal profile without acting on it. Use to check why a message was or was not removed.",
	}, h.ScoreText)
}

// Run serves MCP over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
