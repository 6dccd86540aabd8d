// Package mcpserver exposes the post listing to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/storage"
)

// ContractURI identifies the front-matter contract resource.
const ContractURI = "folio://front-matter"

// Server wraps the MCP server with folio tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *postservice.Service
	store  storage.Provider
	folder string
}

// New creates an MCP server over the post service. Raw post files are read
// from store under folder.
func New(svc *postservice.Service, store storage.Provider, folder, version string) *Server {
	s := &Server{svc: svc, store: store, folder: strings.Trim(folder, "/")}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List published posts newest first, one page at a time. "+
			"Returns the listing JSON with posts, initialDisplayPosts and pagination."),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithString("tag", mcp.Description("Only posts carrying this tag, case-insensitive")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the raw Markdown or MDX source of a post."),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Post path (posts/hello.md) or slug (hello)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags of published posts with their post counts."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search over published posts. Needs the SQLite index."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("get_front_matter_contract",
		mcp.WithDescription("Returns the front-matter contract every post must follow. "+
			"Call this before drafting a post."),
	), s.getContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Front-Matter Contract",
			mcp.WithResourceDescription("Front matter fields recognised by the post listing."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	l, err := s.svc.Listing(ctx, page, req.GetString("tag", ""))
	if err != nil {
		if errors.Is(err, apperr.ErrPageOutOfRange) {
			return mcp.NewToolResultError(fmt.Sprintf("page %d does not exist", page)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(l)
}

func (s *Server) readPost(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, candidate := range s.candidates(p) {
		if data, err := s.store.Read(candidate); err == nil {
			return mcp.NewToolResultText(string(data)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
}

// candidates lists the files a path or slug may refer to, all within the
// posts folder.
func (s *Server) candidates(p string) []string {
	p = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
	if s.folder != "" {
		p = strings.TrimPrefix(p, s.folder+"/")
	}
	if p == "" || p == "." {
		return nil
	}
	base := path.Join(s.folder, p)
	if storage.IsPostFile(p) {
		return []string{base}
	}
	return []string{base + ".md", base + ".mdx"}
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupported) {
			return mcp.NewToolResultError("search needs the SQLite index (sqlite.enabled)"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontMatterContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     FrontMatterContract,
		},
	}, nil
}
