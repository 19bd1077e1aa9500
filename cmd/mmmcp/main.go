package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"mm-mentions-bot/internal/config"
	"mm-mentions-bot/internal/observability"
	"mm-mentions-bot/internal/product"
	"mm-mentions-bot/internal/twitter"
	"mm-mentions-bot/internal/workflows"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mmmcp exposes the merch workflow as MCP tools for manual operation:
// triggering an enqueue run and posting a one-off reply.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	apiBase := getEnv("X_BASE", "https://api.twitter.com/2")
	uploadBase := getEnv("X_UPLOAD_BASE", "https://upload.twitter.com/1.1")

	read := twitter.NewReadClient(apiBase, cfg.BearerToken, cfg.OutboundTimeout)
	write := twitter.NewWriteClient(apiBase, uploadBase, twitter.Credentials{
		APIKey:       cfg.APIKey,
		APISecret:    cfg.APISecret,
		AccessToken:  cfg.AccessToken,
		AccessSecret: cfg.AccessSecret,
	}, cfg.OutboundTimeout, logger)

	resolver := twitter.NewResolver(read, cfg.AccountHandle, logger)
	productClient := product.NewClient(cfg.ProductServiceURL, cfg.ProductServiceAPIKey, cfg.OutboundTimeout, logger)
	enqueue := workflows.NewEnqueueWorkflow(resolver, productClient, cfg.CallbackPath, logger)

	s := server.NewMCPServer(
		"merch-operator",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	runTool := mcp.Tool{
		Name:        "merch.run_today",
		Description: "Resolve recent mentions and enqueue merch generation jobs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"origin":   map[string]any{"type": "string", "description": "Public origin (scheme+host) used to build the callback URL"},
				"since_id": map[string]any{"type": "string", "description": "Only consider mentions newer than this tweet ID"},
			},
			Required: []string{"origin"},
		},
	}

	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		origin, err := request.RequireString("origin")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sinceID := request.GetString("since_id", "")

		result, err := enqueue.Run(ctx, origin, sinceID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		summary, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(summary)), nil
	})

	replyTool := mcp.Tool{
		Name:        "twitter.post_reply",
		Description: "Post a reply under a tweet, optionally attaching a remote image",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"in_reply_to_tweet_id": map[string]any{"type": "string", "description": "The tweet ID to reply to"},
				"text":                 map[string]any{"type": "string", "description": "The text to post as reply"},
				"image_url":            map[string]any{"type": "string", "description": "Optional image URL to download and attach"},
			},
			Required: []string{"in_reply_to_tweet_id", "text"},
		},
	}

	s.AddTool(replyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inReply, err := request.RequireString("in_reply_to_tweet_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		postedID, err := write.ReplyWithMedia(ctx, twitter.ReplyRequest{
			ParentID: inReply,
			Text:     text,
			ImageURL: request.GetString("image_url", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(postedID), nil
	})

	port := getEnv("PORT", "8081")
	httpServer := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
	log.Printf("merch-operator MCP server listening on :%s/mcp", port)
	if err := httpServer.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}
