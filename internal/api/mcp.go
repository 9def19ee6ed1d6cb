package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Runner Runner
	Store  Lister
	// Levels are the evaluation levels used when a tool call names none.
	Levels  evaluation.Levels
	Version string
}

// NewMCPServer creates an MCP server exposing checklist generation,
// retrieval and evaluation as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"checkaud",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("checkaud generates and evaluates ISO 26262 / Automotive SPICE compliance checklists per work product."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_checklist",
			mcp.WithDescription("Generate compliance checklists. Without work_products, every work product in the dataset is processed."),
			mcp.WithArray("work_products", mcp.Description("Work products to generate checklists for")),
		),
		mcpGenerateChecklist(deps),
	)

	s.AddTool(
		mcp.NewTool("get_checklist",
			mcp.WithDescription("Return the stored checklist for a work product as JSON."),
			mcp.WithString("work_product", mcp.Description("Work product name"), mcp.Required()),
		),
		mcpGetChecklist(deps),
	)

	s.AddTool(
		mcp.NewTool("evaluate_checklist",
			mcp.WithDescription("Score stored checklists against the evaluation rubrics."),
			mcp.WithArray("work_products", mcp.Description("Work products to evaluate; empty evaluates every stored checklist")),
			mcp.WithString("level", mcp.Description("Evaluation level: question, checklist or requirement. Defaults to the server configuration.")),
		),
		mcpEvaluateChecklist(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"checkaud://checklists",
			"Stored Checklists",
			mcp.WithResourceDescription("Work products with a stored checklist"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceChecklists(deps),
	)

	return s
}

func mcpGenerateChecklist(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workProducts := req.GetStringSlice("work_products", nil)

		result, err := deps.Runner.GenerateChecklists(ctx, workProducts)
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		resp := GenerateResponse{RunID: result.RunID, Skipped: result.Skipped}
		for _, cl := range result.Checklists {
			resp.Generated = append(resp.Generated, cl.WorkProduct)
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetChecklist(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		wp, err := req.RequireString("work_product")
		if err != nil {
			return mcpError("work_product is required"), nil
		}

		cl, err := deps.Runner.StoredChecklist(wp)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("no checklist for work product %q", wp)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load checklist: %v", err)), nil
		}

		b, err := json.Marshal(cl)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal checklist: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpEvaluateChecklist(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workProducts := req.GetStringSlice("work_products", nil)

		levels := deps.Levels
		switch level := req.GetString("level", ""); level {
		case "":
		case evaluation.LevelQuestion:
			levels = evaluation.Levels{Question: true}
		case evaluation.LevelChecklist:
			levels = evaluation.Levels{Checklist: true}
		case evaluation.LevelRequirement:
			levels = evaluation.Levels{Requirement: true}
		default:
			return mcpError(fmt.Sprintf("unknown level %q", level)), nil
		}

		evals, err := deps.Runner.Evaluate(ctx, workProducts, levels)
		if err != nil {
			return mcpError(fmt.Sprintf("evaluation failed: %v", err)), nil
		}

		b, err := json.Marshal(evaluationViews(evals))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal evaluations: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceChecklists(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stored, err := deps.Store.ListChecklists()
		if err != nil {
			return nil, fmt.Errorf("failed to list checklists: %w", err)
		}

		summaries := make([]ChecklistSummary, len(stored))
		for i, cl := range stored {
			summaries[i] = ChecklistSummary{
				WorkProduct: cl.WorkProduct,
				RunID:       cl.RunID,
				CreatedAt:   cl.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal checklist summaries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
