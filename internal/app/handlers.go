package app

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/services/analysis"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v := common.GetVersionInfo()
		result := fmt.Sprintf("Vire Analyst\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			v.Version, v.Build, v.Commit)
		return textResult(result), nil
	}
}

// handleAnalyzeStock implements the analyze_stock tool
func handleAnalyzeStock(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		result, err := svc.Analyze(ctx, symbol)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Stock analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		return textResult(formatAnalysis(result)), nil
	}
}

// handleGetIndicators implements the get_indicators tool
func handleGetIndicators(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		ind, series, err := svc.Indicators(ctx, symbol)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Indicator computation failed")
			return errorResult(fmt.Sprintf("Indicators error: %v", err)), nil
		}

		return textResult(formatIndicators(series, ind)), nil
	}
}

// handleGetChart implements the get_chart tool
func handleGetChart(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		ind, series, err := svc.Indicators(ctx, symbol)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Chart data fetch failed")
			return errorResult(fmt.Sprintf("Chart error: %v", err)), nil
		}

		png, err := analysis.RenderIndicatorChart(series.Symbol, series, ind)
		if err != nil {
			return errorResult(fmt.Sprintf("Chart error: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewImageContent(base64.StdEncoding.EncodeToString(png), "image/png"),
			},
		}, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
