package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Vire Analyst server version and status. Use this to verify connectivity."),
	)
}

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Run the full analysis for a stock: price history, RSI(14), 50/200-day moving averages, trend, and an AI insight report (signal, confidence, analysis, strategy). The model sees indicator values only, never the symbol or company."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol as the data source expects it (e.g., 'AAPL', 'THYAO.IS', 'BHP.AU')"),
		),
	)
}

// createGetIndicatorsTool returns the get_indicators tool definition
func createGetIndicatorsTool() mcp.Tool {
	return mcp.NewTool("get_indicators",
		mcp.WithDescription("Compute technical indicators for a stock without calling the language model. Returns price, change, RSI(14), SMA50, SMA200 and trend at the latest bar."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol (e.g., 'AAPL', 'THYAO.IS')"),
		),
	)
}

// createGetChartTool returns the get_chart tool definition
func createGetChartTool() mcp.Tool {
	return mcp.NewTool("get_chart",
		mcp.WithDescription("Render a candlestick chart (PNG) of the price history with 50 and 200-day moving averages overlaid."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol (e.g., 'AAPL', 'THYAO.IS')"),
		),
	)
}
