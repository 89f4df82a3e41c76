// Package cli provides the command-line interface for ghpipe.
//
// This package implements the ghpipe commands using the Cobra command
// framework. Each command runs one of the two pipelines locally, compiles
// them to GitHub Actions workflows, or manages what the compiled workflows
// need (repository secrets, an MCP server for agents).
//
// # Available Commands
//
// matrix - Run the test matrix on this machine
//
// regen - Regenerate the runnable blocks of a Markdown document
//
// docs - Run the documentation pipeline: regenerate, commit and push
//
// compile - Render both pipelines as GitHub Actions workflows
//
// plan - Show the matrix cells and the cell that uploads coverage
//
// secrets - Manage repository secrets such as CODECOV_TOKEN
//
// mcp-server - Expose plan, compile and regen_check as MCP tools
//
// # Basic Usage
//
//	// Run the matrix for a push to main
//	report, err := cli.RunMatrix(ctx, cli.MatrixConfig{
//		Event:  "push",
//		Branch: "main",
//	})
//
//	// Check that the compiled workflows are up to date
//	result, err := cli.RunCompile(cli.CompileConfig{Check: true})
//
// # Command Structure
//
// Each command follows a consistent pattern:
//  1. Command definition in *_command.go files built by NewXCommand
//  2. A XConfig struct carrying the parsed flags
//  3. A RunX entry point that the command and the MCP server share
//
// # Output Conventions
//
// Diagnostics go to stderr through the console package. Machine readable
// output (--json) goes to stdout.
package cli
