package mcp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"bount3-backend/core/escrow"
)

// registerListCampaignsTool creates a tool for listing campaigns
func (s *MCPServer) registerListCampaignsTool() {
	tool := mcp.NewTool("list_campaigns",
		mcp.WithDescription("List escrow campaigns with optional filtering"),
		mcp.WithString("creator", mcp.Description("Filter by creator address")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := escrow.CampaignFilter{
			Creator: toString(request.GetArguments()["creator"]),
		}
		campaigns, err := s.store.ListCampaigns(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list campaigns: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Found %d campaigns:\n\n%+v", len(campaigns), campaigns)), nil
	})
}

// registerGetCampaignTool creates a tool for getting a specific campaign
func (s *MCPServer) registerGetCampaignTool() {
	tool := mcp.NewTool("get_campaign",
		mcp.WithDescription("Get details of a specific campaign by its metadata hash"),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Metadata content hash of the campaign")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		campaign, err := s.store.GetCampaign(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get campaign: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Campaign:\n\n%+v", campaign)), nil
	})
}

// registerCreateCampaignTool creates a tool for creating a campaign
func (s *MCPServer) registerCreateCampaignTool() {
	tool := mcp.NewTool("create_campaign",
		mcp.WithDescription("Create a funded escrow campaign. The funding payment must equal reward_pool_amount + fee_amount + deposit_amount and target the escrow address."),
		mcp.WithString("caller", mcp.Required(), mcp.Description("Creator address funding the campaign")),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Content hash of the campaign metadata (CID)")),
		mcp.WithNumber("payment_amount", mcp.Required(), mcp.Description("Amount of the grouped funding payment in microunits")),
		mcp.WithNumber("deposit_amount", mcp.Required(), mcp.Description("Deposit escrowed for rewards and fee, in microunits")),
		mcp.WithNumber("fee_amount", mcp.Required(), mcp.Description("Platform fee in microunits")),
		mcp.WithNumber("goal_submissions", mcp.Required(), mcp.Description("Target number of verified submissions")),
		mcp.WithNumber("reward_pool_amount", mcp.Required(), mcp.Description("Reward pool in microunits")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		caller, err := request.RequireString("caller")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		metadataHash, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		pay := escrow.Payment{
			Sender:   caller,
			Receiver: s.engine.Address(),
			Amount:   uint64(toInt64(args["payment_amount"])),
		}
		key, err := s.engine.CreateCampaign(ctx, caller, metadataHash, pay,
			uint64(toInt64(args["deposit_amount"])),
			uint64(toInt64(args["fee_amount"])),
			uint64(toInt64(args["goal_submissions"])),
			uint64(toInt64(args["reward_pool_amount"])))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create campaign: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Campaign created: %s", key)), nil
	})
}

// registerCloseCampaignTool creates a tool for closing a campaign
func (s *MCPServer) registerCloseCampaignTool() {
	tool := mcp.NewTool("close_campaign",
		mcp.WithDescription("Close a campaign and refund the unspent deposit to its creator. Only the creator can close."),
		mcp.WithString("caller", mcp.Required(), mcp.Description("Address requesting the close")),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Metadata content hash of the campaign")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caller, err := request.RequireString("caller")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		status, err := s.engine.CloseCampaign(ctx, caller, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to close campaign: %v", err)), nil
		}
		return mcp.NewToolResultText(status), nil
	})
}

// registerListSubmissionsTool creates a tool for listing submissions
func (s *MCPServer) registerListSubmissionsTool() {
	tool := mcp.NewTool("list_submissions",
		mcp.WithDescription("List submissions with optional filtering"),
		mcp.WithString("campaign_hash", mcp.Description("Filter by campaign metadata hash")),
		mcp.WithString("status", mcp.Description("Filter by status (Pending, Verified, Declined)")),
		mcp.WithString("creator", mcp.Description("Filter by submitter address")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		filter := escrow.SubmissionFilter{
			CampaignHash: toString(args["campaign_hash"]),
			Status:       toString(args["status"]),
			Creator:      toString(args["creator"]),
		}
		submissions, err := s.store.ListSubmissions(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list submissions: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Found %d submissions:\n\n%+v", len(submissions), submissions)), nil
	})
}

// registerGetSubmissionTool creates a tool for getting a specific submission
func (s *MCPServer) registerGetSubmissionTool() {
	tool := mcp.NewTool("get_submission",
		mcp.WithDescription("Get details of a specific submission by its metadata hash"),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Metadata content hash of the submission")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		submission, err := s.store.GetSubmission(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get submission: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Submission:\n\n%+v", submission)), nil
	})
}

// registerSubmitWorkTool creates a tool for submitting work
func (s *MCPServer) registerSubmitWorkTool() {
	tool := mcp.NewTool("submit_work",
		mcp.WithDescription("Submit work against an existing campaign"),
		mcp.WithString("caller", mcp.Required(), mcp.Description("Submitter address")),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Content hash of the submitted work (CID)")),
		mcp.WithString("campaign_hash", mcp.Required(), mcp.Description("Metadata content hash of the target campaign")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caller, err := request.RequireString("caller")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		metadataHash, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		campaignHash, err := request.RequireString("campaign_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := s.engine.SubmitWork(ctx, caller, metadataHash, campaignHash)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to submit work: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Submission created: %s", key)), nil
	})
}

// registerVerifySubmissionTool creates a tool for verifying a submission
func (s *MCPServer) registerVerifySubmissionTool() {
	tool := mcp.NewTool("verify_submission",
		mcp.WithDescription("Verify a pending submission and pay out the per-person reward in native value and the reward asset"),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Metadata content hash of the submission")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		status, err := s.engine.Verify(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to verify submission: %v", err)), nil
		}
		return mcp.NewToolResultText(status), nil
	})
}

// registerDeclineSubmissionTool creates a tool for declining a submission
func (s *MCPServer) registerDeclineSubmissionTool() {
	tool := mcp.NewTool("decline_submission",
		mcp.WithDescription("Decline a pending submission. No funds move."),
		mcp.WithString("metadata_hash", mcp.Required(), mcp.Description("Metadata content hash of the submission")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("metadata_hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		status, err := s.engine.Decline(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to decline submission: %v", err)), nil
		}
		return mcp.NewToolResultText(status), nil
	})
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
