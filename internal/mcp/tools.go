package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
)

// registerTools registers all subgate MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	srv.AddTool(
		mcp.NewTool("subgate_dashboard_stats",
			mcp.WithDescription(
				"Summarize the platform: active products, plans, users, and active and "+
					"pending subscriptions.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleDashboardStats,
	)

	srv.AddTool(
		mcp.NewTool("subgate_list_products",
			mcp.WithDescription(
				"List all products with their plans. Use this first to discover product "+
					"IDs before looking at plans or subscriptions.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListProducts,
	)

	srv.AddTool(
		mcp.NewTool("subgate_list_plans",
			mcp.WithDescription("List plans, optionally for a single product. Prices are in cents."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("product_id",
				mcp.Description("Only return plans of this product"),
			),
			mcp.WithBoolean("active_only",
				mcp.Description("Hide disabled plans (default false)"),
			),
		),
		s.handleListPlans,
	)

	srv.AddTool(
		mcp.NewTool("subgate_get_subscription",
			mcp.WithDescription("Get a user's subscription to a product, including the plan."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("ID of the end user"),
			),
			mcp.WithString("product_id",
				mcp.Required(),
				mcp.Description("ID of the product"),
			),
		),
		s.handleGetSubscription,
	)

	srv.AddTool(
		mcp.NewTool("subgate_list_pending",
			mcp.WithDescription(
				"List subscriptions waiting for payment verification, with plan, product, "+
					"and user. Check the payment note and proof URL before verifying.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("product_id",
				mcp.Description("Only return pending subscriptions of this product"),
			),
		),
		s.handleListPending,
	)

	// ----- Mutation tools -----

	srv.AddTool(
		mcp.NewTool("subgate_verify_subscription",
			mcp.WithDescription(
				"Approve or reject a pending subscription. Approval activates it from now; "+
					"rejection cancels it. Only pending_verification subscriptions can be verified.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("product_id",
				mcp.Required(),
				mcp.Description("Product the subscription belongs to"),
			),
			mcp.WithString("subscription_id",
				mcp.Required(),
				mcp.Description("ID of the pending subscription"),
			),
			mcp.WithBoolean("approve",
				mcp.Required(),
				mcp.Description("true to activate, false to reject"),
			),
		),
		s.handleVerifySubscription,
	)
}

func (s *MCPServer) handleDashboardStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.store.DashboardStats(ctx)
	if err != nil {
		return toolError("Failed to load dashboard stats: %v", err)
	}
	return successJSON(stats)
}

func (s *MCPServer) handleListProducts(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	products, err := s.store.ListProductsWithPlans(ctx)
	if err != nil {
		return toolError("Failed to list products: %v", err)
	}
	return successJSON(model.NewListResponse(products))
}

func (s *MCPServer) handleListPlans(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	plans, err := s.store.ListPlans(ctx, optionalString(request, "product_id"), request.GetBool("active_only", false))
	if err != nil {
		return toolError("Failed to list plans: %v", err)
	}
	return successJSON(model.NewListResponse(plans))
}

func (s *MCPServer) handleGetSubscription(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	userID, err := requireString(request, "user_id")
	if err != nil {
		return toolError("%v", err)
	}
	productID, err := requireString(request, "product_id")
	if err != nil {
		return toolError("%v", err)
	}

	sub, err := s.store.FindSubscription(ctx, userID, productID)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("User %q has no subscription to product %q", userID, productID)
	}
	if err != nil {
		return toolError("Failed to get subscription: %v", err)
	}
	return successJSON(sub)
}

func (s *MCPServer) handleListPending(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	subs, err := s.store.ListSubscriptions(ctx, model.SubscriptionFilter{
		Status:    model.StatusPendingVerification,
		ProductID: optionalString(request, "product_id"),
	})
	if err != nil {
		return toolError("Failed to list pending subscriptions: %v", err)
	}
	return successJSON(model.NewListResponse(subs))
}

func (s *MCPServer) handleVerifySubscription(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	productID, err := requireString(request, "product_id")
	if err != nil {
		return toolError("%v", err)
	}
	subID, err := requireString(request, "subscription_id")
	if err != nil {
		return toolError("%v", err)
	}
	approve, err := requireBool(request, "approve")
	if err != nil {
		return toolError("%v", err)
	}

	sub, err := s.store.VerifySubscription(ctx, productID, subID, approve, s.now())
	switch {
	case errors.Is(err, config.ErrNotFound):
		return toolError("Subscription %q not found for product %q", subID, productID)
	case errors.Is(err, config.ErrInvalidState):
		return toolError("Subscription %q cannot be verified: %v", subID, err)
	case err != nil:
		return toolError("Failed to verify subscription: %v", err)
	}

	s.logger.Info("subscription verified via MCP",
		"product_id", productID, "subscription_id", sub.ID, "status", sub.Status)
	return successJSON(sub)
}
