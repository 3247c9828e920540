package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	productsURI    = "subgate://products"
	planURIPrefix  = "subgate://plans/"
	planURIPattern = planURIPrefix + "{product_id}"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			productsURI,
			"Products",
			mcp.WithResourceDescription("All products with their plans and active status."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleProductsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			planURIPattern,
			"Product Plans",
			mcp.WithTemplateDescription("Every plan of one product, including disabled plans."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handlePlansResource,
	)
}

func (s *MCPServer) handleProductsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	products, err := s.store.ListProductsWithPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return jsonResource(productsURI, products)
}

func (s *MCPServer) handlePlansResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	productID := strings.TrimPrefix(uri, planURIPrefix)
	if productID == "" || productID == uri {
		return nil, fmt.Errorf("invalid plans URI %q: expected %s", uri, planURIPattern)
	}

	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("product %q: %w", productID, err)
	}
	plans, err := s.store.ListPlans(ctx, productID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans for %q: %w", productID, err)
	}
	return jsonResource(uri, plans)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
