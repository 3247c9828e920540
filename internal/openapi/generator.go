package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/subgate/subgate/internal/model"
)

// Security scheme names used in the generated document.
const (
	APIKeyScheme = "ApiKeyAuth"
	AdminScheme  = "AdminAuth"
)

// componentTypes maps component schema names to the model values they are
// generated from.
var componentTypes = []struct {
	name  string
	value interface{}
}{
	{"Admin", model.Admin{}},
	{"Product", model.Product{}},
	{"ProductDetail", model.ProductDetail{}},
	{"Plan", model.Plan{}},
	{"User", model.User{}},
	{"UserDetail", model.UserDetail{}},
	{"Subscription", model.Subscription{}},
	{"SubscriptionDetail", model.SubscriptionDetail{}},
	{"PaymentMethod", model.PaymentMethod{}},
	{"ProductPaymentMethod", model.ProductPaymentMethod{}},
	{"DashboardStats", model.DashboardStats{}},
	{"ErrorResponse", model.ErrorResponse{}},
}

// route describes one documented endpoint.
type route struct {
	method   string
	path     string
	tag      string
	summary  string
	security string // "", APIKeyScheme, or AdminScheme
	params   []string
	query    []string
	body     *openapi3.SchemaRef
	status   string
	result   *openapi3.SchemaRef
}

// Generate builds the OpenAPI document for the HTTP API served at baseURL.
func Generate(baseURL, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "subgate API",
			Description: "Subscription management for multiple products. Products authenticate with an API key; operators use HTTP Basic credentials on /manage.",
			Version:     version,
		},
		Servers: openapi3.Servers{{URL: baseURL}},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		APIKeyScheme: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:        "apiKey",
				In:          "header",
				Name:        "X-API-Key",
				Description: "Product API key of the form {product_id}_prod_{random}.",
			},
		},
		AdminScheme: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:        "http",
				Scheme:      "basic",
				Description: "Admin email and password.",
			},
		},
	}
	doc.Components = &components

	for _, c := range componentTypes {
		ref, err := openapi3gen.NewSchemaRefForValue(c.value, nil)
		if err != nil {
			return nil, fmt.Errorf("generate %s schema: %w", c.name, err)
		}
		doc.Components.Schemas[c.name] = ref
	}

	doc.Paths = openapi3.NewPaths()
	for _, rt := range routes() {
		addRoute(doc, rt)
	}

	// Operations point at components by $ref; bind them so the document
	// validates without a marshal round trip.
	if err := openapi3.NewLoader().ResolveRefsIn(doc, nil); err != nil {
		return nil, fmt.Errorf("resolve schema refs: %w", err)
	}
	return doc, nil
}

// routes lists every documented endpoint.
func routes() []route {
	ok := map[string]string{"success": "boolean"}
	return []route{
		// Public
		{method: http.MethodGet, path: "/health", tag: "system", summary: "Store health check", status: "200",
			result: object(map[string]string{"status": "string", "database": "string"})},

		// Product API
		{method: http.MethodGet, path: "/plans", tag: "product", summary: "List the product's active plans", security: APIKeyScheme,
			status: "200", result: list("Plan")},
		{method: http.MethodGet, path: "/plans/{productId}/payment-methods", tag: "product", summary: "List the product's active payment methods",
			security: APIKeyScheme, params: []string{"productId"}, status: "200", result: list("ProductPaymentMethod")},
		{method: http.MethodPut, path: "/users/{userId}", tag: "product", summary: "Register or sync an end user", security: APIKeyScheme,
			params: []string{"userId"}, body: object(map[string]string{"email": "string", "name": "string"}, "email"),
			status: "200", result: ref("User")},
		{method: http.MethodGet, path: "/subscriptions/{userId}", tag: "product", summary: "Get the user's subscription with its plan",
			security: APIKeyScheme, params: []string{"userId"}, status: "200", result: ref("SubscriptionDetail")},
		{method: http.MethodPost, path: "/subscriptions/{userId}/upgrade", tag: "product", summary: "Request a plan upgrade pending payment verification",
			security: APIKeyScheme, params: []string{"userId"}, body: upgradeBody(), status: "201", result: ref("Subscription")},
		{method: http.MethodPost, path: "/{userId}/upgrade", tag: "product", summary: "Request a plan upgrade (alias)",
			security: APIKeyScheme, params: []string{"userId"}, body: upgradeBody(), status: "201", result: ref("Subscription")},
		{method: http.MethodGet, path: "/admin/pending", tag: "product", summary: "List subscriptions awaiting verification",
			security: APIKeyScheme, status: "200", result: list("SubscriptionDetail")},
		{method: http.MethodPost, path: "/admin/verify", tag: "product", summary: "Approve or reject a pending subscription",
			security: APIKeyScheme, body: object(map[string]string{"subscription_id": "string", "approve": "boolean"}, "subscription_id", "approve"),
			status: "200", result: ref("Subscription")},

		// Management API
		{method: http.MethodGet, path: "/manage/dashboard", tag: "dashboard", summary: "Platform counts", security: AdminScheme,
			status: "200", result: ref("DashboardStats")},

		{method: http.MethodGet, path: "/manage/admins", tag: "admins", summary: "List admins", security: AdminScheme, status: "200", result: list("Admin")},
		{method: http.MethodPost, path: "/manage/admins", tag: "admins", summary: "Create an admin (super admin only)", security: AdminScheme,
			body: object(map[string]string{"email": "string", "password": "string", "name": "string", "role": "string"}, "email", "password"),
			status: "201", result: ref("Admin")},
		{method: http.MethodGet, path: "/manage/admins/{id}", tag: "admins", summary: "Get an admin", security: AdminScheme,
			params: []string{"id"}, status: "200", result: ref("Admin")},
		{method: http.MethodPatch, path: "/manage/admins/{id}", tag: "admins", summary: "Update an admin", security: AdminScheme,
			params: []string{"id"}, body: object(map[string]string{"email": "string", "password": "string", "name": "string", "role": "string", "is_active": "boolean"}),
			status: "200", result: ref("Admin")},
		{method: http.MethodDelete, path: "/manage/admins/{id}", tag: "admins", summary: "Delete an admin (super admin only, never yourself)",
			security: AdminScheme, params: []string{"id"}, status: "200", result: object(ok)},

		{method: http.MethodGet, path: "/manage/products", tag: "products", summary: "List products with plans", security: AdminScheme,
			status: "200", result: list("ProductDetail")},
		{method: http.MethodPost, path: "/manage/products", tag: "products", summary: "Create a product and issue its API key", security: AdminScheme,
			body: object(map[string]string{"id": "string", "name": "string", "api_key": "string"}, "name"), status: "201", result: productWithKey()},
		{method: http.MethodGet, path: "/manage/products/{id}", tag: "products", summary: "Get a product with plans and subscriptions",
			security: AdminScheme, params: []string{"id"}, status: "200", result: ref("ProductDetail")},
		{method: http.MethodPatch, path: "/manage/products/{id}", tag: "products", summary: "Update a product", security: AdminScheme,
			params: []string{"id"}, body: object(map[string]string{"name": "string", "is_active": "boolean"}), status: "200", result: ref("Product")},
		{method: http.MethodDelete, path: "/manage/products/{id}", tag: "products", summary: "Delete a product without plans or subscriptions",
			security: AdminScheme, params: []string{"id"}, status: "200", result: object(ok)},
		{method: http.MethodPost, path: "/manage/products/{id}/regenerate-key", tag: "products", summary: "Replace the product's API key",
			security: AdminScheme, params: []string{"id"}, status: "200", result: object(map[string]string{"id": "string", "api_key": "string"})},
		{method: http.MethodGet, path: "/manage/products/{id}/payment-methods", tag: "products", summary: "Get the product's payment method configuration",
			security: AdminScheme, params: []string{"id"}, status: "200", result: list("ProductPaymentMethod")},
		{method: http.MethodPut, path: "/manage/products/{id}/payment-methods", tag: "products", summary: "Replace the product's payment method configuration",
			security: AdminScheme, params: []string{"id"}, body: paymentLinksBody(), status: "200", result: list("ProductPaymentMethod")},

		{method: http.MethodGet, path: "/manage/plans", tag: "plans", summary: "List plans", security: AdminScheme,
			query: []string{"product_id"}, status: "200", result: list("Plan")},
		{method: http.MethodPost, path: "/manage/plans", tag: "plans", summary: "Create a plan", security: AdminScheme,
			body: ref("Plan"), status: "201", result: ref("Plan")},
		{method: http.MethodGet, path: "/manage/plans/{id}", tag: "plans", summary: "Get a plan", security: AdminScheme,
			params: []string{"id"}, status: "200", result: ref("Plan")},
		{method: http.MethodPatch, path: "/manage/plans/{id}", tag: "plans", summary: "Update a plan", security: AdminScheme,
			params: []string{"id"}, body: ref("Plan"), status: "200", result: ref("Plan")},
		{method: http.MethodDelete, path: "/manage/plans/{id}", tag: "plans", summary: "Delete a plan without subscriptions", security: AdminScheme,
			params: []string{"id"}, status: "200", result: object(ok)},

		{method: http.MethodGet, path: "/manage/users", tag: "users", summary: "List users", security: AdminScheme,
			query: []string{"search", "product_id"}, status: "200", result: list("User")},
		{method: http.MethodPost, path: "/manage/users", tag: "users", summary: "Create a user", security: AdminScheme,
			body: object(map[string]string{"id": "string", "email": "string", "name": "string"}, "id", "email"), status: "201", result: ref("User")},
		{method: http.MethodGet, path: "/manage/users/{id}", tag: "users", summary: "Get a user with subscriptions", security: AdminScheme,
			params: []string{"id"}, status: "200", result: ref("UserDetail")},
		{method: http.MethodPatch, path: "/manage/users/{id}", tag: "users", summary: "Update a user", security: AdminScheme,
			params: []string{"id"}, body: object(map[string]string{"email": "string", "name": "string"}), status: "200", result: ref("User")},
		{method: http.MethodDelete, path: "/manage/users/{id}", tag: "users", summary: "Delete a user without subscriptions", security: AdminScheme,
			params: []string{"id"}, status: "200", result: object(ok)},

		{method: http.MethodGet, path: "/manage/subscriptions", tag: "subscriptions", summary: "List subscriptions", security: AdminScheme,
			query: []string{"status", "product_id", "plan_id", "user_id"}, status: "200", result: list("SubscriptionDetail")},
		{method: http.MethodPost, path: "/manage/subscriptions", tag: "subscriptions", summary: "Create a subscription (one per user and product)",
			security: AdminScheme, body: ref("Subscription"), status: "201", result: ref("Subscription")},
		{method: http.MethodGet, path: "/manage/subscriptions/{id}", tag: "subscriptions", summary: "Get a subscription", security: AdminScheme,
			params: []string{"id"}, status: "200", result: ref("SubscriptionDetail")},
		{method: http.MethodPatch, path: "/manage/subscriptions/{id}", tag: "subscriptions", summary: "Update a subscription", security: AdminScheme,
			params: []string{"id"}, body: ref("Subscription"), status: "200", result: ref("Subscription")},
		{method: http.MethodPost, path: "/manage/subscriptions/{id}/cancel", tag: "subscriptions", summary: "Cancel a subscription now",
			security: AdminScheme, params: []string{"id"}, status: "200", result: ref("Subscription")},

		{method: http.MethodGet, path: "/manage/payment-methods", tag: "payment-methods", summary: "List payment methods", security: AdminScheme,
			status: "200", result: list("PaymentMethod")},
		{method: http.MethodPost, path: "/manage/payment-methods", tag: "payment-methods", summary: "Create a payment method", security: AdminScheme,
			body: ref("PaymentMethod"), status: "201", result: ref("PaymentMethod")},
		{method: http.MethodPatch, path: "/manage/payment-methods/{id}", tag: "payment-methods", summary: "Update a payment method",
			security: AdminScheme, params: []string{"id"}, body: ref("PaymentMethod"), status: "200", result: ref("PaymentMethod")},
		{method: http.MethodDelete, path: "/manage/payment-methods/{id}", tag: "payment-methods", summary: "Delete an unused payment method",
			security: AdminScheme, params: []string{"id"}, status: "200", result: object(ok)},
	}
}

// addRoute registers rt on the document, creating its path item on first use.
func addRoute(doc *openapi3.T, rt route) {
	op := &openapi3.Operation{
		Tags:        []string{rt.tag},
		Summary:     rt.summary,
		OperationID: operationID(rt.method, rt.path),
		Responses:   newResponses(rt.status, rt.summary, rt.result, rt.security != ""),
	}
	if rt.security != "" {
		op.Security = &openapi3.SecurityRequirements{{rt.security: []string{}}}
	}
	for _, p := range rt.params {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(p).WithSchema(openapi3.NewStringSchema()),
		})
	}
	for _, q := range rt.query {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(q).WithSchema(openapi3.NewStringSchema()),
		})
	}
	if rt.body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(rt.body),
			},
		}
	}

	item := doc.Paths.Value(rt.path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(rt.path, item)
	}
	item.SetOperation(rt.method, op)
}

// operationID derives a stable identifier such as "post_manage_products_id_cancel".
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(path, "/") {
		part = strings.Trim(part, "{}")
		if part == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(strings.ReplaceAll(part, "-", "_"))
	}
	return b.String()
}

// ─── Schema Builders ────────────────────────────────────────────────────────

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

// list returns the {"resource": [...], "meta": {"count": n}} envelope.
func list(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: ref(name),
					},
				},
				"meta": metaSchema(),
			},
		},
	}
}

// object builds an object schema from property names and primitive types.
func object(props map[string]string, required ...string) *openapi3.SchemaRef {
	schemas := openapi3.Schemas{}
	for name, typ := range props {
		schemas[name] = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}}}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: schemas,
			Required:   required,
		},
	}
}

func upgradeBody() *openapi3.SchemaRef {
	return object(map[string]string{
		"plan_id":           "string",
		"payment_method_id": "string",
		"payment_proof_url": "string",
		"payment_note":      "string",
	}, "plan_id")
}

func paymentLinksBody() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"payment_methods": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: object(map[string]string{
							"payment_method_id": "string",
							"display_order":     "integer",
							"is_default":        "boolean",
						}, "payment_method_id"),
					},
				},
			},
		},
	}
}

// productWithKey is a product plus the plaintext key shown once.
func productWithKey() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			AllOf: openapi3.SchemaRefs{
				ref("Product"),
				object(map[string]string{"api_key": "string"}, "api_key"),
			},
		},
	}
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int64",
						Description: "Number of records returned.",
					},
				},
			},
		},
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the
// standard error responses. Authenticated operations also document 401, 403
// and 429.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, authenticated bool) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errs := [][2]string{{"400", "Bad request"}, {"404", "Not found"}, {"500", "Internal server error"}}
	if authenticated {
		errs = append(errs, [2]string{"401", "Missing or invalid credentials"},
			[2]string{"403", "Insufficient privileges"}, [2]string{"429", "Too many requests"})
	}
	for _, e := range errs {
		desc := e[1]
		responses.Set(e[0], &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(ref("ErrorResponse")),
			},
		})
	}
	return responses
}
