package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/medplane/guardian"
	"github.com/medplane/guardian/role"
)

func (a *API) registerAuthorizeRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/authorize", a.authorize,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Evaluates whether the user may perform the action on the resource."),
		forge.WithOperationID("authorize"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", AuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("enforce"),
		forge.WithRequestSchema(AuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", AuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-authorize", a.batchAuthorize,
		forge.WithSummary("Batch authorization check"),
		forge.WithDescription("Evaluates multiple authorization checks in one request."),
		forge.WithOperationID("batchAuthorize"),
		forge.WithRequestSchema(BatchAuthorizeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchAuthorizeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId/permissions", a.effectivePermissions,
		forge.WithSummary("Effective permissions"),
		forge.WithDescription("Returns the union of permission codes the user currently holds."),
		forge.WithOperationID("effectivePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Effective permission codes", EffectivePermissionsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/users/:userId/roles", a.userRoles,
		forge.WithSummary("User roles"),
		forge.WithDescription("Returns the active roles a user holds, inherited roles included."),
		forge.WithOperationID("userRoles"),
		forge.WithResponseSchema(http.StatusOK, "Roles", []*role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) authorize(ctx forge.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	tenantID := ctx.Param("tenantId")
	if req.UserID == "" || req.Action == "" || req.Resource == "" {
		return nil, forge.BadRequest("user_id, action, and resource are required")
	}

	result, err := a.eng.Authorize(ctx.Context(), tenantID, req.UserID, req.Action, req.Resource, toEvalContext(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toAuthorizeResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	tenantID := ctx.Param("tenantId")
	if req.UserID == "" || req.Action == "" || req.Resource == "" {
		return nil, forge.BadRequest("user_id, action, and resource are required")
	}

	result, err := a.eng.Authorize(ctx.Context(), tenantID, req.UserID, req.Action, req.Resource, toEvalContext(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toAuthorizeResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchAuthorize(ctx forge.Context, req *BatchAuthorizeRequest) (*BatchAuthorizeResponse, error) {
	tenantID := ctx.Param("tenantId")
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]AuthorizeResponse, len(req.Checks))
	for i, c := range req.Checks {
		result, err := a.eng.Authorize(ctx.Context(), tenantID, c.UserID, c.Action, c.Resource, toEvalContext(&c))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toAuthorizeResponse(result)
	}

	resp := &BatchAuthorizeResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) effectivePermissions(ctx forge.Context, _ *GetUserRequest) (*EffectivePermissionsResponse, error) {
	tenantID := ctx.Param("tenantId")
	userID := ctx.Param("userId")

	set, err := a.eng.GetEffectivePermissions(ctx.Context(), tenantID, userID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &EffectivePermissionsResponse{UserID: userID, Codes: set.Codes()}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) userRoles(ctx forge.Context, _ *GetUserRequest) ([]*role.Role, error) {
	tenantID := ctx.Param("tenantId")
	userID := ctx.Param("userId")

	roles, err := a.eng.GetUserRoles(ctx.Context(), tenantID, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return roles, ctx.JSON(http.StatusOK, roles)
}

func toEvalContext(r *AuthorizeRequest) *guardian.EvalContext {
	if r.IPAddress == "" && r.Location == "" && len(r.Attributes) == 0 && r.RiskScore == 0 {
		return nil
	}
	return &guardian.EvalContext{
		IPAddress:  r.IPAddress,
		Location:   r.Location,
		Attributes: r.Attributes,
		RiskScore:  r.RiskScore,
	}
}

func toAuthorizeResponse(r *guardian.Result) *AuthorizeResponse {
	return &AuthorizeResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Gate:       string(r.Gate),
		Reason:     r.Reason,
		PolicyName: r.PolicyName,
		Priority:   r.Priority,
		EvalTimeNs: r.EvalTimeNs,
	}
}
