package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/medplane/guardian"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
)

func (a *API) registerEmergencyRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("emergency-access"))

	if err := g.POST("/emergency-grants", a.requestEmergencyAccess,
		forge.WithSummary("Request emergency access"),
		forge.WithDescription("Opens a pending emergency access grant. The grant confers nothing until approved."),
		forge.WithOperationID("requestEmergencyAccess"),
		forge.WithRequestSchema(RequestEmergencyAccessRequest{}),
		forge.WithCreatedResponse(&emergency.Grant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/emergency-grants/:grantId/approve", a.approveEmergencyAccess,
		forge.WithSummary("Approve emergency access"),
		forge.WithDescription("Activates a pending grant for its clamped duration. Requesters cannot approve their own grants."),
		forge.WithOperationID("approveEmergencyAccess"),
		forge.WithRequestSchema(ReviewEmergencyAccessRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Activated grant", &emergency.Grant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/emergency-grants/:grantId/reject", a.rejectEmergencyAccess,
		forge.WithSummary("Reject emergency access"),
		forge.WithDescription("Turns down a pending grant."),
		forge.WithOperationID("rejectEmergencyAccess"),
		forge.WithRequestSchema(ReviewEmergencyAccessRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Rejected grant", &emergency.Grant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/emergency-grants/:grantId/revoke", a.revokeEmergencyAccess,
		forge.WithSummary("Revoke emergency access"),
		forge.WithDescription("Pulls an active grant early. Elevated access ends on the next check."),
		forge.WithOperationID("revokeEmergencyAccess"),
		forge.WithRequestSchema(ReviewEmergencyAccessRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Revoked grant", &emergency.Grant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/emergency-grants/:grantId", a.getEmergencyGrant,
		forge.WithSummary("Get emergency grant"),
		forge.WithDescription("Returns details of an emergency access grant."),
		forge.WithOperationID("getEmergencyGrant"),
		forge.WithResponseSchema(http.StatusOK, "Grant details", &emergency.Grant{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/emergency-grants", a.listEmergencyGrants,
		forge.WithSummary("List emergency grants"),
		forge.WithDescription("Lists emergency grants with optional filters, newest first."),
		forge.WithOperationID("listEmergencyGrants"),
		forge.WithRequestSchema(ListEmergencyGrantsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Grant list", []*emergency.Grant{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) requestEmergencyAccess(ctx forge.Context, req *RequestEmergencyAccessRequest) (*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	if req.RequesterUserID == "" {
		return nil, forge.BadRequest("requester_user_id is required")
	}

	g, err := a.eng.RequestEmergencyAccess(ctx.Context(), tenantID, &guardian.EmergencyRequest{
		RequesterUserID: req.RequesterUserID,
		PatientID:       req.PatientID,
		Reason:          req.Reason,
		EmergencyType:   emergency.Type(req.EmergencyType),
		Scope:           emergency.AccessScope(req.Scope),
		DurationMinutes: req.DurationMinutes,
		Permissions:     req.Permissions,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusCreated, g)
}

func (a *API) approveEmergencyAccess(ctx forge.Context, req *ReviewEmergencyAccessRequest) (*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	g, err := a.eng.ApproveEmergencyAccess(ctx.Context(), tenantID, grantID, req.ReviewerUserID, req.Notes)
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) rejectEmergencyAccess(ctx forge.Context, req *ReviewEmergencyAccessRequest) (*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	g, err := a.eng.RejectEmergencyAccess(ctx.Context(), tenantID, grantID, req.ReviewerUserID, req.Reason)
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) revokeEmergencyAccess(ctx forge.Context, req *ReviewEmergencyAccessRequest) (*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	g, err := a.eng.RevokeEmergencyAccess(ctx.Context(), tenantID, grantID, req.ReviewerUserID, req.Reason)
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) getEmergencyGrant(ctx forge.Context, _ *GetEmergencyGrantRequest) (*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	grantID, err := id.ParseGrantID(ctx.Param("grantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid grant ID: %v", err))
	}

	g, err := a.eng.GetEmergencyGrant(ctx.Context(), tenantID, grantID)
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) listEmergencyGrants(ctx forge.Context, req *ListEmergencyGrantsRequest) ([]*emergency.Grant, error) {
	tenantID := ctx.Param("tenantId")
	filter := &emergency.ListFilter{
		RequesterUserID: req.RequesterUserID,
		PatientID:       req.PatientID,
		Status:          emergency.Status(req.Status),
		Limit:           defaultLimit(req.Limit),
		Offset:          req.Offset,
	}

	grants, err := a.eng.ListEmergencyGrants(ctx.Context(), tenantID, filter)
	if err != nil {
		return nil, mapError(err)
	}

	return grants, ctx.JSON(http.StatusOK, grants)
}
