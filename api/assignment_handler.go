package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/id"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("assignments"))

	if err := g.POST("/assignments", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Binds a role to a user, optionally scoped to a branch and time-limited."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/assignments/:assignmentId", a.getAssignment,
		forge.WithSummary("Get assignment"),
		forge.WithDescription("Returns details of a specific role assignment."),
		forge.WithOperationID("getAssignment"),
		forge.WithResponseSchema(http.StatusOK, "Assignment details", &assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/assignments/:assignmentId", a.unassignRole,
		forge.WithSummary("Unassign role"),
		forge.WithDescription("Removes a role assignment."),
		forge.WithOperationID("unassignRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/assignments", a.listAssignments,
		forge.WithSummary("List assignments"),
		forge.WithDescription("Lists role assignments with optional filters."),
		forge.WithOperationID("listAssignments"),
		forge.WithRequestSchema(ListAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	tenantID := ctx.Param("tenantId")
	if req.UserID == "" {
		return nil, forge.BadRequest("user_id is required")
	}

	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	ass := &assignment.Assignment{
		TenantID:   tenantID,
		UserID:     req.UserID,
		RoleID:     roleID,
		BranchID:   req.BranchID,
		AssignedBy: req.AssignedBy,
	}
	if ass.ExpiresAt, err = parseTimestamp("expires_at", req.ExpiresAt); err != nil {
		return nil, err
	}

	if err := a.eng.AssignRole(ctx.Context(), ass); err != nil {
		return nil, mapError(err)
	}

	return ass, ctx.JSON(http.StatusCreated, ass)
}

func (a *API) getAssignment(ctx forge.Context, _ *GetAssignmentRequest) (*assignment.Assignment, error) {
	assID, err := id.ParseAssignmentID(ctx.Param("assignmentId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid assignment ID: %v", err))
	}

	ass, err := a.eng.Store().GetAssignment(ctx.Context(), assID)
	if err != nil {
		return nil, mapError(err)
	}
	if ass.TenantID != ctx.Param("tenantId") {
		return nil, forge.NotFound("assignment not found")
	}

	return ass, ctx.JSON(http.StatusOK, ass)
}

func (a *API) unassignRole(ctx forge.Context, _ *GetAssignmentRequest) (*struct{}, error) {
	tenantID := ctx.Param("tenantId")
	assID, err := id.ParseAssignmentID(ctx.Param("assignmentId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid assignment ID: %v", err))
	}

	if err := a.eng.UnassignRole(ctx.Context(), tenantID, assID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listAssignments(ctx forge.Context, req *ListAssignmentsRequest) ([]*assignment.Assignment, error) {
	filter := &assignment.ListFilter{
		TenantID: ctx.Param("tenantId"),
		UserID:   req.UserID,
		BranchID: req.BranchID,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}
	if req.RoleID != "" {
		roleID, err := id.ParseRoleID(req.RoleID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
		}
		filter.RoleID = &roleID
	}

	assignments, err := a.eng.Store().ListAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return assignments, ctx.JSON(http.StatusOK, assignments)
}
