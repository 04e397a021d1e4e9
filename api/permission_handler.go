package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Registers a permission in the tenant catalog."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithDescription("Returns details of a specific permission."),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/permissions/:permissionId", a.updatePermission,
		forge.WithSummary("Update permission"),
		forge.WithDescription("Updates an existing permission. System permissions accept only description and deactivation edits."),
		forge.WithOperationID("updatePermission"),
		forge.WithRequestSchema(UpdatePermissionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated permission", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Deletes a permission. System permissions cannot be deleted."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithDescription("Lists permissions with optional filters."),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	tenantID := ctx.Param("tenantId")
	if req.Code == "" && (req.Module == "" || req.Resource == "" || req.Action == "") {
		return nil, forge.BadRequest("code or module/resource/action is required")
	}

	p := &permission.Permission{
		TenantID:           tenantID,
		Code:               req.Code,
		Module:             req.Module,
		Resource:           req.Resource,
		Action:             req.Action,
		Scope:              permission.Scope(req.Scope),
		DataClassification: permission.Classification(req.DataClassification),
		Description:        req.Description,
		IsActive:           true,
	}

	if err := a.eng.CreatePermission(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	p, err := a.eng.Store().GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	if p.TenantID != ctx.Param("tenantId") {
		return nil, forge.NotFound("permission not found")
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePermission(ctx forge.Context, req *UpdatePermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	p, err := a.eng.Store().GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	if p.TenantID != ctx.Param("tenantId") {
		return nil, forge.NotFound("permission not found")
	}

	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Scope != "" {
		p.Scope = permission.Scope(req.Scope)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := a.eng.UpdatePermission(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	tenantID := ctx.Param("tenantId")
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	if err := a.eng.DeletePermission(ctx.Context(), tenantID, permID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) ([]*permission.Permission, error) {
	filter := &permission.ListFilter{
		TenantID: ctx.Param("tenantId"),
		Module:   req.Module,
		Resource: req.Resource,
		Action:   req.Action,
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	perms, err := a.eng.Store().ListPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return perms, ctx.JSON(http.StatusOK, perms)
}
