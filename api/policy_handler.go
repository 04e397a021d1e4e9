package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/forge"

	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/policy"
)

func (a *API) registerPolicyRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("policies"))

	if err := g.POST("/policies", a.createPolicy,
		forge.WithSummary("Create policy"),
		forge.WithDescription("Creates an access policy with temporal, locational, and contextual constraints."),
		forge.WithOperationID("createPolicy"),
		forge.WithRequestSchema(CreatePolicyRequest{}),
		forge.WithCreatedResponse(&policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/policies/:policyId", a.getPolicy,
		forge.WithSummary("Get policy"),
		forge.WithDescription("Returns details of a specific policy."),
		forge.WithOperationID("getPolicy"),
		forge.WithResponseSchema(http.StatusOK, "Policy details", &policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/policies/:policyId", a.updatePolicy,
		forge.WithSummary("Update policy"),
		forge.WithDescription("Updates an admin-authored policy. Synthetic policies cannot be edited."),
		forge.WithOperationID("updatePolicy"),
		forge.WithRequestSchema(UpdatePolicyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated policy", &policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/policies/:policyId", a.deletePolicy,
		forge.WithSummary("Delete policy"),
		forge.WithDescription("Deletes an admin-authored policy."),
		forge.WithOperationID("deletePolicy"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/policies", a.listPolicies,
		forge.WithSummary("List policies"),
		forge.WithDescription("Lists policies with optional filters, highest priority first."),
		forge.WithOperationID("listPolicies"),
		forge.WithRequestSchema(ListPoliciesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Policy list", []*policy.Policy{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPolicy(ctx forge.Context, req *CreatePolicyRequest) (*policy.Policy, error) {
	tenantID := ctx.Param("tenantId")
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	p := &policy.Policy{
		TenantID:             tenantID,
		Name:                 req.Name,
		Description:          req.Description,
		Effect:               policy.Effect(req.Effect),
		Priority:             req.Priority,
		IsActive:             req.IsActive,
		AppliesToUsers:       req.AppliesToUsers,
		AppliesToRoles:       req.AppliesToRoles,
		AppliesToDepartments: req.AppliesToDepartments,
		Actions:              req.Actions,
		Resources:            req.Resources,
		DaysOfWeek:           toWeekdays(req.DaysOfWeek),
		TimeOfDayStart:       req.TimeOfDayStart,
		TimeOfDayEnd:         req.TimeOfDayEnd,
		Conditions:           req.Conditions,
	}

	var err error
	if p.EffectiveFrom, err = parseTimestamp("effective_from", req.EffectiveFrom); err != nil {
		return nil, err
	}
	if p.EffectiveUntil, err = parseTimestamp("effective_until", req.EffectiveUntil); err != nil {
		return nil, err
	}

	if err := a.eng.CreatePolicy(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPolicy(ctx forge.Context, _ *GetPolicyRequest) (*policy.Policy, error) {
	polID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	p, err := a.eng.Store().GetPolicy(ctx.Context(), polID)
	if err != nil {
		return nil, mapError(err)
	}
	if p.TenantID != ctx.Param("tenantId") {
		return nil, forge.NotFound("policy not found")
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePolicy(ctx forge.Context, req *UpdatePolicyRequest) (*policy.Policy, error) {
	polID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	p, err := a.eng.Store().GetPolicy(ctx.Context(), polID)
	if err != nil {
		return nil, mapError(err)
	}
	if p.TenantID != ctx.Param("tenantId") {
		return nil, forge.NotFound("policy not found")
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Effect != "" {
		p.Effect = policy.Effect(req.Effect)
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.AppliesToUsers != nil {
		p.AppliesToUsers = req.AppliesToUsers
	}
	if req.AppliesToRoles != nil {
		p.AppliesToRoles = req.AppliesToRoles
	}
	if req.AppliesToDepartments != nil {
		p.AppliesToDepartments = req.AppliesToDepartments
	}
	if req.Actions != nil {
		p.Actions = req.Actions
	}
	if req.Resources != nil {
		p.Resources = req.Resources
	}
	if req.DaysOfWeek != nil {
		p.DaysOfWeek = toWeekdays(req.DaysOfWeek)
	}
	if req.TimeOfDayStart != "" {
		p.TimeOfDayStart = req.TimeOfDayStart
	}
	if req.TimeOfDayEnd != "" {
		p.TimeOfDayEnd = req.TimeOfDayEnd
	}
	if req.Conditions != nil {
		p.Conditions = req.Conditions
	}
	if req.EffectiveFrom != "" {
		if p.EffectiveFrom, err = parseTimestamp("effective_from", req.EffectiveFrom); err != nil {
			return nil, err
		}
	}
	if req.EffectiveUntil != "" {
		if p.EffectiveUntil, err = parseTimestamp("effective_until", req.EffectiveUntil); err != nil {
			return nil, err
		}
	}

	if err := a.eng.UpdatePolicy(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePolicy(ctx forge.Context, _ *GetPolicyRequest) (*struct{}, error) {
	tenantID := ctx.Param("tenantId")
	polID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	if err := a.eng.DeletePolicy(ctx.Context(), tenantID, polID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPolicies(ctx forge.Context, req *ListPoliciesRequest) ([]*policy.Policy, error) {
	filter := &policy.ListFilter{
		TenantID: ctx.Param("tenantId"),
		Effect:   policy.Effect(req.Effect),
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}
	if req.Active != "" {
		active, err := strconv.ParseBool(req.Active)
		if err != nil {
			return nil, forge.BadRequest("active must be true or false")
		}
		filter.IsActive = &active
	}
	if req.Synthetic != "" {
		synthetic, err := strconv.ParseBool(req.Synthetic)
		if err != nil {
			return nil, forge.BadRequest("synthetic must be true or false")
		}
		filter.Synthetic = &synthetic
	}

	policies, err := a.eng.Store().ListPolicies(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return policies, ctx.JSON(http.StatusOK, policies)
}

func toWeekdays(days []int) []time.Weekday {
	if days == nil {
		return nil
	}
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(d)
	}
	return out
}
