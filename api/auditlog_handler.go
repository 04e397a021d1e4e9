package api

import (
	"net/http"
	"strconv"

	"github.com/xraph/forge"

	"github.com/medplane/guardian/auditlog"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1/tenants/:tenantId", forge.WithGroupTags("audit"))

	return g.GET("/audit-log", a.listAuditEntries,
		forge.WithSummary("Query audit log"),
		forge.WithDescription("Returns authorization decision audit entries, newest first."),
		forge.WithOperationID("listAuditEntries"),
		forge.WithRequestSchema(ListAuditEntriesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entries", []*auditlog.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAuditEntries(ctx forge.Context, req *ListAuditEntriesRequest) ([]*auditlog.Entry, error) {
	tenantID := ctx.Param("tenantId")
	filter := &auditlog.QueryFilter{
		UserID:   req.UserID,
		Action:   req.Action,
		Resource: req.Resource,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}
	if req.Allowed != "" {
		allowed, err := strconv.ParseBool(req.Allowed)
		if err != nil {
			return nil, forge.BadRequest("allowed must be true or false")
		}
		filter.Allowed = &allowed
	}

	var err error
	if filter.After, err = parseTimestamp("after", req.After); err != nil {
		return nil, err
	}
	if filter.Before, err = parseTimestamp("before", req.Before); err != nil {
		return nil, err
	}

	entries, err := a.eng.QueryAuditLog(ctx.Context(), tenantID, filter)
	if err != nil {
		return nil, mapError(err)
	}

	return entries, ctx.JSON(http.StatusOK, entries)
}
