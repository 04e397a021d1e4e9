package api

// AuthorizeResponse is the response for an authorization check.
type AuthorizeResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the request is allowed"`
	Decision   string `json:"decision" description:"Decision code"`
	Gate       string `json:"gate,omitempty" description:"Gate that decided (permission or policy)"`
	Reason     string `json:"reason,omitempty" description:"Human-readable reason"`
	PolicyName string `json:"policy_name,omitempty" description:"Deciding policy name"`
	Priority   int    `json:"priority,omitempty" description:"Deciding policy priority"`
	EvalTimeNs int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// BatchAuthorizeResponse contains results for multiple checks.
type BatchAuthorizeResponse struct {
	Results []AuthorizeResponse `json:"results" description:"Check results in order"`
}

// EffectivePermissionsResponse lists the permission codes a user holds.
type EffectivePermissionsResponse struct {
	UserID string   `json:"user_id" description:"User ID"`
	Codes  []string `json:"codes" description:"Effective permission codes, sorted"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
