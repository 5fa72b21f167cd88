package models

// ValidationReport is the result of checking a workflow definition without
// executing it. Errors block execution; warnings do not.
type ValidationReport struct {
	IsValid   bool     `json:"is_valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
}
