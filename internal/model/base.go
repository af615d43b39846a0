package model

import (
	"time"

	"github.com/google/uuid"
)

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	return p
}

// CaseFilters narrows a case listing. Filtering is a pure predicate applied
// before the canonical priority ordering, never after.
type CaseFilters struct {
	RiskLevel    RiskLevel  `json:"risk_level" form:"risk_level"`
	Status       CaseStatus `json:"status" form:"status"`
	UserID       uuid.UUID  `json:"user_id" form:"user_id"`
	AssignedTo   uuid.UUID  `json:"assigned_to" form:"assigned_to"`
	ManualReview *bool      `json:"manual_review" form:"manual_review"`
	StartDate    time.Time  `json:"start_date" form:"start_date"`
	EndDate      time.Time  `json:"end_date" form:"end_date"`
}

// Match reports whether a case passes every set filter.
func (f CaseFilters) Match(c *Case) bool {
	if f.RiskLevel != "" && c.RiskLevel != f.RiskLevel {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.UserID != uuid.Nil && c.UserID != f.UserID {
		return false
	}
	if f.AssignedTo != uuid.Nil && (c.AssignedAshaID == nil || *c.AssignedAshaID != f.AssignedTo) {
		return false
	}
	if f.ManualReview != nil && c.ManualReview != *f.ManualReview {
		return false
	}
	if !f.StartDate.IsZero() && c.CreatedAt.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && c.CreatedAt.After(f.EndDate) {
		return false
	}
	return true
}
