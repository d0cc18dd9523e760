package services

import (
	"time"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/domainfilter"
	"github.com/phonginreallife/leadtriage/internal/sla"
)

// LeadLister is the read side of LeadService used by triage
type LeadLister interface {
	ListLeads(filters map[string]interface{}) ([]db.Lead, error)
}

// SearchResult is what the lead list view renders
type SearchResult struct {
	Domains   []domainfilter.FilterDomain `json:"domains"`
	Leads     []db.Lead                   `json:"leads"`
	Total     int                         `json:"total"`
	GroupBy   []string                    `json:"group_by"`
	GroupKeys []string                    `json:"group_keys"`
	Groups    map[string][]db.Lead        `json:"groups"`
}

// WarningsResult is the SLA panel payload
type WarningsResult struct {
	Warnings    []sla.Warning `json:"warnings"`
	Total       int           `json:"total"`
	UrgentCount int           `json:"urgent_count"`
	Config      sla.Config    `json:"config"`
}

// TriageService runs chip filtering and SLA evaluation over freshly loaded leads.
// Nothing is cached between calls.
type TriageService struct {
	Leads        LeadLister
	Undetermined string
	Now          sla.Clock
}

func NewTriageService(leads LeadLister, undetermined string) *TriageService {
	return &TriageService{Leads: leads, Undetermined: undetermined, Now: time.Now}
}

func (s *TriageService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Search applies filter chips then groupby chips to all leads
func (s *TriageService) Search(filters []domainfilter.SearchFilter) (*SearchResult, error) {
	leads, err := s.Leads.ListLeads(nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range leads {
		badge := sla.FormatSLATime(leads[i].CreatedAt, now)
		if badge.Text != "" {
			leads[i].SLABadge = &badge
		}
	}

	domains := domainfilter.BuildDomainFromFilters(filters)
	filtered := domainfilter.ApplyDomainFilter(leads, domains, LeadFields, LeadSearchText)
	groupBy := domainfilter.GetGroupByFields(filters)
	groups := domainfilter.GroupDataByFieldsWith(filtered, groupBy, LeadFields,
		domainfilter.GroupOptions{Undetermined: s.Undetermined})

	if groupBy == nil {
		groupBy = []string{}
	}
	return &SearchResult{
		Domains:   domains,
		Leads:     filtered,
		Total:     len(filtered),
		GroupBy:   groupBy,
		GroupKeys: groups.Keys,
		Groups:    groups.Items,
	}, nil
}

// Warnings evaluates SLA rules. With mineOnly, only leads owned by userID are
// considered. Filter chips, when given, narrow the leads before evaluation.
func (s *TriageService) Warnings(userID string, mineOnly bool, cfg sla.Config, filters []domainfilter.SearchFilter) (*WarningsResult, error) {
	query := map[string]interface{}{}
	currentUserID := ""
	if mineOnly {
		query["owner_id"] = userID
		currentUserID = userID
	}

	leads, err := s.Leads.ListLeads(query)
	if err != nil {
		return nil, err
	}

	if len(filters) > 0 {
		domains := domainfilter.BuildDomainFromFilters(filters)
		leads = domainfilter.ApplyDomainFilter(leads, domains, LeadFields, LeadSearchText)
	}

	evaluator := sla.NewEvaluator(cfg, s.now)
	warnings := evaluator.Calculate(leads, currentUserID)

	return &WarningsResult{
		Warnings:    warnings,
		Total:       len(warnings),
		UrgentCount: sla.UrgentCount(warnings),
		Config:      evaluator.Config,
	}, nil
}
