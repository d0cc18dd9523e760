package services

import (
	"strings"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/domainfilter"
)

// LeadFields exposes the lead properties that filter and groupby chips can target
var LeadFields = domainfilter.Fields[db.Lead]{
	"name":       func(l db.Lead) string { return l.Name },
	"phone":      func(l db.Lead) string { return l.Phone },
	"email":      func(l db.Lead) string { return l.Email },
	"source":     func(l db.Lead) string { return l.Source },
	"status":     func(l db.Lead) string { return l.Status },
	"owner_id":   func(l db.Lead) string { return l.OwnerID },
	"country":    func(l db.Lead) string { return l.Country },
	"program":    func(l db.Lead) string { return l.Program },
	"sla_status": func(l db.Lead) string { return l.SLAStatus },
}

// LeadSearchText flattens the fields the free-text search box looks at
func LeadSearchText(l db.Lead) string {
	return strings.Join([]string{l.Name, l.Phone, l.Email, l.Source, l.Country, l.Program}, " ")
}
