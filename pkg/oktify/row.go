package oktify

import (
	"time"

	"github.com/hejijunhao/oktify/internal/model"
)

// Row is one audited change.
// This is the stable public type — internal representations may evolve
// independently without breaking consumers.
type Row struct {
	EventID    string            `json:"event_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Actor      string            `json:"actor"`
	TargetUser string            `json:"target_user"`
	Category   Category          `json:"category"`
	Fields     map[string]string `json:"fields"` // keys are exactly FieldSet(Category)
}

// Category selects which kind of change to audit.
type Category string

const (
	Roles  Category = "roles"
	Users  Category = "users"
	Groups Category = "groups"
	Apps   Category = "apps"
)

// FieldSet returns the category-specific field names of a Row, in column order.
func FieldSet(c Category) []string {
	mc, err := c.internal()
	if err != nil {
		return nil
	}
	return model.FieldSet(mc)
}

func (c Category) internal() (model.Category, error) {
	return model.ParseCategory(string(c))
}

func rowFromReport(r model.ReportRow) Row {
	return Row{
		EventID:    r.EventID,
		Timestamp:  r.Timestamp,
		Actor:      r.Actor,
		TargetUser: r.TargetUser,
		Category:   Category(r.Category.Command()),
		Fields:     r.SummaryFields(),
	}
}
