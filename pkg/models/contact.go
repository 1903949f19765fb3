package models

import "time"

// Contact is the subject record a workflow execution runs against. Fields holds the
// values of the closed contact field set keyed by field name.
type Contact struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"orgId"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Record flattens the contact into the map shape used by field redaction.
func (c *Contact) Record() map[string]any {
	record := make(map[string]any, len(c.Fields)+2)
	for k, v := range c.Fields {
		record[k] = v
	}

	record["id"] = c.ID
	record["orgId"] = c.OrgID

	return record
}
