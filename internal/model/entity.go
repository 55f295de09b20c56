// Package model defines the records read from Airtable and the canonical
// CRM entities they are reconciled into.
package model

import "time"

// EntityType identifies one of the reconciled CRM tables.
type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityCompany EntityType = "company"
	EntityJob     EntityType = "job"
)

// EntityTypes returns the entity types in planning order.
func EntityTypes() []EntityType {
	return []EntityType{EntityPerson, EntityCompany, EntityJob}
}

// Table returns the target table for the entity type.
func (t EntityType) Table() string {
	switch t {
	case EntityPerson:
		return "people"
	case EntityCompany:
		return "companies"
	case EntityJob:
		return "jobs"
	default:
		return ""
	}
}

// ExternalRecord is one row fetched from an Airtable table.
type ExternalRecord struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// Column is a target column and the value to write into it.
type Column struct {
	Name  string
	Value any
}

// Entity is a normalized record ready for planning.
type Entity interface {
	Type() EntityType
	ExternalID() string
	// Identity is the name or title the primary match key derives from.
	Identity() string
	Columns() []Column
}

// Person is a candidate or lead in the people table.
type Person struct {
	AirtableID          string     `json:"airtable_id"`
	Name                string     `json:"name"`
	CompanyRole         string     `json:"company_role"`
	EmployeeLocation    string     `json:"employee_location"`
	LinkedInURL         string     `json:"linkedin_url"`
	Email               string     `json:"email"`
	Stage               Stage      `json:"stage"`
	ConfidenceLevel     string     `json:"confidence_level"`
	LeadSource          string     `json:"lead_source"`
	AutomationStartedAt *time.Time `json:"automation_started_at"`
	ConnectionMessage   string     `json:"connection_message"`
	FollowUpMessage     string     `json:"follow_up_message"`
	CompanyName         string     `json:"company_name"`
	CompanyAirtableID   *string    `json:"company_airtable_id"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (p *Person) Type() EntityType   { return EntityPerson }
func (p *Person) ExternalID() string { return p.AirtableID }
func (p *Person) Identity() string   { return p.Name }

func (p *Person) Columns() []Column {
	return []Column{
		{"name", p.Name},
		{"company_role", p.CompanyRole},
		{"employee_location", p.EmployeeLocation},
		{"linkedin_url", p.LinkedInURL},
		{"email", p.Email},
		{"stage", p.Stage},
		{"confidence_level", p.ConfidenceLevel},
		{"lead_source", p.LeadSource},
		{"automation_started_at", p.AutomationStartedAt},
		{"connection_message", p.ConnectionMessage},
		{"follow_up_message", p.FollowUpMessage},
		{"company_name", p.CompanyName},
		{"company_airtable_id", p.CompanyAirtableID},
		{"created_at", p.CreatedAt},
	}
}

// Company is an account in the companies table.
type Company struct {
	AirtableID       string    `json:"airtable_id"`
	Name             string    `json:"name"`
	Website          string    `json:"website"`
	LinkedInURL      string    `json:"linkedin_url"`
	HeadOffice       string    `json:"head_office"`
	Industry         string    `json:"industry"`
	CompanySize      string    `json:"company_size"`
	Priority         string    `json:"priority"`
	AutomationActive bool      `json:"automation_active"`
	LeadScore        *string   `json:"lead_score"`
	CreatedAt        time.Time `json:"created_at"`
}

func (c *Company) Type() EntityType   { return EntityCompany }
func (c *Company) ExternalID() string { return c.AirtableID }
func (c *Company) Identity() string   { return c.Name }

func (c *Company) Columns() []Column {
	return []Column{
		{"name", c.Name},
		{"website", c.Website},
		{"linkedin_url", c.LinkedInURL},
		{"head_office", c.HeadOffice},
		{"industry", c.Industry},
		{"company_size", c.CompanySize},
		{"priority", c.Priority},
		{"automation_active", c.AutomationActive},
		{"lead_score", c.LeadScore},
		{"created_at", c.CreatedAt},
	}
}

// Job is an open role in the jobs table.
type Job struct {
	AirtableID        string     `json:"airtable_id"`
	Title             string     `json:"title"`
	CompanyName       string     `json:"company_name"`
	CompanyAirtableID *string    `json:"company_airtable_id"`
	Location          string     `json:"location"`
	Description       string     `json:"description"`
	Requirements      string     `json:"requirements"`
	Salary            string     `json:"salary"`
	Status            Stage      `json:"status"`
	DatePosted        *time.Time `json:"date_posted"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (j *Job) Type() EntityType   { return EntityJob }
func (j *Job) ExternalID() string { return j.AirtableID }
func (j *Job) Identity() string   { return j.Title }

func (j *Job) Columns() []Column {
	return []Column{
		{"title", j.Title},
		{"company_name", j.CompanyName},
		{"company_airtable_id", j.CompanyAirtableID},
		{"location", j.Location},
		{"description", j.Description},
		{"requirements", j.Requirements},
		{"salary", j.Salary},
		{"status", j.Status},
		{"date_posted", j.DatePosted},
		{"created_at", j.CreatedAt},
	}
}
