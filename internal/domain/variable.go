package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type VariableType string

const (
	VariableText     VariableType = "text"
	VariableEmail    VariableType = "email"
	VariablePhone    VariableType = "phone"
	VariableDate     VariableType = "date"
	VariableTime     VariableType = "time"
	VariableCurrency VariableType = "currency"
	VariableNumber   VariableType = "number"
	VariableURL      VariableType = "url"
)

type VariableCategory string

const (
	VariableCategoryClient     VariableCategory = "client"
	VariableCategoryJob        VariableCategory = "job"
	VariableCategoryTechnician VariableCategory = "technician"
	VariableCategoryCompany    VariableCategory = "company"
	VariableCategoryInvoice    VariableCategory = "invoice"
	VariableCategoryDateTime   VariableCategory = "datetime"
)

// SourceCalculated marks variables derived by a resolver instead of read from a context slot
const SourceCalculated = "calculated"

// Context slots a "table.column" source can name
var contextSlots = []string{"client", "job", "technician", "company", "invoice", "organization"}

type Variable struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
	Category    VariableCategory `json:"category"`
	// "table.column" or "calculated"
	Source  string       `json:"source"`
	Type    VariableType `json:"type"`
	Example string       `json:"example,omitempty"`
}

// Placeholder returns the {{key}} form used in templates
func (v Variable) Placeholder() string {
	return "{{" + v.Key + "}}"
}

func (v Variable) IsCalculated() bool {
	return v.Source == SourceCalculated
}

// SourceParts splits "invoice.due_date" into slot and column
func (v Variable) SourceParts() (slot, column string, ok bool) {
	if v.IsCalculated() {
		return "", "", false
	}
	return strings.Cut(v.Source, ".")
}

var variableRegistry = []Variable{
	{Key: "client_name", Label: "Client Name", Description: "Full name of the client", Category: VariableCategoryClient, Source: "client.name", Type: VariableText, Example: "Jane Smith"},
	{Key: "client_first_name", Label: "Client First Name", Description: "First name of the client", Category: VariableCategoryClient, Source: SourceCalculated, Type: VariableText, Example: "Jane"},
	{Key: "client_email", Label: "Client Email", Description: "Email address of the client", Category: VariableCategoryClient, Source: "client.email", Type: VariableEmail, Example: "jane@example.com"},
	{Key: "client_phone", Label: "Client Phone", Description: "Phone number of the client", Category: VariableCategoryClient, Source: "client.phone", Type: VariablePhone, Example: "(555) 123-4567"},
	{Key: "client_address", Label: "Client Address", Description: "Address on file for the client", Category: VariableCategoryClient, Source: "client.address", Type: VariableText, Example: "12 Oak St"},

	{Key: "job_title", Label: "Job Title", Description: "Title of the job", Category: VariableCategoryJob, Source: "job.title", Type: VariableText, Example: "AC Repair"},
	{Key: "job_number", Label: "Job Number", Description: "Reference number of the job", Category: VariableCategoryJob, Source: "job.job_number", Type: VariableText, Example: "J-1042"},
	{Key: "job_status", Label: "Job Status", Description: "Current status of the job", Category: VariableCategoryJob, Source: "job.status", Type: VariableText, Example: "scheduled"},
	{Key: "job_date", Label: "Job Date", Description: "Scheduled date of the job", Category: VariableCategoryJob, Source: "job.schedule_start", Type: VariableDate, Example: "1/21/2025"},
	{Key: "job_time", Label: "Job Time", Description: "Scheduled start time of the job", Category: VariableCategoryJob, Source: "job.schedule_start", Type: VariableTime, Example: "9:30 AM"},
	{Key: "job_duration", Label: "Job Duration", Description: "Scheduled length of the job", Category: VariableCategoryJob, Source: SourceCalculated, Type: VariableText, Example: "2 hours"},
	{Key: "job_address", Label: "Job Address", Description: "Where the work takes place", Category: VariableCategoryJob, Source: "job.address", Type: VariableText, Example: "12 Oak St"},

	{Key: "technician_name", Label: "Technician Name", Description: "Name of the assigned technician", Category: VariableCategoryTechnician, Source: "technician.name", Type: VariableText, Example: "Mike"},
	{Key: "technician_phone", Label: "Technician Phone", Description: "Phone number of the assigned technician", Category: VariableCategoryTechnician, Source: "technician.phone", Type: VariablePhone, Example: "(555) 987-6543"},

	{Key: "company_name", Label: "Company Name", Description: "Your business name", Category: VariableCategoryCompany, Source: "company.name", Type: VariableText, Example: "Acme Services"},
	{Key: "company_phone", Label: "Company Phone", Description: "Your business phone number", Category: VariableCategoryCompany, Source: "company.phone", Type: VariablePhone, Example: "(555) 000-1111"},
	{Key: "company_email", Label: "Company Email", Description: "Your business email address", Category: VariableCategoryCompany, Source: "company.email", Type: VariableEmail, Example: "hello@acme.test"},
	{Key: "company_website", Label: "Company Website", Description: "Your website address", Category: VariableCategoryCompany, Source: "company.website", Type: VariableURL, Example: "https://acme.test"},
	{Key: "review_link", Label: "Review Link", Description: "Where clients can leave a review", Category: VariableCategoryCompany, Source: "organization.review_url", Type: VariableURL, Example: "https://g.page/acme/review"},

	{Key: "invoice_number", Label: "Invoice Number", Description: "Reference number of the invoice", Category: VariableCategoryInvoice, Source: "invoice.invoice_number", Type: VariableText, Example: "INV-2031"},
	{Key: "total_amount", Label: "Total Amount", Description: "Total amount due", Category: VariableCategoryInvoice, Source: "invoice.total", Type: VariableCurrency, Example: "$125.00"},
	{Key: "amount_paid", Label: "Amount Paid", Description: "Amount already paid", Category: VariableCategoryInvoice, Source: "invoice.amount_paid", Type: VariableCurrency, Example: "$25.00"},
	{Key: "balance_due", Label: "Balance Due", Description: "Remaining balance on the invoice", Category: VariableCategoryInvoice, Source: "invoice.balance", Type: VariableCurrency, Example: "$100.00"},
	{Key: "due_date", Label: "Due Date", Description: "Date the invoice is due", Category: VariableCategoryInvoice, Source: "invoice.due_date", Type: VariableDate, Example: "1/15/2025"},
	{Key: "days_overdue", Label: "Days Overdue", Description: "Number of days past the due date", Category: VariableCategoryInvoice, Source: SourceCalculated, Type: VariableNumber, Example: "5"},
	{Key: "payment_link", Label: "Payment Link", Description: "Secure link to pay online", Category: VariableCategoryInvoice, Source: SourceCalculated, Type: VariableURL, Example: "https://pay.acme.test/pay/inv_123"},

	{Key: "current_date", Label: "Current Date", Description: "Today's date", Category: VariableCategoryDateTime, Source: SourceCalculated, Type: VariableDate, Example: "1/20/2025"},
	{Key: "current_time", Label: "Current Time", Description: "The time the message is sent", Category: VariableCategoryDateTime, Source: SourceCalculated, Type: VariableTime, Example: "2:15 PM"},
	{Key: "tomorrow_date", Label: "Tomorrow's Date", Description: "The day after today", Category: VariableCategoryDateTime, Source: SourceCalculated, Type: VariableDate, Example: "1/21/2025"},
}

var variableIndex = func() map[string]int {
	idx := make(map[string]int, len(variableRegistry))
	for i, v := range variableRegistry {
		idx[v.Key] = i
	}
	return idx
}()

// Variables returns a copy of the registry in registry order
func Variables() []Variable {
	return append([]Variable(nil), variableRegistry...)
}

// LookupVariable finds a registered variable by key
func LookupVariable(key string) (Variable, bool) {
	i, ok := variableIndex[key]
	if !ok {
		return Variable{}, false
	}
	return variableRegistry[i], true
}

// VariableCategories returns the categories in display order
func VariableCategories() []VariableCategory {
	return []VariableCategory{
		VariableCategoryClient,
		VariableCategoryJob,
		VariableCategoryTechnician,
		VariableCategoryCompany,
		VariableCategoryInvoice,
		VariableCategoryDateTime,
	}
}

// FilterVariables keeps registry order. An empty query matches everything and the
// category "all" (or "") disables the category filter.
func FilterVariables(query, category string) []Variable {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Variable{}
	for _, v := range variableRegistry {
		if category != "" && category != "all" && string(v.Category) != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(v.Key), q) &&
			!strings.Contains(strings.ToLower(v.Label), q) &&
			!strings.Contains(strings.ToLower(v.Description), q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// ExtractPlaceholders lists distinct {{name}} tokens in order of first appearance,
// split into registered and unregistered names
func ExtractPlaceholders(text string) (known, unknown []string) {
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := variableIndex[name]; ok {
			known = append(known, name)
		} else {
			unknown = append(unknown, name)
		}
	}
	return known, unknown
}

// ValidateRegistry checks the registry invariants: unique keys, sources that name a
// context slot and a resolver for every calculated variable
func ValidateRegistry() error {
	seen := map[string]bool{}
	for _, v := range variableRegistry {
		if seen[v.Key] {
			return fmt.Errorf("duplicate variable key: %s", v.Key)
		}
		seen[v.Key] = true

		if v.IsCalculated() {
			if _, ok := calculatedResolvers[v.Key]; !ok {
				return fmt.Errorf("calculated variable %s has no resolver", v.Key)
			}
			continue
		}
		slot, column, ok := v.SourceParts()
		if !ok || column == "" || !isContextSlot(slot) {
			return fmt.Errorf("variable %s has invalid source %q", v.Key, v.Source)
		}
	}
	return nil
}

func isContextSlot(slot string) bool {
	for _, s := range contextSlots {
		if s == slot {
			return true
		}
	}
	return false
}
