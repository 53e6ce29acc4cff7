package domain

// BusinessType selects the niche templates offered on top of the base library
type BusinessType string

const (
	BusinessFieldService BusinessType = "field_service"
	BusinessHVAC         BusinessType = "hvac"
	BusinessPlumbing     BusinessType = "plumbing"
	BusinessElectrical   BusinessType = "electrical"
	BusinessCleaning     BusinessType = "cleaning"
	BusinessLandscaping  BusinessType = "landscaping"
)

type TemplateCategory string

const (
	TemplateCategoryAppointments TemplateCategory = "appointments"
	TemplateCategoryJobUpdates   TemplateCategory = "job_updates"
	TemplateCategoryPayments     TemplateCategory = "payments"
	TemplateCategoryEstimates    TemplateCategory = "estimates"
	TemplateCategoryFollowUp     TemplateCategory = "follow_up"
	TemplateCategoryOperations   TemplateCategory = "operations"
)

var TemplateCategories = []TemplateCategory{
	TemplateCategoryAppointments,
	TemplateCategoryJobUpdates,
	TemplateCategoryPayments,
	TemplateCategoryEstimates,
	TemplateCategoryFollowUp,
	TemplateCategoryOperations,
}

// Template is a prebuilt rule. Its trigger may use either status encoding.
type Template struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    TemplateCategory `json:"category"`
	Rule        AutomationRule   `json:"rule"`
}

func (t Template) clone() Template {
	t.Rule = t.Rule.Clone()
	return t
}

func businessHoursWindow() *DeliveryWindow {
	return &DeliveryWindow{
		BusinessHoursOnly: true,
		AllowedDays:       []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday},
	}
}

func smsFirst() *MultiChannelConfig {
	return &MultiChannelConfig{
		PrimaryChannel:     ChannelSMS,
		FallbackEnabled:    true,
		FallbackChannel:    ChannelEmail,
		FallbackDelayHours: 2,
	}
}

var baseTemplates = []Template{
	{
		ID:          "appointment_24h",
		Name:        "24-Hour Appointment Reminder",
		Description: "Text the client the day before a visit and fall back to email",
		Category:    TemplateCategoryAppointments,
		Rule: AutomationRule{
			Name:        "24-Hour Appointment Reminder",
			Description: "Reminds clients of tomorrow's appointment",
			Trigger: Trigger{
				Type:   TriggerAppointmentReminder,
				Config: MapOfAny{"hours_before": 24},
			},
			Action: Action{
				Type: ActionSendSMS,
				Config: MapOfAny{
					"message": "Hi {{client_first_name}}, this is {{company_name}} reminding you of your appointment on {{job_date}} at {{job_time}}. Reply C to confirm or call {{company_phone}} to reschedule.",
				},
			},
			DeliveryWindow: &DeliveryWindow{
				TimeRange: &TimeRange{Start: "09:00", End: "19:00"},
			},
			MultiChannel: smsFirst(),
		},
	},
	{
		ID:          "technician_on_the_way",
		Name:        "Technician On The Way",
		Description: "Let the client know when the technician heads out",
		Category:    TemplateCategoryJobUpdates,
		Rule: AutomationRule{
			Name: "Technician On The Way",
			Trigger: Trigger{
				Type:       TriggerJobStatusChanged,
				StatusFrom: "scheduled",
				StatusTo:   "dispatched",
			},
			Action: Action{
				Type: ActionSendSMS,
				Config: MapOfAny{
					"message": "Good news {{client_first_name}}! {{technician_name}} from {{company_name}} is on the way to {{job_address}}.",
				},
			},
		},
	},
	{
		ID:          "job_completed_thank_you",
		Name:        "Thank You And Review Request",
		Description: "Thank the client after a completed job and ask for a review",
		Category:    TemplateCategoryFollowUp,
		Rule: AutomationRule{
			Name: "Thank You And Review Request",
			Trigger: Trigger{
				Type: TriggerJobStatusTo,
				Conditions: []Condition{
					{Field: ConditionFieldStatus, Operator: OperatorEquals, Value: "completed"},
				},
			},
			Action: Action{
				Type: ActionSendEmail,
				Config: MapOfAny{
					"subject": "Thanks for choosing {{company_name}}",
					"body":    "Hi {{client_first_name}},\n\nThank you for trusting us with {{job_title}}. If you have a minute, we would love a review: {{review_link}}\n\n{{company_name}}",
				},
				Delay: &Delay{Unit: DelayHours, Value: 2},
			},
			DeliveryWindow: businessHoursWindow(),
		},
	},
	{
		ID:          "invoice_sent_email",
		Name:        "Invoice Delivery",
		Description: "Email the invoice with a payment link",
		Category:    TemplateCategoryPayments,
		Rule: AutomationRule{
			Name: "Invoice Delivery",
			Trigger: Trigger{
				Type: TriggerInvoiceSent,
			},
			Action: Action{
				Type: ActionSendEmail,
				Config: MapOfAny{
					"subject": "Invoice {{invoice_number}} from {{company_name}}",
					"body":    "Hi {{client_first_name}},\n\nYour invoice {{invoice_number}} for {{total_amount}} is due on {{due_date}}. Pay securely online: {{payment_link}}",
				},
			},
		},
	},
	{
		ID:          "invoice_overdue_reminder",
		Name:        "Overdue Invoice Reminder",
		Description: "Nudge clients whose invoice is past due",
		Category:    TemplateCategoryPayments,
		Rule: AutomationRule{
			Name: "Overdue Invoice Reminder",
			Trigger: Trigger{
				Type:   TriggerInvoiceOverdue,
				Config: MapOfAny{"days_overdue": 3},
			},
			Action: Action{
				Type: ActionSendSMS,
				Config: MapOfAny{
					"message": "Hi {{client_first_name}}, invoice {{invoice_number}} ({{balance_due}}) is {{days_overdue}} days past due. Pay here: {{payment_link}}",
				},
			},
			DeliveryWindow: businessHoursWindow(),
			MultiChannel:   smsFirst(),
		},
	},
	{
		ID:          "estimate_follow_up",
		Name:        "Estimate Follow-Up",
		Description: "Follow up on estimates that have not been answered",
		Category:    TemplateCategoryEstimates,
		Rule: AutomationRule{
			Name: "Estimate Follow-Up",
			Trigger: Trigger{
				Type:   TriggerEstimateFollowUp,
				Config: MapOfAny{"days_after": 3},
			},
			Action: Action{
				Type: ActionSendEmail,
				Config: MapOfAny{
					"subject": "Any questions about your estimate?",
					"body":    "Hi {{client_first_name}},\n\nJust checking whether you had a chance to review our estimate. Reply to this email or call {{company_phone}} with any questions.",
				},
			},
			DeliveryWindow: businessHoursWindow(),
		},
	},
	{
		ID:          "new_client_welcome",
		Name:        "New Client Welcome",
		Description: "Welcome new clients",
		Category:    TemplateCategoryFollowUp,
		Rule: AutomationRule{
			Name: "New Client Welcome",
			Trigger: Trigger{
				Type: TriggerClientCreated,
			},
			Action: Action{
				Type: ActionSendEmail,
				Config: MapOfAny{
					"subject": "Welcome to {{company_name}}",
					"body":    "Hi {{client_first_name}}, thanks for choosing {{company_name}}. Save our number {{company_phone}} for anything you need.",
				},
			},
		},
	},
}

var nicheTemplates = map[BusinessType][]Template{
	BusinessFieldService: {
		{
			ID:          "field_service_job_scheduled",
			Name:        "Booking Confirmation",
			Description: "Confirm new bookings by text",
			Category:    TemplateCategoryAppointments,
			Rule: AutomationRule{
				Name:    "Booking Confirmation",
				Trigger: Trigger{Type: TriggerJobScheduled},
				Action: Action{
					Type: ActionSendSMS,
					Config: MapOfAny{
						"message": "Hi {{client_first_name}}, you're booked with {{company_name}} on {{job_date}} at {{job_time}}.",
					},
				},
			},
		},
	},
	BusinessHVAC: {
		{
			ID:          "hvac_seasonal_tune_up",
			Name:        "Seasonal Tune-Up Reminder",
			Description: "Invite clients back for maintenance six months after a job",
			Category:    TemplateCategoryFollowUp,
			Rule: AutomationRule{
				Name:    "Seasonal Tune-Up Reminder",
				Trigger: Trigger{Type: TriggerJobCompleted},
				Action: Action{
					Type: ActionSendSMS,
					Config: MapOfAny{
						"message": "Hi {{client_first_name}}, it's been a while since your last HVAC service. Book your seasonal tune-up with {{company_name}}: {{company_website}}",
					},
					Delay: &Delay{Unit: DelayDays, Value: 180},
				},
				DeliveryWindow: businessHoursWindow(),
			},
		},
		{
			ID:          "hvac_parts_on_hold",
			Name:        "Parts On Order",
			Description: "Tell the client when a job waits on parts",
			Category:    TemplateCategoryJobUpdates,
			Rule: AutomationRule{
				Name: "Parts On Order",
				Trigger: Trigger{
					Type: TriggerJobStatusTo,
					Conditions: []Condition{
						{Field: ConditionFieldStatusTo, Operator: OperatorEquals, Value: "on_hold"},
					},
				},
				Action: Action{
					Type: ActionSendSMS,
					Config: MapOfAny{
						"message": "Hi {{client_first_name}}, we're waiting on parts for {{job_title}}. We'll reach out as soon as they arrive.",
					},
				},
			},
		},
	},
	BusinessPlumbing: {
		{
			ID:          "plumbing_post_repair_check",
			Name:        "Post-Repair Check-In",
			Description: "Check for leaks a day after a repair",
			Category:    TemplateCategoryFollowUp,
			Rule: AutomationRule{
				Name: "Post-Repair Check-In",
				Trigger: Trigger{
					Type: TriggerJobStatusChanged,
					Conditions: []Condition{
						{Field: ConditionFieldStatusFrom, Operator: OperatorEquals, Value: "in_progress"},
						{Field: ConditionFieldStatusTo, Operator: OperatorEquals, Value: "completed"},
					},
				},
				Action: Action{
					Type: ActionSendSMS,
					Config: MapOfAny{
						"message": "Hi {{client_first_name}}, {{company_name}} here. Is everything still dry after yesterday's repair? Reply if anything looks off.",
					},
					Delay: &Delay{Unit: DelayDays, Value: 1},
				},
				DeliveryWindow: businessHoursWindow(),
			},
		},
	},
	BusinessElectrical: {
		{
			ID:          "electrical_inspection_task",
			Name:        "Schedule Safety Inspection",
			Description: "Create an office task to book a follow-up inspection",
			Category:    TemplateCategoryOperations,
			Rule: AutomationRule{
				Name:    "Schedule Safety Inspection",
				Trigger: Trigger{Type: TriggerJobCompleted},
				Action: Action{
					Type: ActionCreateTask,
					Config: MapOfAny{
						"title":       "Book safety inspection for {{client_name}}",
						"assignee":    "office",
						"due_in_days": 7,
					},
				},
			},
		},
	},
	BusinessCleaning: {
		{
			ID:          "cleaning_rebook_reminder",
			Name:        "Rebook Reminder",
			Description: "Invite inactive clients to book another clean",
			Category:    TemplateCategoryFollowUp,
			Rule: AutomationRule{
				Name: "Rebook Reminder",
				Trigger: Trigger{
					Type:   TriggerClientInactive,
					Config: MapOfAny{"days_inactive": 30},
				},
				Action: Action{
					Type: ActionSendSMS,
					Config: MapOfAny{
						"message": "Hi {{client_first_name}}, ready for your next clean? Book with {{company_name}} at {{company_website}}",
					},
				},
				DeliveryWindow: businessHoursWindow(),
			},
		},
	},
	BusinessLandscaping: {
		{
			ID:          "landscaping_estimate_approved",
			Name:        "Estimate Approved Kickoff",
			Description: "Tag the client and alert the crew lead when an estimate is approved",
			Category:    TemplateCategoryEstimates,
			Rule: AutomationRule{
				Name:    "Estimate Approved Kickoff",
				Trigger: Trigger{Type: TriggerEstimateApproved},
				Action: Action{
					Type: ActionSendNotification,
					Config: MapOfAny{
						"recipient": "office",
						"message":   "{{client_name}} approved their estimate. Time to schedule the crew.",
					},
				},
			},
		},
	},
}

// BusinessTypes lists the niches that have their own templates
func BusinessTypes() []BusinessType {
	return []BusinessType{
		BusinessFieldService, BusinessHVAC, BusinessPlumbing,
		BusinessElectrical, BusinessCleaning, BusinessLandscaping,
	}
}

func resolveBusinessType(bt BusinessType) BusinessType {
	if _, ok := nicheTemplates[bt]; ok {
		return bt
	}
	return BusinessFieldService
}

// ListTemplates returns copies of the base templates followed by the niche ones.
// Unknown business types get the field_service set.
func ListTemplates(bt BusinessType) []Template {
	niche := nicheTemplates[resolveBusinessType(bt)]
	out := make([]Template, 0, len(baseTemplates)+len(niche))
	for _, t := range baseTemplates {
		out = append(out, t.clone())
	}
	for _, t := range niche {
		out = append(out, t.clone())
	}
	return out
}

// GetTemplatesByCategory groups the templates offered to a business type
func GetTemplatesByCategory(bt BusinessType) map[TemplateCategory][]Template {
	out := make(map[TemplateCategory][]Template)
	for _, t := range ListTemplates(bt) {
		out[t.Category] = append(out[t.Category], t)
	}
	return out
}

// FindTemplate looks up a template offered to a business type by ID
func FindTemplate(bt BusinessType, id string) (Template, bool) {
	for _, t := range ListTemplates(bt) {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
