package packs

import "github.com/finprompt/refinery/pkg/models"

// Built-in catalog for investment-industry document types. Looked up by
// key, never mutated at runtime.
var builtinPacks = []Pack{
	{
		Key:         "linkedin_post",
		Name:        "LinkedIn Post",
		Description: "Professional social media content for investment firms",
		SeedClarifiers: []SeedClarifier{
			{
				ID:    "audience",
				Label: "Who is your primary audience?",
				Type:  models.ClarifierMultiselect,
				Options: []Option{
					{Value: "cio", Label: "CIO"},
					{Value: "coo", Label: "COO"},
					{Value: "fo_principal", Label: "FO Principal"},
					{Value: "lps", Label: "LPs"},
					{Value: "pms", Label: "Portfolio Managers"},
					{Value: "ic", Label: "Investment Committee"},
				},
				Required: true,
			},
			{
				ID:    "goal",
				Label: "What action should the reader take?",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "download", Label: "Download resource"},
					{Value: "book_call", Label: "Book a call"},
					{Value: "follow", Label: "Follow/Connect"},
					{Value: "reply", Label: "Reply/Comment"},
					{Value: "visit_url", Label: "Visit URL"},
				},
				Required: true,
			},
			{
				ID:    "tone",
				Label: "Preferred tone",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "formal", Label: "Formal"},
					{Value: "concise", Label: "Concise"},
					{Value: "expert", Label: "Expert"},
					{Value: "persuasive", Label: "Persuasive"},
				},
			},
			{
				ID:    "compliance",
				Label: "Any compliance or legal constraints to honor?",
				Type:  models.ClarifierCheckbox,
			},
			{
				ID:    "key_insight",
				Label: "Single key insight to emphasize",
				Type:  models.ClarifierText,
			},
		},
	},
	{
		Key:         "investment_memo",
		Name:        "Investment Memo",
		Description: "Structured investment analysis and recommendations",
		SeedClarifiers: []SeedClarifier{
			{
				ID:    "strategy_type",
				Label: "Strategy type",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "long_short_equity", Label: "L/S Equity"},
					{Value: "credit", Label: "Credit"},
					{Value: "macro", Label: "Macro"},
					{Value: "vc", Label: "VC"},
					{Value: "pe", Label: "PE"},
				},
				Required: true,
			},
			{
				ID:          "time_horizon",
				Label:       "Time horizon & benchmark",
				Type:        models.ClarifierText,
				Placeholder: "e.g., 3-5 years vs S&P 500",
			},
			{
				ID:          "risk_constraints",
				Label:       "Risk constraints",
				Type:        models.ClarifierText,
				Placeholder: "e.g., VaR bands, max drawdown",
			},
			{
				ID:    "evidence_type",
				Label: "Evidence type required",
				Type:  models.ClarifierMultiselect,
				Options: []Option{
					{Value: "data", Label: "Data/Statistics"},
					{Value: "citations", Label: "Citations"},
					{Value: "charts", Label: "Charts/Graphs"},
					{Value: "case_studies", Label: "Case Studies"},
				},
			},
			{
				ID:    "memo_audience",
				Label: "Primary audience",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "ic", Label: "Investment Committee"},
					{Value: "pms", Label: "Portfolio Managers"},
					{Value: "risk", Label: "Risk Team"},
					{Value: "board", Label: "Board"},
				},
				Required: true,
			},
		},
	},
	{
		Key:         "rfp_response",
		Name:        "RFP Response",
		Description: "Request for Proposal responses",
		SeedClarifiers: []SeedClarifier{
			{
				ID:          "rfp_type",
				Label:       "RFP type",
				Type:        models.ClarifierText,
				Placeholder: "e.g., Institutional mandate, consultant search",
				Required:    true,
			},
			{
				ID:          "key_requirements",
				Label:       "Key requirements to address",
				Type:        models.ClarifierTextarea,
				Placeholder: "List the main requirements from the RFP",
				Required:    true,
			},
		},
	},
	{
		Key:         "compliance_note",
		Name:        "Compliance Note",
		Description: "Regulatory and compliance communications",
		SeedClarifiers: []SeedClarifier{
			{
				ID:          "regulation_type",
				Label:       "Regulation/rule type",
				Type:        models.ClarifierText,
				Placeholder: "e.g., SEC, FINRA, MiFID II",
				Required:    true,
			},
			{
				ID:    "urgency",
				Label: "Urgency level",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "immediate", Label: "Immediate"},
					{Value: "urgent", Label: "Urgent"},
					{Value: "normal", Label: "Normal"},
					{Value: "low", Label: "Low"},
				},
				Required: true,
			},
		},
	},
	{
		Key:         "client_email",
		Name:        "Client Email",
		Description: "Professional client communications",
		SeedClarifiers: []SeedClarifier{
			{
				ID:    "client_type",
				Label: "Client type",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "institutional", Label: "Institutional"},
					{Value: "family_office", Label: "Family Office"},
					{Value: "consultant", Label: "Consultant"},
					{Value: "prospect", Label: "Prospect"},
				},
				Required: true,
			},
			{
				ID:    "email_purpose",
				Label: "Email purpose",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "update", Label: "Update/Report"},
					{Value: "request", Label: "Request"},
					{Value: "response", Label: "Response"},
					{Value: "follow_up", Label: "Follow-up"},
				},
				Required: true,
			},
		},
	},
	{
		Key:         "portfolio_commentary",
		Name:        "Portfolio Commentary",
		Description: "Investment performance and market commentary",
		SeedClarifiers: []SeedClarifier{
			{
				ID:    "time_period",
				Label: "Time period",
				Type:  models.ClarifierDropdown,
				Options: []Option{
					{Value: "monthly", Label: "Monthly"},
					{Value: "quarterly", Label: "Quarterly"},
					{Value: "annual", Label: "Annual"},
					{Value: "custom", Label: "Custom Period"},
				},
				Required: true,
			},
			{
				ID:          "performance_context",
				Label:       "Performance context",
				Type:        models.ClarifierText,
				Placeholder: "e.g., +2.3% vs benchmark -1.1%",
			},
			{
				ID:          "key_themes",
				Label:       "Key market themes to address",
				Type:        models.ClarifierTextarea,
				Placeholder: "List main themes or events that impacted performance",
			},
		},
	},
}
