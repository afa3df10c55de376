package accounts

// providerDB maps mail domains to provider notes. It is a small static
// table; unknown domains have no info.
var providerDB = map[string]ProviderInfo{
	"example.org": {
		OverviewPage: "https://providers.example.org/example-org",
		Status:       ProviderOK,
	},
	"example.com": {
		OverviewPage: "https://providers.example.org/example-com",
		Status:       ProviderOK,
	},
	"gmail.com": {
		BeforeLoginHint: "For Gmail accounts, you need to create an app password if you have 2-Step Verification enabled.",
		OverviewPage:    "https://providers.example.org/gmail",
		Status:          ProviderPreparation,
	},
	"googlemail.com": {
		BeforeLoginHint: "For Gmail accounts, you need to create an app password if you have 2-Step Verification enabled.",
		OverviewPage:    "https://providers.example.org/gmail",
		Status:          ProviderPreparation,
	},
	"outlook.com": {
		BeforeLoginHint: "Outlook no longer accepts password logins for third-party mail apps.",
		OverviewPage:    "https://providers.example.org/outlook",
		Status:          ProviderBroken,
	},
	"posteo.de": {
		OverviewPage: "https://providers.example.org/posteo",
		Status:       ProviderOK,
	},
}
