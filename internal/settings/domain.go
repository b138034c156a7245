package settings

import "time"

// Value types a setting may declare. Values are stored as text and
// parsed on read.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeJSON    = "json"
)

// Fixed settings vocabulary. Writes outside this set are rejected.
const (
	KeyCompanyName              = "company_name"
	KeyCompanyAddress           = "company_address"
	KeyCompanyPhone             = "company_phone"
	KeyCompanyEmail             = "company_email"
	KeyCompanyLogo              = "company_logo"
	KeyTimezone                 = "timezone"
	KeyDateFormat               = "date_format"
	KeyCurrency                 = "currency"
	KeyCurrencySymbolPosition   = "currency_symbol_position"
	KeyItemsPerPage             = "items_per_page"
	KeySessionTimeout           = "session_timeout"
	KeyAllowRegistration        = "allow_registration"
	KeyRequireEmailVerification = "require_email_verification"
	KeyFeatureFlags             = "feature_flags"
)

// Setting is one persisted key/value pair with its declared type.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Definition declares a vocabulary entry and its default.
type Definition struct {
	Type    string
	Default string
}

// Vocabulary maps every known key to its declared type and default.
func Vocabulary() map[string]Definition {
	return map[string]Definition{
		KeyCompanyName:              {Type: TypeString, Default: "Meridian"},
		KeyCompanyAddress:           {Type: TypeString, Default: ""},
		KeyCompanyPhone:             {Type: TypeString, Default: ""},
		KeyCompanyEmail:             {Type: TypeString, Default: ""},
		KeyCompanyLogo:              {Type: TypeString, Default: ""},
		KeyTimezone:                 {Type: TypeString, Default: "UTC"},
		KeyDateFormat:               {Type: TypeString, Default: "Y-m-d"},
		KeyCurrency:                 {Type: TypeString, Default: "USD"},
		KeyCurrencySymbolPosition:   {Type: TypeString, Default: "before"},
		KeyItemsPerPage:             {Type: TypeInteger, Default: "20"},
		KeySessionTimeout:           {Type: TypeInteger, Default: "120"},
		KeyAllowRegistration:        {Type: TypeBoolean, Default: "false"},
		KeyRequireEmailVerification: {Type: TypeBoolean, Default: "false"},
		KeyFeatureFlags:             {Type: TypeJSON, Default: "{}"},
	}
}
