package discovery

// Countries supported by the regional search filter, in display order.
var Countries = []Country{
	{Code: "US", Name: "United States", Flag: "🇺🇸"},
	{Code: "GB", Name: "United Kingdom", Flag: "🇬🇧"},
	{Code: "CA", Name: "Canada", Flag: "🇨🇦"},
	{Code: "AU", Name: "Australia", Flag: "🇦🇺"},
	{Code: "DE", Name: "Germany", Flag: "🇩🇪"},
	{Code: "FR", Name: "France", Flag: "🇫🇷"},
	{Code: "IN", Name: "India", Flag: "🇮🇳"},
	{Code: "VN", Name: "Vietnam", Flag: "🇻🇳"},
	{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
	{Code: "BR", Name: "Brazil", Flag: "🇧🇷"},
	{Code: "KR", Name: "South Korea", Flag: "🇰🇷"},
	{Code: "MX", Name: "Mexico", Flag: "🇲🇽"},
	{Code: "ES", Name: "Spain", Flag: "🇪🇸"},
}

var countryIndex = func() map[string]Country {
	idx := make(map[string]Country, len(Countries))
	for _, c := range Countries {
		idx[c.Code] = c
	}
	return idx
}()

// LookupCountry maps a channel's declared country code to its display
// entry. Codes outside the table keep their code with an Unknown name,
// and a missing code becomes "??".
func LookupCountry(code string) Country {
	if c, ok := countryIndex[code]; ok {
		return c
	}
	if code == "" {
		code = "??"
	}
	return Country{Code: code, Name: "Unknown", Flag: "🏳️"}
}
