package rates

// Territory names that carry their own rate in the table
const (
	TerritoryMadeira = "Madeira"
	TerritoryAzores  = "Azores"
)

var builtinPostalRules = []PostalRule{
	// Austrian exclaves only reachable through Germany
	{Country: "AT", Name: "Jungholz", Match: Exact("6691"), Outcome: Redirect("DE")},
	{Country: "AT", Name: "Mittelberg", Match: Range(6991, 6993, 4), Outcome: Redirect("DE")},

	{Country: "CH", Name: "Büsingen am Hochrhein", Match: Exact("8238"), Outcome: Exempt()},

	{Country: "DE", Name: "Heligoland", Match: Exact("27498"), Outcome: Exempt()},
	{Country: "DE", Name: "Büsingen am Hochrhein", Match: Exact("78266"), Outcome: Exempt()},

	{Country: "ES", Name: "Canary Islands", Match: Range(35000, 35999, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Canary Islands", Match: Range(38000, 38999, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Ceuta", Match: Range(51001, 51005, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Ceuta", Match: Range(51070, 51071, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Ceuta", Match: Exact("51081"), Outcome: Exempt()},
	{Country: "ES", Name: "Melilla", Match: Range(52000, 52006, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Melilla", Match: Range(52070, 52071, 5), Outcome: Exempt()},
	{Country: "ES", Name: "Melilla", Match: Exact("52081"), Outcome: Exempt()},

	{Country: "FI", Name: "Åland Islands", Match: Range(22000, 22999, 5), Outcome: Exempt()},

	// Sovereign base areas on Cyprus use British forces post codes
	{Country: "GB", Name: "Akrotiri", Match: Exact("BFPO57"), Outcome: Redirect("CY")},
	{Country: "GB", Name: "Dhekelia", Match: Exact("BFPO58"), Outcome: Redirect("CY")},
	{Country: "GB", Name: "Akrotiri", Match: Exact("BFPO59"), Outcome: Redirect("CY")},

	{Country: "GR", Name: "Mount Athos", Match: Exact("63086"), Outcome: Exempt()},
	{Country: "GR", Name: "Mount Athos", Match: Exact("63087"), Outcome: Exempt()},

	{Country: "IT", Name: "Campione d'Italia", Match: Exact("22061"), Outcome: Exempt()},
	{Country: "IT", Name: "Livigno", Match: Exact("23041"), Outcome: Exempt()},

	{Country: "PT", Name: TerritoryMadeira, Match: Range(9000, 9499, 4), Outcome: Territory("PT")},
	{Country: "PT", Name: TerritoryAzores, Match: Range(9500, 9999, 4), Outcome: Territory("PT")},
}
