package geomet

// ProvinceParam is the query parameter filtering collections by province.
const ProvinceParam = "PROVINCE_CODE"

// ProvinceCode is a two-letter province or territory code accepted by the
// PROVINCE_CODE filter.
type ProvinceCode string

const (
	Alberta              ProvinceCode = "AB"
	BritishColumbia      ProvinceCode = "BC"
	Manitoba             ProvinceCode = "MB"
	NewBrunswick         ProvinceCode = "NB"
	NewfoundlandLabrador ProvinceCode = "NL"
	NovaScotia           ProvinceCode = "NS"
	NorthwestTerritories ProvinceCode = "NT"
	Nunavut              ProvinceCode = "NU"
	Ontario              ProvinceCode = "ON"
	PrinceEdwardIsland   ProvinceCode = "PE"
	Quebec               ProvinceCode = "QC"
	Saskatchewan         ProvinceCode = "SK"
	Yukon                ProvinceCode = "YT"
)

// Provinces lists every accepted code.
func Provinces() []ProvinceCode {
	return []ProvinceCode{
		Alberta, BritishColumbia, Manitoba, NewBrunswick,
		NewfoundlandLabrador, NovaScotia, NorthwestTerritories, Nunavut,
		Ontario, PrinceEdwardIsland, Quebec, Saskatchewan, Yukon,
	}
}

// Valid reports whether p is one of the accepted codes.
func (p ProvinceCode) Valid() bool {
	for _, known := range Provinces() {
		if p == known {
			return true
		}
	}
	return false
}
