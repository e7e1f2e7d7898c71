package domain

// NoticeKind classifies a shortage notice.
type NoticeKind string

const (
	NoticeInitial    NoticeKind = "Erstmeldung"
	NoticeAmendment  NoticeKind = "Änderungsmeldung"
	NoticeRetraction NoticeKind = "Löschmeldung"
)

// ReasonKind classifies why a shortage occurs.
type ReasonKind string

const (
	ReasonProduction ReasonKind = "Produktionsproblem"
	ReasonOther      ReasonKind = "Sonstige"
)

// ProfessionalInfo tells whether healthcare professionals were informed.
type ProfessionalInfo string

const (
	ProfessionalInfoNo      ProfessionalInfo = "Nein"
	ProfessionalInfoYes     ProfessionalInfo = "Ja"
	ProfessionalInfoPlanned ProfessionalInfo = "Vorgesehen"
	ProfessionalInfoUnknown ProfessionalInfo = "N/A"
)

// SupplyClassification is the supply-criticality rating of a shortage.
type SupplyClassification string

const (
	SupplyNeither          SupplyClassification = "weder versrel noch verskri"
	SupplyRelevant         SupplyClassification = "versrel"
	SupplyCriticalRelevant SupplyClassification = "verskri (auch versrel)"
)

// NoticeKinds lists the accepted notice-kind vocabulary.
var NoticeKinds = []NoticeKind{NoticeInitial, NoticeAmendment, NoticeRetraction}

// ReasonKinds lists the accepted reason-kind vocabulary.
var ReasonKinds = []ReasonKind{ReasonProduction, ReasonOther}

// ProfessionalInfos lists the accepted professional-information vocabulary.
var ProfessionalInfos = []ProfessionalInfo{
	ProfessionalInfoNo,
	ProfessionalInfoYes,
	ProfessionalInfoPlanned,
	ProfessionalInfoUnknown,
}

// SupplyClassifications lists the accepted classification vocabulary.
var SupplyClassifications = []SupplyClassification{SupplyNeither, SupplyRelevant, SupplyCriticalRelevant}

// ShortageReport is one drug-shortage notice from the shortage feed.
// Retraction notices are ordinary rows; the feed is a complete snapshot.
type ShortageReport struct {
	ProductID            uint64               `json:"pzn"`
	RegistrationNumbers  []uint64             `json:"enr"`
	ProcessingNumber     string               `json:"bearbeitungsnummer"`
	InitialNoticeRef     *string              `json:"erstmeldung"`
	FirstNoticeDate      Date                 `json:"erstmeldung_datum"`
	NoticeKind           NoticeKind           `json:"meldungsart"`
	Start                Date                 `json:"beginn"`
	End                  Date                 `json:"ende"`
	LastUpdate           Date                 `json:"letzte_meldung"`
	ReasonKind           ReasonKind           `json:"art_des_grundes"`
	ProductName          string               `json:"arzneimittelbezeichnung"`
	SubstanceClassCode   string               `json:"atc"`
	ActiveSubstances     string               `json:"wirkstoffe"`
	HospitalRelevant     bool                 `json:"kkh_relevant"`
	MarketingHolder      string               `json:"zulassungsinhaber"`
	Reason               string               `json:"grund"`
	ReasonRemark         *string              `json:"anmerkung_zum_grund"`
	AlternativeProduct   *string              `json:"alternativpraeparat"`
	ProfessionalInfo     ProfessionalInfo     `json:"info_an_fachkreise"`
	DosageForm           string               `json:"darreichungsform"`
	SupplyClassification SupplyClassification `json:"klassifikation"`
}
