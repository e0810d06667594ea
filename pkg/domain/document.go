package domain

import "time"

// DocumentKind identifies a category of supporting document.
type DocumentKind string

// Common document kinds across the supported administrations.
const (
	DocTaxNotice        DocumentKind = "avis_imposition"
	DocCareSheet        DocumentKind = "feuille_soins"
	DocVehicleTitle     DocumentKind = "carte_grise"
	DocProofOfResidence DocumentKind = "justificatif_domicile"
	DocPayslip          DocumentKind = "bulletin_salaire"
	DocDriversLicense   DocumentKind = "permis_conduire"
	DocIdentityCard     DocumentKind = "carte_identite"
)

// DocumentRef points at a stored document by stable identifier.
// Tasks reference documents this way rather than owning them, so the document
// repository stays the single owner of document content.
type DocumentRef struct {
	Kind        DocumentKind `json:"kind"`
	DocumentID  string       `json:"document_id"`
	SubmittedAt time.Time    `json:"submitted_at"`
}
