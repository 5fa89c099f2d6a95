package domain

// AdmissionCode is the result of the atomic admission script.
type AdmissionCode int

const (
	AdmissionOK        AdmissionCode = 0
	AdmissionSoldOut   AdmissionCode = 1
	AdmissionDuplicate AdmissionCode = 2
)
