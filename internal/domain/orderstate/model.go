package orderstate

import (
	"github.com/radpa/radpa/internal/domain/order"
)

// Submission is the record written when a PA filing completes.
type Submission struct {
	OrderID             string   `json:"orderId"`
	SubmittedAt         string   `json:"submittedAt"`
	FormData            FormData `json:"formData"`
	AuthorizationNumber string   `json:"authorizationNumber"`
}

// FormData is the PA form snapshot. The validate tags mirror the form's
// native constraints.
type FormData struct {
	Diagnoses     []Diagnosis      `json:"diagnoses" validate:"min=1,dive"`
	Procedures    []Procedure      `json:"procedures" validate:"min=1,dive"`
	ProviderNotes string           `json:"providerNotes"`
	FromDate      string           `json:"fromDate" validate:"required,datetime=2006-01-02"`
	Attachments   []order.Document `json:"attachments"`
}

type Diagnosis struct {
	ICDCode        string `json:"icdCode" validate:"required"`
	ICDDescription string `json:"icdDescription"`
}

type Procedure struct {
	CodeDescription     string `json:"codeDescription"`
	Code                string `json:"code" validate:"required"`
	ServiceQuantity     string `json:"serviceQuantity" validate:"omitempty,numeric"`
	ServiceQuantityType string `json:"serviceQuantityType"`
}

// Processing request kinds recorded from the Issues page.
const (
	RequestUpload  = "upload"
	RequestRequest = "request"
)

type ProcessingRequestRecord struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	FileName  string `json:"fileName,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	FileType  string `json:"fileType,omitempty"`
}

// RPATrigger records that a note was sent to the EMR.
type RPATrigger struct {
	Timestamp    string `json:"timestamp"`
	ProviderName string `json:"providerName"`
	ProviderNPI  string `json:"providerNPI"`
}

// EMRNote is the payload sent to OncoEMR by the business office.
type EMRNote struct {
	PatientMRN    string           `json:"patientMRN"`
	PatientName   string           `json:"patientName"`
	DateOfService string           `json:"dateOfService"`
	Insurance     string           `json:"insurance"`
	AuthDetails   string           `json:"authDetails"`
	BOValue       string           `json:"boValue"`
	AuthCases     []order.AuthCase `json:"authCases"`
	Timestamp     string           `json:"timestamp"`
}
