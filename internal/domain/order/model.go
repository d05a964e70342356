package order

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Authorization statuses carried in PAStatus.AuthStatus.
const (
	StatusNAR                      = "NAR"
	StatusAuthOnFile               = "Auth on File"
	StatusAuthRequired             = "Auth Required"
	StatusPAOrdered                = "PA Ordered"
	StatusPASubmitted              = "PA Submitted"
	StatusQuery                    = "Query"
	StatusClinicalMissing          = "Clinical Missing"
	StatusSupportingImagingMissing = "Supporting Imaging Missing"
	StatusInvalidDxCode            = "Invalid Dx Code"
	StatusEligibilityFailed        = "Eligibility Failed"
)

// Automation workflow statuses carried in PAStatus.AutomationStatus.
const (
	AutomationCompleted  = "Completed"
	AutomationInProgress = "In Progress"
	AutomationBlocked    = "Blocked"
)

// DocumentNotAvailable marks a document the automated retrieval could not find.
const DocumentNotAvailable = "Not Available"

// Order is one radiology imaging order moving through prior authorization.
type Order struct {
	OrderID                 string                  `json:"orderId"`
	Patient                 Patient                 `json:"patient"`
	Order                   Details                 `json:"order"`
	Payer                   Payer                   `json:"payer"`
	EligibilityVerification EligibilityVerification `json:"eligibilityVerification"`
	PAStatus                PAStatus                `json:"paStatus"`
	Documents               []Document              `json:"documents,omitempty"`
	BusinessOffice          *BusinessOffice         `json:"businessOffice,omitempty"`
}

type Patient struct {
	Name     string `json:"name"`
	MRN      string `json:"mrn"`
	DOB      string `json:"dob"`
	MemberID string `json:"memberId"`
}

type Details struct {
	ImagingType      string   `json:"imagingType"`
	ImagingModality  string   `json:"imagingModality"`
	CPTCodes         []string `json:"cptCodes"`
	DiagnosisCodes   []string `json:"diagnosisCodes,omitempty"`
	DateOfService    string   `json:"dateOfService"`
	OrderingProvider Provider `json:"orderingProvider"`
}

type Provider struct {
	Name          string `json:"name"`
	NPI           string `json:"npi"`
	NetworkStatus string `json:"networkStatus"`
}

type Payer struct {
	Name          string `json:"name"`
	PlanName      string `json:"planName"`
	PlanType      string `json:"planType"`
	Status        string `json:"status"`
	EffectiveDate string `json:"effectiveDate"`
	EndDate       string `json:"endDate"`
}

type EligibilityVerification struct {
	ServiceTypeCode   string     `json:"serviceTypeCode"`
	Covered           bool       `json:"covered"`
	PriorAuthRequired bool       `json:"priorAuthRequired"`
	ReferralRequired  bool       `json:"referralRequired"`
	Financials        Financials `json:"financials"`
}

type Financials struct {
	Deductible  Accumulator `json:"deductible"`
	OutOfPocket Accumulator `json:"outOfPocket"`
	Copay       float64     `json:"copay"`
	Coinsurance string      `json:"coinsurance"`
}

type Accumulator struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
}

func (a Accumulator) Remaining() float64 {
	return a.Total - a.Used
}

// PAStatus is the primary state of an order. The dataset spells the
// automation field either "automationStatus" or "AutomationWorkflow"; both
// decode into AutomationStatus.
type PAStatus struct {
	AuthStatus       string `json:"authStatus"`
	AutomationStatus string `json:"automationStatus"`
	IssueType        string `json:"issueType,omitempty"`
	PAFiled          bool   `json:"paFiled,omitempty"`
}

func (s *PAStatus) UnmarshalJSON(data []byte) error {
	var raw struct {
		AuthStatus         string `json:"authStatus"`
		AutomationStatus   string `json:"automationStatus"`
		AutomationWorkflow string `json:"AutomationWorkflow"`
		IssueType          string `json:"issueType"`
		PAFiled            bool   `json:"paFiled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.AuthStatus = raw.AuthStatus
	s.AutomationStatus = raw.AutomationStatus
	if s.AutomationStatus == "" {
		s.AutomationStatus = raw.AutomationWorkflow
	}
	s.IssueType = raw.IssueType
	s.PAFiled = raw.PAFiled
	return nil
}

type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	FetchedDate string `json:"fetchedDate"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
}

type BusinessOffice struct {
	Entries []BusinessOfficeEntry `json:"entries"`
}

type BusinessOfficeEntry struct {
	Date        string     `json:"date"`
	DetailsText string     `json:"detailsText"`
	AuthCases   []AuthCase `json:"authCases"`
}

// Auth case statuses.
const (
	CaseCompleted  = "Completed"
	CasePending    = "Pending"
	CaseInProgress = "In Progress"
)

type AuthCase struct {
	ID                string `json:"id"`
	RadioButtonStatus string `json:"radioButtonStatus"`
	Title             string `json:"title"`
	Details           string `json:"details"`
	Status            string `json:"status"`
}

// TableRow is the PA Orders table projection.
type TableRow struct {
	OrderID          string   `json:"orderId"`
	PatientName      string   `json:"patientName"`
	MRN              string   `json:"mrn"`
	ImagingType      string   `json:"imagingType"`
	CPTCodes         []string `json:"cptCodes"`
	Payer            string   `json:"payer"`
	DateOfService    string   `json:"dateOfService"`
	AuthStatus       string   `json:"authStatus"`
	AutomationStatus string   `json:"automationStatus"`
	Action           string   `json:"action"`
}

// Stats summarizes the order list for the dashboard header.
type Stats struct {
	Total           int `json:"total"`
	OrdersRemaining int `json:"ordersRemaining"`
	PAFiled         int `json:"paFiled"`
	NAR             int `json:"nar"`
	PAOrdered       int `json:"paOrdered"`
	Blocked         int `json:"blocked"`
	InProgress      int `json:"inProgress"`
}

// Eligibility is the EV page view of an order.
type Eligibility struct {
	OrderID                 string                  `json:"orderId"`
	Patient                 Patient                 `json:"patient"`
	Payer                   Payer                   `json:"payer"`
	Order                   Details                 `json:"order"`
	EligibilityVerification EligibilityVerification `json:"eligibilityVerification"`
	DeductibleRemaining     float64                 `json:"deductibleRemaining"`
	OutOfPocketRemaining    float64                 `json:"outOfPocketRemaining"`
}

// Number returns the ordinal suffix of an id like "RAD-007", or 0.
func Number(orderID string) int {
	i := strings.LastIndexByte(orderID, '-')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(orderID[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// Clone returns a deep copy so overlays never alias dataset slices.
func (o Order) Clone() Order {
	c := o
	c.Order.CPTCodes = append([]string(nil), o.Order.CPTCodes...)
	if o.Order.DiagnosisCodes != nil {
		c.Order.DiagnosisCodes = append([]string(nil), o.Order.DiagnosisCodes...)
	}
	if o.Documents != nil {
		c.Documents = append([]Document(nil), o.Documents...)
	}
	if o.BusinessOffice != nil {
		bo := BusinessOffice{Entries: make([]BusinessOfficeEntry, len(o.BusinessOffice.Entries))}
		for i, e := range o.BusinessOffice.Entries {
			e.AuthCases = append([]AuthCase(nil), e.AuthCases...)
			bo.Entries[i] = e
		}
		c.BusinessOffice = &bo
	}
	return c
}
