package pafiling

import (
	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pastatus"
)

// DefaultProviderNotes pre-fills the provider notes field.
const DefaultProviderNotes = "Patient presents with chronic symptoms requiring advanced imaging for proper diagnosis and treatment planning. Clinical documentation supports medical necessity."

// DefaultForm pre-populates the PA form from the order.
func DefaultForm(o *order.Order) orderstate.FormData {
	return buildForm(o, "G43.909")
}

// FiledDefaultForm is the form shown for an order filed outside the
// wizard. Its diagnosis fallback differs from the wizard's.
func FiledDefaultForm(o *order.Order) orderstate.FormData {
	f := buildForm(o, "R07.9")
	if f.Attachments == nil {
		f.Attachments = []order.Document{}
	}
	return f
}

func buildForm(o *order.Order, fallbackDx string) orderstate.FormData {
	f := orderstate.FormData{
		ProviderNotes: DefaultProviderNotes,
		FromDate:      o.Order.DateOfService,
	}

	for _, code := range o.Order.DiagnosisCodes {
		f.Diagnoses = append(f.Diagnoses, orderstate.Diagnosis{ICDCode: code, ICDDescription: pastatus.ICDDescription(code)})
	}
	if len(f.Diagnoses) == 0 {
		f.Diagnoses = []orderstate.Diagnosis{{ICDCode: fallbackDx, ICDDescription: pastatus.ICDDescription(fallbackDx)}}
	}

	for _, cpt := range o.Order.CPTCodes {
		f.Procedures = append(f.Procedures, orderstate.Procedure{
			CodeDescription:     o.Order.ImagingType,
			Code:                cpt,
			ServiceQuantity:     "1",
			ServiceQuantityType: "Units",
		})
	}
	if len(f.Procedures) == 0 {
		f.Procedures = []orderstate.Procedure{{ServiceQuantity: "365", ServiceQuantityType: "Days"}}
	}

	if o.Documents != nil {
		f.Attachments = append([]order.Document{}, o.Documents...)
	}
	return f
}
