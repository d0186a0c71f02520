package api

import "net/mail"

// Ordinals of the default intake graph.
const (
	StepServices  = 1
	StepDocuments = 2
	StepDelivery  = 3
	StepContact   = 4
	StepSummary   = 5
)

// DefaultIntakeGraph returns the standard five-step intake flow:
// services, documents, delivery, contact, summary.
func DefaultIntakeGraph() *Graph {
	g, err := NewGraph(
		StepDefinition{
			Ordinal:    StepServices,
			Name:       "services",
			Path:       "/services",
			IsComplete: servicesComplete,
		},
		StepDefinition{
			Ordinal:    StepDocuments,
			Name:       "documents",
			Path:       "/documents",
			IsComplete: documentsComplete,
		},
		StepDefinition{
			Ordinal:    StepDelivery,
			Name:       "delivery",
			Path:       "/delivery",
			IsComplete: deliveryComplete,
		},
		StepDefinition{
			Ordinal:    StepContact,
			Name:       "contact",
			Path:       "/contact",
			IsComplete: contactComplete,
		},
		StepDefinition{
			Ordinal:    StepSummary,
			Name:       "summary",
			Path:       "/summary",
			IsComplete: summaryComplete,
		},
	)
	if err != nil {
		// The default graph is statically correct; failing to build it is
		// a programming error.
		panic("api: default intake graph invalid: " + err.Error())
	}
	return g
}

func servicesComplete(fs FormState) bool {
	return len(fs.Selection) > 0
}

func documentsComplete(fs FormState) bool {
	if len(fs.Selection) == 0 {
		return false
	}
	for _, id := range fs.Selection {
		if len(fs.Documents[id]) == 0 {
			return false
		}
	}
	return true
}

func deliveryComplete(fs FormState) bool {
	return fs.Delivery == DeliveryPostal || fs.Delivery == DeliveryElectronic
}

func contactComplete(fs FormState) bool {
	if fs.Contact.Name == "" || fs.Contact.Address == "" {
		return false
	}
	if fs.Contact.Authenticated {
		return true
	}
	if fs.Contact.Password == "" {
		return false
	}
	return emailValid(fs.Contact.Email)
}

func summaryComplete(fs FormState) bool {
	return servicesComplete(fs) &&
		documentsComplete(fs) &&
		deliveryComplete(fs) &&
		contactComplete(fs)
}

func emailValid(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := mail.ParseAddress(addr)
	return err == nil
}
