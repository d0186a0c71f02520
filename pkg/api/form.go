package api

// DeliveryMethod is the closed enumeration of delivery preferences.
type DeliveryMethod string

const (
	DeliveryUnset      DeliveryMethod = ""
	DeliveryPostal     DeliveryMethod = "postal"
	DeliveryElectronic DeliveryMethod = "electronic"
)

// DocumentRecord describes one uploaded document attached to a catalog item.
// Only metadata and the storage reference are kept here; raw file bytes are
// never part of FormState.
type DocumentRecord struct {
	Name            string   `json:"name"`
	Size            int64    `json:"size"`
	MimeType        string   `json:"mimeType"`
	StorageRef      string   `json:"storageRef,omitempty"`
	PublicURL       string   `json:"publicUrl,omitempty"`
	ChosenOptionIDs []string `json:"chosenOptionIds,omitempty"`
}

// Contact holds the free-form personal fields plus the two derived flags.
type Contact struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
	TimeZoneID string `json:"timeZoneId,omitempty"`

	AddressAutoPopulated bool `json:"addressAutoPopulated,omitempty"`
	Authenticated        bool `json:"authenticated,omitempty"`
}

// Commerce holds currency and ad-attribution fields.
type Commerce struct {
	CurrencyCode string `json:"currencyCode,omitempty"`
	AdClickID    string `json:"adClickId,omitempty"`
}

// Meta holds session bookkeeping.
type Meta struct {
	SessionID string `json:"sessionId"`

	// LastAppliedParam tracks the last external catalog parameter that was
	// merged into the state, guaranteeing at-most-once application.
	LastAppliedParam string `json:"lastAppliedExternalParam,omitempty"`
}

// FormState is the single mutable aggregate of wizard answers.
//
// All mutation goes through the form-state container; callers always receive
// deep copies and can never alias the committed value.
type FormState struct {
	Selection []string                    `json:"selection,omitempty"`
	Documents map[string][]DocumentRecord `json:"documentsBySelection,omitempty"`
	Delivery  DeliveryMethod              `json:"delivery,omitempty"`
	Contact   Contact                     `json:"contact"`
	Commerce  Commerce                    `json:"commerce"`
	Meta      Meta                        `json:"meta"`
}

// HasSelection reports whether the given catalog item id is selected.
func (f FormState) HasSelection(itemID string) bool {
	for _, id := range f.Selection {
		if id == itemID {
			return true
		}
	}
	return false
}

// SelectionEquals reports whether the selection matches ids, ignoring order.
func (f FormState) SelectionEquals(ids []string) bool {
	if len(f.Selection) != len(ids) {
		return false
	}
	for _, id := range ids {
		if !f.HasSelection(id) {
			return false
		}
	}
	return true
}

// DocumentCount returns the number of documents attached to the given item.
func (f FormState) DocumentCount(itemID string) int {
	return len(f.Documents[itemID])
}

// HasAnyDocument reports whether at least one document exists anywhere.
func (f FormState) HasAnyDocument() bool {
	for _, docs := range f.Documents {
		if len(docs) > 0 {
			return true
		}
	}
	return false
}

// PruneDocuments removes document entries whose key is no longer selected.
// Entries for removed selections are pruned, never orphaned.
func (f *FormState) PruneDocuments() {
	if len(f.Documents) == 0 {
		return
	}
	for key := range f.Documents {
		if !f.HasSelection(key) {
			delete(f.Documents, key)
		}
	}
}

// AppendDocument adds a document under the given item, allocating the map on
// first use.
func (f *FormState) AppendDocument(itemID string, doc DocumentRecord) {
	if f.Documents == nil {
		f.Documents = make(map[string][]DocumentRecord)
	}
	f.Documents[itemID] = append(f.Documents[itemID], doc)
}

// RemoveDocument deletes the document with the given storage ref from the
// item's sequence. It reports whether a document was removed.
func (f *FormState) RemoveDocument(itemID, storageRef string) bool {
	docs := f.Documents[itemID]
	for i, d := range docs {
		if d.StorageRef == storageRef {
			f.Documents[itemID] = append(docs[:i:i], docs[i+1:]...)
			if len(f.Documents[itemID]) == 0 {
				delete(f.Documents, itemID)
			}
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (f FormState) Clone() FormState {
	out := f
	if f.Selection != nil {
		out.Selection = append([]string(nil), f.Selection...)
	}
	if f.Documents != nil {
		out.Documents = make(map[string][]DocumentRecord, len(f.Documents))
		for key, docs := range f.Documents {
			copied := make([]DocumentRecord, len(docs))
			for i, d := range docs {
				copied[i] = d
				if d.ChosenOptionIDs != nil {
					copied[i].ChosenOptionIDs = append([]string(nil), d.ChosenOptionIDs...)
				}
			}
			out.Documents[key] = copied
		}
	}
	return out
}
