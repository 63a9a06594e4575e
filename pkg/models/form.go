package models

// Field names as they appear in the form, the JSON payloads and the log line
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldContact   = "contact"
	FieldEmail     = "email"
	FieldEstimate  = "estimate"
	FieldSpidrPin  = "spidrPin"
)

// SuccessMessage is the notice shown while a session's submitted flag is up
const SuccessMessage = "Form submitted! Data logged to console."

// Represents the data entered into the estimate form
type FormRecord struct {
	FirstName string  `json:"firstName" form:"firstName"`
	LastName  string  `json:"lastName" form:"lastName"`
	Contact   string  `json:"contact" form:"contact"`
	Email     string  `json:"email" form:"email"`
	Estimate  float64 `json:"estimate" form:"estimate"`
	SpidrPin  string  `json:"spidrPin" form:"spidrPin"`
}

// SubmittedRecord is the projection written to the log on submit, with the
// estimate rendered as USD currency text
type SubmittedRecord struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Contact   string `json:"contact"`
	Email     string `json:"email"`
	Estimate  string `json:"estimate"`
	SpidrPin  string `json:"spidrPin"`
}

// RawSubmission is the native (no script) form post. Estimate stays text so
// unparsable input reaches the normalizer instead of failing the bind.
type RawSubmission struct {
	FirstName string `form:"firstName"`
	LastName  string `form:"lastName"`
	Contact   string `form:"contact"`
	Email     string `form:"email"`
	Estimate  string `form:"estimate"`
	SpidrPin  string `form:"spidrPin"`
}

// Values returns the submission as field name to raw value pairs, in form order
func (r RawSubmission) Values() [][2]string {
	return [][2]string{
		{FieldFirstName, r.FirstName},
		{FieldLastName, r.LastName},
		{FieldContact, r.Contact},
		{FieldEmail, r.Email},
		{FieldEstimate, r.Estimate},
		{FieldSpidrPin, r.SpidrPin},
	}
}

// FormView is the renderable state of a form session
type FormView struct {
	Record       FormRecord `json:"record"`
	Submitted    bool       `json:"submitted"`
	PinVisible   bool       `json:"pinVisible"`
	PinInputType string     `json:"pinInputType"`
	PinToggle    string     `json:"pinToggle"`
	// Seq is the highest change sequence number the session has applied
	Seq uint64 `json:"seq"`
}

// FieldSpec describes one labeled input of the form
type FieldSpec struct {
	ID          string
	Label       string
	Placeholder string
	InputType   string
	Required    bool
}

// FormFields lists the inputs in display order
var FormFields = []FieldSpec{
	{ID: FieldFirstName, Label: "First Name", Placeholder: "Enter First Name", InputType: "text"},
	{ID: FieldLastName, Label: "Last Name", Placeholder: "Enter Last Name", InputType: "text"},
	{ID: FieldContact, Label: "Phone Number", Placeholder: "Enter Phone Number", InputType: "text"},
	{ID: FieldEmail, Label: "Email", Placeholder: "Enter Email", InputType: "email"},
	{ID: FieldEstimate, Label: "Air Fryer Cost Estimate in Dollars", Placeholder: "Enter your estimate in dollars", InputType: "number"},
	{ID: FieldSpidrPin, Label: "Very, Very Secret 16-Digit Spidr PIN", Placeholder: "####-####-####-####", InputType: "password", Required: true},
}

// IsField reports whether name is one of the form's inputs
func IsField(name string) bool {
	for _, f := range FormFields {
		if f.ID == name {
			return true
		}
	}
	return false
}
