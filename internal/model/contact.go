package model

import "time"

// Activity types recorded against a contact.
const (
	ActivityCall        = "call"
	ActivitySchedule    = "schedule_appointment"
	ActivityFollowUp    = "follow_up_appointment"
	ActivityInvitedBOM  = "invited_bom"
	ActivityRecruitingI = "recruiting_interview"
	ActivityNote        = "note"
)

// Contact is a person imported from the device address book (or entered by
// hand) and owned by a single subject. Contacts are strictly per-user: every
// query against them is scoped by the owning subject id.
//
// Fields:
//  ID          – record identifier.
//  UserID      – owning subject id.
//  Name        – display name.
//  PhoneNumber – primary phone number in the form the device exported it.
//  PhoneLabel  – optional label such as "mobile" or "home".
//  Notes       – free-form notes.
//  CreatedAt   – timestamp of creation.
type Contact struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	PhoneLabel  string    `json:"phone_label,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContactActivity is one history entry recorded against a contact.
type ContactActivity struct {
	ID           string    `json:"id"`
	ContactID    string    `json:"contact_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DevicePhoneNumber is one number of a device-exported contact.
type DevicePhoneNumber struct {
	Number string `json:"number"`
	Label  string `json:"label,omitempty"`
}

// DeviceContact mirrors the shape the device contact picker hands over. The
// import endpoint turns these into Contact rows, one per phone number,
// skipping numbers the user already imported.
type DeviceContact struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	PhoneNumbers []DevicePhoneNumber `json:"phone_numbers,omitempty"`
}

// ValidActivityType reports whether t is a recognized activity type.
func ValidActivityType(t string) bool {
	switch t {
	case ActivityCall, ActivitySchedule, ActivityFollowUp,
		ActivityInvitedBOM, ActivityRecruitingI, ActivityNote:
		return true
	}
	return false
}
