package model

import (
	"time"
)

const RolePatient = "PATIENT"

// Patient is a directory entry. ID is the linked identity account id.
type Patient struct {
	ID             string     `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"full_name"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	Email          string     `db:"email" json:"email"`
	Phone          string     `db:"phone" json:"phone"`
	Address        string     `db:"address" json:"address"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Role           string     `db:"role" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Age returns the patient's age in whole years at the given instant, or -1
// when the birth date is unknown.
func (p *Patient) Age(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return age
}
