package model

import "errors"

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrConsultationExists   = errors.New("consultation already exists for appointment")
	ErrInvalidTimeRange     = errors.New("appointment end must be after start")
	ErrInvalidCategory      = errors.New("invalid appointment category")
	ErrInvalidStatus        = errors.New("invalid appointment status")
	ErrInvalidFrequency     = errors.New("invalid recurrence frequency")
	ErrNotOwner             = errors.New("appointment belongs to another user")
	ErrNoPhone              = errors.New("patient has no phone number")
)
