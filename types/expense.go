package types

import (
	"strings"
	"time"
)

// ExpenseType categorizes a shared vehicle expense.
type ExpenseType string

const (
	ExpenseTypeFuel         ExpenseType = "Fuel"
	ExpenseTypeCharging     ExpenseType = "Charging"
	ExpenseTypeMaintenance  ExpenseType = "Maintenance"
	ExpenseTypeRepair       ExpenseType = "Repair"
	ExpenseTypeInsurance    ExpenseType = "Insurance"
	ExpenseTypeRegistration ExpenseType = "Registration"
	ExpenseTypeCleaning     ExpenseType = "Cleaning"
	ExpenseTypeParking      ExpenseType = "Parking"
	ExpenseTypeToll         ExpenseType = "Toll"
	ExpenseTypeOther        ExpenseType = "Other"
)

// Is reports whether t names the same category as other, ignoring case.
func (t ExpenseType) Is(other ExpenseType) bool {
	return strings.EqualFold(strings.TrimSpace(string(t)), string(other))
}

// IsServiceWork reports whether the expense was paid to a maintenance or repair provider.
func (t ExpenseType) IsServiceWork() bool {
	return t.Is(ExpenseTypeMaintenance) || t.Is(ExpenseTypeRepair)
}

// ExpenseRecord is a shared expense as stored by the expense module.
type ExpenseRecord struct {
	ID           string      `json:"id"`
	GroupID      string      `json:"groupId"`
	VehicleID    string      `json:"vehicleId,omitempty"`
	Amount       float64     `json:"amount"`
	Type         ExpenseType `json:"type"`
	DateIncurred time.Time   `json:"dateIncurred"`
	Description  string      `json:"description"`
	Notes        string      `json:"notes,omitempty"`
}

// OdometerEvent is a check-in or check-out reading attached to a booking.
type OdometerEvent struct {
	Odometer   float64   `json:"odometer"`
	RecordedAt time.Time `json:"recordedAt"`
}

// CompletedBooking is a finished trip with its odometer readings.
type CompletedBooking struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	CheckIn  *OdometerEvent `json:"checkIn,omitempty"`
	CheckOut *OdometerEvent `json:"checkOut,omitempty"`
}

// Hours returns the booked duration in hours.
func (b CompletedBooking) Hours() float64 {
	if !b.End.After(b.Start) {
		return 0
	}
	return b.End.Sub(b.Start).Hours()
}

// VehicleInfo is the vehicle metadata used for benchmarks.
type VehicleInfo struct {
	ID       string  `json:"id"`
	Year     int     `json:"year"`
	Odometer float64 `json:"odometer"`
}
