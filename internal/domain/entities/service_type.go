package entities

import "strings"

// ServiceType identifies the kind of fulfillment being requested
type ServiceType string

const (
	ServiceTypeDelivery      ServiceType = "delivery"
	ServiceTypeLabCollection ServiceType = "lab_collection"
)

// ServiceTypes lists every supported service type
var ServiceTypes = []ServiceType{ServiceTypeDelivery, ServiceTypeLabCollection}

// Valid reports whether s is a known service type
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeDelivery, ServiceTypeLabCollection:
		return true
	}
	return false
}

// ParseServiceType normalizes user input into a ServiceType.
// The second return value is false for unknown values.
func ParseServiceType(raw string) (ServiceType, bool) {
	s := ServiceType(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}
