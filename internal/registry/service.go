// Package registry holds the static table of backend services the
// gateway composes.
package registry

import "errors"

// ErrUnknownService indicates a service name outside the closed set the
// gateway routes to. It is a gateway-level error and is never forwarded
// downstream.
var ErrUnknownService = errors.New("unknown service")

// Service identifies a routing target. The set is closed: the three
// backend services plus the pseudo-target for the fan-out aggregate.
type Service string

const (
	// ServiceUsers is the user backend.
	ServiceUsers Service = "users"

	// ServiceProducts is the product backend.
	ServiceProducts Service = "products"

	// ServiceOrders is the order backend.
	ServiceOrders Service = "orders"

	// ServiceAll selects the fan-out aggregate over every backend.
	ServiceAll Service = "all"
)

// ParseService maps a path segment to a Service. Anything outside the
// closed set fails with ErrUnknownService.
func ParseService(name string) (Service, error) {
	switch Service(name) {
	case ServiceUsers:
		return ServiceUsers, nil
	case ServiceProducts:
		return ServiceProducts, nil
	case ServiceOrders:
		return ServiceOrders, nil
	case ServiceAll:
		return ServiceAll, nil
	default:
		return "", ErrUnknownService
	}
}

// String returns the service name.
func (s Service) String() string {
	return string(s)
}

// IsBackend reports whether the service maps to a single backend (as
// opposed to the aggregate pseudo-target).
func (s Service) IsBackend() bool {
	return s == ServiceUsers || s == ServiceProducts || s == ServiceOrders
}
