package registry

import (
	"fmt"
	"net/url"
	"strings"
)

// ServiceDescriptor describes one backend service: where it lives and how
// its search endpoint is addressed. Immutable after startup.
type ServiceDescriptor struct {
	// Name is the unique logical service name.
	Name Service

	// BaseURL is the backend's base URL, always ending in "/".
	BaseURL string

	// SearchPath is the read endpoint path relative to BaseURL.
	SearchPath string

	// QueryParam is the parameter name this service's search endpoint
	// expects; each backend uses a different one.
	QueryParam string
}

// SearchURL builds the read URL for this service. An empty queryValue
// yields the bare search path (list-all semantics). A non-empty
// paramOverride replaces the service's own parameter name; the fan-out
// aggregate uses this to apply one shared parameter across services.
func (d *ServiceDescriptor) SearchURL(queryValue, paramOverride string) string {
	base := d.BaseURL + d.SearchPath
	if queryValue == "" {
		return base
	}
	param := d.QueryParam
	if paramOverride != "" {
		param = paramOverride
	}
	return base + "?" + param + "=" + url.QueryEscape(queryValue)
}

// WriteURL builds the write URL for this service given the write path.
func (d *ServiceDescriptor) WriteURL(writePath string) string {
	return d.BaseURL + strings.TrimPrefix(writePath, "/")
}

// Registry is the static table of backend services. It is loaded once at
// startup and read-only afterwards, so it is shared across requests
// without locking.
type Registry struct {
	byName map[Service]*ServiceDescriptor
	order  []*ServiceDescriptor
}

// requiredServices must all be present for the gateway to start.
var requiredServices = []Service{ServiceUsers, ServiceProducts, ServiceOrders}

// New builds a Registry from descriptors. It fails if a required service
// is missing, a name is duplicated or outside the closed set, or a base
// URL is malformed. These are startup-time configuration errors.
func New(descriptors []ServiceDescriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[Service]*ServiceDescriptor, len(descriptors)),
	}

	for i := range descriptors {
		d := descriptors[i]
		if !d.Name.IsBackend() {
			return nil, fmt.Errorf("registry: %q is not a backend service name", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate service %q", d.Name)
		}

		u, err := url.Parse(d.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("registry: service %q has malformed base URL %q", d.Name, d.BaseURL)
		}
		if !strings.HasSuffix(d.BaseURL, "/") {
			d.BaseURL += "/"
		}
		d.SearchPath = strings.TrimPrefix(d.SearchPath, "/")

		r.byName[d.Name] = &d
		r.order = append(r.order, &d)
	}

	for _, name := range requiredServices {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("registry: required service %q is missing", name)
		}
	}

	return r, nil
}

// Resolve returns the descriptor for a backend service, or
// ErrUnknownService.
func (r *Registry) Resolve(name Service) (*ServiceDescriptor, error) {
	if d, ok := r.byName[name]; ok {
		return d, nil
	}
	return nil, ErrUnknownService
}

// All returns every descriptor in stable configuration order.
func (r *Registry) All() []*ServiceDescriptor {
	return r.order
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.order)
}
