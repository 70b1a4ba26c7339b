package driven

import (
	"errors"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// ErrOrgNotFound indicates the organization is not present in configuration.
var ErrOrgNotFound = errors.New("organization not registered")

// OrgRegistry defines the driven port for read-only organization lookup.
type OrgRegistry interface {
	// Lookup returns the record for name, or ErrOrgNotFound.
	Lookup(name string) (model.OrganizationRecord, error)
	// Names returns all registered organization names in configuration order.
	Names() []string
}
