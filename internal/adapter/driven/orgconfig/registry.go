// Package orgconfig loads the organization registry from a YAML file.
package orgconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

var _ driven.OrgRegistry = (*Registry)(nil)

// fileFormat mirrors org-info.yml.
type fileFormat struct {
	Organizations []entry `yaml:"organizations"`
}

type entry struct {
	Name              string `yaml:"name"`
	ClientID          string `yaml:"clientId"`
	PrivateKey        string `yaml:"privateKey"`
	PrivatePemPath    string `yaml:"privatePemPath"`
	InstallationID    int64  `yaml:"installationId"`
	AdminRepo         string `yaml:"adminRepo"`
	DestinationFolder string `yaml:"destinationFolder"`
	BaseBranch        string `yaml:"baseBranch"`
}

// Registry is an immutable, in-memory OrgRegistry.
type Registry struct {
	order   []string
	records map[string]model.OrganizationRecord
}

// Load reads and parses the registry at path. Relative key paths are resolved
// against the directory holding the file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading org config %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), filepath.Dir(path))
}

// Parse decodes a registry from r. Entries without a name and duplicate names
// fail the whole load; missing credentials are left for the token issuer.
func Parse(r io.Reader, baseDir string) (*Registry, error) {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing org config: %w", err)
	}

	reg := &Registry{records: make(map[string]model.OrganizationRecord, len(f.Organizations))}
	for i, e := range f.Organizations {
		if e.Name == "" {
			return nil, fmt.Errorf("org config entry %d has no name: %w", i, model.ErrInvalidConfig)
		}
		if _, dup := reg.records[e.Name]; dup {
			return nil, fmt.Errorf("org config: duplicate organization %q: %w", e.Name, model.ErrInvalidConfig)
		}

		rec := model.OrganizationRecord{
			Name:              e.Name,
			ClientID:          e.ClientID,
			InstallationID:    e.InstallationID,
			AdminRepo:         e.AdminRepo,
			DestinationFolder: e.DestinationFolder,
			BaseBranch:        e.BaseBranch,
		}
		if e.PrivateKey != "" {
			rec.PrivateKey = []byte(e.PrivateKey)
		}
		if e.PrivatePemPath != "" {
			rec.PrivateKeyPath = e.PrivatePemPath
			if !filepath.IsAbs(rec.PrivateKeyPath) && baseDir != "" {
				rec.PrivateKeyPath = filepath.Join(baseDir, rec.PrivateKeyPath)
			}
		}

		reg.order = append(reg.order, e.Name)
		reg.records[e.Name] = rec
	}

	return reg, nil
}

// Lookup returns the record for name, or driven.ErrOrgNotFound.
func (r *Registry) Lookup(name string) (model.OrganizationRecord, error) {
	rec, ok := r.records[name]
	if !ok {
		return model.OrganizationRecord{}, fmt.Errorf("%q: %w", name, driven.ErrOrgNotFound)
	}
	return rec, nil
}

// Names returns registered organization names in file order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered organizations.
func (r *Registry) Len() int {
	return len(r.order)
}
