package model

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultDestinationFolder is used when an organization entry does not set one.
	DefaultDestinationFolder = ".github"
	// DefaultBaseBranch is the destination branch sync pull requests target.
	DefaultBaseBranch = "main"
)

// OrganizationRecord holds the credentials and routing for one organization.
// The destination repository is always owned by the organization itself, so
// Name alone determines the repository together with AdminRepo.
type OrganizationRecord struct {
	Name              string
	ClientID          string
	PrivateKey        []byte // PEM; never logged or persisted.
	PrivateKeyPath    string // Read lazily when PrivateKey is empty.
	InstallationID    int64
	AdminRepo         string
	DestinationFolder string
	BaseBranch        string
}

// DestinationOwner returns the owner of the organization's admin repository.
func (o OrganizationRecord) DestinationOwner() string {
	return o.Name
}

// DestinationFullName returns "owner/repo" of the admin repository.
func (o OrganizationRecord) DestinationFullName() string {
	return o.Name + "/" + o.AdminRepo
}

// Folder returns the destination folder, falling back to DefaultDestinationFolder.
func (o OrganizationRecord) Folder() string {
	if o.DestinationFolder == "" {
		return DefaultDestinationFolder
	}
	return o.DestinationFolder
}

// Branch returns the destination base branch, falling back to DefaultBaseBranch.
func (o OrganizationRecord) Branch() string {
	if o.BaseBranch == "" {
		return DefaultBaseBranch
	}
	return o.BaseBranch
}

// HasKeyMaterial reports whether the record carries a key or a key path.
func (o OrganizationRecord) HasKeyMaterial() bool {
	return len(o.PrivateKey) > 0 || o.PrivateKeyPath != ""
}

// Validate checks the routing fields needed before any remote call is made.
// Credential fields are checked by the token issuer.
func (o OrganizationRecord) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: organization name is required", ErrInvalidConfig)
	}
	if o.AdminRepo == "" {
		return fmt.Errorf("%w: organization %s has no adminRepo", ErrInvalidConfig, o.Name)
	}
	return nil
}

// LogValue implements slog.LogValuer. Key material is reduced to a presence flag.
func (o OrganizationRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", o.Name),
		slog.String("client_id", o.ClientID),
		slog.Int64("installation_id", o.InstallationID),
		slog.String("admin_repo", o.AdminRepo),
		slog.String("destination_folder", o.Folder()),
		slog.String("base_branch", o.Branch()),
		slog.Bool("has_key", o.HasKeyMaterial()),
	)
}
