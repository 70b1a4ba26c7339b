package model

// FileStatus is the change status reported by the pull request files listing.
type FileStatus string

const (
	FileAdded     FileStatus = "added"
	FileModified  FileStatus = "modified"
	FileRemoved   FileStatus = "removed"
	FileRenamed   FileStatus = "renamed"
	FileCopied    FileStatus = "copied"
	FileChanged   FileStatus = "changed"
	FileUnchanged FileStatus = "unchanged"
)

// ChangedFile is one entry of a pull request's file listing.
type ChangedFile struct {
	SourcePath   string
	PreviousPath string // Set for renames.
	Status       FileStatus
	SourceRef    string // Commit SHA the content is read from.
}

// ChangeSet groups changed files by owning organization. Organizations keep
// the order of their first appearance and files keep listing order.
type ChangeSet struct {
	order []string
	files map[string][]ChangedFile
}

// NewChangeSet returns an empty ChangeSet.
func NewChangeSet() ChangeSet {
	return ChangeSet{files: make(map[string][]ChangedFile)}
}

// Add appends f to org's group.
func (cs *ChangeSet) Add(org string, f ChangedFile) {
	if cs.files == nil {
		cs.files = make(map[string][]ChangedFile)
	}
	if _, ok := cs.files[org]; !ok {
		cs.order = append(cs.order, org)
	}
	cs.files[org] = append(cs.files[org], f)
}

// Orgs returns organization names in first-appearance order.
func (cs ChangeSet) Orgs() []string {
	out := make([]string, len(cs.order))
	copy(out, cs.order)
	return out
}

// Files returns the files grouped under org, or nil.
func (cs ChangeSet) Files(org string) []ChangedFile {
	return cs.files[org]
}

// Map returns the grouping as a plain map.
func (cs ChangeSet) Map() map[string][]ChangedFile {
	out := make(map[string][]ChangedFile, len(cs.files))
	for k, v := range cs.files {
		out[k] = v
	}
	return out
}

// Len returns the number of organizations in the set.
func (cs ChangeSet) Len() int {
	return len(cs.order)
}
