package application_test

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Token issuer ---

type fakeIssuer struct {
	mu     sync.Mutex
	errs   map[string]error
	issued []model.OrganizationRecord
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{errs: map[string]error{}}
}

func (f *fakeIssuer) IssueInstallationToken(ctx context.Context, org model.OrganizationRecord) (model.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, org)
	if err := ctx.Err(); err != nil {
		return model.AccessToken{}, err
	}
	if err := f.errs[org.Name]; err != nil {
		return model.AccessToken{}, err
	}
	return model.AccessToken{Value: fmt.Sprintf("tok-%s-%d", org.Name, org.InstallationID)}, nil
}

// --- Registry ---

type fakeRegistry struct {
	order   []string
	records map[string]model.OrganizationRecord
}

func newFakeRegistry(orgs ...model.OrganizationRecord) *fakeRegistry {
	r := &fakeRegistry{records: map[string]model.OrganizationRecord{}}
	for _, o := range orgs {
		r.order = append(r.order, o.Name)
		r.records[o.Name] = o
	}
	return r
}

func (r *fakeRegistry) Lookup(name string) (model.OrganizationRecord, error) {
	rec, ok := r.records[name]
	if !ok {
		return model.OrganizationRecord{}, fmt.Errorf("%q: %w", name, driven.ErrOrgNotFound)
	}
	return rec, nil
}

func (r *fakeRegistry) Names() []string { return r.order }

// --- Run store ---

type fakeStore struct {
	mu    sync.Mutex
	saved []model.RunReport
	err   error
}

func (s *fakeStore) Save(_ context.Context, r model.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r)
	return s.err
}

func (s *fakeStore) Get(context.Context, string) (*model.RunReport, error) {
	return nil, driven.ErrRunNotFound
}

func (s *fakeStore) ListRecent(context.Context, int) ([]model.RunReport, error) {
	return nil, nil
}

// --- In-memory hosting service ---

// fakeRepo is one repository: branch heads and per-branch file trees.
type fakeRepo struct {
	heads map[string]string
	files map[string]map[string]string
	prs   []model.NewPullRequest

	writes    []model.FileWrite
	headErr   error
	branchErr error
	putErr    error
	prErr     error
}

func newFakeRepo(base string, files map[string]string) *fakeRepo {
	tree := map[string]string{}
	for k, v := range files {
		tree[k] = v
	}
	return &fakeRepo{
		heads: map[string]string{base: "head-" + base},
		files: map[string]map[string]string{base: tree},
	}
}

// fakeHub plays both the source and the destination side.
type fakeHub struct {
	mu sync.Mutex

	prFiles     []model.ChangedFile
	listErr     error
	pr          model.PullRequestRef
	sourceFiles map[string]string
	sourceErr   map[string]error

	repos        map[string]*fakeRepo
	destTokens   []string
	sourceTokens []string
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		sourceFiles: map[string]string{},
		sourceErr:   map[string]error{},
		repos:       map[string]*fakeRepo{},
	}
}

func (h *fakeHub) repo(owner, repo string) *fakeRepo {
	return h.repos[owner+"/"+repo]
}

func (h *fakeHub) Destination(token model.AccessToken) driven.DestinationRepository {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destTokens = append(h.destTokens, token.Value)
	return &fakeDest{hub: h}
}

func (h *fakeHub) Source(token model.AccessToken) driven.SourceRepository {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sourceTokens = append(h.sourceTokens, token.Value)
	return &fakeSource{hub: h}
}

type fakeSource struct{ hub *fakeHub }

func (s *fakeSource) ListPullRequestFiles(ctx context.Context, _, _ string, _ int) ([]model.ChangedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.hub.listErr != nil {
		return nil, s.hub.listErr
	}
	out := make([]model.ChangedFile, len(s.hub.prFiles))
	copy(out, s.hub.prFiles)
	return out, nil
}

func (s *fakeSource) GetPullRequest(context.Context, string, string, int) (model.PullRequestRef, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.hub.pr, nil
}

func (s *fakeSource) GetFileContent(ctx context.Context, _, _, path, _ string) (model.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return model.FileContent{}, err
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if err := s.hub.sourceErr[path]; err != nil {
		return model.FileContent{}, err
	}
	content, ok := s.hub.sourceFiles[path]
	if !ok {
		return model.FileContent{}, fmt.Errorf("get %s: %w", path, model.ErrNotFound)
	}
	return model.FileContent{Path: path, SHA: blobSHA(content), Content: []byte(content)}, nil
}

type fakeDest struct{ hub *fakeHub }

func (d *fakeDest) lookup(owner, repo string) (*fakeRepo, error) {
	r := d.hub.repo(owner, repo)
	if r == nil {
		return nil, &model.RemoteOperationError{Op: "repo", StatusCode: http.StatusNotFound, Message: owner + "/" + repo}
	}
	return r, nil
}

func (d *fakeDest) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	r, err := d.lookup(owner, repo)
	if err != nil {
		return "", err
	}
	if r.headErr != nil {
		return "", r.headErr
	}
	sha, ok := r.heads[branch]
	if !ok {
		return "", &model.RemoteOperationError{Op: "get ref", StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	return sha, nil
}

func (d *fakeDest) CreateBranch(_ context.Context, owner, repo, branch, sha string) error {
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	r, err := d.lookup(owner, repo)
	if err != nil {
		return err
	}
	if r.branchErr != nil {
		return r.branchErr
	}
	if _, exists := r.heads[branch]; exists {
		return fmt.Errorf("create %s: %w", branch, model.ErrBranchExists)
	}

	tree := map[string]string{}
	for b, head := range r.heads {
		if head == sha {
			for k, v := range r.files[b] {
				tree[k] = v
			}
			break
		}
	}
	r.heads[branch] = sha
	r.files[branch] = tree
	return nil
}

func (d *fakeDest) GetFileContent(ctx context.Context, owner, repo, path, ref string) (model.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return model.FileContent{}, err
	}
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	r, err := d.lookup(owner, repo)
	if err != nil {
		return model.FileContent{}, err
	}
	content, ok := r.files[ref][path]
	if !ok {
		return model.FileContent{}, fmt.Errorf("get %s: %w", path, model.ErrNotFound)
	}
	return model.FileContent{Path: path, SHA: blobSHA(content), Content: []byte(content)}, nil
}

// PutFile enforces the hosting API's optimistic concurrency: updates must
// carry the current blob SHA and creates must not.
func (d *fakeDest) PutFile(ctx context.Context, owner, repo string, w model.FileWrite) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	r, err := d.lookup(owner, repo)
	if err != nil {
		return "", err
	}
	if r.putErr != nil {
		return "", r.putErr
	}
	tree, ok := r.files[w.Branch]
	if !ok {
		return "", &model.RemoteOperationError{Op: "put", StatusCode: http.StatusNotFound, Message: "branch not found"}
	}

	current, exists := tree[w.Path]
	prior, hasPrior := w.PriorSHA.Get()
	switch {
	case exists && !hasPrior:
		return "", &model.RemoteOperationError{Op: "put", StatusCode: http.StatusUnprocessableEntity, Message: `"sha" wasn't supplied`}
	case exists && prior != blobSHA(current):
		return "", &model.RemoteOperationError{Op: "put", StatusCode: http.StatusConflict, Message: "sha mismatch"}
	case !exists && hasPrior:
		return "", &model.RemoteOperationError{Op: "put", StatusCode: http.StatusNotFound, Message: "file not found"}
	}

	tree[w.Path] = string(w.Content)
	r.writes = append(r.writes, w)
	return fmt.Sprintf("commit-%d", len(r.writes)), nil
}

func (d *fakeDest) CreatePullRequest(ctx context.Context, owner, repo string, pr model.NewPullRequest) (model.PullRequestRef, error) {
	if err := ctx.Err(); err != nil {
		return model.PullRequestRef{}, err
	}
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	r, err := d.lookup(owner, repo)
	if err != nil {
		return model.PullRequestRef{}, err
	}
	if r.prErr != nil {
		return model.PullRequestRef{}, r.prErr
	}
	r.prs = append(r.prs, pr)
	n := len(r.prs)
	return model.PullRequestRef{
		Number: n,
		URL:    fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repo, n),
		Title:  pr.Title,
		State:  "open",
	}, nil
}

func blobSHA(content string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(content)))
}
