package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Tubbz-alt/skara/internal/census"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/Tubbz-alt/skara/internal/jcheck"
	"github.com/Tubbz-alt/skara/internal/lock"
	"github.com/Tubbz-alt/skara/internal/vcs"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const censusDoc = `
domain: openjdk.org
url: https://openjdk.org/census
bylaws: https://openjdk.org/bylaws#contributor
namespace:
  gh-alice: alice
  gh-bob: bob
  gh-carol: carol
  gh-dave: dave
contributors:
  - username: alice
    full_name: Alice Author
    role: committer
  - username: bob
    full_name: Bob Reviewer
    role: reviewer
  - username: carol
    full_name: Carol Contributor
    role: contributor
  - username: dave
    role: reviewer
`

var (
	alice = entities.User{Login: "gh-alice"}
	bob   = entities.User{Login: "gh-bob"}
	carol = entities.User{Login: "gh-carol"}
	dave  = entities.User{Login: "gh-dave"}
	eve   = entities.User{Login: "gh-eve"}
	bot   = entities.User{Login: "bot", Name: "J. Duke", Email: "duke@openjdk.org"}
)

func hashOf(n int) entities.Hash {
	return entities.Hash(fmt.Sprintf("%040x", n))
}

// fakeForge serves fakeRepos by name.
type fakeForge struct {
	repos map[string]*fakeRepo
}

var _ forge.Forge = (*fakeForge)(nil)

func (f *fakeForge) Hostname() string { return "github.com" }

func (f *fakeForge) CurrentUser(_ context.Context) (entities.User, error) { return bot, nil }

func (f *fakeForge) Repository(_ context.Context, name string) (forge.HostedRepository, error) {
	r, ok := f.repos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, name)
	}
	return r, nil
}

func (f *fakeForge) add(r *fakeRepo) *fakeRepo {
	if f.repos == nil {
		f.repos = make(map[string]*fakeRepo)
	}
	f.repos[r.name] = r
	return r
}

type prComment struct {
	id   string
	body string
}

// fakeRepo is an in-memory hosted repository that records every mutation.
type fakeRepo struct {
	mu sync.Mutex

	name     string
	branches []entities.Branch
	commits  map[entities.Hash]*entities.Commit
	prs      map[string]*entities.ReviewRequest
	comments map[string][]entities.Comment
	reviews  map[string][]entities.Review
	checks   map[entities.Hash]map[string]entities.Check
	fork     *fakeRepo

	posted         []prComment
	commitComments map[entities.Hash][]string
	labelsAdded    []string
	labelsRemoved  []string
	states         map[string]entities.ReviewState
	retargeted     map[string]string
	created        []*entities.ReviewRequest
	forked         int
	nextID         int
	addLabelErr    error
	postCommentErr error
}

var _ forge.HostedRepository = (*fakeRepo)(nil)

func newFakeRepo(name string) *fakeRepo {
	return &fakeRepo{
		name:           name,
		commits:        make(map[entities.Hash]*entities.Commit),
		prs:            make(map[string]*entities.ReviewRequest),
		comments:       make(map[string][]entities.Comment),
		reviews:        make(map[string][]entities.Review),
		checks:         make(map[entities.Hash]map[string]entities.Check),
		commitComments: make(map[entities.Hash][]string),
		states:         make(map[string]entities.ReviewState),
		retargeted:     make(map[string]string),
		nextID:         100,
	}
}

func (r *fakeRepo) Name() string { return r.name }
func (r *fakeRepo) Group() string {
	for i := range r.name {
		if r.name[i] == '/' {
			return r.name[:i]
		}
	}
	return r.name
}
func (r *fakeRepo) URL() string                      { return "https://x-access-token:t@github.com/" + r.name + ".git" }
func (r *fakeRepo) WebURL() string                   { return "https://github.com/" + r.name }
func (r *fakeRepo) CommitURL(h entities.Hash) string { return r.WebURL() + "/commit/" + h.Hex() }

func (r *fakeRepo) Branches(_ context.Context) ([]entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Branch(nil), r.branches...), nil
}

func (r *fakeRepo) Commit(_ context.Context, h entities.Hash) (*entities.Commit, error) {
	c, ok := r.commits[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrCommitNotFound, h)
	}
	return c, nil
}

func (r *fakeRepo) PostCommitComment(_ context.Context, h entities.Hash, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitComments[h] = append(r.commitComments[h], body)
	return nil
}

func (r *fakeRepo) PullRequest(_ context.Context, id string) (*entities.ReviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.prs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrPullRequestNotFound, id)
	}
	cp := *pr
	return &cp, nil
}

func (r *fakeRepo) PullRequests(_ context.Context, targetRef string) ([]*entities.ReviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*entities.ReviewRequest
	for _, pr := range r.prs {
		if pr.TargetRef == targetRef && pr.State == entities.StateOpen {
			cp := *pr
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *fakeRepo) Comments(_ context.Context, id string) ([]entities.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Comment(nil), r.comments[id]...), nil
}

func (r *fakeRepo) Reviews(_ context.Context, id string) ([]entities.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Review(nil), r.reviews[id]...), nil
}

func (r *fakeRepo) Checks(_ context.Context, h entities.Hash) (map[string]entities.Check, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checks[h], nil
}

func (r *fakeRepo) AddLabel(_ context.Context, id, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addLabelErr != nil {
		return r.addLabelErr
	}
	r.labelsAdded = append(r.labelsAdded, id+":"+label)
	return nil
}

func (r *fakeRepo) RemoveLabel(_ context.Context, id, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelsRemoved = append(r.labelsRemoved, id+":"+label)
	return nil
}

func (r *fakeRepo) SetState(_ context.Context, id string, state entities.ReviewState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = state
	if pr, ok := r.prs[id]; ok {
		pr.State = state
	}
	return nil
}

func (r *fakeRepo) SetTargetRef(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retargeted[id] = ref
	if pr, ok := r.prs[id]; ok {
		pr.TargetRef = ref
	}
	return nil
}

func (r *fakeRepo) PostComment(_ context.Context, id, body string) (entities.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.postCommentErr != nil {
		return entities.Comment{}, r.postCommentErr
	}
	r.posted = append(r.posted, prComment{id: id, body: body})
	c := entities.Comment{ID: fmt.Sprint(len(r.posted)), Author: bot, Body: body, CreatedAt: time.Now()}
	r.comments[id] = append(r.comments[id], c)
	return c, nil
}

func (r *fakeRepo) CreatePullRequest(_ context.Context, target forge.HostedRepository, targetRef, sourceRef, title, body string) (*entities.ReviewRequest, error) {
	t := target.(*fakeRepo)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	pr := &entities.ReviewRequest{
		ID:         fmt.Sprint(t.nextID),
		Repository: t.name,
		Title:      title,
		Body:       body,
		Author:     bot,
		SourceRef:  sourceRef,
		TargetRef:  targetRef,
		State:      entities.StateOpen,
		WebURL:     fmt.Sprintf("%s/pull/%d", t.WebURL(), t.nextID),
	}
	t.prs[pr.ID] = pr
	t.created = append(t.created, pr)
	return pr, nil
}

func (r *fakeRepo) Fork(_ context.Context) (forge.HostedRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forked++
	if r.fork == nil {
		return nil, fmt.Errorf("%w: fork of %s", entities.ErrRepositoryNotFound, r.name)
	}
	return r.fork, nil
}

type push struct {
	rev    entities.Hash
	url    string
	branch string
	opts   vcs.PushOptions
}

// fakeLocal scripts the answers of a working copy and records what the
// workflows did with it.
type fakeLocal struct {
	fetch      map[string]entities.Hash
	descends   bool
	mergeClean bool
	merged     entities.Hash
	cherryOK   bool
	status     []entities.FileState
	trees      map[entities.Hash]entities.Hash
	commits    map[entities.Hash]*entities.Commit

	seq         int
	head        entities.Hash
	checkouts   []string
	branches    map[string]entities.Hash
	merges      int
	cherryPicks []entities.Hash
	resets      []entities.Hash
	made        []*entities.Commit
	pushes      []push
}

var _ vcs.Repository = (*fakeLocal)(nil)

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		fetch:    make(map[string]entities.Hash),
		trees:    make(map[entities.Hash]entities.Hash),
		commits:  make(map[entities.Hash]*entities.Commit),
		branches: make(map[string]entities.Hash),
		seq:      0xc000,
	}
}

func (l *fakeLocal) Fetch(_ context.Context, _ string, ref string) (entities.Hash, error) {
	h, ok := l.fetch[ref]
	if !ok {
		return "", fmt.Errorf("couldn't find remote ref %s", ref)
	}
	return h, nil
}

func (l *fakeLocal) Checkout(_ context.Context, ref string) error {
	l.checkouts = append(l.checkouts, ref)
	if h, ok := l.branches[ref]; ok {
		l.head = h
	} else {
		l.head = entities.Hash(ref)
	}
	return nil
}

func (l *fakeLocal) Head(_ context.Context) (entities.Hash, error) { return l.head, nil }

func (l *fakeLocal) Tree(_ context.Context, rev entities.Hash) (entities.Hash, error) {
	if t, ok := l.trees[rev]; ok {
		return t, nil
	}
	return "tree-" + rev, nil
}

func (l *fakeLocal) CreateBranch(_ context.Context, name string, at entities.Hash) error {
	l.branches[name] = at
	return nil
}

func (l *fakeLocal) IsAncestor(_ context.Context, _, _ entities.Hash) (bool, error) {
	return l.descends, nil
}

func (l *fakeLocal) Merge(_ context.Context, _ entities.Hash, _ string, _ entities.Ident) (bool, error) {
	l.merges++
	if !l.mergeClean {
		return false, nil
	}
	l.head = l.merged
	return true, nil
}

func (l *fakeLocal) CherryPick(_ context.Context, rev entities.Hash) (bool, error) {
	l.cherryPicks = append(l.cherryPicks, rev)
	return l.cherryOK, nil
}

func (l *fakeLocal) record(parents []entities.Hash, message string, author, committer entities.Ident) entities.Hash {
	l.seq++
	h := hashOf(l.seq)
	c := &entities.Commit{Hash: h, Parents: parents, Author: author, Committer: committer, Message: message}
	l.commits[h] = c
	l.made = append(l.made, c)
	return h
}

func (l *fakeLocal) Commit(_ context.Context, message string, author, committer entities.Ident) (entities.Hash, error) {
	h := l.record([]entities.Hash{l.head}, message, author, committer)
	l.head = h
	return h, nil
}

func (l *fakeLocal) CommitTree(_ context.Context, rev entities.Hash, parents []entities.Hash, message string, author, committer entities.Ident) (entities.Hash, error) {
	h := l.record(parents, message, author, committer)
	l.trees[h], _ = l.Tree(context.Background(), rev)
	return h, nil
}

func (l *fakeLocal) Push(_ context.Context, rev entities.Hash, remoteURL, branch string, opts vcs.PushOptions) error {
	l.pushes = append(l.pushes, push{rev: rev, url: remoteURL, branch: branch, opts: opts})
	return nil
}

func (l *fakeLocal) Status(_ context.Context) ([]entities.FileState, error) { return l.status, nil }

func (l *fakeLocal) Reset(_ context.Context, rev entities.Hash, _ bool) error {
	l.resets = append(l.resets, rev)
	l.head = rev
	return nil
}

func (l *fakeLocal) Lookup(_ context.Context, rev entities.Hash) (*entities.Commit, error) {
	c, ok := l.commits[rev]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrCommitNotFound, rev)
	}
	return c, nil
}

// fakeMaterializer hands out the same scripted working copy.
type fakeMaterializer struct {
	local *fakeLocal
	urls  []string
	dirs  []string
}

func (m *fakeMaterializer) Materialize(_ context.Context, remoteURL, dir string) (vcs.Repository, error) {
	m.urls = append(m.urls, remoteURL)
	m.dirs = append(m.dirs, dir)
	return m.local, nil
}

type lockerMock struct {
	mock.Mock
}

var _ Locker = (*lockerMock)(nil)

func (m *lockerMock) Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lock.Lock), args.Error(1)
}

func (m *lockerMock) Release(ctx context.Context, l *lock.Lock) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

type checkerMock struct {
	mock.Mock
}

var _ jcheck.Checker = (*checkerMock)(nil)

func (m *checkerMock) Check(ctx context.Context, repo vcs.Repository, rev entities.Hash, dir census.Directory) ([]string, error) {
	args := m.Called(ctx, repo, rev, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type fixture struct {
	uc      *Usecase
	forge   *fakeForge
	repo    *fakeRepo
	local   *fakeLocal
	vcs     *fakeMaterializer
	locks   *lockerMock
	checker *checkerMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir, err := census.Parse([]byte(censusDoc))
	require.NoError(t, err)

	f := &fixture{
		forge:   &fakeForge{},
		local:   newFakeLocal(),
		locks:   &lockerMock{},
		checker: &checkerMock{},
	}
	f.repo = f.forge.add(newFakeRepo("openjdk/jdk"))
	f.vcs = &fakeMaterializer{local: f.local}

	f.uc, err = New(zap.NewNop().Sugar(), Dependencies{
		Forge:   f.forge,
		VCS:     f.vcs,
		Census:  dir,
		Checker: f.checker,
		Locks:   f.locks,
	}, Settings{
		CheckName:    "jcheck",
		LockTTL:      time.Minute,
		Trunk:        "master",
		BranchPrefix: "backport-",
		BranchPolicy: "suffix",
		ScratchDir:   t.TempDir(),
		Bot:          bot,
	}, time.Minute)
	require.NoError(t, err)
	return f
}
