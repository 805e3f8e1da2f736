package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}}
}

func (r *fakeUserRepo) add(u domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	r.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("u-%d", r.seq)
	}
	u.CreatedAt = baseTime.Add(time.Duration(r.seq) * time.Minute)
	r.users[u.ID] = u
	return &u
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	for _, u := range r.users {
		if u.Email == user.Email {
			r.mu.Unlock()
			return repository.ErrDuplicateEmail
		}
	}
	r.mu.Unlock()
	created := r.add(*user)
	*user = *created
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range r.users {
		if u.Email == user.Email && u.ID != user.ID {
			return repository.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	term := strings.ToLower(filter.Search)
	var matched []domain.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(u.Name), term) && !strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *fakeUserRepo) get(id string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	return u, ok
}

type fakeComplaintRepo struct {
	mu         sync.Mutex
	seq        int
	complaints map[string]domain.Complaint
	failUpdate error
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: map[string]domain.Complaint{}}
}

func (r *fakeComplaintRepo) Create(_ context.Context, c *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("c-%d", r.seq)
	c.CreatedAt = baseTime.Add(time.Duration(r.seq) * time.Minute)
	c.UpdatedAt = c.CreatedAt
	stored := *c
	stored.Images = append([]domain.Image(nil), c.Images...)
	r.complaints[c.ID] = stored
	return nil
}

func (r *fakeComplaintRepo) Update(_ context.Context, c *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.complaints[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	stored := *c
	stored.Images = append([]domain.Image(nil), c.Images...)
	r.complaints[c.ID] = stored
	return nil
}

func (r *fakeComplaintRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.complaints[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.complaints, id)
	return nil
}

func (r *fakeComplaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeComplaintRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Complaint, error) {
	owner := ownerID
	items, _, err := r.List(context.Background(), repository.ComplaintFilter{OwnerID: &owner, Limit: 1 << 20})
	return items, err
}

func (r *fakeComplaintRepo) List(_ context.Context, f repository.ComplaintFilter) ([]domain.Complaint, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Complaint
	for _, c := range r.complaints {
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Category != nil && c.Category != *f.Category {
			continue
		}
		if f.Priority != nil && c.Priority != *f.Priority {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Limit, f.Offset), int64(len(matched)), nil
}

func (r *fakeComplaintRepo) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.complaints {
		if c.OwnerID == ownerID {
			delete(r.complaints, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeComplaintRepo) StatsByOwners(_ context.Context, ownerIDs []string) (map[string]domain.ComplaintStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range ownerIDs {
		wanted[id] = true
	}
	out := map[string]domain.ComplaintStats{}
	for _, c := range r.complaints {
		if !wanted[c.OwnerID] {
			continue
		}
		stats := out[c.OwnerID]
		stats.Add(c.Status, 1)
		out[c.OwnerID] = stats
	}
	return out, nil
}

func (r *fakeComplaintRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.complaints)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// fakeMedia records uploads and deletions. failUploadAt makes the n-th upload
// (1-based, counted across the provider's lifetime) fail.
type fakeMedia struct {
	mu           sync.Mutex
	uploads      []media.Upload
	deleted      []string
	failUploadAt int
	failDelete   bool
	seq          int
}

func (m *fakeMedia) Upload(_ context.Context, upload media.Upload) (domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if m.failUploadAt > 0 && m.seq == m.failUploadAt {
		return domain.Image{}, errors.New("provider unavailable")
	}
	if upload.Body != nil {
		_, _ = io.Copy(io.Discard, upload.Body)
	}
	m.uploads = append(m.uploads, upload)
	handle := fmt.Sprintf("%s/img-%d", upload.Folder, m.seq)
	return domain.Image{URL: "https://cdn.test/" + handle, Handle: handle}, nil
}

func (m *fakeMedia) Delete(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, handle)
	if m.failDelete {
		return errors.New("delete failed")
	}
	return nil
}

func (m *fakeMedia) deletedHandles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.deleted...)
	sort.Strings(out)
	return out
}

func (m *fakeMedia) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

// pngHeader is enough of a PNG for content sniffing.
const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

func imageUpload(name string) media.Upload {
	return media.Upload{Name: name, ContentType: "image/png", Size: int64(len(pngHeader)), Body: strings.NewReader(pngHeader)}
}

func imageUploads(n int) []media.Upload {
	out := make([]media.Upload, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, imageUpload(fmt.Sprintf("photo-%d.png", i)))
	}
	return out
}

type fixture struct {
	users      *fakeUserRepo
	complaints *fakeComplaintRepo
	media      *fakeMedia
	notifier   *recordingNotifier
	runner     *worker.BestEffort
	complaint  *ComplaintService
	user       *UserService
	auth       *AuthService
	tokens     *auth.TokenManager
	revoker    *fakeRevoker
	now        time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users:      newFakeUserRepo(),
		complaints: newFakeComplaintRepo(),
		media:      &fakeMedia{},
		notifier:   &recordingNotifier{},
		runner:     worker.NewBestEffort(nil, nil),
		now:        baseTime.Add(24 * time.Hour),
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   f.users,
		Notifier:   f.notifier,
		Runner:     f.runner,
		EmailFrom:  "noreply@test",
	}).RegisterHandlers()

	f.complaint = NewComplaintService(ComplaintDependencies{
		ComplaintRepo: f.complaints,
		UserRepo:      f.users,
		Media:         f.media,
		Dispatcher:    dispatcher,
		Runner:        f.runner,
		Clock:         func() time.Time { return f.now },
	})
	f.user = NewUserService(UserDependencies{
		UserRepo:      f.users,
		ComplaintRepo: f.complaints,
		Media:         f.media,
		Runner:        f.runner,
		BcryptCost:    4,
	})
	f.revoker = &fakeRevoker{revoked: map[string]time.Duration{}}
	f.tokens = auth.NewTokenManager("test-secret", time.Hour)
	f.auth = NewAuthService(AuthDependencies{
		UserRepo:     f.users,
		TokenManager: f.tokens,
		Revoker:      f.revoker,
		Dispatcher:   dispatcher,
		BcryptCost:   4,
	})
	return f
}

func (f *fixture) createComplaint(ownerID string, images int) *domain.Complaint {
	c, err := f.complaint.Create(context.Background(), ownerID, ComplaintCreateInput{
		Title:       "Pothole",
		Description: "Large pothole on main road",
		Category:    string(domain.CategoryInfrastructure),
		Address:     "1 Main St",
	}, imageUploads(images))
	if err != nil {
		panic(err)
	}
	f.runner.Wait()
	return c
}

func userActor(u *domain.User) domain.Actor {
	return domain.Actor{ID: u.ID, Role: u.Role}
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func (r *fakeRevoker) RevokeToken(_ context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.revoked[id] = ttl
	return nil
}
