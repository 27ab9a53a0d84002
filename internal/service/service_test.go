package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/auth"
	"github.com/ltoupin/nexus-console/internal/config"
	"github.com/ltoupin/nexus-console/internal/ledger"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/nexus"
	"github.com/ltoupin/nexus-console/internal/prefs"
	"github.com/ltoupin/nexus-console/internal/repository"
	"github.com/ltoupin/nexus-console/internal/router"
	"github.com/ltoupin/nexus-console/internal/session"
)

// ---------------------------------------------------------------------------
// Hand-written mocks. The services take interfaces, so tests inject these
// in-memory fakes instead of SQLite or the Gemini API.
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) List(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) UpdateCredits(_ context.Context, id string, credits int) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Credits = credits
	return nil
}

func (m *mockUserRepo) SetTier(_ context.Context, id string, tier model.Tier, credits int) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Tier = tier
	u.Credits = credits
	return nil
}

type mockKV struct {
	data map[string]string
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string]string)}
}

func (m *mockKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(_ context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *mockKV) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// fakeAI counts calls so tests can assert that a denied action never
// reaches the model.
type fakeAI struct {
	calls     int
	reply     string
	pcm       []byte
	image     []byte
	imageMIME string
	err       error
}

func (f *fakeAI) Complete(_ context.Context, _ []model.Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeAI) AnalyzeImage(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeAI) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	f.calls++
	return f.pcm, f.err
}

func (f *fakeAI) GenerateImage(_ context.Context, _ string, _ []byte, _ string) ([]byte, string, error) {
	f.calls++
	return f.image, f.imageMIME, f.err
}

var _ nexus.Client = (*fakeAI)(nil)

// ---------------------------------------------------------------------------
// Test environment: the full service wiring over mocks.
// ---------------------------------------------------------------------------

type testEnv struct {
	users    *mockUserRepo
	kv       *mockKV
	ai       *fakeAI
	sessions *session.Store
	modules  *router.Router
	prefs    *prefs.Store
	ledger   *ledger.Ledger
	cfg      *config.Config

	auth  *AuthService
	panel *PanelService
	shell *ShellService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	users := newMockUserRepo()
	kv := newMockKV()
	ai := &fakeAI{reply: "synthetic reply", pcm: []byte{1, 0, 2, 0}, image: []byte{0xFF, 0xD8}, imageMIME: "image/png"}

	sessions := session.NewStore(kv, logger)
	preferences := prefs.NewStore(kv, logger)
	modules := router.New(sessions)
	sessions.Subscribe(modules.OnSessionChange)

	credits := ledger.New(sessions, users, ledger.DefaultCosts(), logger)

	cfg := &config.Config{
		CreatorEmails:  []string{"creator@nexus.dev"},
		PayPalBusiness: "billing@nexus.dev",
	}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	return &testEnv{
		users:    users,
		kv:       kv,
		ai:       ai,
		sessions: sessions,
		modules:  modules,
		prefs:    preferences,
		ledger:   credits,
		cfg:      cfg,
		auth:     NewAuthService(users, tokens, passwords, sessions, logger),
		panel:    NewPanelService(credits, ai, logger),
		shell:    NewShellService(sessions, modules, preferences, credits, cfg, logger),
	}
}

// loginAs seeds a directory user and opens a session for it.
func (e *testEnv) loginAs(t *testing.T, user *model.User) *model.User {
	t.Helper()
	ctx := context.Background()
	if err := e.users.Create(ctx, user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	if err := e.sessions.Login(ctx, user); err != nil {
		t.Fatalf("opening session: %v", err)
	}
	return user
}
