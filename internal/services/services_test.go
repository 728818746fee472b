package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brainshare/backend/internal/access"
	"github.com/brainshare/backend/internal/config"
	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

func newEngine(t *testing.T) *query.Engine {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.EnsureUnique(context.Background(), string(query.Users), "email"); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureUnique(context.Background(), string(query.Payments), "transaction_id"); err != nil {
		t.Fatal(err)
	}
	return query.NewEngine(store)
}

func register(t *testing.T, users *UserService, email string) models.User {
	t.Helper()
	u, _, err := users.Register(context.Background(), email, &models.RegisterUserRequest{Name: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestRegisterIsCreateOrFetch(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(newEngine(t))

	first, created, err := users.Register(ctx, "A@X.com", &models.RegisterUserRequest{Name: "Ann"})
	if err != nil || !created {
		t.Fatalf("first Register() = %v, created %v", err, created)
	}
	if first.Email != "a@x.com" || first.PostCount != 0 || first.Badge != models.BadgeBronze || first.Role != models.RoleUser {
		t.Errorf("first = %+v", first)
	}

	second, created, err := users.Register(ctx, "a@x.com", &models.RegisterUserRequest{Name: "Impostor"})
	if err != nil || created {
		t.Fatalf("second Register() = %v, created %v", err, created)
	}
	if second.ID != first.ID || second.Name != "Ann" || second.PostCount != 0 {
		t.Errorf("second = %+v, want the original record", second)
	}

	if _, _, err := users.Register(ctx, "not-an-email", &models.RegisterUserRequest{}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("bad email error = %v", err)
	}
}

func TestVotesScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	posts := NewPostService(e, 5)
	register(t, users, "a@x.com")

	p, err := posts.Create(ctx, "a@x.com", &models.CreatePostRequest{Title: "P", Description: "d", Tags: []string{"Go"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.UpVote != 0 || p.DownVote != 0 {
		t.Fatalf("new post votes = %d/%d", p.UpVote, p.DownVote)
	}

	for i := 0; i < 2; i++ {
		if _, err := posts.Vote(ctx, p.ID.Hex(), true); err != nil {
			t.Fatal(err)
		}
	}
	got, err := posts.Get(ctx, p.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got.UpVote != 2 || got.DownVote != 0 {
		t.Errorf("votes = %d/%d, want 2/0", got.UpVote, got.DownVote)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "go" {
		t.Errorf("tags = %v", got.Tags)
	}

	if _, err := posts.Vote(ctx, "bogus", false); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("malformed vote id error = %v", err)
	}
}

func TestBronzePostLimitAndGoldUpgrade(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	posts := NewPostService(e, 2)
	payments := NewPaymentService(e, &fakeProvider{}, "usd")
	register(t, users, "a@x.com")

	req := &models.CreatePostRequest{Title: "P", Description: "d", Tags: []string{"go"}}
	for i := 0; i < 2; i++ {
		if _, err := posts.Create(ctx, "a@x.com", req); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := posts.Create(ctx, "a@x.com", req); !errors.Is(err, core.ErrPostLimitReached) {
		t.Fatalf("third post error = %v, want ErrPostLimitReached", err)
	}

	u, _ := users.GetByEmail(ctx, "a@x.com")
	if u.PostCount != 2 {
		t.Errorf("postCount = %d, want 2", u.PostCount)
	}

	pay, err := payments.Save(ctx, "a@x.com", &models.SavePaymentRequest{TransactionID: "pi_1", Amount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if pay.ID.IsZero() || pay.Currency != "usd" {
		t.Errorf("payment = %+v", pay)
	}
	u, _ = users.GetByEmail(ctx, "a@x.com")
	if u.Badge != models.BadgeGold {
		t.Errorf("badge = %s, want gold", u.Badge)
	}
	if _, err := posts.Create(ctx, "a@x.com", req); err != nil {
		t.Errorf("gold member post error = %v", err)
	}

	if _, err := payments.Save(ctx, "a@x.com", &models.SavePaymentRequest{TransactionID: "pi_1", Amount: 10}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("replayed transaction error = %v, want ErrConflict", err)
	}
}

func TestSavePaymentBeforeRegistering(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	payments := NewPaymentService(e, &fakeProvider{}, "usd")
	req := &models.SavePaymentRequest{TransactionID: "pi_late", Amount: 10}

	if _, err := payments.Save(ctx, "late@x.com", req); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unregistered Save() error = %v, want ErrNotFound", err)
	}
	n, err := query.Count(ctx, e, query.Payments, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("payments = %d, want none recorded for an unregistered payer", n)
	}

	register(t, users, "late@x.com")
	if _, err := payments.Save(ctx, "late@x.com", req); err != nil {
		t.Fatalf("Save() after register error = %v", err)
	}
	u, err := users.GetByEmail(ctx, "late@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Badge != models.BadgeGold {
		t.Errorf("badge = %s, want gold", u.Badge)
	}
}

func TestReplayedPaymentReappliesUpgrade(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	payments := NewPaymentService(e, &fakeProvider{}, "usd")
	u := register(t, users, "a@x.com")
	register(t, users, "b@x.com")

	// A recorded payment whose upgrade never landed.
	if _, err := query.Insert(ctx, e, query.Payments, models.Payment{Email: "a@x.com", Amount: 10, TransactionID: "pi_1"}); err != nil {
		t.Fatal(err)
	}

	prev, err := payments.Save(ctx, "a@x.com", &models.SavePaymentRequest{TransactionID: "pi_1", Amount: 10})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("replay error = %v, want ErrConflict", err)
	}
	if prev.TransactionID != "pi_1" || prev.Email != "a@x.com" {
		t.Errorf("replay returned %+v", prev)
	}
	got, _ := users.GetByEmail(ctx, u.Email)
	if got.Badge != models.BadgeGold {
		t.Errorf("badge after replay = %s, want gold", got.Badge)
	}

	if _, err := payments.Save(ctx, "b@x.com", &models.SavePaymentRequest{TransactionID: "pi_1", Amount: 10}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("foreign transaction error = %v, want ErrConflict", err)
	}
	other, _ := users.GetByEmail(ctx, "b@x.com")
	if other.Badge != models.BadgeBronze {
		t.Errorf("another payer's transaction upgraded b@x.com to %s", other.Badge)
	}
}

func TestFailedPostInsertDoesNotCount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.EnsureUnique(ctx, string(query.Posts), "title"); err != nil {
		t.Fatal(err)
	}
	e := query.NewEngine(store)
	users := NewUserService(e)
	posts := NewPostService(e, 5)
	register(t, users, "a@x.com")

	req := &models.CreatePostRequest{Title: "Same", Description: "d", Tags: []string{"go"}}
	if _, err := posts.Create(ctx, "a@x.com", req); err != nil {
		t.Fatal(err)
	}
	if _, err := posts.Create(ctx, "a@x.com", req); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second Create() error = %v, want ErrConflict", err)
	}

	u, err := users.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.PostCount != 1 {
		t.Errorf("postCount = %d, want 1", u.PostCount)
	}
}

func TestCreatePostRequiresRegisteredAuthor(t *testing.T) {
	posts := NewPostService(newEngine(t), 5)
	_, err := posts.Create(context.Background(), "ghost@x.com", &models.CreatePostRequest{Title: "P", Description: "d", Tags: []string{"go"}})
	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("Create() error = %v, want ErrForbidden", err)
	}
}

func TestDeletePostOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	posts := NewPostService(e, 0)
	register(t, users, "author@x.com")
	register(t, users, "other@x.com")
	register(t, users, "admin@x.com")
	if _, err := users.Promote(ctx, "admin@x.com"); err != nil {
		t.Fatal(err)
	}

	req := &models.CreatePostRequest{Title: "P", Description: "d", Tags: []string{"go"}}
	p1, _ := posts.Create(ctx, "author@x.com", req)
	p2, _ := posts.Create(ctx, "author@x.com", req)

	if _, err := posts.Delete(ctx, "other@x.com", p1.ID.Hex()); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("stranger delete error = %v, want ErrForbidden", err)
	}
	if n, err := posts.Delete(ctx, "author@x.com", p1.ID.Hex()); err != nil || n != 1 {
		t.Errorf("author delete = %d, %v", n, err)
	}
	if n, err := posts.Delete(ctx, "admin@x.com", p2.ID.Hex()); err != nil || n != 1 {
		t.Errorf("admin delete = %d, %v", n, err)
	}
	if _, err := posts.Delete(ctx, "author@x.com", p2.ID.Hex()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete of missing post error = %v", err)
	}
}

func TestReportCommentScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	register(t, NewUserService(e), "a@x.com")
	p, err := NewPostService(e, 5).Create(ctx, "a@x.com", &models.CreatePostRequest{Title: "P", Description: "d", Tags: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}

	comments := NewCommentService(e)
	c, err := comments.Create(ctx, &models.CreateCommentRequest{PostID: p.ID.Hex(), Body: "buy now"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := comments.Create(ctx, &models.CreateCommentRequest{PostID: p.ID.Hex(), Body: "nice"}); err != nil {
		t.Fatal(err)
	}

	n, err := comments.Report(ctx, c.ID.Hex(), &models.ReportCommentRequest{Feedback: "spam"})
	if err != nil || n != 1 {
		t.Fatalf("Report() = %d, %v", n, err)
	}

	page, err := comments.Reported(ctx, query.PageParams{Page: 1, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("reported = %d comments, want 1", len(page.Items))
	}
	got := page.Items[0]
	if got.ID != c.ID || !got.Reported || got.Feedback != "spam" || got.PostTitle != "P" {
		t.Errorf("reported comment = %+v", got)
	}

	if _, err := comments.Create(ctx, &models.CreateCommentRequest{PostID: "65f1a0c2e4b0a1b2c3d4e5f6", Body: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("comment on missing post error = %v", err)
	}
	if _, err := comments.Report(ctx, "65f1a0c2e4b0a1b2c3d4e5f6", &models.ReportCommentRequest{Feedback: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("report of missing comment error = %v", err)
	}
}

func TestPromoteScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	users := NewUserService(e)
	register(t, users, "a@x.com")

	tokens := access.NewJWTManager(config.AuthConfig{JWTSecret: "s", JWTExpiration: time.Hour})
	guard := access.NewGuard(tokens, access.NewUserRoles(e))
	id := access.Identity{Email: "a@x.com"}

	if err := guard.Authorize(ctx, id, models.RoleAdmin); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("before promotion = %v, want ErrForbidden", err)
	}
	if n, err := users.Promote(ctx, "a@x.com"); err != nil || n != 1 {
		t.Fatalf("Promote() = %d, %v", n, err)
	}
	if err := guard.Authorize(ctx, id, models.RoleAdmin); err != nil {
		t.Errorf("after promotion = %v", err)
	}
	if n, err := users.Promote(ctx, "a@x.com"); err != nil || n != 0 {
		t.Errorf("second Promote() = %d, %v, want 0 modified", n, err)
	}
	if _, err := users.Promote(ctx, "ghost@x.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("promote missing user error = %v", err)
	}
}

func TestProfileShowsRecentPosts(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	users := NewUserService(e)
	posts := NewPostService(e, 0)
	register(t, users, "a@x.com")

	for _, title := range []string{"one", "two", "three", "four"} {
		if _, err := posts.Create(ctx, "a@x.com", &models.CreatePostRequest{Title: title, Description: "d", Tags: []string{"go"}}); err != nil {
			t.Fatal(err)
		}
	}

	prof, err := users.Profile(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if prof.User.PostCount != 4 || len(prof.RecentPosts) != 3 || prof.RecentPosts[0].Title != "four" {
		t.Errorf("profile = %d posts, recent %+v", prof.User.PostCount, prof.RecentPosts)
	}

	page, err := users.Posts(ctx, "a@x.com", query.PageParams{Page: 2, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "one" || page.TotalPages != 2 {
		t.Errorf("second page = %+v", page)
	}
}

func TestListPostsFilters(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	register(t, NewUserService(e), "a@x.com")
	posts := NewPostService(e, 0)
	for _, r := range []models.CreatePostRequest{
		{Title: "Channels in Go", Description: "d", Tags: []string{"golang"}},
		{Title: "Borrow checker", Description: "d", Tags: []string{"rust"}},
		{Title: "Go modules", Description: "d", Tags: []string{"golang", "tooling"}},
	} {
		r := r
		if _, err := posts.Create(ctx, "a@x.com", &r); err != nil {
			t.Fatal(err)
		}
	}

	page, err := posts.List(ctx, PostFilter{Tag: "GO"}, query.PageParams{Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.Pagination != nil {
		t.Errorf("tag filter = %d items, pagination %v", len(page.Items), page.Pagination)
	}

	page, err = posts.List(ctx, PostFilter{Search: "modules", Sort: query.SortPopular}, query.PageParams{Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Go modules" {
		t.Errorf("search = %+v", page.Items)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	register(t, NewUserService(e), "a@x.com")
	register(t, NewUserService(e), "b@x.com")
	catalog := NewCatalogService(e)
	if _, err := catalog.CreateTag(ctx, &models.CreateTagRequest{Name: " Go "}); err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.CreateAnnouncement(ctx, "a@x.com", &models.CreateAnnouncementRequest{Title: "Hi", Description: "d"}); err != nil {
		t.Fatal(err)
	}

	stats, err := NewAdminService(e).Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := models.DashboardStats{Users: 2, Tags: 1, Announcements: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	tags, _ := catalog.Tags(ctx)
	if len(tags) != 1 || tags[0].Name != "go" {
		t.Errorf("tags = %+v", tags)
	}
	anns, _ := catalog.Announcements(ctx)
	if len(anns) != 1 || anns[0].AuthorName != "Ann" {
		t.Errorf("announcements = %+v", anns)
	}
}

type fakeProvider struct {
	cents    int64
	currency string
	err      error
}

func (f *fakeProvider) CreateIntent(_ context.Context, cents int64, currency, _ string) (string, error) {
	f.cents, f.currency = cents, currency
	if f.err != nil {
		return "", f.err
	}
	return "pi_secret", nil
}

func TestCreatePaymentIntent(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc := NewPaymentService(newEngine(t), provider, "usd")

	resp, err := svc.CreateIntent(ctx, "a@x.com", &models.CreatePaymentIntentRequest{Price: 19.99})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ClientSecret != "pi_secret" || provider.cents != 1999 || provider.currency != "usd" {
		t.Errorf("intent = %+v, cents %d", resp, provider.cents)
	}

	if _, err := svc.CreateIntent(ctx, "a@x.com", &models.CreatePaymentIntentRequest{Price: 0.001}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("sub-cent price error = %v", err)
	}

	provider.err = core.Unavailable(errors.New("timeout"))
	if _, err := svc.CreateIntent(ctx, "a@x.com", &models.CreatePaymentIntentRequest{Price: 5}); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Errorf("provider failure error = %v", err)
	}
}

type fakeIDTokens map[string]string

func (f fakeIDTokens) VerifyIDToken(_ context.Context, tok string) (string, error) {
	if email, ok := f[tok]; ok {
		return email, nil
	}
	return "", core.ErrUnauthenticated
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	tokens := access.NewJWTManager(config.AuthConfig{JWTSecret: "s", JWTExpiration: time.Hour})

	strict := NewAuthService(tokens, fakeIDTokens{"good": "a@x.com"}, false)
	s, err := strict.Login(ctx, &models.LoginRequest{IDToken: "good"})
	if err != nil {
		t.Fatal(err)
	}
	id, err := tokens.Verify(ctx, s.Token)
	if err != nil || id.Email != "a@x.com" {
		t.Errorf("issued token decodes to %+v, %v", id, err)
	}
	if _, err := strict.Login(ctx, &models.LoginRequest{IDToken: "bad"}); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("bad id token error = %v", err)
	}
	if _, err := strict.Login(ctx, &models.LoginRequest{Email: "a@x.com"}); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("unverified login should be refused, got %v", err)
	}

	dev := NewAuthService(tokens, nil, true)
	s, err = dev.Login(ctx, &models.LoginRequest{Email: "Dev@X.com"})
	if err != nil || s.Email != "dev@x.com" {
		t.Errorf("dev login = %+v, %v", s, err)
	}
	if _, err := dev.Login(ctx, &models.LoginRequest{IDToken: "x"}); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("id token without provider error = %v", err)
	}
}
