package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
	"github.com/tkaralis/go-restaurant-sync/internal/remote"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
)

// fakeRemote is a scriptable RemoteAPI. Zero-value methods succeed with the
// configured payloads; error fields force failures.
type fakeRemote struct {
	mu sync.Mutex

	restaurants []domain.Restaurant
	reviews     map[int][]domain.Review

	listErr   error
	submitErr error
	favErr    error

	// failReviewName makes SubmitReview fail for one specific review.
	failReviewName string

	// When set, SubmitReview/SetFavorite wait for the channel to close
	// before responding, holding a replay open mid-flight.
	submitGate chan struct{}
	favGate    chan struct{}

	listCalls   atomic.Int64
	submitCalls atomic.Int64
	favCalls    atomic.Int64

	submitted []domain.Review
	favorites []domain.PendingFavorite
}

func (f *fakeRemote) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Restaurant, len(f.restaurants))
	copy(out, f.restaurants)
	return out, nil
}

func (f *fakeRemote) ListReviews(ctx context.Context, restaurantID int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.reviews[restaurantID], nil
}

func (f *fakeRemote) SubmitReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	f.submitCalls.Add(1)
	f.mu.Lock()
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return domain.Review{}, f.submitErr
	}
	if f.failReviewName != "" && review.Name == f.failReviewName {
		return domain.Review{}, errors.New("simulated rejection")
	}
	review.ID = int64(len(f.submitted) + 1)
	f.submitted = append(f.submitted, review)
	return review, nil
}

func (f *fakeRemote) SetFavorite(ctx context.Context, restaurantID int, favorite bool) (domain.Restaurant, error) {
	f.favCalls.Add(1)
	f.mu.Lock()
	gate := f.favGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favErr != nil {
		return domain.Restaurant{}, f.favErr
	}
	f.favorites = append(f.favorites, domain.PendingFavorite{RestaurantID: restaurantID, IsFavorite: favorite})
	return domain.Restaurant{ID: restaurantID, IsFavorite: domain.Flag(favorite)}, nil
}

func newTestService(t *testing.T, api RemoteAPI, online func() bool) (*SyncService, *repo.Store) {
	t.Helper()
	store := repo.NewStore(filepath.Join(t.TempDir(), "sync.db"), false)
	t.Cleanup(func() { _ = store.Close() })
	queue := NewOfflineQueue(store, zerolog.Nop())
	return NewSyncService(store, api, queue, online, zerolog.Nop()), store
}

func alwaysOnline() bool  { return true }
func alwaysOffline() bool { return false }

func fixtureRestaurants() []domain.Restaurant {
	return []domain.Restaurant{
		{ID: 1, Name: "Mission Chinese Food", Neighborhood: "Manhattan", CuisineType: "Asian"},
		{ID: 2, Name: "Emily", Neighborhood: "Brooklyn", CuisineType: "Pizza"},
		{ID: 3, Name: "Kang Ho Dong Baekjeong", Neighborhood: "Manhattan", CuisineType: "Asian"},
		{ID: 4, Name: "Katz's Delicatessen", Neighborhood: "Manhattan", CuisineType: "American"},
		{ID: 5, Name: "Casa Enrique", Neighborhood: "Queens", CuisineType: "Mexican"},
	}
}

func TestRestaurantsCacheMissFetchesAndPersists(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, store := newTestService(t, api, alwaysOnline)

	got, err := svc.Restaurants(context.Background())
	if err != nil {
		t.Fatalf("Restaurants: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d restaurants, want 5", len(got))
	}
	if n := api.listCalls.Load(); n != 1 {
		t.Fatalf("remote called %d times, want 1", n)
	}

	db, err := store.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	cached, err := repo.ListRestaurants(context.Background(), db)
	if err != nil {
		t.Fatalf("ListRestaurants: %v", err)
	}
	if len(cached) != 5 {
		t.Fatalf("replica holds %d restaurants, want 5", len(cached))
	}
}

func TestRestaurantsCacheHitSurvivesRemoteOutage(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, _ := newTestService(t, api, alwaysOnline)

	if _, err := svc.Restaurants(context.Background()); err != nil {
		t.Fatalf("warm-up read: %v", err)
	}
	svc.WaitRefresh()

	// Kill the network; the populated replica must still serve reads.
	api.mu.Lock()
	api.listErr = remote.ErrNetwork
	api.mu.Unlock()

	got, err := svc.Restaurants(context.Background())
	if err != nil {
		t.Fatalf("cached read during outage: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d restaurants, want 5 from replica", len(got))
	}
	svc.WaitRefresh()
}

func TestRestaurantsStaleWhileRevalidate(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, store := newTestService(t, api, alwaysOnline)

	// Seed the replica with an older snapshot directly.
	db, err := store.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	stale := []domain.Restaurant{{ID: 1, Name: "Old Name", Neighborhood: "Manhattan", CuisineType: "Asian"}}
	if err := repo.UpsertRestaurants(context.Background(), db, stale); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.Restaurants(context.Background())
	if err != nil {
		t.Fatalf("Restaurants: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Old Name" {
		t.Fatalf("first read should serve the stale snapshot, got %+v", got)
	}

	svc.WaitRefresh()

	refreshed, err := svc.Restaurants(context.Background())
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(refreshed) != 5 {
		t.Fatalf("after revalidation got %d restaurants, want 5", len(refreshed))
	}
	for _, r := range refreshed {
		if r.ID == 1 && r.Name != "Mission Chinese Food" {
			t.Fatalf("restaurant 1 not refreshed: %q", r.Name)
		}
	}
	svc.WaitRefresh()
}

func TestRestaurantByIDNotFound(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, _ := newTestService(t, api, alwaysOnline)

	if _, err := svc.RestaurantByID(context.Background(), 1); err != nil {
		t.Fatalf("existing id: %v", err)
	}
	_, err := svc.RestaurantByID(context.Background(), 99)
	if !errors.Is(err, ErrRestaurantNotFound) {
		t.Fatalf("err = %v, want ErrRestaurantNotFound", err)
	}
	svc.WaitRefresh()
}

func TestFilters(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, _ := newTestService(t, api, alwaysOnline)
	ctx := context.Background()

	asian, err := svc.ByCuisine(ctx, "Asian")
	if err != nil {
		t.Fatalf("ByCuisine: %v", err)
	}
	if len(asian) != 2 {
		t.Fatalf("Asian: got %d, want 2", len(asian))
	}

	all, err := svc.ByCuisineAndNeighborhood(ctx, Wildcard, Wildcard)
	if err != nil {
		t.Fatalf("wildcard filter: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("all/all: got %d, want 5", len(all))
	}

	both, err := svc.ByCuisineAndNeighborhood(ctx, "Asian", "Manhattan")
	if err != nil {
		t.Fatalf("combined filter: %v", err)
	}
	if len(both) != 2 {
		t.Fatalf("Asian+Manhattan: got %d, want 2", len(both))
	}

	none, err := svc.ByCuisineAndNeighborhood(ctx, "Pizza", "Queens")
	if err != nil {
		t.Fatalf("empty filter: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("Pizza+Queens: got %d, want 0", len(none))
	}

	hoods, err := svc.Neighborhoods(ctx)
	if err != nil {
		t.Fatalf("Neighborhoods: %v", err)
	}
	want := []string{"Manhattan", "Brooklyn", "Queens"}
	if len(hoods) != len(want) {
		t.Fatalf("neighborhoods = %v, want %v", hoods, want)
	}
	for i := range want {
		if hoods[i] != want[i] {
			t.Fatalf("neighborhoods = %v, want %v (first-occurrence order)", hoods, want)
		}
	}

	cuisines, err := svc.Cuisines(ctx)
	if err != nil {
		t.Fatalf("Cuisines: %v", err)
	}
	if len(cuisines) != 4 || cuisines[0] != "Asian" {
		t.Fatalf("cuisines = %v, want 4 distinct starting with Asian", cuisines)
	}
	svc.WaitRefresh()
}

func TestAddReviewOnlineUsesServerCopy(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, _ := newTestService(t, api, alwaysOnline)

	res, err := svc.AddReview(context.Background(), domain.Review{
		RestaurantID: 1, Name: "Ana", Rating: 5, Comments: "great",
	})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if res.Pending {
		t.Fatal("online submission should not be pending")
	}
	if !res.Attempted {
		t.Fatal("online submission should be attempted")
	}
	if res.Review.ID == 0 {
		t.Fatal("server-assigned id missing from result")
	}
	if res.Review.CreatedAt == 0 {
		t.Fatal("createdAt should default to submission time")
	}

	pending, err := svc.Queue().PendingReviews(context.Background())
	if err != nil {
		t.Fatalf("PendingReviews: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("queue has %d entries after online success, want 0", len(pending))
	}
}

func TestAddReviewOfflineQueuesOptimistically(t *testing.T) {
	api := &fakeRemote{}
	svc, store := newTestService(t, api, alwaysOffline)

	res, err := svc.AddReview(context.Background(), domain.Review{
		RestaurantID: 2, Name: "Bob", Rating: 4, Comments: "solid",
	})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if !res.Pending {
		t.Fatal("offline submission should be pending")
	}
	if res.Attempted {
		t.Fatal("offline submission should skip the network")
	}
	if n := api.submitCalls.Load(); n != 0 {
		t.Fatalf("remote called %d times while offline, want 0", n)
	}

	// The review is durably queued and visible in the local replica.
	pending, err := svc.Queue().PendingReviews(context.Background())
	if err != nil {
		t.Fatalf("PendingReviews: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "Bob" {
		t.Fatalf("queue = %+v, want the offline review", pending)
	}

	db, err := store.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	local, err := repo.GetReviews(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("GetReviews: %v", err)
	}
	if len(local) != 1 || local[0].Name != "Bob" {
		t.Fatalf("replica reviews = %+v, want the optimistic copy", local)
	}
}

func TestAddReviewNetworkFailureFallsBackToQueue(t *testing.T) {
	api := &fakeRemote{submitErr: remote.ErrNetwork}
	svc, _ := newTestService(t, api, alwaysOnline)

	res, err := svc.AddReview(context.Background(), domain.Review{
		RestaurantID: 3, Name: "Cara", Rating: 3, Comments: "ok",
	})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if !res.Pending || !res.Attempted {
		t.Fatalf("result = %+v, want pending after a failed attempt", res)
	}
}

func TestAddReviewRejectsInvalid(t *testing.T) {
	api := &fakeRemote{}
	svc, _ := newTestService(t, api, alwaysOnline)

	_, err := svc.AddReview(context.Background(), domain.Review{RestaurantID: 1, Name: "Dee", Rating: 9})
	if !errors.Is(err, ErrInvalidReview) {
		t.Fatalf("err = %v, want ErrInvalidReview", err)
	}
	if n := api.submitCalls.Load(); n != 0 {
		t.Fatalf("invalid review reached the remote (%d calls)", n)
	}
}

func TestSetFavoriteOfflineLastWriteWins(t *testing.T) {
	api := &fakeRemote{}
	svc, _ := newTestService(t, api, alwaysOffline)
	ctx := context.Background()

	if _, err := svc.SetFavorite(ctx, 7, true); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if _, err := svc.SetFavorite(ctx, 7, false); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if _, err := svc.SetFavorite(ctx, 9, true); err != nil {
		t.Fatalf("other restaurant: %v", err)
	}

	pending, err := svc.Queue().PendingFavorites(ctx)
	if err != nil {
		t.Fatalf("PendingFavorites: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("queue holds %d entries, want 2 (one per restaurant)", len(pending))
	}
	for _, p := range pending {
		if p.RestaurantID == 7 && p.IsFavorite {
			t.Fatal("restaurant 7 should carry the latest value (false)")
		}
	}
}

func TestSetFavoriteOnlinePersistsServerRow(t *testing.T) {
	api := &fakeRemote{restaurants: fixtureRestaurants()}
	svc, store := newTestService(t, api, alwaysOnline)
	ctx := context.Background()

	if _, err := svc.Restaurants(ctx); err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	svc.WaitRefresh()

	res, err := svc.SetFavorite(ctx, 2, true)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if res.Pending {
		t.Fatal("online favorite should not be pending")
	}

	db, err := store.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	r, err := repo.GetRestaurant(ctx, db, 2)
	if err != nil {
		t.Fatalf("GetRestaurant: %v", err)
	}
	if !bool(r.IsFavorite) {
		t.Fatal("favorite flag not persisted to the replica")
	}
}
