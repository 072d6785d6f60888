package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"airfeeld/internal/config"
	"airfeeld/internal/domain"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

// recordingAudit captures audit events for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, action domain.AuditAction, actor domain.ActorType, actorDigest, targetDigest, ipDigest, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, domain.NewAuditEntry(action, actor, actorDigest, targetDigest, ipDigest, detail))
}

func (a *recordingAudit) actions() []domain.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditAction, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

// fakeRateWindowStore mirrors the single-statement upsert semantics of the
// real store: reset-or-increment under one lock.
type fakeRateWindowStore struct {
	mu      sync.Mutex
	windows map[string]*domain.RateWindow
}

func newFakeRateWindowStore() *fakeRateWindowStore {
	return &fakeRateWindowStore{windows: make(map[string]*domain.RateWindow)}
}

func (s *fakeRateWindowStore) Consume(_ context.Context, ipDigest, endpoint string, windowSeconds int, now time.Time) (*domain.RateWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ipDigest + "|" + endpoint
	w, ok := s.windows[key]
	if !ok || w.IsExpired(now) {
		w = &domain.RateWindow{
			IPDigest:      ipDigest,
			Endpoint:      endpoint,
			RequestCount:  1,
			WindowStart:   now,
			WindowSeconds: windowSeconds,
		}
		s.windows[key] = w
	} else {
		w.RequestCount++
	}

	copied := *w
	return &copied, nil
}

func (s *fakeRateWindowStore) Get(_ context.Context, ipDigest, endpoint string) (*domain.RateWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[ipDigest+"|"+endpoint]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (s *fakeRateWindowStore) DeleteExpiredBefore(_ context.Context, now time.Time, graceSeconds int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, w := range s.windows {
		if w.WindowEnd().Add(time.Duration(graceSeconds) * time.Second).Before(now) {
			delete(s.windows, key)
			deleted++
		}
	}
	return deleted, nil
}

// fakeChallengeStore keeps challenges in memory with the same
// compare-and-swap consume rule as the real store.
type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*domain.Challenge
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{challenges: make(map[uuid.UUID]*domain.Challenge)}
}

func (s *fakeChallengeStore) Create(_ context.Context, c *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.challenges[c.ID] = &copied
	return nil
}

func (s *fakeChallengeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *fakeChallengeStore) MarkSolved(_ context.Context, id uuid.UUID, solutionNonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok || c.SolvedNonce != nil {
		return false, nil
	}
	now := time.Now().UTC()
	c.SolvedNonce = &solutionNonce
	c.SolvedAt = &now
	return true, nil
}

func (s *fakeChallengeStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, c := range s.challenges {
		if c.ExpiresAt.Before(cutoff) {
			delete(s.challenges, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakePhotoStore keeps photos in memory.
type fakePhotoStore struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*domain.Photo
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{photos: make(map[uuid.UUID]*domain.Photo)}
}

func (s *fakePhotoStore) Create(_ context.Context, p *domain.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *p
	s.photos[p.ID] = &copied
	return nil
}

func (s *fakePhotoStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *fakePhotoStore) RandomApproved(_ context.Context, exclude []uuid.UUID) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, p := range s.photos {
		if p.Status == domain.PhotoApproved && !excluded[p.ID] {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakePhotoStore) Fingerprints(_ context.Context) ([]domain.PhotoFingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fps []domain.PhotoFingerprint
	for _, p := range s.photos {
		if p.Status != domain.PhotoRejected {
			fps = append(fps, domain.PhotoFingerprint{
				PhotoID:        p.ID,
				FileDigest:     p.FileDigest,
				PerceptualHash: p.PerceptualHash,
			})
		}
	}
	return fps, nil
}

func (s *fakePhotoStore) ExistsByFileDigest(_ context.Context, fileDigest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.FileDigest == fileDigest && p.Status != domain.PhotoRejected {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePhotoStore) SetStatus(_ context.Context, id uuid.UUID, status domain.PhotoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.photos[id]; ok {
		p.Status = status
	}
	return nil
}

func (s *fakePhotoStore) RecordUsage(_ context.Context, id uuid.UUID, roundScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.photos[id]; ok {
		p.TimesUsed++
		p.ScoreSum += roundScore
	}
	return nil
}

func (s *fakePhotoStore) AddFlag(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return 0, nil
	}
	p.FlagCount++
	return p.FlagCount, nil
}

func (s *fakePhotoStore) CountApproved(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.photos {
		if p.Status == domain.PhotoApproved {
			count++
		}
	}
	return count, nil
}

// fakeRoundStore keeps rounds and guesses in memory.
type fakeRoundStore struct {
	mu      sync.Mutex
	rounds  map[uuid.UUID]*domain.Round
	guesses map[uuid.UUID][]*domain.Guess
}

func newFakeRoundStore() *fakeRoundStore {
	return &fakeRoundStore{
		rounds:  make(map[uuid.UUID]*domain.Round),
		guesses: make(map[uuid.UUID][]*domain.Guess),
	}
}

func (s *fakeRoundStore) Create(_ context.Context, r *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.rounds[r.ID] = &copied
	return nil
}

func (s *fakeRoundStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeRoundStore) Update(_ context.Context, r *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.rounds[r.ID] = &copied
	return nil
}

func (s *fakeRoundStore) RecentPhotoIDs(_ context.Context, playerID uuid.UUID, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, r := range s.rounds {
		if r.PlayerID == playerID && len(ids) < limit {
			ids = append(ids, r.PhotoID)
		}
	}
	return ids, nil
}

func (s *fakeRoundStore) ListByPlayer(_ context.Context, playerID uuid.UUID, limit int) ([]*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Round
	for _, r := range s.rounds {
		if r.PlayerID == playerID && len(out) < limit {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeRoundStore) AddGuess(_ context.Context, g *domain.Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *g
	s.guesses[g.RoundID] = append(s.guesses[g.RoundID], &copied)
	return nil
}

func (s *fakeRoundStore) ListGuesses(_ context.Context, roundID uuid.UUID) ([]*domain.Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Guess(nil), s.guesses[roundID]...), nil
}

func (s *fakeRoundStore) SweepStaleActive(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept int64
	for _, r := range s.rounds {
		if r.Status == domain.RoundActive && now.After(r.ExpiresAt) {
			r.Status = domain.RoundAbandoned
			completed := now
			r.CompletedAt = &completed
			swept++
		}
	}
	return swept, nil
}

// fakePlayerStore keeps player accounts in memory.
type fakePlayerStore struct {
	mu      sync.Mutex
	players map[uuid.UUID]*domain.Player
}

func newFakePlayerStore() *fakePlayerStore {
	return &fakePlayerStore{players: make(map[uuid.UUID]*domain.Player)}
}

func (s *fakePlayerStore) Create(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *p
	s.players[p.ID] = &copied
	return nil
}

func (s *fakePlayerStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *fakePlayerStore) GetByUsername(_ context.Context, username string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if strings.EqualFold(p.Username, username) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakePlayerStore) AddScore(_ context.Context, id uuid.UUID, scoreDelta, roundsDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.TotalScore += scoreDelta
		p.RoundsPlayed += roundsDelta
	}
	return nil
}

func (s *fakePlayerStore) IncrementPhotosUploaded(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.PhotosUploaded++
	}
	return nil
}

func (s *fakePlayerStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *fakePlayerStore) TopByScore(_ context.Context, limit int) ([]*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Player
	for _, p := range s.players {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeAirportStore serves a small fixed airport set.
type fakeAirportStore struct {
	airports map[string]*domain.Airport
}

func newFakeAirportStore(airports ...*domain.Airport) *fakeAirportStore {
	s := &fakeAirportStore{airports: make(map[string]*domain.Airport)}
	for _, a := range airports {
		s.airports[a.Code] = a
	}
	return s
}

func (s *fakeAirportStore) GetByCode(_ context.Context, code string) (*domain.Airport, error) {
	a, ok := s.airports[strings.ToUpper(code)]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (s *fakeAirportStore) Search(_ context.Context, query string, limit int) ([]*domain.Airport, error) {
	var out []*domain.Airport
	for _, a := range s.airports {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(a.Code+a.Name+a.City), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, nil
}

// allowAllLimiter satisfies EndpointLimiter without enforcing anything.
type allowAllLimiter struct{}

func (allowAllLimiter) CheckAndConsume(context.Context, string, string) (*RateLimitResult, error) {
	return &RateLimitResult{Limit: 1, Remaining: 1, ResetAt: time.Now().UTC()}, nil
}

// testConfig returns defaults suitable for service tests.
func testConfig() *config.Config {
	cfg, _ := config.Load()
	return cfg
}
