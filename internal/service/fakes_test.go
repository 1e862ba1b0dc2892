package service

import (
	"context"
	"crypto/ecdsa"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/signature"
	"github.com/time-economy/internal/storage"
	"github.com/time-economy/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[types.SocialID]*models.Profile
	err      error
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{profiles: make(map[types.SocialID]*models.Profile)}
}

func (m *memoryProfiles) GetBySocialID(_ context.Context, id types.SocialID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProfiles) BoundWallet(_ context.Context, id types.SocialID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok && p.WalletAddress != nil {
		return *p.WalletAddress, nil
	}
	return "", nil
}

func (m *memoryProfiles) Upsert(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.profiles[p.SocialID] = &cp
	return nil
}

func (m *memoryProfiles) Search(_ context.Context, term string) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	term = strings.ToLower(term)
	var out []*models.Profile
	for _, p := range m.profiles {
		if strings.Contains(strings.ToLower(p.DisplayName), term) ||
			strings.Contains(strings.ToLower(p.City), term) ||
			strings.Contains(strings.ToLower(p.Bio), term) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memoryNeeds struct {
	mu    sync.Mutex
	clock *fakeClock
	needs map[string]*models.Need
	err   error
}

func newMemoryNeeds(clock *fakeClock) *memoryNeeds {
	return &memoryNeeds{clock: clock, needs: make(map[string]*models.Need)}
}

func (m *memoryNeeds) List(_ context.Context) ([]*models.Need, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Need, 0, len(m.needs))
	for _, n := range m.needs {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryNeeds) GetByID(_ context.Context, id string) (*models.Need, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	n, ok := m.needs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return n, nil
}

func (m *memoryNeeds) count(id types.SocialID, since time.Time) (int, time.Time) {
	count := 0
	var oldest time.Time
	for _, n := range m.needs {
		if n.SocialID == id && n.CreatedAt.After(since) {
			count++
			if oldest.IsZero() || n.CreatedAt.Before(oldest) {
				oldest = n.CreatedAt
			}
		}
	}
	return count, oldest
}

func (m *memoryNeeds) CountCreatedSince(_ context.Context, id types.SocialID, since time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, time.Time{}, m.err
	}
	count, oldest := m.count(id, since)
	return count, oldest, nil
}

func (m *memoryNeeds) CreateWithinLimit(_ context.Context, n *models.Need, since time.Time, maxCount int) (bool, int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, 0, time.Time{}, m.err
	}
	count, oldest := m.count(n.SocialID, since)
	if count >= maxCount {
		return false, count, oldest, nil
	}
	n.CreatedAt = m.clock.Now()
	cp := *n
	m.needs[n.ID] = &cp
	return true, count + 1, oldest, nil
}

func (m *memoryNeeds) Delete(_ context.Context, id string, socialID types.SocialID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	n, ok := m.needs[id]
	if !ok || n.SocialID != socialID {
		return false, nil
	}
	delete(m.needs, id)
	return true, nil
}

// signer is a test wallet that produces signed messages for an identity.
type signer struct {
	key     *ecdsa.PrivateKey
	address string
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (s *signer) sign(t *testing.T, socialID types.SocialID) (message, sig string) {
	t.Helper()
	message = identity.BuildMessage("time-economy.test", socialID, s.address, "", time.Now().Add(time.Hour))
	sig, err := signature.Sign(message, s.key)
	require.NoError(t, err)
	return message, sig
}

func signMessage(t *testing.T, s *signer, message string) string {
	t.Helper()
	sig, err := signature.Sign(message, s.key)
	require.NoError(t, err)
	return sig
}

type fixture struct {
	clock    *fakeClock
	profiles *memoryProfiles
	needs    *memoryNeeds
	profile  *ProfileService
	need     *NeedService
	search   *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	profiles := newMemoryProfiles()
	needs := newMemoryNeeds(clock)

	resolver, err := identity.NewResolver(&identity.ResolverConfig{Profiles: profiles})
	require.NoError(t, err)

	return &fixture{
		clock:    clock,
		profiles: profiles,
		needs:    needs,
		profile:  NewProfileService(profiles, resolver),
		need: NewNeedService(&NeedServiceConfig{
			Store:    needs,
			Resolver: resolver,
			Now:      clock.Now,
		}),
		search: NewSearchService(profiles),
	}
}
