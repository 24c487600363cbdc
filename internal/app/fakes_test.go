package app_test

import (
	"context"
	"io"
	"sort"
	"time"

	"obligation_engine/internal/domain/catalog"
	"obligation_engine/internal/domain/client"
	"obligation_engine/internal/domain/monthly"
	idb "obligation_engine/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// In-memory repository fakes. They return the same sentinel errors as the
// Postgres implementations and hand out copies, so a service mutating a
// loaded record cannot corrupt the "stored" state behind its back.

var (
	_ catalog.Repository = (*fakeCatalog)(nil)
	_ client.Repository  = (*fakeClients)(nil)
	_ monthly.Repository = (*fakeMonthly)(nil)
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// --- catalog ---

type fakeCatalog struct {
	types    []*catalog.ObligationType
	groups   []*catalog.Group
	profiles []*catalog.Profile
	members  map[int64][]int64 // profile id -> member type ids
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{members: make(map[int64][]int64)}
}

func (f *fakeCatalog) addType(t *catalog.ObligationType) *catalog.ObligationType {
	f.types = append(f.types, t)
	return t
}

func (f *fakeCatalog) addGroup(g *catalog.Group) *catalog.Group {
	f.groups = append(f.groups, g)
	return g
}

func (f *fakeCatalog) addProfile(p *catalog.Profile, memberTypeIDs ...int64) *catalog.Profile {
	f.profiles = append(f.profiles, p)
	f.members[p.ID] = memberTypeIDs
	return p
}

func (f *fakeCatalog) CreateType(_ context.Context, t *catalog.ObligationType) error {
	for _, existing := range f.types {
		if existing.Code == t.Code || existing.Name == t.Name {
			return idb.ErrDuplicateType
		}
	}
	t.ID = int64(len(f.types) + 1)
	f.types = append(f.types, t)
	return nil
}

func (f *fakeCatalog) GetTypeByID(_ context.Context, id int64) (*catalog.ObligationType, error) {
	for _, t := range f.types {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, idb.ErrObligationTypeNotFound
}

func (f *fakeCatalog) GetTypeByCode(_ context.Context, code string) (*catalog.ObligationType, error) {
	for _, t := range f.types {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, idb.ErrObligationTypeNotFound
}

func (f *fakeCatalog) UpdateType(_ context.Context, t *catalog.ObligationType) error {
	for i, existing := range f.types {
		if existing.ID == t.ID {
			f.types[i] = t
			return nil
		}
	}
	return idb.ErrObligationTypeNotFound
}

func (f *fakeCatalog) ListActiveTypes(_ context.Context) ([]*catalog.ObligationType, error) {
	active := make([]*catalog.ObligationType, 0, len(f.types))
	for _, t := range f.types {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (f *fakeCatalog) ListAllTypes(_ context.Context) ([]*catalog.ObligationType, error) {
	return append([]*catalog.ObligationType(nil), f.types...), nil
}

func (f *fakeCatalog) CreateGroup(_ context.Context, g *catalog.Group) error {
	for _, existing := range f.groups {
		if existing.Name == g.Name {
			return idb.ErrDuplicateGroup
		}
	}
	g.ID = int64(len(f.groups) + 1)
	f.groups = append(f.groups, g)
	return nil
}

func (f *fakeCatalog) GetGroupByID(_ context.Context, id int64) (*catalog.Group, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, idb.ErrGroupNotFound
}

func (f *fakeCatalog) ListGroups(_ context.Context) ([]*catalog.Group, error) {
	return append([]*catalog.Group(nil), f.groups...), nil
}

func (f *fakeCatalog) CreateProfile(_ context.Context, p *catalog.Profile) error {
	for _, existing := range f.profiles {
		if existing.Name == p.Name {
			return idb.ErrDuplicateProfile
		}
	}
	p.ID = int64(len(f.profiles) + 1)
	f.profiles = append(f.profiles, p)
	return nil
}

func (f *fakeCatalog) GetProfileByID(_ context.Context, id int64) (*catalog.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, idb.ErrProfileNotFound
}

func (f *fakeCatalog) ListProfiles(_ context.Context) ([]*catalog.Profile, error) {
	return append([]*catalog.Profile(nil), f.profiles...), nil
}

func (f *fakeCatalog) SetProfileTypes(_ context.Context, profileID int64, typeIDs []int64) error {
	f.members[profileID] = append([]int64(nil), typeIDs...)
	return nil
}

func (f *fakeCatalog) ProfileTypeIDs(_ context.Context, profileIDs []int64) (map[int64][]int64, error) {
	members := make(map[int64][]int64, len(profileIDs))
	for _, id := range profileIDs {
		if ids, ok := f.members[id]; ok {
			members[id] = append([]int64(nil), ids...)
		}
	}
	return members, nil
}

// --- clients ---

type fakeClients struct {
	clients      map[int64]*client.Client
	records      map[int64]*client.ClientObligation // keyed by client id
	nextRecordID int64
}

func newFakeClients() *fakeClients {
	return &fakeClients{
		clients: make(map[int64]*client.Client),
		records: make(map[int64]*client.ClientObligation),
	}
}

func (f *fakeClients) put(c *client.Client) {
	f.clients[c.ID] = c
}

func (f *fakeClients) putRecord(co *client.ClientObligation) {
	if co.ID == 0 {
		f.nextRecordID++
		co.ID = f.nextRecordID
	}
	f.records[co.ClientID] = cloneRecord(co)
}

func cloneRecord(co *client.ClientObligation) *client.ClientObligation {
	cp := *co
	cp.TypeIDs = append([]int64(nil), co.TypeIDs...)
	cp.ProfileIDs = append([]int64(nil), co.ProfileIDs...)
	return &cp
}

func (f *fakeClients) CreateClient(_ context.Context, c *client.Client) error {
	c.ID = int64(len(f.clients) + 1)
	f.clients[c.ID] = c
	return nil
}

func (f *fakeClients) GetClientByID(_ context.Context, id int64) (*client.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, idb.ErrClientNotFound
	}
	return c, nil
}

func (f *fakeClients) UpdateClient(_ context.Context, c *client.Client) error {
	if _, ok := f.clients[c.ID]; !ok {
		return idb.ErrClientNotFound
	}
	f.clients[c.ID] = c
	return nil
}

func (f *fakeClients) ListActiveClients(_ context.Context) ([]*client.Client, error) {
	return f.listClients(true), nil
}

func (f *fakeClients) ListAllClients(_ context.Context) ([]*client.Client, error) {
	return f.listClients(false), nil
}

func (f *fakeClients) listClients(activeOnly bool) []*client.Client {
	clients := make([]*client.Client, 0, len(f.clients))
	for _, c := range f.clients {
		if activeOnly && !c.IsActive {
			continue
		}
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients
}

func (f *fakeClients) CreateObligation(_ context.Context, co *client.ClientObligation) error {
	if _, ok := f.records[co.ClientID]; ok {
		return idb.ErrDuplicateClientObligation
	}
	f.nextRecordID++
	co.ID = f.nextRecordID
	co.CreatedAt = time.Now()
	co.UpdatedAt = co.CreatedAt
	f.records[co.ClientID] = cloneRecord(co)
	return nil
}

func (f *fakeClients) GetObligationByClientID(_ context.Context, clientID int64) (*client.ClientObligation, error) {
	co, ok := f.records[clientID]
	if !ok {
		return nil, idb.ErrClientObligationNotFound
	}
	return cloneRecord(co), nil
}

func (f *fakeClients) UpdateObligation(_ context.Context, co *client.ClientObligation) error {
	stored, ok := f.records[co.ClientID]
	if !ok || stored.ID != co.ID {
		return idb.ErrClientObligationNotFound
	}
	co.UpdatedAt = time.Now()
	f.records[co.ClientID] = cloneRecord(co)
	return nil
}

func (f *fakeClients) ListActiveObligations(_ context.Context) ([]*client.ClientObligation, error) {
	return f.listActive(nil), nil
}

func (f *fakeClients) ListActiveObligationsByClientIDs(_ context.Context, clientIDs []int64) ([]*client.ClientObligation, error) {
	wanted := make(map[int64]bool, len(clientIDs))
	for _, id := range clientIDs {
		wanted[id] = true
	}
	return f.listActive(wanted), nil
}

func (f *fakeClients) listActive(wanted map[int64]bool) []*client.ClientObligation {
	records := make([]*client.ClientObligation, 0, len(f.records))
	for clientID, co := range f.records {
		if wanted != nil && !wanted[clientID] {
			continue
		}
		owner, ok := f.clients[clientID]
		if !ok || !owner.IsActive || !co.IsActive {
			continue
		}
		records = append(records, cloneRecord(co))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ClientID < records[j].ClientID })
	return records
}

// --- monthly obligations ---

type monthlyState struct {
	rows      map[int64]*monthly.Obligation
	nextID    int64
	createErr map[monthly.Key]error // injected per-key failures
}

func (st *monthlyState) clone() *monthlyState {
	cp := &monthlyState{
		rows:      make(map[int64]*monthly.Obligation, len(st.rows)),
		nextID:    st.nextID,
		createErr: st.createErr,
	}
	for id, o := range st.rows {
		cp.rows[id] = cloneObligation(o)
	}
	return cp
}

func cloneObligation(o *monthly.Obligation) *monthly.Obligation {
	cp := *o
	return &cp
}

type fakeMonthlyStore struct {
	st *monthlyState
}

type fakeMonthly struct {
	fakeMonthlyStore
}

func newFakeMonthly() *fakeMonthly {
	return &fakeMonthly{fakeMonthlyStore{st: &monthlyState{
		rows:      make(map[int64]*monthly.Obligation),
		createErr: make(map[monthly.Key]error),
	}}}
}

// put seeds a row directly, bypassing the uniqueness check the way legacy
// imports did before the constraint existed. An explicit ID is kept.
func (f *fakeMonthly) put(o *monthly.Obligation) *monthly.Obligation {
	if o.ID == 0 {
		f.st.nextID++
		o.ID = f.st.nextID
	} else if o.ID > f.st.nextID {
		f.st.nextID = o.ID
	}
	f.st.rows[o.ID] = cloneObligation(o)
	return o
}

func (f *fakeMonthly) failCreate(key monthly.Key, err error) {
	f.st.createErr[key] = err
}

func (f *fakeMonthly) Begin(_ context.Context) (monthly.Tx, error) {
	return &fakeMonthlyTx{
		fakeMonthlyStore: fakeMonthlyStore{st: f.st.clone()},
		parent:           f,
	}, nil
}

func (s fakeMonthlyStore) Create(_ context.Context, o *monthly.Obligation) error {
	if err, ok := s.st.createErr[o.Key()]; ok {
		return err
	}
	for _, existing := range s.st.rows {
		if existing.Key() == o.Key() {
			return idb.ErrDuplicateObligation
		}
	}
	s.st.nextID++
	o.ID = s.st.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	s.st.rows[o.ID] = cloneObligation(o)
	return nil
}

func (s fakeMonthlyStore) GetByID(_ context.Context, id int64) (*monthly.Obligation, error) {
	o, ok := s.st.rows[id]
	if !ok {
		return nil, idb.ErrMonthlyObligationNotFound
	}
	return cloneObligation(o), nil
}

func (s fakeMonthlyStore) GetByKey(_ context.Context, key monthly.Key) (*monthly.Obligation, error) {
	for _, o := range s.st.rows {
		if o.Key() == key {
			return cloneObligation(o), nil
		}
	}
	return nil, idb.ErrMonthlyObligationNotFound
}

func (s fakeMonthlyStore) Update(_ context.Context, o *monthly.Obligation) error {
	if _, ok := s.st.rows[o.ID]; !ok {
		return idb.ErrMonthlyObligationNotFound
	}
	o.UpdatedAt = time.Now()
	s.st.rows[o.ID] = cloneObligation(o)
	return nil
}

func (s fakeMonthlyStore) DeleteByKey(_ context.Context, key monthly.Key) (int64, error) {
	var deleted int64
	for id, o := range s.st.rows {
		if o.Key() == key {
			delete(s.st.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s fakeMonthlyStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := s.st.rows[id]; ok {
			delete(s.st.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s fakeMonthlyStore) ListByPeriod(_ context.Context, year int, month time.Month) ([]*monthly.Obligation, error) {
	rows := s.collect(func(o *monthly.Obligation) bool { return o.Year == year && o.Month == month })
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClientID != rows[j].ClientID {
			return rows[i].ClientID < rows[j].ClientID
		}
		return rows[i].TypeID < rows[j].TypeID
	})
	return rows, nil
}

func (s fakeMonthlyStore) ListByClient(_ context.Context, clientID int64) ([]*monthly.Obligation, error) {
	rows := s.collect(func(o *monthly.Obligation) bool { return o.ClientID == clientID })
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].TypeID < rows[j].TypeID
	})
	return rows, nil
}

func (s fakeMonthlyStore) ListDuplicates(_ context.Context) ([]*monthly.Obligation, error) {
	counts := make(map[monthly.Key]int)
	for _, o := range s.st.rows {
		counts[o.Key()]++
	}
	rows := s.collect(func(o *monthly.Obligation) bool { return counts[o.Key()] > 1 })
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (s fakeMonthlyStore) MarkOverdue(_ context.Context, today time.Time) (int64, error) {
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	var flagged int64
	for _, o := range s.st.rows {
		if o.Status == monthly.StatusPending && o.Deadline.Before(cutoff) {
			o.Status = monthly.StatusOverdue
			o.UpdatedAt = time.Now()
			flagged++
		}
	}
	return flagged, nil
}

func (s fakeMonthlyStore) CountAll(_ context.Context) (int64, error) {
	return int64(len(s.st.rows)), nil
}

func (s fakeMonthlyStore) collect(keep func(*monthly.Obligation) bool) []*monthly.Obligation {
	rows := make([]*monthly.Obligation, 0)
	for _, o := range s.st.rows {
		if keep(o) {
			rows = append(rows, cloneObligation(o))
		}
	}
	return rows
}

// fakeMonthlyTx works on a deep copy of the state; Commit swaps the copy in,
// Rollback simply discards it. That mirrors what the transactional dry run
// relies on.
type fakeMonthlyTx struct {
	fakeMonthlyStore
	parent *fakeMonthly
}

func (t *fakeMonthlyTx) Commit() error {
	t.parent.st = t.st
	return nil
}

func (t *fakeMonthlyTx) Rollback() error {
	return nil
}
