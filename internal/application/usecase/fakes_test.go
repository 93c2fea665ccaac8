package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
	sessiondom "ayyooya/internal/domain/session"
)

var errBoom = errors.New("boom")

// ---- local store ----

type memLocal struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet bool
	failDel bool
	sets    int
	deletes map[string]int
}

func newMemLocal() *memLocal {
	return &memLocal{data: map[string][]byte{}, deletes: map[string]int{}}
}

func (m *memLocal) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memLocal) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errBoom
	}
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memLocal) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errBoom
	}
	m.deletes[key]++
	delete(m.data, key)
	return nil
}

func (m *memLocal) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return string(v), ok
}

func (m *memLocal) deleteCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[key]
}

// ---- sessions ----

type staticSessions struct {
	mu        sync.Mutex
	s         sessiondom.Session
	listeners []func(sessiondom.Session)
}

func sessionsFor(s sessiondom.Session) *staticSessions { return &staticSessions{s: s} }

func adminSessions() *staticSessions {
	return sessionsFor(sessiondom.SignedIn("admin-1", "admin@shop.test", sessiondom.RoleAdmin))
}

func (f *staticSessions) Current() sessiondom.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *staticSessions) OnChange(cb func(sessiondom.Session)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, cb)
	f.mu.Unlock()
	return func() {}
}

func (f *staticSessions) set(s sessiondom.Session) {
	f.mu.Lock()
	f.s = s
	cbs := append([]func(sessiondom.Session){}, f.listeners...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

// ---- auth ----

type fakeAuth struct {
	mu      sync.Mutex
	seq     uint64
	current sessiondom.Session
	events  chan sessiondom.Event
	signIns int
	signUps []sessiondom.Credentials
	failIn  bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{current: sessiondom.Anonymous(), events: make(chan sessiondom.Event, 8)}
}

func (a *fakeAuth) next(kind sessiondom.EventKind, s sessiondom.Session) sessiondom.Event {
	a.seq++
	a.current = s
	return sessiondom.Event{Seq: a.seq, Kind: kind, Session: s}
}

func (a *fakeAuth) CurrentUser(context.Context) (sessiondom.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, nil
}

func (a *fakeAuth) SignIn(_ context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	if a.failIn {
		return sessiondom.Event{}, errBoom
	}
	return a.next(sessiondom.EventSignedIn, sessiondom.SignedIn("uid-"+c.Email, c.Email, "")), nil
}

func (a *fakeAuth) SignUp(_ context.Context, c sessiondom.Credentials) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signUps = append(a.signUps, c)
	return a.next(sessiondom.EventSignedIn, sessiondom.SignedIn("uid-"+c.Email, c.Email, sessiondom.RoleUser)), nil
}

func (a *fakeAuth) SignOut(context.Context) (sessiondom.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next(sessiondom.EventSignedOut, sessiondom.Anonymous()), nil
}

func (a *fakeAuth) Events() <-chan sessiondom.Event { return a.events }

// push emits an asynchronous event with an explicit sequence number.
func (a *fakeAuth) push(seq uint64, kind sessiondom.EventKind, s sessiondom.Session) {
	a.events <- sessiondom.Event{Seq: seq, Kind: kind, Session: s}
}

// ---- orders ----

type memOrders struct {
	mu       sync.Mutex
	byID     map[string]orderdom.Order
	lists    int
	failList bool
	failSave bool
	created  []orderdom.Order
}

func newMemOrders(xs ...orderdom.Order) *memOrders {
	m := &memOrders{byID: map[string]orderdom.Order{}}
	for _, o := range xs {
		m.byID[o.ID] = o
	}
	return m
}

func (m *memOrders) GetByID(_ context.Context, id string) (orderdom.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) List(_ context.Context, f orderdom.Filter) ([]orderdom.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.failList {
		return nil, errBoom
	}
	out := []orderdom.Order{}
	for _, o := range m.byID {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	orderdom.SortNewestFirst(out)
	return out, nil
}

func (m *memOrders) Create(_ context.Context, o orderdom.Order) (orderdom.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[o.ID]; dup {
		return orderdom.Order{}, orderdom.ErrConflict
	}
	m.byID[o.ID] = o
	m.created = append(m.created, o)
	return o, nil
}

func (m *memOrders) Save(_ context.Context, o orderdom.Order, from orderdom.Status) (orderdom.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return orderdom.Order{}, errBoom
	}
	cur, ok := m.byID[o.ID]
	if !ok {
		return orderdom.Order{}, orderdom.ErrNotFound
	}
	if orderdom.ParseStatus(string(cur.Status)) != from {
		return orderdom.Order{}, orderdom.ErrConflict
	}
	m.byID[o.ID] = o
	return o, nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return orderdom.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memOrders) put(o orderdom.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[o.ID] = o
}

func (m *memOrders) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

// ---- products ----

type memProducts struct {
	mu       sync.Mutex
	byID     map[string]productdom.Product
	failures map[string]int // remaining MarkSold failures per id
	calls    map[string]int
}

func newMemProducts(xs ...productdom.Product) *memProducts {
	m := &memProducts{
		byID:     map[string]productdom.Product{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
	for _, p := range xs {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) GetByID(_ context.Context, id string) (productdom.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) List(_ context.Context, f productdom.Filter) ([]productdom.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []productdom.Product{}
	for _, p := range m.byID {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p productdom.Product) (productdom.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProducts) Save(_ context.Context, p productdom.Product) (productdom.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return productdom.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memProducts) MarkSold(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
	if m.failures[id] > 0 {
		m.failures[id]--
		return errBoom
	}
	p, ok := m.byID[id]
	if !ok {
		return productdom.ErrNotFound
	}
	p.IsSold = true
	m.byID[id] = p
	return nil
}

func (m *memProducts) sold(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].IsSold
}

// ---- objects ----

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
	deleted []string
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) Put(_ context.Context, bucket, p, _ string, body io.Reader) error {
	if m.failPut {
		return errBoom
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+p] = b
	return nil
}

func (m *memObjects) Delete(_ context.Context, bucket, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+p)
	m.deleted = append(m.deleted, bucket+"/"+p)
	return nil
}

func (m *memObjects) PublicURL(bucket, p string) string {
	return "https://storage.test/" + bucket + "/" + p
}

// ---- order change feed ----

type chanFeed struct {
	mu   sync.Mutex
	subs map[string]chan orderdom.Change
	log  []string
}

func newChanFeed() *chanFeed { return &chanFeed{subs: map[string]chan orderdom.Change{}} }

func (f *chanFeed) Subscribe(ctx context.Context, userID string) (<-chan orderdom.Change, error) {
	ch := make(chan orderdom.Change, 16)
	f.mu.Lock()
	f.subs[userID] = ch
	f.log = append(f.log, userID)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.subs[userID] == ch {
			delete(f.subs, userID)
		}
		f.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (f *chanFeed) emit(userID string, c orderdom.Change) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.subs[userID]
	if !ok {
		return false
	}
	ch <- c
	return true
}

func (f *chanFeed) subscribed(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[userID]
	return ok
}

// ---- clock ----

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
