package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/shopspring/decimal"
)

// memDB backs every repository in handler tests.
type memDB struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	runs          map[uuid.UUID]*models.Run
	stages        map[uuid.UUID]*models.Stage
	guitars       map[uuid.UUID]*models.Guitar
	notes         []models.Note
	notifications map[string]*models.Notification
	profiles      map[uuid.UUID]*models.ClientProfile
	invoices      []models.Invoice
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[uuid.UUID]*models.User{},
		runs:          map[uuid.UUID]*models.Run{},
		stages:        map[uuid.UUID]*models.Stage{},
		guitars:       map[uuid.UUID]*models.Guitar{},
		notifications: map[string]*models.Notification{},
		profiles:      map[uuid.UUID]*models.ClientProfile{},
	}
}

type memUsers struct{ db *memDB }

func (r memUsers) Create(_ context.Context, email, displayName, hash string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: displayName, PasswordHash: hash, CreatedAt: time.Now()}
	r.db.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) SetRole(_ context.Context, id uuid.UUID, role string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if ok {
		u.Role = role
	}
	return ok, nil
}

func (r memUsers) ClaimRole(_ context.Context, id uuid.UUID, role string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok || u.Role != "" {
		return false, nil
	}
	u.Role = role
	return true, nil
}

func (r memUsers) SetDisplayName(_ context.Context, id uuid.UUID, name string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if ok {
		u.DisplayName = name
	}
	return ok, nil
}

type memRuns struct{ db *memDB }

func (r memRuns) Create(_ context.Context, name string, stageNames []string) (*models.Run, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	run := &models.Run{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.db.runs[run.ID] = run
	for i, n := range stageNames {
		st := &models.Stage{ID: uuid.New(), RunID: run.ID, Name: n, Order: i + 1}
		r.db.stages[st.ID] = st
	}
	cp := *run
	return &cp, nil
}

func (r memRuns) GetByID(_ context.Context, id uuid.UUID) (*models.Run, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	run, ok := r.db.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (r memRuns) List(context.Context) ([]models.Run, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Run, 0, len(r.db.runs))
	for _, run := range r.db.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (r memRuns) AddStage(ctx context.Context, runID uuid.UUID, name string) (*models.Stage, error) {
	existing, _ := r.ListStages(ctx, runID)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st := &models.Stage{ID: uuid.New(), RunID: runID, Name: name, Order: len(existing) + 1}
	r.db.stages[st.ID] = st
	cp := *st
	return &cp, nil
}

func (r memRuns) ListStages(_ context.Context, runID uuid.UUID) ([]models.Stage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Stage, 0)
	for _, st := range r.db.stages {
		if st.RunID == runID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r memRuns) GetStage(_ context.Context, id uuid.UUID) (*models.Stage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	st, ok := r.db.stages[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

type memGuitars struct{ db *memDB }

func (r memGuitars) Create(_ context.Context, g models.Guitar) (*models.Guitar, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	r.db.guitars[g.ID] = &g
	cp := g
	return &cp, nil
}

func (r memGuitars) GetByID(_ context.Context, id uuid.UUID) (*models.Guitar, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.guitars[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r memGuitars) list(keep func(*models.Guitar) bool) []models.Guitar {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Guitar, 0)
	for _, g := range r.db.guitars {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out
}

func (r memGuitars) ListByRun(_ context.Context, runID uuid.UUID) ([]models.Guitar, error) {
	return r.list(func(g *models.Guitar) bool { return g.RunID == runID }), nil
}

func (r memGuitars) ListByClient(_ context.Context, uid uuid.UUID) ([]models.Guitar, error) {
	return r.list(func(g *models.Guitar) bool { return g.ClientUID != nil && *g.ClientUID == uid }), nil
}

func (r memGuitars) MoveToStage(_ context.Context, id, stageID uuid.UUID) (*models.Guitar, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.guitars[id]
	if !ok {
		return nil, nil
	}
	g.StageID = &stageID
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

type memNotes struct{ db *memDB }

func (r memNotes) Create(_ context.Context, guitarID, author uuid.UUID, body string, visible bool) (*models.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := models.Note{ID: uuid.New(), GuitarID: guitarID, AuthorUID: author, Body: body, VisibleToClient: visible, CreatedAt: time.Now()}
	r.db.notes = append(r.db.notes, n)
	return &n, nil
}

func (r memNotes) ListByGuitar(_ context.Context, guitarID uuid.UUID) ([]models.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Note, 0)
	for _, n := range r.db.notes {
		if n.GuitarID == guitarID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNotes) ListClientVisible(context.Context) ([]models.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Note, 0)
	for _, n := range r.db.notes {
		if n.VisibleToClient {
			out = append(out, n)
		}
	}
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Insert(_ context.Context, n models.Notification) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.notifications[n.ID]; ok {
		return false, nil
	}
	r.db.notifications[n.ID] = &n
	return true, nil
}

func (r memNotifications) ListByRecipient(_ context.Context, uid uuid.UUID) ([]models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range r.db.notifications {
		if n.RecipientUID == uid {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, uid uuid.UUID, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok || n.RecipientUID != uid {
		return false, nil
	}
	n.Read = true
	return true, nil
}

type memClients struct{ db *memDB }

func (r memClients) GetProfile(_ context.Context, uid uuid.UUID) (*models.ClientProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[uid]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r memClients) UpsertProfile(_ context.Context, p models.ClientProfile) (*models.ClientProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.UpdatedAt = time.Now()
	r.db.profiles[p.UID] = &p
	cp := p
	return &cp, nil
}

func (r memClients) EnsureProfile(_ context.Context, uid uuid.UUID, displayName, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.profiles[uid]; !ok {
		r.db.profiles[uid] = &models.ClientProfile{UID: uid, DisplayName: displayName, Email: email}
	}
	return nil
}

func (r memClients) CreateInvoice(_ context.Context, uid uuid.UUID, number string, amount decimal.Decimal, currency, status string) (*models.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv := models.Invoice{ID: uuid.New(), ClientUID: uid, Number: number, Amount: amount, Currency: currency, Status: status, IssuedAt: time.Now()}
	r.db.invoices = append(r.db.invoices, inv)
	return &inv, nil
}

func (r memClients) ListInvoices(_ context.Context, uid uuid.UUID) ([]models.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Invoice, 0)
	for _, inv := range r.db.invoices {
		if inv.ClientUID == uid {
			out = append(out, inv)
		}
	}
	return out, nil
}

type stubExporter struct{ calls []string }

func (e *stubExporter) Export(_ context.Context, uri string) (string, error) {
	e.calls = append(e.calls, uri)
	return "operations/export-1", nil
}

type stubLister struct{ folders []string }

func (l stubLister) ListFolders(context.Context, string, string) ([]string, error) {
	return l.folders, nil
}
