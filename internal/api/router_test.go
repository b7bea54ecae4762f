package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/callable"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/notify"
	"github.com/lalith-99/fretboard/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	router   http.Handler
	db       *memDB
	exporter *stubExporter
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	db := newMemDB()
	logger := zap.NewNop()
	bus := live.NewMemoryBus()
	publisher := live.NewPublisher(bus, logger)

	users, runs, guitars := memUsers{db}, memRuns{db}, memGuitars{db}
	notes, notifications, clients := memNotes{db}, memNotifications{db}, memClients{db}

	notifier := notify.NewService(guitars, notes, notifications, publisher, logger)
	tracker := tracking.NewService(runs, guitars, notes, notifier, publisher, []string{"Body", "Paint", "Setup"}, logger)
	exporter := &stubExporter{}
	callables := callable.NewService(users, clients, exporter,
		stubLister{folders: []string{"2026-01-02", "2026-03-04", "scratch"}},
		callable.BackupConfig{Bucket: "fretboard-backups", Prefix: "backups", Database: "fretboard"},
		logger)

	deps := Deps{
		Users:         users,
		Runs:          runs,
		Guitars:       guitars,
		Notes:         notes,
		Notifications: notifications,
		Clients:       clients,
		Tracking:      tracker,
		Callables:     callables,
		Hooks:         live.NewHooks(bus, runs, guitars, notes, notifications, clients, logger),
		Publisher:     publisher,
		JWTSecret:     testSecret,
		TokenTTL:      time.Hour,
		Logger:        logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router := NewRouter(deps)
	return &harness{router: router, db: db, exporter: exporter}
}

// user seeds an account with role and returns its id and a token.
func (h *harness) user(t *testing.T, role auth.Role) (uuid.UUID, string) {
	t.Helper()
	u, err := memUsers{h.db}.Create(context.Background(), uuid.NewString()+"@shop.test", "Test User", "")
	require.NoError(t, err)
	if role != auth.RoleNone {
		_, err = memUsers{h.db}.SetRole(context.Background(), u.ID, role.String())
		require.NoError(t, err)
	}
	token, err := auth.GenerateToken(u.ID, u.Email, role.String(), testSecret, time.Hour)
	require.NoError(t, err)
	return u.ID, token
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *callError      `json:"error"`
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupLoginRefresh_RoleFollowsClaim(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": "Buyer@Shop.test", "password": "long-enough", "display_name": "Buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	signup := decode[authResponse](t, w)
	assert.Empty(t, signup.Role)

	w = h.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email": "buyer@shop.test", "password": "long-enough", "display_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "buyer@shop.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Self sign-up claims the client role through the callable.
	w = h.do(t, http.MethodPost, "/v1/callable/setClientRole", signup.Token, gin.H{"data": gin.H{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/v1/auth/refresh", signup.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[authResponse](t, w)
	assert.Equal(t, "client", refreshed.Role)

	claims, err := auth.ParseToken(refreshed.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "client", claims.Role)

	w = h.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "buyer@shop.test", "password": "long-enough"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client", decode[authResponse](t, w).Role)
}

func TestCallable_Envelope(t *testing.T) {
	h := newHarness(t)
	_, admin := h.user(t, auth.RoleAdmin)
	_, factory := h.user(t, auth.RoleFactory)
	clientID, _ := h.user(t, auth.RoleClient)

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/listBackups", "", gin.H{"data": nil})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode[envelope](t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "UNAUTHENTICATED", env.Error.Status)
	})

	t.Run("factory cannot back up", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/backupFirestore", factory, gin.H{"data": nil})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", decode[envelope](t, w).Error.Status)
		assert.Empty(t, h.exporter.calls)
	})

	t.Run("admin backs up", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/backupFirestore", admin, gin.H{"data": nil})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res callable.BackupResponse
		require.NoError(t, json.Unmarshal(decode[envelope](t, w).Result, &res))
		assert.True(t, res.Success)
		assert.Equal(t, "operations/export-1", res.OperationName)
		assert.Len(t, h.exporter.calls, 1)
	})

	t.Run("admin lists backups newest first", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/listBackups", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res callable.ListBackupsResponse
		require.NoError(t, json.Unmarshal(decode[envelope](t, w).Result, &res))
		require.Len(t, res.Backups, 3)
		assert.Equal(t, "2026-03-04", res.Backups[0].Name)
		assert.Equal(t, "scratch", res.Backups[2].Name)
	})

	t.Run("getUserInfo", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/getUserInfo", admin, gin.H{"data": gin.H{"uid": clientID.String()}})
		require.Equal(t, http.StatusOK, w.Code)
		var res callable.UserInfoResponse
		require.NoError(t, json.Unmarshal(decode[envelope](t, w).Result, &res))
		assert.True(t, res.Success)
		assert.Equal(t, "client", res.Role)

		w = h.do(t, http.MethodPost, "/v1/callable/getUserInfo", admin, gin.H{"data": gin.H{}})
		assert.Equal(t, "INVALID_ARGUMENT", decode[envelope](t, w).Error.Status)
	})

	t.Run("unknown function", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/dropDatabase", admin, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode[envelope](t, w).Error.Status)
	})

	t.Run("malformed data", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/v1/callable/getUserInfo", admin, gin.H{"data": "uid"})
		assert.Equal(t, "INVALID_ARGUMENT", decode[envelope](t, w).Error.Status)
	})
}

func TestRuns_StaffOnlyAndTemplate(t *testing.T) {
	h := newHarness(t)
	_, factory := h.user(t, auth.RoleFactory)
	_, client := h.user(t, auth.RoleClient)

	w := h.do(t, http.MethodPost, "/v1/runs", client, gin.H{"name": "R1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/v1/runs", "", gin.H{"name": "R1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/v1/runs", factory, gin.H{"name": "R1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode[models.Run](t, w)

	w = h.do(t, http.MethodGet, "/v1/runs/"+run.ID.String()+"/stages", factory, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stages := decode[[]models.Stage](t, w)
	require.Len(t, stages, 3)
	assert.Equal(t, "Body", stages[0].Name)

	w = h.do(t, http.MethodGet, "/v1/runs/"+uuid.NewString(), factory, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/v1/runs/not-a-uuid", factory, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// seedGuitar creates a run and a guitar owned by owner through the API.
func (h *harness) seedGuitar(t *testing.T, staff string, owner uuid.UUID) (models.Guitar, []models.Stage) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/v1/runs", staff, gin.H{"name": "Batch"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode[models.Run](t, w)

	stages, err := memRuns{h.db}.ListStages(context.Background(), run.ID)
	require.NoError(t, err)

	w = h.do(t, http.MethodPost, "/v1/guitars", staff, gin.H{
		"run_id": run.ID, "stage_id": stages[0].ID, "client_uid": owner, "serial": "B-001", "model": "Jumbo",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Guitar](t, w), stages
}

func TestGuitars_MoveAndOwnership(t *testing.T) {
	h := newHarness(t)
	_, staff := h.user(t, auth.RoleStaff)
	ownerID, owner := h.user(t, auth.RoleClient)
	_, stranger := h.user(t, auth.RoleClient)

	g, stages := h.seedGuitar(t, staff, ownerID)

	w := h.do(t, http.MethodPatch, "/v1/guitars/"+g.ID.String()+"/stage", owner, gin.H{"stage_id": stages[2].ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPatch, "/v1/guitars/"+g.ID.String()+"/stage", staff, gin.H{"stage_id": stages[2].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, stages[2].ID, *decode[models.Guitar](t, w).StageID)

	w = h.do(t, http.MethodPatch, "/v1/guitars/"+g.ID.String()+"/stage", staff, gin.H{"stage_id": uuid.New()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/v1/guitars/"+g.ID.String(), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodGet, "/v1/guitars/"+g.ID.String(), stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, "/v1/clients/"+ownerID.String()+"/guitars", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Guitar](t, w), 1)
	w = h.do(t, http.MethodGet, "/v1/clients/"+ownerID.String()+"/guitars", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotes_VisibilityAndNotifications(t *testing.T) {
	h := newHarness(t)
	_, staff := h.user(t, auth.RoleStaff)
	ownerID, owner := h.user(t, auth.RoleClient)
	_, stranger := h.user(t, auth.RoleClient)
	g, _ := h.seedGuitar(t, staff, ownerID)
	notesPath := "/v1/guitars/" + g.ID.String() + "/notes"

	w := h.do(t, http.MethodPost, notesPath, staff, gin.H{"body": "Top carved", "visible_to_client": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	visible := decode[models.Note](t, w)
	w = h.do(t, http.MethodPost, notesPath, staff, gin.H{"body": "Small tear-out, filled", "visible_to_client": false})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, notesPath, owner, gin.H{"body": "hi", "visible_to_client": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, notesPath, staff, nil)
	assert.Len(t, decode[[]models.Note](t, w), 2)

	w = h.do(t, http.MethodGet, notesPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ownerNotes := decode[[]models.Note](t, w)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, visible.ID, ownerNotes[0].ID)

	w = h.do(t, http.MethodGet, notesPath, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Only the visible note notified the owner.
	w = h.do(t, http.MethodGet, "/v1/notifications", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Notification](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationID(ownerID, visible.ID), list[0].ID)

	w = h.do(t, http.MethodPatch, "/v1/notifications/"+list[0].ID+"/read", stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(t, http.MethodPatch, "/v1/notifications/"+list[0].ID+"/read", owner, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClients_ProfilesAndInvoices(t *testing.T) {
	h := newHarness(t)
	clientID, client := h.user(t, auth.RoleClient)
	_, other := h.user(t, auth.RoleClient)
	_, accounting := h.user(t, auth.RoleAccounting)
	_, factory := h.user(t, auth.RoleFactory)
	base := "/v1/clients/" + clientID.String()

	w := h.do(t, http.MethodGet, base, client, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPut, base, client, gin.H{"display_name": "Dana", "phone": "555-0100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPut, base, other, gin.H{"display_name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, base, accounting, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dana", decode[models.ClientProfile](t, w).DisplayName)

	w = h.do(t, http.MethodGet, base, factory, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, base+"/invoices", client, gin.H{"number": "INV-1", "amount": "1200.50"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, base+"/invoices", accounting, gin.H{"number": "INV-1", "amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, base+"/invoices", accounting, gin.H{"number": "INV-1", "amount": "1200.50", "status": "void"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, base+"/invoices", accounting, gin.H{"number": "INV-1", "amount": "1200.50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[models.Invoice](t, w)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "1200.5", inv.Amount.String())

	w = h.do(t, http.MethodGet, base+"/invoices", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Invoice](t, w), 1)

	w = h.do(t, http.MethodGet, base+"/invoices", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
