package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/note"
)

// fakeStore is an in-memory NotesStore.
type fakeStore struct {
	notes map[uuid.UUID]note.Note
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: make(map[uuid.UUID]note.Note)}
}

func (s *fakeStore) Create(_ context.Context, n note.Note) (note.Note, error) {
	s.notes[n.ID] = n
	return n, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (note.Note, error) {
	n, ok := s.notes[id]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	return n, nil
}

func (s *fakeStore) List(_ context.Context, limit, offset int) ([]note.Note, error) {
	var out []note.Note
	for _, n := range s.notes {
		out = append(out, n)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, n note.Note) (note.Note, error) {
	if _, ok := s.notes[n.ID]; !ok {
		return note.Note{}, note.ErrNotFound
	}
	s.notes[n.ID] = n
	return n, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.notes[id]; !ok {
		return note.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

// testWrapper mimics the server's error adapter closely enough for
// handler tests: returned failures become status + bare message.
func testWrapper(t *testing.T) (Wrapper, *error) {
	t.Helper()
	var lastErr error
	wrap := func(fn HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := fn(w, r); err != nil {
				lastErr = err
				status := http.StatusInternalServerError
				switch f := err.(type) {
				case *failure.Domain:
					status = f.Status
				case *failure.Validation:
					status = http.StatusBadRequest
				}
				w.WriteHeader(status)
			}
		}
	}
	return wrap, &lastErr
}

func setupHandler(t *testing.T) (*fakeStore, http.Handler, *error) {
	t.Helper()
	store := newFakeStore()
	wrap, lastErr := testWrapper(t)
	return store, NewHandler(store, wrap).Router(), lastErr
}

func TestCreateNote(t *testing.T) {
	_, router, _ := setupHandler(t)

	body, _ := json.Marshal(CreateNoteRequest{Title: "Grocery list", Body: "milk"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var created note.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Grocery list", created.Title)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateNote_ValidationReportsEveryRule(t *testing.T) {
	_, router, lastErr := setupHandler(t)

	body, _ := json.Marshal(CreateNoteRequest{Title: ""})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var v *failure.Validation
	require.ErrorAs(t, *lastErr, &v)
	assert.Equal(t, []string{
		"title must not be empty",
		"title must be at least 5 characters long",
	}, v.Messages)
}

func TestCreateNote_BadJSON(t *testing.T) {
	_, router, lastErr := setupHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewReader([]byte("{"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var d *failure.Domain
	require.ErrorAs(t, *lastErr, &d)
	assert.Equal(t, "invalid request body", d.Message)
}

func TestGetNote(t *testing.T) {
	store, router, _ := setupHandler(t)
	n, _ := store.Create(context.Background(), note.New("Grocery list", "milk"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/"+n.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grocery list")
}

func TestGetNote_NotFound(t *testing.T) {
	_, router, lastErr := setupHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var d *failure.Domain
	require.ErrorAs(t, *lastErr, &d)
	assert.Equal(t, 404, d.Status)
}

func TestGetNote_InvalidID(t *testing.T) {
	_, router, lastErr := setupHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var d *failure.Domain
	require.ErrorAs(t, *lastErr, &d)
	assert.Equal(t, "invalid note id", d.Message)
}

func TestListNotes(t *testing.T) {
	store, router, _ := setupHandler(t)
	_, _ = store.Create(context.Background(), note.New("First note", ""))
	_, _ = store.Create(context.Background(), note.New("Second note", ""))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Notes []note.Note `json:"notes"`
		Limit int         `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Notes, 2)
	assert.Equal(t, defaultPageSize, out.Limit)
}

func TestListNotes_EmptyIsArray(t *testing.T) {
	_, router, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notes":[]`)
}

func TestListNotes_LimitBounds(t *testing.T) {
	_, router, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes/?limit=10000", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchNote(t *testing.T) {
	store, router, _ := setupHandler(t)
	n, _ := store.Create(context.Background(), note.New("Grocery list", "milk"))

	body := []byte(`{"title":"Updated list","ignored":"field"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/notes/"+n.ID.String(), bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var updated note.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Updated list", updated.Title)
	assert.Equal(t, "milk", updated.Body)
}

func TestPatchNote_RevalidatesMerge(t *testing.T) {
	store, router, lastErr := setupHandler(t)
	n, _ := store.Create(context.Background(), note.New("Grocery list", "milk"))

	body := []byte(`{"title":"x"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/notes/"+n.ID.String(), bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var v *failure.Validation
	require.ErrorAs(t, *lastErr, &v)
}

func TestDeleteNote(t *testing.T) {
	store, router, _ := setupHandler(t)
	n, _ := store.Create(context.Background(), note.New("Grocery list", "milk"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/notes/"+n.ID.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := store.GetByID(context.Background(), n.ID)
	assert.Error(t, err)
}
